// Copyright (c) 2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package message

import (
	"time"

	"github.com/benh/twesos/pkg/master/models"
)

// MasterIdentity seeds the master with the ID of its term. Nothing else is
// processed before it arrives.
type MasterIdentity struct {
	ID string
}

// NewMasterDetected reports the address of the elected master.
type NewMasterDetected struct {
	Address string
}

// NoMasterDetected reports that no master is currently elected.
type NoMasterDetected struct{}

// TimerTick drives liveness checks, filter expiry and the allocator.
type TimerTick struct{}

// FrameworkFailoverExpired fires when a disconnected framework was not
// reclaimed in time. Deadline identifies the disconnection it belongs to.
type FrameworkFailoverExpired struct {
	FrameworkID models.FrameworkID
	Deadline    time.Time
}

// PeerExited reports a framework or slave whose connection broke.
type PeerExited struct {
	Address string
}

// GetState asks the loop for a snapshot. The loop sends exactly one value
// on Reply, which must be buffered.
type GetState struct {
	Reply chan<- *models.MasterState
}

// Shutdown stops the master after telling every slave.
type Shutdown struct{}

func (*MasterIdentity) Kind() Kind           { return "masterIdentity" }
func (*NewMasterDetected) Kind() Kind        { return "newMasterDetected" }
func (*NoMasterDetected) Kind() Kind         { return "noMasterDetected" }
func (*TimerTick) Kind() Kind                { return "timerTick" }
func (*FrameworkFailoverExpired) Kind() Kind { return "frameworkFailoverExpired" }
func (*PeerExited) Kind() Kind               { return "peerExited" }
func (*GetState) Kind() Kind                 { return "getState" }
func (*Shutdown) Kind() Kind                 { return "shutdownMaster" }
