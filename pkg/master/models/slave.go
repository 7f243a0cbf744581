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


package models

import (
	"time"

	"github.com/benh/twesos/pkg/common/scalar"
)

// Slave is one worker node contributing resources.
type Slave struct {
	ID        SlaveID
	Address   string
	Hostname  string
	PublicDNS string

	Resources        scalar.Resources
	ResourcesOffered scalar.Resources

	Offers map[OfferID]struct{}
	Tasks  map[TaskKey]*Task

	ConnectTime   time.Time
	LastHeartbeat time.Time
	Active        bool
}

// NewSlave returns an active slave with empty collections.
func NewSlave(
	id SlaveID,
	address string,
	hostname string,
	publicDNS string,
	resources scalar.Resources,
	now time.Time,
) *Slave {
	return &Slave{
		ID:            id,
		Address:       address,
		Hostname:      hostname,
		PublicDNS:     publicDNS,
		Resources:     resources,
		Offers:        make(map[OfferID]struct{}),
		Tasks:         make(map[TaskKey]*Task),
		ConnectTime:   now,
		LastHeartbeat: now,
		Active:        true,
	}
}

// ResourcesInUse sums the resources of the tasks on the slave.
func (s *Slave) ResourcesInUse() scalar.Resources {
	var total scalar.Resources
	for _, t := range s.Tasks {
		total = total.Add(t.Resources)
	}
	return total
}

// FreeResources is what is neither offered nor used by tasks.
func (s *Slave) FreeResources() scalar.Resources {
	return s.Resources.Subtract(s.ResourcesOffered).Subtract(s.ResourcesInUse())
}
