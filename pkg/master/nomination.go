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

package master

import (
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/benh/twesos/pkg/common/leader"
	"github.com/benh/twesos/pkg/master/message"
)

// Nomination feeds leadership changes of a candidate into a master.
type Nomination struct {
	id     string
	master Master
	clock  clockwork.Clock
}

// NewNomination returns the nomination of a master campaigning under id,
// the value peers read from the leader node.
func NewNomination(id string, master Master, clock clockwork.Clock) *Nomination {
	return &Nomination{id: id, master: master, clock: clock}
}

// GetID returns the leader node value.
func (n *Nomination) GetID() string {
	return n.id
}

// GainedLeadershipCallback seeds the master with a fresh identity.
func (n *Nomination) GainedLeadershipCallback() error {
	masterID := leader.NewMasterID(n.clock.Now())
	log.WithField("master_id", masterID).Info("Gained leadership")
	return n.master.Enqueue(message.Envelope{Body: &message.MasterIdentity{ID: masterID}})
}

// LostLeadershipCallback reports that no master is elected.
func (n *Nomination) LostLeadershipCallback() error {
	log.WithField("id", n.id).Info("Lost leadership")
	return n.master.Enqueue(message.Envelope{Body: &message.NoMasterDetected{}})
}

// ShutDownCallback stops the master once the candidate stops campaigning.
func (n *Nomination) ShutDownCallback() error {
	n.master.Stop()
	return nil
}

var _ leader.Nomination = (*Nomination)(nil)
