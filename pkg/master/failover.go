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
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/benh/twesos/pkg/common/deadlinequeue"
	"github.com/benh/twesos/pkg/master/message"
	"github.com/benh/twesos/pkg/master/models"
)

// failoverItem tracks one disconnection of a framework. expires is fixed
// at creation so a retried item still names the disconnection it belongs
// to.
type failoverItem struct {
	*deadlinequeue.Item
	frameworkID models.FrameworkID
	expires     time.Time
}

func (m *master) scheduleFailover(id models.FrameworkID, deadline time.Time) {
	m.cancelFailover(id)
	item := &failoverItem{
		Item:        deadlinequeue.NewItem(string(id)),
		frameworkID: id,
		expires:     deadline,
	}
	m.failoverItems[id] = item
	m.failovers.Enqueue(item, deadline)
}

func (m *master) cancelFailover(id models.FrameworkID) {
	item, ok := m.failoverItems[id]
	if !ok {
		return
	}
	m.failovers.Remove(item)
	delete(m.failoverItems, id)
}

// watchFailovers turns due failover deadlines into loop messages.
func (m *master) watchFailovers(stopCh <-chan struct{}) {
	defer m.wg.Done()

	for {
		qi := m.failovers.Dequeue(stopCh)
		if qi == nil {
			return
		}
		item := qi.(*failoverItem)
		err := m.Enqueue(message.Envelope{Body: &message.FrameworkFailoverExpired{
			FrameworkID: item.frameworkID,
			Deadline:    item.expires,
		}})
		if err != nil {
			log.WithError(err).
				WithField("framework_id", item.frameworkID).
				Warn("Failed to deliver failover expiry, retrying")
			m.failovers.Enqueue(item, m.clock.Now().Add(_defaultFailoverRetryInterval))
		}
	}
}

func (m *master) handleFailoverExpired(msg *message.FrameworkFailoverExpired) {
	framework, ok := m.frameworks[msg.FrameworkID]
	if !ok || framework.Active || !framework.FailoverDeadline.Equal(msg.Deadline) {
		log.WithField("framework_id", msg.FrameworkID).Debug("Ignoring stale failover expiry")
		return
	}
	delete(m.failoverItems, framework.ID)
	log.WithField("framework_id", framework.ID).
		Info("Framework failover timeout expired, removing it")
	m.removeFramework(framework)
}

// handlePeerExited handles a broken connection to a framework or slave.
func (m *master) handlePeerExited(msg *message.PeerExited) {
	if id, ok := m.frameworksByAddress[msg.Address]; ok {
		if framework, ok := m.frameworks[id]; ok {
			log.WithFields(log.Fields{
				"framework_id": id,
				"address":      msg.Address,
			}).Info("Framework disconnected")
			m.frameworkDisconnected(framework)
		}
		return
	}
	if id, ok := m.slavesByAddress[msg.Address]; ok {
		if slave, ok := m.slaves[id]; ok {
			log.WithFields(log.Fields{
				"slave_id": id,
				"address":  msg.Address,
			}).Info("Slave disconnected")
			m.removeSlave(slave)
		}
		return
	}
	log.WithField("address", msg.Address).Debug("Unknown peer exited")
}
