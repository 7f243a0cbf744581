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
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/benh/twesos/pkg/master/allocator"
	"github.com/benh/twesos/pkg/master/message"
	"github.com/benh/twesos/pkg/master/models"
)

func (m *master) sortedSlaves() []*models.Slave {
	result := make([]*models.Slave, 0, len(m.slaves))
	for _, s := range m.slaves {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *master) handleRegisterSlave(from string, msg *message.RegisterSlave) {
	slave := models.NewSlave(
		m.ids.NextSlaveID(), from, msg.Hostname, msg.PublicDNS, msg.Resources, m.now())
	log.WithFields(log.Fields{
		"slave_id":  slave.ID,
		"address":   from,
		"hostname":  slave.Hostname,
		"resources": slave.Resources,
	}).Info("Registering slave")

	m.metrics.SlavesRegistered.Inc(1)
	// A registering slave numbers its reliable updates from the start.
	m.dedup.Forget(from)
	m.addSlave(slave)
}

func (m *master) handleReregisterSlave(from string, msg *message.ReregisterSlave) {
	id := msg.SlaveID
	if id == "" {
		id = m.ids.NextSlaveID()
		log.WithField("slave_id", id).
			Error("Slave re-registered without a slave ID, generating a new one")
	}
	if existing, ok := m.slaves[id]; ok {
		// The slave reconnected before its old record timed out. Its tasks
		// are replayed below, so they are not reported lost.
		log.WithField("slave_id", id).Info("Replacing stale slave record")
		m.dropSlave(existing, false)
	}

	slave := models.NewSlave(id, from, msg.Hostname, msg.PublicDNS, msg.Resources, m.now())
	log.WithFields(log.Fields{
		"slave_id": slave.ID,
		"address":  from,
		"tasks":    len(msg.Tasks),
	}).Info("Re-registering slave")

	// Replayed tasks are attached before the allocator sees the slave so
	// only its free resources are offered.
	var replayed []*models.Task
	for _, t := range msg.Tasks {
		if !t.State.IsValid() || t.State.IsTerminal() {
			log.WithFields(log.Fields{
				"slave_id": slave.ID,
				"task_id":  t.TaskID,
				"state":    t.State,
			}).Warn("Not replaying finished or unknown task")
			continue
		}
		task, err := models.NewTask(t.TaskID, t.FrameworkID, slave.ID, t.Name, t.Resources, t.State, m.clock)
		if err != nil {
			log.WithError(err).
				WithField("task_id", t.TaskID).
				Error("Failed to replay task")
			continue
		}
		slave.Tasks[task.Key()] = task
		if framework, ok := m.frameworks[task.FrameworkID]; ok {
			framework.Tasks[task.ID] = task
		}
		replayed = append(replayed, task)
	}

	m.metrics.SlavesReregistered.Inc(1)
	m.dedup.Forget(from)
	m.addSlave(slave)

	for _, task := range replayed {
		m.allocator.TaskAdded(task)
		// Tell the slave where the task's framework lives now.
		if framework, ok := m.frameworks[task.FrameworkID]; ok {
			m.sender.Send(slave.Address, &message.UpdateFrameworkAddress{
				FrameworkID: framework.ID,
				Address:     framework.Address,
			})
		}
	}
}

func (m *master) addSlave(slave *models.Slave) {
	m.slaves[slave.ID] = slave
	m.slavesByAddress[slave.Address] = slave.ID
	m.sender.Send(slave.Address, &message.SlaveRegistered{
		SlaveID:           slave.ID,
		HeartbeatInterval: m.cfg.HeartbeatInterval,
	})
	m.allocator.SlaveAdded(slave)
}

func (m *master) handleUnregisterSlave(msg *message.UnregisterSlave) {
	slave, ok := m.slaves[msg.SlaveID]
	if !ok {
		return
	}
	log.WithField("slave_id", slave.ID).Info("Asked to unregister slave")
	m.removeSlave(slave)
}

func (m *master) handleHeartbeat(from string, msg *message.Heartbeat) {
	slave, ok := m.slaves[msg.SlaveID]
	if !ok {
		log.WithFields(log.Fields{
			"slave_id": msg.SlaveID,
			"address":  from,
		}).Warn("Received heartbeat for unknown slave")
		return
	}
	slave.LastHeartbeat = m.now()
}

func (m *master) handleSlaveToFramework(msg *message.SlaveToFramework) {
	if _, ok := m.slaves[msg.SlaveID]; !ok {
		return
	}
	framework, ok := m.frameworks[msg.FrameworkID]
	if !ok {
		return
	}
	m.sender.Send(framework.Address, &message.FrameworkMessage{
		SlaveID: msg.SlaveID,
		TaskID:  msg.TaskID,
		Data:    msg.Data,
	})
}

func (m *master) handleExecutorLost(msg *message.ExecutorLost) {
	slave, ok := m.slaves[msg.SlaveID]
	if !ok {
		return
	}
	framework, ok := m.frameworks[msg.FrameworkID]
	if !ok {
		return
	}

	logger := log.WithFields(log.Fields{
		"slave_id":     slave.ID,
		"hostname":     slave.Hostname,
		"framework_id": framework.ID,
	})
	if msg.Status == message.ExecutorDisconnected {
		logger.Info("Executor disconnected")
	} else {
		logger.WithField("status", msg.Status).Info("Executor exited")
	}

	for _, task := range sortedTasks(framework.Tasks) {
		if task.SlaveID != slave.ID {
			continue
		}
		m.sendStatus(framework, task.ID, models.TaskLost, task.Message)
		logger.WithField("task_id", task.ID).Info("Removing task because of lost executor")
		m.removeTask(task, allocator.TaskExecutorLost)
	}
}

// removeSlave loses every task on the slave, reporting each to its
// framework exactly once, and rescinds the slave's offers.
func (m *master) removeSlave(slave *models.Slave) {
	m.dropSlave(slave, true)
}

// dropSlave removes the slave record. When lost is false the tasks and the
// slave are dropped without telling frameworks.
func (m *master) dropSlave(slave *models.Slave, lost bool) {
	slave.Active = false

	tasks := make([]*models.Task, 0, len(slave.Tasks))
	for _, t := range slave.Tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Key().String() < tasks[j].Key().String() })
	for _, task := range tasks {
		// The framework may not have re-registered after a master failover.
		if framework, ok := m.frameworks[task.FrameworkID]; ok && lost {
			m.sendStatus(framework, task.ID, models.TaskLost, task.Message)
		}
		m.removeTask(task, allocator.TaskSlaveLost)
	}

	for _, offer := range m.offersOf(slave.Offers) {
		var others []models.SlaveResources
		for _, r := range offer.Resources {
			if r.SlaveID != slave.ID {
				others = append(others, r)
			}
		}
		m.removeOffer(offer, allocator.OfferSlaveLost, others)
	}

	frameworks := m.sortedFrameworks()
	for _, framework := range frameworks {
		delete(framework.SlaveFilter, slave.ID)
	}
	if lost {
		for _, framework := range frameworks {
			m.sender.Send(framework.Address, &message.LostSlave{SlaveID: slave.ID})
		}
	}

	if m.slavesByAddress[slave.Address] == slave.ID {
		delete(m.slavesByAddress, slave.Address)
		m.dedup.Forget(slave.Address)
	}
	delete(m.slaves, slave.ID)
	m.forgetPeer(slave.Address)
	m.metrics.SlavesRemoved.Inc(1)
	log.WithField("slave_id", slave.ID).Info("Removed slave")
	m.allocator.SlaveRemoved(slave)
}
