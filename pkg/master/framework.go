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
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/benh/twesos/pkg/master/allocator"
	"github.com/benh/twesos/pkg/master/message"
	"github.com/benh/twesos/pkg/master/models"
)

const _rootUser = "root"

func (m *master) sortedFrameworks() []*models.Framework {
	result := make([]*models.Framework, 0, len(m.frameworks))
	for _, f := range m.frameworks {
		result = append(result, f)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *master) handleRegisterFramework(from string, msg *message.RegisterFramework) {
	if msg.Executor.URI == "" {
		m.rejectFramework(from, "No executor URI given")
		return
	}
	if msg.User == _rootUser && !m.cfg.RootSubmissions {
		m.rejectFramework(from, "Root is not allowed to submit jobs on this cluster")
		return
	}

	framework := models.NewFramework(
		m.ids.NextFrameworkID(), from, msg.Name, msg.User, msg.Executor, m.now())
	log.WithFields(log.Fields{
		"framework_id": framework.ID,
		"address":      from,
		"name":         msg.Name,
		"user":         msg.User,
	}).Info("Registering framework")

	m.metrics.FrameworksRegistered.Inc(1)
	m.addFramework(framework)
}

func (m *master) handleReregisterFramework(from string, msg *message.ReregisterFramework) {
	if msg.Executor.URI == "" {
		m.rejectFramework(from, "No executor URI given")
		return
	}
	if msg.FrameworkID == "" {
		m.rejectFramework(from, "Missing framework id")
		return
	}

	framework := models.NewFramework(
		msg.FrameworkID, from, msg.Name, msg.User, msg.Executor, m.now())
	logger := log.WithFields(log.Fields{
		"framework_id": framework.ID,
		"address":      from,
		"generation":   msg.Generation,
	})

	existing, ok := m.frameworks[framework.ID]
	switch {
	case ok && (msg.Generation == 0 || !existing.Active):
		logger.Info("Framework failed over")
		m.replaceFramework(existing, framework)
	case ok:
		logger.Warn("Framework re-registering with an ID in use")
		m.rejectFramework(from, "Framework id in use")
		return
	default:
		logger.Info("Re-registering framework")
		m.addFramework(framework)
	}
	m.metrics.FrameworksReregistered.Inc(1)

	// Reunite the framework with tasks still running on slaves, and point
	// every slave at the framework's new address since an executor may be
	// running there without any task.
	slaves := m.sortedSlaves()
	for _, slave := range slaves {
		for _, task := range slave.Tasks {
			if task.FrameworkID == framework.ID {
				framework.Tasks[task.ID] = task
			}
		}
	}
	for _, slave := range slaves {
		m.sender.Send(slave.Address, &message.UpdateFrameworkAddress{
			FrameworkID: framework.ID,
			Address:     framework.Address,
		})
	}
}

func (m *master) handleUnregisterFramework(from string, msg *message.UnregisterFramework) {
	framework, ok := m.frameworks[msg.FrameworkID]
	if !ok || framework.Address != from {
		log.WithFields(log.Fields{
			"framework_id": msg.FrameworkID,
			"address":      from,
		}).Warn("Non-authoritative address attempting framework unregistration, ignoring")
		return
	}
	log.WithField("framework_id", framework.ID).Info("Unregistering framework")
	m.removeFramework(framework)
}

func (m *master) handleReviveOffers(msg *message.ReviveOffers) {
	framework, ok := m.frameworks[msg.FrameworkID]
	if !ok {
		return
	}
	log.WithField("framework_id", framework.ID).Info("Reviving offers")
	framework.SlaveFilter = make(map[models.SlaveID]time.Time)
	m.allocator.OffersRevived(framework)
}

func (m *master) handleKillTask(msg *message.KillTask) {
	framework, ok := m.frameworks[msg.FrameworkID]
	if !ok {
		log.WithField("framework_id", msg.FrameworkID).
			Warn("Kill task from unknown framework")
		return
	}
	task, ok := framework.Tasks[msg.TaskID]
	if !ok {
		log.WithFields(log.Fields{
			"framework_id": framework.ID,
			"task_id":      msg.TaskID,
		}).Info("Asked to kill unknown task")
		m.sendStatus(framework, msg.TaskID, models.TaskLost, nil)
		return
	}
	m.killTask(task)
}

// killTask asks the slave to kill the task. The task stays until the
// slave reports it terminal.
func (m *master) killTask(task *models.Task) {
	slave, ok := m.slaves[task.SlaveID]
	if !ok {
		return
	}
	log.WithFields(log.Fields{
		"framework_id": task.FrameworkID,
		"task_id":      task.ID,
		"slave_id":     slave.ID,
	}).Info("Killing task")
	m.sender.Send(slave.Address, &message.SlaveKillTask{
		FrameworkID: task.FrameworkID,
		TaskID:      task.ID,
	})
}

func (m *master) handleFrameworkToSlave(msg *message.FrameworkToSlave) {
	if _, ok := m.frameworks[msg.FrameworkID]; !ok {
		return
	}
	slave, ok := m.slaves[msg.SlaveID]
	if !ok {
		return
	}
	m.sender.Send(slave.Address, &message.SlaveFrameworkMessage{
		FrameworkID: msg.FrameworkID,
		SlaveID:     msg.SlaveID,
		TaskID:      msg.TaskID,
		Data:        msg.Data,
	})
}

// rejectFramework refuses admission. The framework never enters the model.
func (m *master) rejectFramework(address, reason string) {
	m.metrics.FrameworksRejected.Inc(1)
	log.WithFields(log.Fields{
		"address": address,
		"reason":  reason,
	}).Info("Rejecting framework")
	m.sender.Send(address, &message.Error{Code: message.ErrorCodeRejected, Message: reason})
}

func (m *master) addFramework(framework *models.Framework) {
	m.frameworks[framework.ID] = framework
	m.frameworksByAddress[framework.Address] = framework.ID
	m.sender.Send(framework.Address, &message.FrameworkRegistered{FrameworkID: framework.ID})
	m.allocator.FrameworkAdded(framework)
}

// replaceFramework hands the ID and tasks of old to current, rescinding
// everything offered to old.
func (m *master) replaceFramework(old, current *models.Framework) {
	old.Active = false
	m.cancelFailover(old.ID)
	for _, offer := range m.offersOf(old.Offers) {
		m.removeOffer(offer, allocator.OfferFrameworkFailover, offer.Resources)
	}

	if old.Address != current.Address {
		m.sender.Send(old.Address, &message.Error{
			Code:    message.ErrorCodeRejected,
			Message: "Framework failover",
		})
	}
	if m.frameworksByAddress[old.Address] == old.ID {
		delete(m.frameworksByAddress, old.Address)
	}

	for id, task := range old.Tasks {
		current.Tasks[id] = task
	}
	m.frameworks[current.ID] = current
	m.frameworksByAddress[current.Address] = current.ID
	if old.Address != current.Address {
		m.forgetPeer(old.Address)
	}
	m.metrics.FrameworksFailedOver.Inc(1)
	m.sender.Send(current.Address, &message.FrameworkRegistered{FrameworkID: current.ID})
}

// terminateFramework tells the framework why and removes it.
func (m *master) terminateFramework(framework *models.Framework, code int32, reason string) {
	log.WithFields(log.Fields{
		"framework_id": framework.ID,
		"reason":       reason,
	}).Info("Terminating framework")
	m.metrics.FrameworksTerminated.Inc(1)
	m.sender.Send(framework.Address, &message.Error{Code: code, Message: reason})
	m.removeFramework(framework)
}

// removeFramework kills the framework on every slave and drops its tasks
// and offers.
func (m *master) removeFramework(framework *models.Framework) {
	framework.Active = false
	m.cancelFailover(framework.ID)

	for _, slave := range m.sortedSlaves() {
		m.sender.Send(slave.Address, &message.KillFramework{FrameworkID: framework.ID})
	}

	for _, task := range sortedTasks(framework.Tasks) {
		m.removeTask(task, allocator.TaskFrameworkLost)
	}
	for _, offer := range m.offersOf(framework.Offers) {
		m.removeOffer(offer, allocator.OfferFrameworkLost, offer.Resources)
	}

	if m.frameworksByAddress[framework.Address] == framework.ID {
		delete(m.frameworksByAddress, framework.Address)
	}
	delete(m.frameworks, framework.ID)
	m.forgetPeer(framework.Address)
	m.metrics.FrameworksRemoved.Inc(1)
	log.WithField("framework_id", framework.ID).Info("Removed framework")
	m.allocator.FrameworkRemoved(framework)
}

// frameworkDisconnected removes the framework, or with a failover timeout
// deactivates it until it re-registers or the timeout expires.
func (m *master) frameworkDisconnected(framework *models.Framework) {
	if m.cfg.FrameworkFailoverTimeout <= 0 {
		m.removeFramework(framework)
		return
	}
	if !framework.Active {
		return
	}

	framework.Active = false
	for _, offer := range m.offersOf(framework.Offers) {
		m.removeOffer(offer, allocator.OfferFrameworkFailover, offer.Resources)
	}
	deadline := m.now().Add(m.cfg.FrameworkFailoverTimeout)
	framework.FailoverDeadline = deadline
	m.scheduleFailover(framework.ID, deadline)

	log.WithFields(log.Fields{
		"framework_id": framework.ID,
		"deadline":     deadline,
	}).Info("Framework disconnected, waiting for failover")
}

func sortedTasks(tasks map[models.TaskID]*models.Task) []*models.Task {
	result := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// forgetPeer releases the sender's state for an address no framework or
// slave uses any more. Messages already queued are still delivered.
func (m *master) forgetPeer(address string) {
	for _, framework := range m.frameworks {
		if framework.Address == address {
			return
		}
	}
	for _, slave := range m.slaves {
		if slave.Address == address {
			return
		}
	}
	m.sender.Forget(address)
}
