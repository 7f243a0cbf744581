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
	log "github.com/sirupsen/logrus"

	"github.com/benh/twesos/pkg/master/allocator"
	"github.com/benh/twesos/pkg/master/message"
	"github.com/benh/twesos/pkg/master/models"
)

// deliveryMode is how often a status update may reach the master.
type deliveryMode int

const (
	// atMostOnce updates are applied as they come.
	atMostOnce deliveryMode = iota
	// atLeastOnce updates are retried by the slave until acknowledged and
	// are applied once per sender sequence number.
	atLeastOnce
)

func (d deliveryMode) String() string {
	if d == atLeastOnce {
		return "at-least-once"
	}
	return "at-most-once"
}

func (m *master) handleStatusUpdate(env message.Envelope, msg *message.SlaveStatusUpdate) {
	mode := atMostOnce
	if msg.Reliable {
		mode = atLeastOnce
	}
	m.applyStatusUpdate(env.From, env.Seq, mode, msg)
}

// applyStatusUpdate relays the update to the framework and applies it to
// the task. Duplicates of at-least-once updates are still relayed so the
// slave's retries get acknowledged, but never applied twice.
func (m *master) applyStatusUpdate(
	from string,
	seq uint64,
	mode deliveryMode,
	msg *message.SlaveStatusUpdate,
) {
	m.metrics.StatusUpdates.Inc(1)
	logger := log.WithFields(log.Fields{
		"slave_id":     msg.SlaveID,
		"framework_id": msg.FrameworkID,
		"task_id":      msg.TaskID,
		"state":        msg.State,
		"mode":         mode,
	})

	slave, ok := m.slaves[msg.SlaveID]
	if !ok {
		logger.Error("Status update from unknown slave")
		return
	}
	framework, ok := m.frameworks[msg.FrameworkID]
	if !ok {
		logger.Error("Status update for unknown framework")
		return
	}

	update := &message.StatusUpdate{
		TaskID: msg.TaskID,
		State:  msg.State,
		Data:   msg.Data,
	}
	if mode == atLeastOnce {
		update.Seq = seq
	}
	m.sender.Send(framework.Address, update)

	if mode == atLeastOnce && m.dedup.Observe(from, seq) {
		m.metrics.DuplicateUpdates.Inc(1)
		logger.WithField("seq", seq).Warn("Locally ignoring duplicate status update")
		return
	}

	task, ok := slave.Tasks[models.TaskKey{FrameworkID: framework.ID, TaskID: msg.TaskID}]
	if !ok {
		logger.Debug("Status update for unknown task")
		return
	}
	if err := task.TransitTo(msg.State, msg.Data); err != nil {
		m.metrics.InvalidTransitions.Inc(1)
		logger.WithError(err).
			WithField("current", task.State()).
			Warn("Ignoring invalid task transition")
		return
	}
	logger.Info("Status update")

	if msg.State.IsTerminal() {
		m.countTerminal(msg.State)
		logger.Info("Removing task because it's done")
		m.removeTask(task, allocator.TaskEnded)
	}
}

// removeTask drops the task from its framework and its slave in one step.
func (m *master) removeTask(task *models.Task, reason allocator.TaskRemovalReason) {
	if framework, ok := m.frameworks[task.FrameworkID]; ok && framework.Tasks[task.ID] == task {
		delete(framework.Tasks, task.ID)
	}
	if slave, ok := m.slaves[task.SlaveID]; ok {
		delete(slave.Tasks, task.Key())
	}
	m.allocator.TaskRemoved(task, reason)
}

// sendStatus sends a status the master decided on itself.
func (m *master) sendStatus(
	framework *models.Framework,
	taskID models.TaskID,
	state models.TaskState,
	data []byte,
) {
	if state == models.TaskLost {
		m.metrics.TasksLost.Inc(1)
	}
	m.sender.Send(framework.Address, &message.StatusUpdate{
		TaskID: taskID,
		State:  state,
		Data:   data,
	})
}

func (m *master) countTerminal(state models.TaskState) {
	switch state {
	case models.TaskFinished:
		m.metrics.TasksFinished.Inc(1)
	case models.TaskFailed:
		m.metrics.TasksFailed.Inc(1)
	case models.TaskKilled:
		m.metrics.TasksKilled.Inc(1)
	case models.TaskLost:
		m.metrics.TasksLost.Inc(1)
	}
}
