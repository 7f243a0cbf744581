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
	"github.com/benh/twesos/pkg/master/message"
	"github.com/benh/twesos/pkg/master/models"
)

func (s *MasterTestSuite) updateEnvelope(
	slaveID models.SlaveID,
	frameworkID models.FrameworkID,
	state models.TaskState,
	seq uint64,
) message.Envelope {
	return message.Envelope{
		From: _slaveAddr1,
		Seq:  seq,
		Body: &message.SlaveStatusUpdate{
			SlaveID:     slaveID,
			FrameworkID: frameworkID,
			TaskID:      "t1",
			State:       state,
			Reliable:    seq != 0,
		},
	}
}

func (s *MasterTestSuite) TestStatusUpdateLifecycle() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	task := s.launch(_frameworkAddr1, frameworkID, slaveID, "t1")

	s.processEnvelope(s.updateEnvelope(slaveID, frameworkID, models.TaskRunning, 0))
	s.Equal(models.TaskRunning, task.State())

	s.processEnvelope(s.updateEnvelope(slaveID, frameworkID, models.TaskFinished, 0))
	s.NotContains(s.m.frameworks[frameworkID].Tasks, models.TaskID("t1"))
	s.Empty(s.m.slaves[slaveID].Tasks)

	statuses := s.sender.statuses(_frameworkAddr1)
	s.Require().Len(statuses, 2)
	s.Equal(models.TaskRunning, statuses[0].State)
	s.Equal(models.TaskFinished, statuses[1].State)
	s.Zero(statuses[1].Seq)
	s.Equal(int64(1), s.counter("task.finished"))
	s.Equal(int64(2), s.counter("task.status_updates"))
}

func (s *MasterTestSuite) TestDuplicateUpdatesAppliedOnce() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	task := s.launch(_frameworkAddr1, frameworkID, slaveID, "t1")

	s.processEnvelope(s.updateEnvelope(slaveID, frameworkID, models.TaskRunning, 1))
	s.processEnvelope(s.updateEnvelope(slaveID, frameworkID, models.TaskRunning, 1))
	s.Equal(models.TaskRunning, task.State())

	s.processEnvelope(s.updateEnvelope(slaveID, frameworkID, models.TaskFailed, 2))
	s.processEnvelope(s.updateEnvelope(slaveID, frameworkID, models.TaskFailed, 2))
	s.Empty(s.m.slaves[slaveID].Tasks)

	// Every copy is relayed so the slave gets its acknowledgement.
	statuses := s.sender.statuses(_frameworkAddr1)
	s.Require().Len(statuses, 4)
	for i, seq := range []uint64{1, 1, 2, 2} {
		s.Equal(seq, statuses[i].Seq)
	}
	s.Equal(int64(2), s.counter("task.duplicate_updates"))
	s.Equal(int64(1), s.counter("task.failed"))
}

func (s *MasterTestSuite) TestDuplicatesAreTrackedPerSender() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	task := s.launch(_frameworkAddr1, frameworkID, slaveID, "t1")

	s.processEnvelope(s.updateEnvelope(slaveID, frameworkID, models.TaskRunning, 1))
	env := s.updateEnvelope(slaveID, frameworkID, models.TaskKilled, 1)
	env.From = _slaveAddr2
	s.processEnvelope(env)
	s.Equal(models.TaskKilled, task.State())
	s.Zero(s.counter("task.duplicate_updates"))
}

func (s *MasterTestSuite) TestRemovedSlaveSequencesForgotten() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	s.launch(_frameworkAddr1, frameworkID, slaveID, "t1")
	s.processEnvelope(s.updateEnvelope(slaveID, frameworkID, models.TaskRunning, 1))

	s.process(_slaveAddr1, &message.UnregisterSlave{SlaveID: slaveID})

	// A restarted slave on the same address numbers its updates from 1.
	slaveID = s.registerSlave(_slaveAddr1, 4, 1024)
	task := s.launch(_frameworkAddr1, frameworkID, slaveID, "t1")
	s.processEnvelope(s.updateEnvelope(slaveID, frameworkID, models.TaskRunning, 1))
	s.Equal(models.TaskRunning, task.State())
	s.Zero(s.counter("task.duplicate_updates"))
}

func (s *MasterTestSuite) TestInvalidTransitionRelayedNotApplied() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	task := s.launch(_frameworkAddr1, frameworkID, slaveID, "t1")

	s.processEnvelope(s.updateEnvelope(slaveID, frameworkID, models.TaskRunning, 0))
	s.processEnvelope(s.updateEnvelope(slaveID, frameworkID, models.TaskStarting, 0))
	s.Equal(models.TaskRunning, task.State())
	s.Len(s.sender.statuses(_frameworkAddr1), 2)
	s.Equal(int64(1), s.counter("task.invalid_transitions"))
}

func (s *MasterTestSuite) TestStatusUpdateFromUnknownParties() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	s.launch(_frameworkAddr1, frameworkID, slaveID, "t1")
	s.sender.reset()

	s.processEnvelope(s.updateEnvelope("M-9", frameworkID, models.TaskFinished, 0))
	s.processEnvelope(s.updateEnvelope(slaveID, "M-9999", models.TaskFinished, 0))
	s.Empty(s.sender.sent)
	s.Len(s.m.slaves[slaveID].Tasks, 1)

	// An unknown task is still relayed.
	env := s.updateEnvelope(slaveID, frameworkID, models.TaskFinished, 0)
	env.Body.(*message.SlaveStatusUpdate).TaskID = "t9"
	s.processEnvelope(env)
	s.Len(s.sender.statuses(_frameworkAddr1), 1)
	s.Len(s.m.slaves[slaveID].Tasks, 1)
}
