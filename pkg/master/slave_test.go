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

	"github.com/benh/twesos/pkg/common/scalar"
	"github.com/benh/twesos/pkg/master/message"
	"github.com/benh/twesos/pkg/master/models"
)

func (s *MasterTestSuite) TestRegisterSlaveReply() {
	s.registerSlave(_slaveAddr1, 4, 1024)
	s.Equal([]message.Message{&message.SlaveRegistered{
		SlaveID:           "M-0",
		HeartbeatInterval: s.m.cfg.HeartbeatInterval,
	}}, s.sender.to(_slaveAddr1))
	s.Equal(models.SlaveID("M-0"), s.m.slavesByAddress[_slaveAddr1])
}

func (s *MasterTestSuite) TestMissedHeartbeatsLoseTasksOnce() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	offer := s.lastOffer(_frameworkAddr1)
	s.process(_frameworkAddr1, &message.OfferReply{
		FrameworkID: frameworkID,
		OfferID:     offer.OfferID,
		Tasks: []message.TaskDescription{
			taskDesc("t1", slaveID, 1, 64),
			taskDesc("t2", slaveID, 1, 64),
		},
	})
	s.Len(s.m.slaves[slaveID].Tasks, 2)

	s.Equal(2*s.m.cfg.HeartbeatInterval, s.m.cfg.HeartbeatTimeout)

	// One missed heartbeat window is tolerated.
	s.clock.Advance(s.m.cfg.HeartbeatInterval)
	s.process("", &message.TimerTick{})
	s.Contains(s.m.slaves, slaveID)

	// The second consecutive miss removes the slave.
	s.clock.Advance(s.m.cfg.HeartbeatInterval)
	s.process("", &message.TimerTick{})
	s.NotContains(s.m.slaves, slaveID)
	s.Empty(s.m.frameworks[frameworkID].Tasks)
	s.Empty(s.m.offers)

	s.process("", &message.TimerTick{})
	s.process(_slaveAddr1, &message.Heartbeat{SlaveID: slaveID})

	lost := map[models.TaskID]int{}
	for _, u := range s.sender.statuses(_frameworkAddr1) {
		s.Equal(models.TaskLost, u.State)
		lost[u.TaskID]++
	}
	s.Equal(map[models.TaskID]int{"t1": 1, "t2": 1}, lost)
	s.Contains(s.sender.to(_frameworkAddr1), message.Message(&message.LostSlave{SlaveID: slaveID}))
	s.Equal(int64(1), s.counter("slave.timed_out"))
	s.Equal(int64(2), s.counter("task.lost"))
}

func (s *MasterTestSuite) TestHeartbeatKeepsSlaveAlive() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	for i := 0; i < 10; i++ {
		s.clock.Advance(s.m.cfg.HeartbeatInterval)
		s.process(_slaveAddr1, &message.Heartbeat{SlaveID: slaveID})
		s.process("", &message.TimerTick{})
	}
	s.Contains(s.m.slaves, slaveID)
	s.Equal(s.clock.Now(), s.m.slaves[slaveID].LastHeartbeat)
}

func (s *MasterTestSuite) TestSlaveRemovalClearsFilters() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	s.process(_frameworkAddr1, &message.OfferReply{
		FrameworkID: frameworkID,
		OfferID:     s.lastOffer(_frameworkAddr1).OfferID,
		Params:      map[string]string{"timeout": "-1"},
	})
	framework := s.m.frameworks[frameworkID]
	s.Contains(framework.SlaveFilter, slaveID)

	s.process(_slaveAddr1, &message.UnregisterSlave{SlaveID: slaveID})
	s.NotContains(s.m.slaves, slaveID)
	s.NotContains(s.m.slavesByAddress, _slaveAddr1)
	s.Empty(framework.SlaveFilter)
	s.Contains(s.sender.to(_frameworkAddr1), message.Message(&message.LostSlave{SlaveID: slaveID}))
}

func (s *MasterTestSuite) TestSlaveRemovalRescindsOffers() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	otherID := s.registerSlave(_slaveAddr2, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	offer := s.lastOffer(_frameworkAddr1)
	s.Require().Len(offer.Offers, 2)

	s.process("", &message.PeerExited{Address: _slaveAddr1})
	s.NotContains(s.m.slaves, slaveID)
	s.NotContains(s.m.offers, offer.OfferID)
	s.Contains(s.sender.to(_frameworkAddr1), message.Message(&message.RescindOffer{OfferID: offer.OfferID}))

	// The surviving slave is offered again on its own.
	next := s.lastOffer(_frameworkAddr1)
	s.NotEqual(offer.OfferID, next.OfferID)
	s.Require().Len(next.Offers, 1)
	s.Equal(otherID, next.Offers[0].SlaveID)
	s.Equal(scalar.Resources{CPU: 4, Mem: 1024}, s.m.slaves[otherID].ResourcesOffered)
	s.Contains(s.m.frameworks[frameworkID].Offers, next.OfferID)
}

func (s *MasterTestSuite) TestReregisterSlaveReplaysTasks() {
	frameworkID := s.registerFramework(_frameworkAddr1)

	s.process(_slaveAddr1, &message.ReregisterSlave{
		SlaveID:   "old-3",
		Hostname:  _slaveAddr1,
		Resources: scalar.Resources{CPU: 4, Mem: 1024},
		Tasks: []message.RunningTask{
			{
				FrameworkID: frameworkID,
				TaskID:      "t1",
				State:       models.TaskStarting,
				Resources:   scalar.Resources{CPU: 1, Mem: 64},
			},
			{
				FrameworkID: frameworkID,
				TaskID:      "t2",
				State:       models.TaskFinished,
				Resources:   scalar.Resources{CPU: 1, Mem: 64},
			},
			{
				FrameworkID: "gone-0000",
				TaskID:      "t3",
				State:       "BOGUS",
				Resources:   scalar.Resources{CPU: 1, Mem: 64},
			},
		},
	})

	slave := s.m.slaves["old-3"]
	s.Require().NotNil(slave)
	// Finished and unknown tasks are not replayed.
	s.Len(slave.Tasks, 1)
	framework := s.m.frameworks[frameworkID]
	s.Equal(models.TaskStarting, framework.Tasks["t1"].State())
	s.NotContains(framework.Tasks, models.TaskID("t2"))
	s.NotContains(slave.Tasks, models.TaskKey{FrameworkID: "gone-0000", TaskID: "t3"})

	// Only the replayed task's resources are held back from the offer.
	offer := s.lastOffer(_frameworkAddr1)
	s.Require().Len(offer.Offers, 1)
	s.Equal(map[string]string{"cpus": "3", "mem": "960"}, offer.Offers[0].Params)
	s.Contains(s.sender.to(_slaveAddr1), message.Message(&message.UpdateFrameworkAddress{
		FrameworkID: frameworkID,
		Address:     _frameworkAddr1,
	}))
	s.Equal(int64(1), s.counter("slave.reregistered"))
}

func (s *MasterTestSuite) TestReregisterSlaveWithoutIDGetsOne() {
	s.process(_slaveAddr1, &message.ReregisterSlave{
		Hostname:  _slaveAddr1,
		Resources: scalar.Resources{CPU: 4, Mem: 1024},
	})
	s.Contains(s.m.slaves, models.SlaveID("M-0"))
}

func (s *MasterTestSuite) TestReregisterLiveSlaveReplacesRecord() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	s.launch(_frameworkAddr1, frameworkID, slaveID, "t1")
	s.sender.reset()

	s.clock.Advance(time.Second)
	s.process(_slaveAddr2, &message.ReregisterSlave{
		SlaveID:   slaveID,
		Hostname:  _slaveAddr2,
		Resources: scalar.Resources{CPU: 8, Mem: 2048},
		Tasks: []message.RunningTask{{
			FrameworkID: frameworkID,
			TaskID:      "t1",
			State:       models.TaskRunning,
			Resources:   scalar.Resources{CPU: 1, Mem: 64},
		}},
	})

	slave := s.m.slaves[slaveID]
	s.Equal(_slaveAddr2, slave.Address)
	s.Equal(8.0, slave.Resources.CPU)
	s.Equal(s.clock.Now(), slave.LastHeartbeat)
	s.NotContains(s.m.slavesByAddress, _slaveAddr1)
	s.Contains(s.m.frameworks[frameworkID].Tasks, models.TaskID("t1"))
	// Nothing was reported lost.
	s.Empty(s.sender.statuses(_frameworkAddr1))
	s.NotContains(s.sender.kinds(_frameworkAddr1), message.Kind("lostSlave"))
}

func (s *MasterTestSuite) TestReregisteredSlaveSequencesStartOver() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	s.launch(_frameworkAddr1, frameworkID, slaveID, "t1")
	s.processEnvelope(s.updateEnvelope(slaveID, frameworkID, models.TaskRunning, 1))

	// The slave restarts and reconnects before its record times out.
	s.process(_slaveAddr1, &message.ReregisterSlave{
		SlaveID:   slaveID,
		Hostname:  _slaveAddr1,
		Resources: scalar.Resources{CPU: 4, Mem: 1024},
		Tasks: []message.RunningTask{{
			FrameworkID: frameworkID,
			TaskID:      "t1",
			State:       models.TaskRunning,
			Resources:   scalar.Resources{CPU: 1, Mem: 64},
		}},
	})
	s.Require().Len(s.m.slaves[slaveID].Tasks, 1)

	s.processEnvelope(s.updateEnvelope(slaveID, frameworkID, models.TaskFinished, 1))
	s.Empty(s.m.slaves[slaveID].Tasks)
	s.NotContains(s.m.frameworks[frameworkID].Tasks, models.TaskID("t1"))
	s.Zero(s.counter("task.duplicate_updates"))
	s.Equal(int64(1), s.counter("task.finished"))
}

func (s *MasterTestSuite) TestStaleSlaveRemovalKeepsNewerSequences() {
	oldID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)

	// The slave restarts under a fresh ID on the same address.
	newID := s.registerSlave(_slaveAddr1, 4, 1024)
	s.Equal(newID, s.m.slavesByAddress[_slaveAddr1])
	task := s.launch(_frameworkAddr1, frameworkID, newID, "t1")
	s.processEnvelope(s.updateEnvelope(newID, frameworkID, models.TaskRunning, 1))

	// Removing the stale record leaves the newer slave's sequences alone.
	s.process(_slaveAddr1, &message.UnregisterSlave{SlaveID: oldID})
	s.Contains(s.m.slaves, newID)
	s.Equal(newID, s.m.slavesByAddress[_slaveAddr1])
	s.NotContains(s.sender.forgotten, _slaveAddr1)

	s.processEnvelope(s.updateEnvelope(newID, frameworkID, models.TaskRunning, 1))
	s.Equal(models.TaskRunning, task.State())
	s.Equal(int64(1), s.counter("task.duplicate_updates"))
}

func (s *MasterTestSuite) TestUnknownHeartbeatIgnored() {
	s.process(_slaveAddr1, &message.Heartbeat{SlaveID: "M-7"})
	s.Empty(s.m.slaves)
}

func (s *MasterTestSuite) TestExecutorLostReportsTasks() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	otherID := s.registerSlave(_slaveAddr2, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	s.process(_frameworkAddr1, &message.OfferReply{
		FrameworkID: frameworkID,
		OfferID:     s.lastOffer(_frameworkAddr1).OfferID,
		Tasks: []message.TaskDescription{
			taskDesc("t1", slaveID, 1, 64),
			taskDesc("t2", otherID, 1, 64),
		},
	})
	s.process(_slaveAddr1, &message.SlaveStatusUpdate{
		SlaveID:     slaveID,
		FrameworkID: frameworkID,
		TaskID:      "t1",
		State:       models.TaskRunning,
		Data:        []byte("up"),
	})
	s.sender.reset()

	s.process(_slaveAddr1, &message.ExecutorLost{
		SlaveID:     slaveID,
		FrameworkID: frameworkID,
		Status:      message.ExecutorDisconnected,
	})
	s.Equal([]*message.StatusUpdate{{
		TaskID: "t1",
		State:  models.TaskLost,
		Data:   []byte("up"),
	}}, s.sender.statuses(_frameworkAddr1))
	framework := s.m.frameworks[frameworkID]
	s.NotContains(framework.Tasks, models.TaskID("t1"))
	s.Contains(framework.Tasks, models.TaskID("t2"))
	s.Empty(s.m.slaves[slaveID].Tasks)
}
