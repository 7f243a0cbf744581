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

func (s *MasterTestSuite) TestRegisterFrameworkRejections() {
	s.process(_frameworkAddr1, &message.RegisterFramework{Name: "no-uri", User: "user"})
	errs := s.sender.errors(_frameworkAddr1)
	s.Require().Len(errs, 1)
	s.Equal(message.ErrorCodeRejected, errs[0].Code)
	s.Equal("No executor URI given", errs[0].Message)

	// Root is allowed by default.
	s.process(_frameworkAddr2, &message.RegisterFramework{
		User:     "root",
		Executor: models.ExecutorInfo{URI: _executorURI},
	})
	s.Empty(s.sender.errors(_frameworkAddr2))
	s.Len(s.m.frameworks, 1)

	cfg := DefaultConfig()
	cfg.RootSubmissions = false
	s.setup(cfg)
	s.process(_frameworkAddr1, &message.RegisterFramework{
		User:     "root",
		Executor: models.ExecutorInfo{URI: _executorURI},
	})
	errs = s.sender.errors(_frameworkAddr1)
	s.Require().Len(errs, 1)
	s.Equal("Root is not allowed to submit jobs on this cluster", errs[0].Message)
	s.Empty(s.m.frameworks)

	// Rejections do not use up IDs.
	s.Equal(models.FrameworkID("M-0000"), s.registerFramework(_frameworkAddr2))
}

func (s *MasterTestSuite) TestReregisterFrameworkRejections() {
	s.process(_frameworkAddr1, &message.ReregisterFramework{
		FrameworkID: "M-0000",
	})
	s.process(_frameworkAddr1, &message.ReregisterFramework{
		Executor: models.ExecutorInfo{URI: _executorURI},
	})
	errs := s.sender.errors(_frameworkAddr1)
	s.Require().Len(errs, 2)
	s.Equal("No executor URI given", errs[0].Message)
	s.Equal("Missing framework id", errs[1].Message)

	frameworkID := s.registerFramework(_frameworkAddr1)
	s.process(_frameworkAddr2, &message.ReregisterFramework{
		FrameworkID: frameworkID,
		Executor:    models.ExecutorInfo{URI: _executorURI},
		Generation:  1,
	})
	errs = s.sender.errors(_frameworkAddr2)
	s.Require().Len(errs, 1)
	s.Equal("Framework id in use", errs[0].Message)
	s.Equal(_frameworkAddr1, s.m.frameworks[frameworkID].Address)
}

func (s *MasterTestSuite) TestFrameworkFailover() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	task := s.launch(_frameworkAddr1, frameworkID, slaveID, "t1")
	leftover := s.lastOffer(_frameworkAddr1)

	s.process(_frameworkAddr2, &message.ReregisterFramework{
		FrameworkID: frameworkID,
		Name:        "restarted",
		User:        "user",
		Executor:    models.ExecutorInfo{URI: _executorURI},
	})

	// The old scheduler hears about the failover, the new one takes over
	// the ID and the tasks.
	s.Contains(s.sender.to(_frameworkAddr1), message.Message(&message.RescindOffer{OfferID: leftover.OfferID}))
	errs := s.sender.errors(_frameworkAddr1)
	s.Require().Len(errs, 1)
	s.Equal("Framework failover", errs[0].Message)

	framework := s.m.frameworks[frameworkID]
	s.Equal(_frameworkAddr2, framework.Address)
	s.Equal("restarted", framework.Name)
	s.Same(task, framework.Tasks["t1"])
	s.Contains(s.sender.to(_frameworkAddr2), message.Message(&message.FrameworkRegistered{FrameworkID: frameworkID}))
	s.Contains(s.sender.to(_slaveAddr1), message.Message(&message.UpdateFrameworkAddress{
		FrameworkID: frameworkID,
		Address:     _frameworkAddr2,
	}))
	s.NotContains(s.m.frameworksByAddress, _frameworkAddr1)
	s.Equal(frameworkID, s.m.frameworksByAddress[_frameworkAddr2])
	s.Equal(int64(1), s.counter("framework.failed_over"))

	// Status updates now go to the new address.
	s.process(_slaveAddr1, &message.SlaveStatusUpdate{
		SlaveID:     slaveID,
		FrameworkID: frameworkID,
		TaskID:      "t1",
		State:       models.TaskRunning,
	})
	s.Len(s.sender.statuses(_frameworkAddr2), 1)
	s.Empty(s.sender.statuses(_frameworkAddr1))
}

func (s *MasterTestSuite) TestReregisterAfterMasterFailoverReunitesTasks() {
	// A slave replays a task before its framework reconnects.
	s.process(_slaveAddr1, &message.ReregisterSlave{
		SlaveID:   "old-0",
		Hostname:  _slaveAddr1,
		Resources: scalar.Resources{CPU: 4, Mem: 1024},
		Tasks: []message.RunningTask{{
			FrameworkID: "old-0000",
			TaskID:      "t1",
			State:       models.TaskRunning,
			Resources:   scalar.Resources{CPU: 1, Mem: 64},
		}},
	})
	s.Contains(s.m.slaves, models.SlaveID("old-0"))

	s.process(_frameworkAddr1, &message.ReregisterFramework{
		FrameworkID: "old-0000",
		User:        "user",
		Executor:    models.ExecutorInfo{URI: _executorURI},
		Generation:  1,
	})
	framework := s.m.frameworks["old-0000"]
	s.Require().NotNil(framework)
	s.Require().Contains(framework.Tasks, models.TaskID("t1"))
	s.Equal(1.0, framework.Resources().CPU)
	s.Contains(s.sender.to(_slaveAddr1), message.Message(&message.UpdateFrameworkAddress{
		FrameworkID: "old-0000",
		Address:     _frameworkAddr1,
	}))

	// The free part of the slave is offered.
	offer := s.lastOffer(_frameworkAddr1)
	s.Equal(map[string]string{"cpus": "3", "mem": "960"}, offer.Offers[0].Params)
	s.Equal(int64(1), s.counter("framework.reregistered"))
}

func (s *MasterTestSuite) TestUnregisterFrameworkCleansUp() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	otherID := s.registerSlave(_slaveAddr2, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	s.launch(_frameworkAddr1, frameworkID, slaveID, "t1")
	s.Require().NotEmpty(s.m.offers)

	// Only the framework's own address may unregister it.
	s.process(_frameworkAddr2, &message.UnregisterFramework{FrameworkID: frameworkID})
	s.Contains(s.m.frameworks, frameworkID)

	s.process(_frameworkAddr1, &message.UnregisterFramework{FrameworkID: frameworkID})
	s.NotContains(s.m.frameworks, frameworkID)
	s.NotContains(s.m.frameworksByAddress, _frameworkAddr1)
	s.Empty(s.m.offers)
	for _, id := range []models.SlaveID{slaveID, otherID} {
		slave := s.m.slaves[id]
		s.Empty(slave.Tasks)
		s.Empty(slave.Offers)
		s.Equal(scalar.Resources{}, slave.ResourcesOffered)
		s.Contains(s.sender.to(slave.Address),
			message.Message(&message.KillFramework{FrameworkID: frameworkID}))
	}
	s.Equal(int64(1), s.counter("framework.removed"))
	s.Equal([]string{_frameworkAddr1}, s.sender.forgotten)
}

func (s *MasterTestSuite) TestPeersForgottenOnlyWhenUnused() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	s.registerFramework(_frameworkAddr1)
	otherID := s.registerFramework(_frameworkAddr1)

	// Another framework still lives at the address.
	s.process(_frameworkAddr1, &message.UnregisterFramework{FrameworkID: otherID})
	s.Empty(s.sender.forgotten)

	s.process(_slaveAddr1, &message.UnregisterSlave{SlaveID: slaveID})
	s.Equal([]string{_slaveAddr1}, s.sender.forgotten)
}

func (s *MasterTestSuite) TestKillTask() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	s.launch(_frameworkAddr1, frameworkID, slaveID, "t1")

	s.process(_frameworkAddr1, &message.KillTask{FrameworkID: frameworkID, TaskID: "t1"})
	s.Contains(s.sender.to(_slaveAddr1), message.Message(&message.SlaveKillTask{
		FrameworkID: frameworkID,
		TaskID:      "t1",
	}))
	// The task stays until the slave reports it.
	s.Contains(s.m.slaves[slaveID].Tasks, models.TaskKey{FrameworkID: frameworkID, TaskID: "t1"})

	s.process(_frameworkAddr1, &message.KillTask{FrameworkID: frameworkID, TaskID: "t9"})
	statuses := s.sender.statuses(_frameworkAddr1)
	s.Require().Len(statuses, 1)
	s.Equal(models.TaskID("t9"), statuses[0].TaskID)
	s.Equal(models.TaskLost, statuses[0].State)
}

func (s *MasterTestSuite) TestFrameworkMessagesRelay() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)

	s.process(_frameworkAddr1, &message.FrameworkToSlave{
		FrameworkID: frameworkID,
		SlaveID:     slaveID,
		TaskID:      "t1",
		Data:        []byte("ping"),
	})
	s.Contains(s.sender.to(_slaveAddr1), message.Message(&message.SlaveFrameworkMessage{
		FrameworkID: frameworkID,
		SlaveID:     slaveID,
		TaskID:      "t1",
		Data:        []byte("ping"),
	}))

	s.process(_slaveAddr1, &message.SlaveToFramework{
		SlaveID:     slaveID,
		FrameworkID: frameworkID,
		TaskID:      "t1",
		Data:        []byte("pong"),
	})
	s.Contains(s.sender.to(_frameworkAddr1), message.Message(&message.FrameworkMessage{
		SlaveID: slaveID,
		TaskID:  "t1",
		Data:    []byte("pong"),
	}))

	// Unknown endpoints are dropped.
	s.sender.reset()
	s.process(_frameworkAddr1, &message.FrameworkToSlave{FrameworkID: frameworkID, SlaveID: "M-9"})
	s.process(_slaveAddr1, &message.SlaveToFramework{SlaveID: slaveID, FrameworkID: "M-9999"})
	s.Empty(s.sender.sent)
}

func (s *MasterTestSuite) TestDisconnectedFrameworkRemovedWithoutFailoverTimeout() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	s.launch(_frameworkAddr1, frameworkID, slaveID, "t1")

	s.process("", &message.PeerExited{Address: _frameworkAddr1})
	s.NotContains(s.m.frameworks, frameworkID)
	s.Empty(s.m.slaves[slaveID].Tasks)
	s.Contains(s.sender.kinds(_slaveAddr1), message.Kind("killFramework"))
}

func (s *MasterTestSuite) TestDisconnectedFrameworkWaitsForFailover() {
	cfg := DefaultConfig()
	cfg.FrameworkFailoverTimeout = time.Minute
	s.setup(cfg)

	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	s.launch(_frameworkAddr1, frameworkID, slaveID, "t1")

	s.process("", &message.PeerExited{Address: _frameworkAddr1})
	framework := s.m.frameworks[frameworkID]
	s.Require().NotNil(framework)
	s.False(framework.Active)
	s.Empty(framework.Offers)
	s.Empty(s.m.offers)
	s.Contains(s.m.failoverItems, frameworkID)
	deadline := framework.FailoverDeadline
	s.Equal(s.clock.Now().Add(time.Minute), deadline)

	// An expiry for an earlier disconnection is ignored.
	s.process("", &message.FrameworkFailoverExpired{
		FrameworkID: frameworkID,
		Deadline:    deadline.Add(-time.Second),
	})
	s.Contains(s.m.frameworks, frameworkID)

	s.process("", &message.FrameworkFailoverExpired{FrameworkID: frameworkID, Deadline: deadline})
	s.NotContains(s.m.frameworks, frameworkID)
	s.Empty(s.m.slaves[slaveID].Tasks)
	s.Empty(s.m.failoverItems)
}

func (s *MasterTestSuite) TestReregisterDuringFailoverReclaimsFramework() {
	cfg := DefaultConfig()
	cfg.FrameworkFailoverTimeout = time.Minute
	s.setup(cfg)

	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	task := s.launch(_frameworkAddr1, frameworkID, slaveID, "t1")

	s.process("", &message.PeerExited{Address: _frameworkAddr1})
	deadline := s.m.frameworks[frameworkID].FailoverDeadline

	s.process(_frameworkAddr2, &message.ReregisterFramework{
		FrameworkID: frameworkID,
		User:        "user",
		Executor:    models.ExecutorInfo{URI: _executorURI},
		Generation:  3,
	})
	framework := s.m.frameworks[frameworkID]
	s.True(framework.Active)
	s.Same(task, framework.Tasks["t1"])
	s.Empty(s.m.failoverItems)
	s.Empty(framework.Offers)

	// Offers resume on the next allocation round.
	s.process("", &message.TimerTick{})
	s.NotEmpty(framework.Offers)

	// The pending expiry no longer applies.
	s.process("", &message.FrameworkFailoverExpired{FrameworkID: frameworkID, Deadline: deadline})
	s.Contains(s.m.frameworks, frameworkID)
}

func (s *MasterTestSuite) TestUnknownPeerExitIgnored() {
	s.registerSlave(_slaveAddr1, 4, 1024)
	s.registerFramework(_frameworkAddr1)
	s.process("", &message.PeerExited{Address: "stranger:1"})
	s.Len(s.m.slaves, 1)
	s.Len(s.m.frameworks, 1)
}
