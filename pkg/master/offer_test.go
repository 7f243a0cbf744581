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
	"github.com/benh/twesos/pkg/master/allocator"
	"github.com/benh/twesos/pkg/master/message"
	"github.com/benh/twesos/pkg/master/models"
)

func (s *MasterTestSuite) TestOfferCarriesSlaveDetails() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	s.registerFramework(_frameworkAddr1)

	offer := s.lastOffer(_frameworkAddr1)
	s.Require().Len(offer.Offers, 1)
	s.Equal(slaveID, offer.Offers[0].SlaveID)
	s.Equal(_slaveAddr1, offer.Offers[0].Hostname)
	s.Equal(map[string]string{"cpus": "4", "mem": "1024"}, offer.Offers[0].Params)
	s.Equal(map[models.SlaveID]string{slaveID: _slaveAddr1}, offer.Addresses)

	slave := s.m.slaves[slaveID]
	s.Equal(scalar.Resources{CPU: 4, Mem: 1024}, slave.ResourcesOffered)
}

func (s *MasterTestSuite) TestAcceptedSlaveIsNotFiltered() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)

	s.launch(_frameworkAddr1, frameworkID, slaveID, "t1")

	framework := s.m.frameworks[frameworkID]
	s.Empty(framework.SlaveFilter)

	runs := s.sender.to(_slaveAddr1)
	run, ok := runs[len(runs)-1].(*message.RunTask)
	s.Require().True(ok)
	s.Equal(frameworkID, run.FrameworkID)
	s.Equal(_frameworkAddr1, run.FrameworkAddress)
	s.Equal(_executorURI, run.Executor.URI)
	s.Equal(models.TaskID("t1"), run.Task.TaskID)

	// The leftovers come straight back.
	offers := s.sender.offers(_frameworkAddr1)
	s.Require().Len(offers, 2)
	s.Equal(map[string]string{"cpus": "3", "mem": "960"}, offers[1].Offers[0].Params)
	s.Equal(int64(1), s.counter("task.launched"))
}

func (s *MasterTestSuite) TestRefusedSlaveIsFilteredUntilExpiry() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	offer := s.lastOffer(_frameworkAddr1)

	s.process(_frameworkAddr1, &message.OfferReply{
		FrameworkID: frameworkID,
		OfferID:     offer.OfferID,
	})
	framework := s.m.frameworks[frameworkID]
	s.Equal(s.clock.Now().Add(s.m.cfg.DefaultRefusalTimeout), framework.SlaveFilter[slaveID])
	s.Len(s.sender.offers(_frameworkAddr1), 1)
	s.Empty(framework.Offers)
	// A reply is not a rescind.
	s.NotContains(s.sender.kinds(_frameworkAddr1), message.Kind("rescindOffer"))

	s.clock.Advance(s.m.cfg.DefaultRefusalTimeout - time.Millisecond)
	s.process(_slaveAddr1, &message.Heartbeat{SlaveID: slaveID})
	s.process("", &message.TimerTick{})
	s.Len(s.sender.offers(_frameworkAddr1), 1)

	s.clock.Advance(time.Millisecond)
	s.process(_slaveAddr1, &message.Heartbeat{SlaveID: slaveID})
	s.process("", &message.TimerTick{})
	s.Empty(framework.SlaveFilter)
	s.Len(s.sender.offers(_frameworkAddr1), 2)
}

func (s *MasterTestSuite) TestRefusalTimeoutParam() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	framework := s.m.frameworks[frameworkID]

	// Zero means no filter, so the slave is offered again right away.
	s.process(_frameworkAddr1, &message.OfferReply{
		FrameworkID: frameworkID,
		OfferID:     s.lastOffer(_frameworkAddr1).OfferID,
		Params:      map[string]string{"timeout": "0"},
	})
	s.Empty(framework.SlaveFilter)
	s.Len(s.sender.offers(_frameworkAddr1), 2)

	s.process(_frameworkAddr1, &message.OfferReply{
		FrameworkID: frameworkID,
		OfferID:     s.lastOffer(_frameworkAddr1).OfferID,
		Params:      map[string]string{"timeout": "-1"},
	})
	expiry, ok := framework.SlaveFilter[slaveID]
	s.True(ok)
	s.True(expiry.IsZero())

	s.clock.Advance(24 * time.Hour)
	s.process(_slaveAddr1, &message.Heartbeat{SlaveID: slaveID})
	s.process("", &message.TimerTick{})
	s.Contains(framework.SlaveFilter, slaveID)
	s.Len(s.sender.offers(_frameworkAddr1), 2)

	s.process(_frameworkAddr1, &message.ReviveOffers{FrameworkID: frameworkID})
	s.Empty(framework.SlaveFilter)
	s.Len(s.sender.offers(_frameworkAddr1), 3)
}

func (s *MasterTestSuite) TestMalformedRefusalTimeoutUsesDefault() {
	timeout, forever := s.m.refusalTimeout(map[string]string{"timeout": "soon"})
	s.False(forever)
	s.Equal(s.m.cfg.DefaultRefusalTimeout, timeout)

	timeout, forever = s.m.refusalTimeout(map[string]string{"timeout": "1.5"})
	s.False(forever)
	s.Equal(1500*time.Millisecond, timeout)
}

func (s *MasterTestSuite) TestInvalidSlaveTerminatesFramework() {
	for _, useRegistered := range []bool{true, false} {
		s.setup(DefaultConfig())
		s.registerSlave(_slaveAddr1, 4, 1024)
		frameworkID := s.registerFramework(_frameworkAddr1)
		offer := s.lastOffer(_frameworkAddr1)

		// The second slave is registered but lands in a different offer.
		otherID := s.registerSlave(_slaveAddr2, 4, 1024)
		s.Len(s.sender.offers(_frameworkAddr1), 2)
		target := otherID
		if !useRegistered {
			target = "nope"
		}

		s.process(_frameworkAddr1, &message.OfferReply{
			FrameworkID: frameworkID,
			OfferID:     offer.OfferID,
			Tasks:       []message.TaskDescription{taskDesc("t1", target, 1, 64)},
		})

		errs := s.sender.errors(_frameworkAddr1)
		s.Require().Len(errs, 1)
		s.Equal(message.ErrorCodeTerminated, errs[0].Code)
		s.Equal("Invalid slave in offer reply", errs[0].Message)
		s.NotContains(s.m.frameworks, frameworkID)
		s.Empty(s.m.offers)
		s.NotContains(s.sender.kinds(_slaveAddr2), message.Kind("runTask"))
		s.Contains(s.sender.kinds(_slaveAddr1), message.Kind("killFramework"))
		s.Contains(s.sender.kinds(_slaveAddr2), message.Kind("killFramework"))
		s.Equal(int64(1), s.counter("offer.invalid_replies"))
	}
}

func (s *MasterTestSuite) TestOversubscribedReplyLaunchesNothing() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	offer := s.lastOffer(_frameworkAddr1)

	s.process(_frameworkAddr1, &message.OfferReply{
		FrameworkID: frameworkID,
		OfferID:     offer.OfferID,
		Tasks: []message.TaskDescription{
			taskDesc("t1", slaveID, 3, 512),
			taskDesc("t2", slaveID, 3, 512),
		},
	})

	errs := s.sender.errors(_frameworkAddr1)
	s.Require().Len(errs, 1)
	s.Equal("Too many resources accepted", errs[0].Message)
	s.NotContains(s.sender.kinds(_slaveAddr1), message.Kind("runTask"))
	s.Empty(s.m.slaves[slaveID].Tasks)
	s.Equal(scalar.Resources{}, s.m.slaves[slaveID].ResourcesOffered)
}

func (s *MasterTestSuite) TestDuplicateTaskIDTerminates() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	s.launch(_frameworkAddr1, frameworkID, slaveID, "t1")

	s.process(_frameworkAddr1, &message.OfferReply{
		FrameworkID: frameworkID,
		OfferID:     s.lastOffer(_frameworkAddr1).OfferID,
		Tasks:       []message.TaskDescription{taskDesc("t1", slaveID, 1, 64)},
	})
	errs := s.sender.errors(_frameworkAddr1)
	s.Require().Len(errs, 1)
	s.Equal("Duplicate task ID: t1", errs[0].Message)
	s.Empty(s.m.frameworks)
	s.Empty(s.m.slaves[slaveID].Tasks)
}

func (s *MasterTestSuite) TestRepeatedTaskIDInOneReplyTerminates() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)

	s.process(_frameworkAddr1, &message.OfferReply{
		FrameworkID: frameworkID,
		OfferID:     s.lastOffer(_frameworkAddr1).OfferID,
		Tasks: []message.TaskDescription{
			taskDesc("t1", slaveID, 1, 64),
			taskDesc("t1", slaveID, 1, 64),
		},
	})
	errs := s.sender.errors(_frameworkAddr1)
	s.Require().Len(errs, 1)
	s.Equal("Duplicate task ID: t1", errs[0].Message)
	s.Empty(s.m.slaves[slaveID].Tasks)
}

func (s *MasterTestSuite) TestTaskSizeOutOfBoundsTerminates() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)

	s.process(_frameworkAddr1, &message.OfferReply{
		FrameworkID: frameworkID,
		OfferID:     s.lastOffer(_frameworkAddr1).OfferID,
		Tasks:       []message.TaskDescription{taskDesc("t1", slaveID, 0.5, 64)},
	})
	errs := s.sender.errors(_frameworkAddr1)
	s.Require().Len(errs, 1)
	s.Equal(message.ErrorCodeTerminated, errs[0].Code)
	s.Contains(errs[0].Message, "Invalid task size")
	s.Empty(s.m.frameworks)
}

func (s *MasterTestSuite) TestNaNTaskSizeTerminates() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)

	task := taskDesc("t1", slaveID, 1, 64)
	task.Params = map[string]string{"cpus": "NaN", "mem": "64"}
	s.process(_frameworkAddr1, &message.OfferReply{
		FrameworkID: frameworkID,
		OfferID:     s.lastOffer(_frameworkAddr1).OfferID,
		Tasks:       []message.TaskDescription{task},
	})
	errs := s.sender.errors(_frameworkAddr1)
	s.Require().Len(errs, 1)
	s.Equal(message.ErrorCodeTerminated, errs[0].Code)
	s.Contains(errs[0].Message, "Invalid task size")
	s.Empty(s.m.frameworks)
}

func (s *MasterTestSuite) TestStaleReplyReportsTasksLost() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)

	s.process(_frameworkAddr1, &message.OfferReply{
		FrameworkID: frameworkID,
		OfferID:     "M-99",
		Tasks: []message.TaskDescription{
			taskDesc("t1", slaveID, 1, 64),
			taskDesc("t2", slaveID, 1, 64),
		},
	})
	statuses := s.sender.statuses(_frameworkAddr1)
	s.Require().Len(statuses, 2)
	for i, id := range []models.TaskID{"t1", "t2"} {
		s.Equal(id, statuses[i].TaskID)
		s.Equal(models.TaskLost, statuses[i].State)
	}
	s.Contains(s.m.frameworks, frameworkID)
	s.Empty(s.m.slaves[slaveID].Tasks)
	s.Equal(int64(1), s.counter("offer.stale_replies"))
}

func (s *MasterTestSuite) TestReplyToAnotherFrameworksOfferIsStale() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	s.registerFramework(_frameworkAddr1)
	other := s.registerFramework(_frameworkAddr2)
	offer := s.lastOffer(_frameworkAddr1)

	s.process(_frameworkAddr2, &message.OfferReply{
		FrameworkID: other,
		OfferID:     offer.OfferID,
		Tasks:       []message.TaskDescription{taskDesc("t1", slaveID, 1, 64)},
	})
	statuses := s.sender.statuses(_frameworkAddr2)
	s.Require().Len(statuses, 1)
	s.Equal(models.TaskLost, statuses[0].State)
	s.Contains(s.m.offers, offer.OfferID)
}

func (s *MasterTestSuite) TestMakeOfferRefusals() {
	slaveID := s.registerSlave(_slaveAddr1, 4, 1024)
	frameworkID := s.registerFramework(_frameworkAddr1)
	s.Len(s.m.offers, 1)
	half := scalar.Resources{CPU: 2, Mem: 512}

	// Everything on the slave is already offered.
	s.Empty(s.m.MakeOffer(frameworkID, []models.SlaveResources{{SlaveID: slaveID, Resources: half}}))

	// Filter both slaves forever so the allocator stays quiet while the
	// outstanding offers are returned.
	otherID := s.registerSlave(_slaveAddr2, 4, 1024)
	s.m.frameworks[frameworkID].SlaveFilter[slaveID] = time.Time{}
	s.m.frameworks[frameworkID].SlaveFilter[otherID] = time.Time{}
	for _, offer := range s.m.offersOf(s.m.frameworks[frameworkID].Offers) {
		s.m.removeOffer(offer, allocator.OfferFrameworkReplied, nil)
	}
	s.Require().Empty(s.m.offers)

	cases := map[string]struct {
		frameworkID models.FrameworkID
		resources   []models.SlaveResources
	}{
		"unknown framework": {"M-9999", []models.SlaveResources{{SlaveID: slaveID, Resources: half}}},
		"nothing offered":   {frameworkID, nil},
		"unknown slave":     {frameworkID, []models.SlaveResources{{SlaveID: "M-9", Resources: half}}},
		"slave twice": {frameworkID, []models.SlaveResources{
			{SlaveID: slaveID, Resources: half},
			{SlaveID: slaveID, Resources: half},
		}},
		"too much": {frameworkID, []models.SlaveResources{
			{SlaveID: slaveID, Resources: scalar.Resources{CPU: 5, Mem: 1}},
		}},
		"empty": {frameworkID, []models.SlaveResources{{SlaveID: slaveID}}},
		"second slave unknown": {frameworkID, []models.SlaveResources{
			{SlaveID: slaveID, Resources: half},
			{SlaveID: "M-9", Resources: half},
		}},
	}
	for name, tc := range cases {
		s.Empty(s.m.MakeOffer(tc.frameworkID, tc.resources), name)
	}
	s.Empty(s.m.offers)
	s.Equal(scalar.Resources{}, s.m.slaves[slaveID].ResourcesOffered)

	id := s.m.MakeOffer(frameworkID, []models.SlaveResources{
		{SlaveID: slaveID, Resources: half},
		{SlaveID: otherID, Resources: half},
	})
	s.NotEmpty(id)
	s.Equal(half, s.m.slaves[otherID].ResourcesOffered)
	s.NoError(checkInvariants(s.m))
}
