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


package leader

import (
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

// standalone is a candidate that wins immediately. It is used when no
// ZooKeeper ensemble is configured.
type standalone struct {
	sync.Mutex
	nomination Nomination
	running    bool
	leader     bool
}

// NewStandalone returns a Candidate which is elected as soon as it starts.
func NewStandalone(nomination Nomination) Candidate {
	return &standalone{nomination: nomination}
}

func (s *standalone) Start() error {
	s.Lock()
	defer s.Unlock()

	if s.running {
		return errors.New("Already running election")
	}
	s.running = true
	log.WithField("id", s.nomination.GetID()).Info("Standalone master, leadership gained")
	if err := s.nomination.GainedLeadershipCallback(); err != nil {
		s.running = false
		return err
	}
	s.leader = true
	return nil
}

func (s *standalone) Stop() error {
	s.Lock()
	defer s.Unlock()

	if s.running {
		s.running = false
		s.leader = false
	}
	return s.nomination.ShutDownCallback()
}

func (s *standalone) IsLeader() bool {
	s.Lock()
	defer s.Unlock()
	return s.running && s.leader
}

// Resign gives up and immediately regains leadership, which hands the
// nomination a fresh term.
func (s *standalone) Resign() {
	s.Lock()
	defer s.Unlock()

	if !s.running {
		return
	}
	if err := s.nomination.LostLeadershipCallback(); err != nil {
		log.WithError(err).Error("LostLeadershipCallback failed")
	}
	if err := s.nomination.GainedLeadershipCallback(); err != nil {
		log.WithError(err).Error("GainedLeadershipCallback failed")
		s.leader = false
	}
}
