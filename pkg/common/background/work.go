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


package background

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

var (
	errEmptyName     = errors.New("background work name cannot be empty")
	errDuplicateName = errors.New("duplicate background work name")
	errInvalidPeriod = errors.New("background work period must be positive")
)

// Work refers to a piece of background work which needs to happen
// periodically.
type Work struct {
	Name         string
	Func         func(*atomic.Bool)
	Period       time.Duration
	InitialDelay time.Duration
}

// Manager allows multiple background Works to be registered and
// started/stopped together.
type Manager interface {
	// Start starts all registered background works.
	Start()
	// Stop stops all registered background works and waits for them.
	Stop()
	// RegisterWorks registers background works against the Manager
	RegisterWorks(works ...Work) error
}

type manager struct {
	clock   clockwork.Clock
	runners map[string]*runner
}

// NewManager creates a new Manager driven by the given clock.
func NewManager(clock clockwork.Clock) Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &manager{
		clock:   clock,
		runners: make(map[string]*runner),
	}
}

func (r *manager) RegisterWorks(works ...Work) error {
	for _, work := range works {
		if work.Name == "" {
			return errEmptyName
		}
		if work.Period <= 0 {
			return errInvalidPeriod
		}
		if _, ok := r.runners[work.Name]; ok {
			return errDuplicateName
		}
		r.runners[work.Name] = &runner{
			work:  work,
			clock: r.clock,
		}
	}
	return nil
}

func (r *manager) Start() {
	for _, runner := range r.runners {
		runner.start()
	}
}

func (r *manager) Stop() {
	for _, runner := range r.runners {
		runner.stop()
	}
}

type runner struct {
	sync.Mutex

	work  Work
	clock clockwork.Clock

	running  atomic.Bool
	stopChan chan struct{}
	doneChan chan struct{}
}

func (r *runner) start() {
	r.Lock()
	defer r.Unlock()
	if r.running.Swap(true) {
		log.WithField("name", r.work.Name).
			Info("Background work is already running, no-op.")
		return
	}
	log.WithField("name", r.work.Name).
		WithField("interval", r.work.Period).
		Info("Starting background work.")

	r.stopChan = make(chan struct{})
	r.doneChan = make(chan struct{})
	go r.run(r.stopChan, r.doneChan)
}

func (r *runner) run(stopChan, doneChan chan struct{}) {
	defer close(doneChan)

	if r.work.InitialDelay > 0 {
		select {
		case <-stopChan:
			log.WithField("name", r.work.Name).
				Info("Background work stopped before first run.")
			return
		case <-r.clock.After(r.work.InitialDelay):
		}
	}

	ticker := r.clock.NewTicker(r.work.Period)
	defer ticker.Stop()
	for {
		r.work.Func(&r.running)

		select {
		case <-stopChan:
			log.WithField("name", r.work.Name).
				Info("Background work stopped.")
			return
		case t := <-ticker.Chan():
			log.WithField("tick", t).
				WithField("name", r.work.Name).
				Debug("Background work triggered.")
		}
	}
}

func (r *runner) stop() {
	r.Lock()
	defer r.Unlock()

	if !r.running.Load() {
		log.WithField("name", r.work.Name).
			Warn("Background work is not running, no-op.")
		return
	}
	close(r.stopChan)
	<-r.doneChan
	r.running.Store(false)
	log.WithField("name", r.work.Name).Info("Background work stop confirmed.")
}
