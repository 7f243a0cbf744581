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


package lifecycle

import (
	"sync"
)

// LifeCycle manages the run state of a long-lived loop. The loop selects
// on StopCh, calls StopComplete once it has drained, and callers block in
// Wait until then.
//
//	lc := NewLifeCycle()
//	lc.Start()
//	go func() {
//		defer lc.StopComplete()
//		<-lc.StopCh()
//	}()
//	lc.Stop(nil)
//	err := lc.Wait()
type LifeCycle interface {
	// Start returns false if the lifecycle is already running.
	Start() bool
	// Stop closes StopCh and records why the owner stopped. A nil error
	// is a clean stop. Returns false if not running.
	Stop(err error) bool
	// StopComplete unblocks Wait. Calling it more than once is a no-op.
	StopComplete()
	// StopCh is closed when Stop is called.
	StopCh() <-chan struct{}
	// Running reports whether Start was called without a matching Stop.
	Running() bool
	// Wait blocks until StopComplete and returns the error given to Stop.
	Wait() error
}

type lifeCycle struct {
	sync.RWMutex
	// stopCh is non-nil between Start and Stop
	stopCh         chan struct{}
	stopCompleteCh chan struct{}
	err            error
}

// NewLifeCycle creates a new LifeCycle instance
func NewLifeCycle() LifeCycle {
	return &lifeCycle{
		stopCompleteCh: make(chan struct{}),
	}
}

func (l *lifeCycle) Start() bool {
	l.Lock()
	defer l.Unlock()

	if l.stopCh != nil {
		return false
	}
	l.stopCh = make(chan struct{})
	l.err = nil
	return true
}

func (l *lifeCycle) Stop(err error) bool {
	l.Lock()
	defer l.Unlock()

	if l.stopCh == nil {
		return false
	}
	l.err = err
	close(l.stopCh)
	l.stopCh = nil
	return true
}

func (l *lifeCycle) StopCh() <-chan struct{} {
	l.RLock()
	defer l.RUnlock()

	// Stop may run before the loop fetched the channel.
	if l.stopCh == nil {
		closedCh := make(chan struct{})
		close(closedCh)
		return closedCh
	}
	return l.stopCh
}

func (l *lifeCycle) Running() bool {
	l.RLock()
	defer l.RUnlock()
	return l.stopCh != nil
}

func (l *lifeCycle) StopComplete() {
	l.Lock()
	defer l.Unlock()

	select {
	case <-l.stopCompleteCh:
	default:
		close(l.stopCompleteCh)
	}
}

func (l *lifeCycle) Wait() error {
	<-l.stopCompleteCh
	l.RLock()
	defer l.RUnlock()
	return l.err
}
