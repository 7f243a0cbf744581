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


package models

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/benh/twesos/pkg/common/scalar"
	"github.com/benh/twesos/pkg/common/statemachine"
)

// TaskState is the state of a task as reported by its slave.
type TaskState string

// Task states.
const (
	TaskStarting TaskState = "STARTING"
	TaskRunning  TaskState = "RUNNING"
	TaskFinished TaskState = "FINISHED"
	TaskFailed   TaskState = "FAILED"
	TaskKilled   TaskState = "KILLED"
	TaskLost     TaskState = "LOST"
)

// IsTerminal returns true once a task can no longer change state.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskFinished, TaskFailed, TaskKilled, TaskLost:
		return true
	}
	return false
}

// IsValid reports whether s is a known task state.
func (s TaskState) IsValid() bool {
	switch s {
	case TaskStarting, TaskRunning:
		return true
	}
	return s.IsTerminal()
}

var _terminalStates = []statemachine.State{
	statemachine.State(TaskFinished),
	statemachine.State(TaskFailed),
	statemachine.State(TaskKilled),
	statemachine.State(TaskLost),
}

// taskRules allows STARTING -> RUNNING -> terminal. A task may also end
// before it ever runs, and RUNNING may be reported again with new data.
// Terminal states have no rule, so nothing leaves them.
func taskRules() []*statemachine.Rule {
	return []*statemachine.Rule{
		{
			From: statemachine.State(TaskStarting),
			To: append([]statemachine.State{
				statemachine.State(TaskRunning),
			}, _terminalStates...),
		},
		{
			From: statemachine.State(TaskRunning),
			To: append([]statemachine.State{
				statemachine.State(TaskRunning),
			}, _terminalStates...),
		},
	}
}

// Task is one unit of work placed on a slave for a framework. The
// framework and slave are referenced by ID only.
type Task struct {
	ID          TaskID
	FrameworkID FrameworkID
	SlaveID     SlaveID
	Name        string
	Resources   scalar.Resources
	// Message is the payload of the last status update.
	Message []byte

	sm statemachine.StateMachine
}

// NewTask creates a task in the given state.
func NewTask(
	id TaskID,
	frameworkID FrameworkID,
	slaveID SlaveID,
	name string,
	resources scalar.Resources,
	state TaskState,
	clock clockwork.Clock,
) (*Task, error) {
	b := statemachine.NewBuilder().
		WithName(string(frameworkID) + ":" + string(id)).
		WithCurrentState(statemachine.State(state)).
		WithClock(clock)
	for _, r := range taskRules() {
		b.AddRule(r)
	}
	sm, err := b.Build()
	if err != nil {
		return nil, err
	}
	return &Task{
		ID:          id,
		FrameworkID: frameworkID,
		SlaveID:     slaveID,
		Name:        name,
		Resources:   resources,
		sm:          sm,
	}, nil
}

// Key returns the task's key on its slave.
func (t *Task) Key() TaskKey {
	return TaskKey{FrameworkID: t.FrameworkID, TaskID: t.ID}
}

// State returns the current task state.
func (t *Task) State() TaskState {
	return TaskState(t.sm.GetCurrentState())
}

// LastUpdate returns when the task last changed state.
func (t *Task) LastUpdate() time.Time {
	return t.sm.GetLastUpdateTime()
}

// TransitTo applies a status update. An invalid transition leaves the
// task untouched and returns an error.
func (t *Task) TransitTo(state TaskState, data []byte) error {
	if err := t.sm.TransitTo(statemachine.State(state), string(state)); err != nil {
		return err
	}
	t.Message = data
	return nil
}
