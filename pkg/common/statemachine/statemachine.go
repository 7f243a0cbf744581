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


package statemachine

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// State defines the state
type State string

// Transition defines the transition passed to callbacks
type Transition struct {
	// StateMachine object
	StateMachine StateMachine

	// From which state transition is happening
	From State

	// To which state transition is happening
	To State

	// Arguments passed during the transition
	Params []interface{}
}

// Rule defines the transitions allowed out of one source state.
type Rule struct {
	// From is the source state
	From State
	// To lists the destination states
	To []State
	// Callback is invoked after a transition out of From
	Callback func(*Transition) error
}

// Callback is the type for callback function
type Callback func(*Transition) error

// StateMachine moves an object between states according to its rules.
// A StateMachine is not safe for concurrent use; it belongs to the
// goroutine that owns the object.
type StateMachine interface {
	// TransitTo function transits to desired state
	TransitTo(to State, reason string, args ...interface{}) error

	// CanTransitTo reports whether a transition to the state is allowed
	CanTransitTo(to State) error

	// GetCurrentState returns the current state of State Machine
	GetCurrentState() State

	// GetReason returns the reason for the last state transition
	GetReason() string

	// GetName returns the Name of the StateMachine object
	GetName() string

	// GetLastUpdateTime returns the last update time of the state machine
	GetLastUpdateTime() time.Time
}

type statemachine struct {
	name    string
	current State

	// rules are defined as srcState -> []destStates
	rules map[State]*Rule

	// transitionCallback applies to every transition
	transitionCallback Callback

	clock           clockwork.Clock
	lastUpdatedTime time.Time
	reason          string
}

// NewStateMachine creates a state machine for the named object.
func NewStateMachine(
	name string,
	current State,
	rules map[State]*Rule,
	transitionCallback Callback,
	clock clockwork.Clock,
) (StateMachine, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	sm := &statemachine{
		name:               name,
		current:            current,
		transitionCallback: transitionCallback,
		clock:              clock,
		lastUpdatedTime:    clock.Now(),
	}
	if err := sm.addRules(rules); err != nil {
		return nil, err
	}
	return sm, nil
}

func (sm *statemachine) addRules(rules map[State]*Rule) error {
	for _, r := range rules {
		if err := validateRule(r); err != nil {
			return err
		}
	}
	sm.rules = rules
	return nil
}

func validateRule(rule *Rule) error {
	seen := make(map[State]bool)
	for _, s := range rule.To {
		if seen[s] {
			log.WithFields(log.Fields{
				"from": rule.From,
				"to":   s,
			}).Error("duplicate destination in rule")
			return errors.Errorf("invalid rule for %s, duplicate destination %s", rule.From, s)
		}
		seen[s] = true
	}
	return nil
}

// TransitTo moves to the given state and runs the rule callback and the
// transition callback, in that order.
func (sm *statemachine) TransitTo(to State, reason string, args ...interface{}) error {
	if err := sm.CanTransitTo(to); err != nil {
		return err
	}

	t := &Transition{
		StateMachine: sm,
		From:         sm.current,
		To:           to,
		Params:       args,
	}
	from := sm.current

	sm.current = to
	sm.lastUpdatedTime = sm.clock.Now()
	sm.reason = reason

	if cb := sm.rules[from].Callback; cb != nil {
		if err := cb(t); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"name":       sm.name,
				"from_state": from,
				"to_state":   to,
			}).Error("rule callback failed")
			return err
		}
	}

	if sm.transitionCallback != nil {
		if err := sm.transitionCallback(t); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"name":       sm.name,
				"from_state": from,
				"to_state":   to,
			}).Error("transition callback failed")
			return err
		}
	}
	return nil
}

// CanTransitTo checks the rule table without changing state.
func (sm *statemachine) CanTransitTo(to State) error {
	rule, ok := sm.rules[sm.current]
	if !ok {
		return errors.Errorf("invalid transition for %s [from %s to %s]",
			sm.name, sm.current, to)
	}
	for _, s := range rule.To {
		if s == to {
			return nil
		}
	}
	return errors.Errorf("invalid transition for %s [from %s to %s]",
		sm.name, sm.current, to)
}

func (sm *statemachine) GetCurrentState() State {
	return sm.current
}

func (sm *statemachine) GetReason() string {
	return sm.reason
}

func (sm *statemachine) GetName() string {
	return sm.name
}

func (sm *statemachine) GetLastUpdateTime() time.Time {
	return sm.lastUpdatedTime
}
