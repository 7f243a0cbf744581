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
	"fmt"
)

// FrameworkID identifies a registered framework, "<masterID>-NNNN".
type FrameworkID string

// SlaveID identifies a registered slave, "<masterID>-N".
type SlaveID string

// OfferID identifies an outstanding slot offer, "<masterID>-N".
type OfferID string

// TaskID is chosen by the framework and unique within it.
type TaskID string

// TaskKey identifies a task on a slave, which hosts tasks of many
// frameworks.
type TaskKey struct {
	FrameworkID FrameworkID
	TaskID      TaskID
}

func (k TaskKey) String() string {
	return fmt.Sprintf("%s:%s", k.FrameworkID, k.TaskID)
}

// IDGenerator mints framework, slave and offer IDs from independent
// counters under one master ID.
type IDGenerator struct {
	masterID      string
	nextFramework int64
	nextSlave     int64
	nextOffer     int64
}

// NewIDGenerator returns a generator whose counters start at zero.
func NewIDGenerator(masterID string) *IDGenerator {
	return &IDGenerator{masterID: masterID}
}

// MasterID returns the prefix shared by every generated ID.
func (g *IDGenerator) MasterID() string {
	return g.masterID
}

// NextFrameworkID returns "<masterID>-%04d".
func (g *IDGenerator) NextFrameworkID() FrameworkID {
	id := FrameworkID(fmt.Sprintf("%s-%04d", g.masterID, g.nextFramework))
	g.nextFramework++
	return id
}

// NextSlaveID returns "<masterID>-N".
func (g *IDGenerator) NextSlaveID() SlaveID {
	id := SlaveID(fmt.Sprintf("%s-%d", g.masterID, g.nextSlave))
	g.nextSlave++
	return id
}

// NextOfferID returns "<masterID>-N".
func (g *IDGenerator) NextOfferID() OfferID {
	id := OfferID(fmt.Sprintf("%s-%d", g.masterID, g.nextOffer))
	g.nextOffer++
	return id
}
