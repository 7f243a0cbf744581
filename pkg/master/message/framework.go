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


package message

import (
	"github.com/benh/twesos/pkg/master/models"
)

// TaskDescription is a task a framework launches from an offer. Params
// carry the requested "cpus" and "mem".
type TaskDescription struct {
	TaskID  models.TaskID     `json:"task_id"`
	SlaveID models.SlaveID    `json:"slave_id"`
	Name    string            `json:"name"`
	Params  map[string]string `json:"params,omitempty"`
	Data    []byte            `json:"data,omitempty"`
}

// RegisterFramework asks for a new framework ID.
type RegisterFramework struct {
	Name     string              `json:"name"`
	User     string              `json:"user"`
	Executor models.ExecutorInfo `json:"executor"`
}

// ReregisterFramework reclaims an ID after a scheduler restart
// (generation 0) or a lost connection.
type ReregisterFramework struct {
	FrameworkID models.FrameworkID  `json:"framework_id"`
	Name        string              `json:"name"`
	User        string              `json:"user"`
	Executor    models.ExecutorInfo `json:"executor"`
	Generation  int32               `json:"generation"`
}

// UnregisterFramework removes the framework.
type UnregisterFramework struct {
	FrameworkID models.FrameworkID `json:"framework_id"`
}

// OfferReply accepts part of an offer by launching tasks. A "timeout"
// param overrides the refusal filter duration in seconds, -1 filters
// forever.
type OfferReply struct {
	FrameworkID models.FrameworkID `json:"framework_id"`
	OfferID     models.OfferID     `json:"offer_id"`
	Tasks       []TaskDescription  `json:"tasks"`
	Params      map[string]string  `json:"params,omitempty"`
}

// ReviveOffers clears the framework's slave filters.
type ReviveOffers struct {
	FrameworkID models.FrameworkID `json:"framework_id"`
}

// KillTask asks the master to kill one of the framework's tasks.
type KillTask struct {
	FrameworkID models.FrameworkID `json:"framework_id"`
	TaskID      models.TaskID      `json:"task_id"`
}

// FrameworkToSlave carries an opaque payload for the framework's executor.
type FrameworkToSlave struct {
	FrameworkID models.FrameworkID `json:"framework_id"`
	SlaveID     models.SlaveID     `json:"slave_id"`
	TaskID      models.TaskID      `json:"task_id"`
	Data        []byte             `json:"data,omitempty"`
}

// FrameworkRegistered acknowledges a registration with the assigned ID.
type FrameworkRegistered struct {
	FrameworkID models.FrameworkID `json:"framework_id"`
}

// Error codes.
const (
	// ErrorCodeTerminated precedes the master tearing the framework down.
	ErrorCodeTerminated int32 = 0
	// ErrorCodeRejected reports an admission failure.
	ErrorCodeRejected int32 = 1
)

// Error reports a failure to a framework.
type Error struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

// SlaveOffer is the part of a resource offer on one slave.
type SlaveOffer struct {
	SlaveID  models.SlaveID    `json:"slave_id"`
	Hostname string            `json:"hostname"`
	Params   map[string]string `json:"params"`
}

// ResourceOffer presents a slot offer to a framework.
type ResourceOffer struct {
	OfferID   models.OfferID            `json:"offer_id"`
	Offers    []SlaveOffer              `json:"offers"`
	Addresses map[models.SlaveID]string `json:"addresses"`
}

// RescindOffer withdraws an outstanding offer.
type RescindOffer struct {
	OfferID models.OfferID `json:"offer_id"`
}

// StatusUpdate relays a task state change. Seq is set when the slave sent
// the update reliably.
type StatusUpdate struct {
	TaskID models.TaskID    `json:"task_id"`
	State  models.TaskState `json:"state"`
	Data   []byte           `json:"data,omitempty"`
	Seq    uint64           `json:"seq,omitempty"`
}

// FrameworkMessage relays an executor's payload to its framework.
type FrameworkMessage struct {
	SlaveID models.SlaveID `json:"slave_id"`
	TaskID  models.TaskID  `json:"task_id"`
	Data    []byte         `json:"data,omitempty"`
}

// LostSlave tells frameworks a slave is gone.
type LostSlave struct {
	SlaveID models.SlaveID `json:"slave_id"`
}

func (*RegisterFramework) Kind() Kind   { return "registerFramework" }
func (*ReregisterFramework) Kind() Kind { return "reregisterFramework" }
func (*UnregisterFramework) Kind() Kind { return "unregisterFramework" }
func (*OfferReply) Kind() Kind          { return "offerReply" }
func (*ReviveOffers) Kind() Kind        { return "reviveOffers" }
func (*KillTask) Kind() Kind            { return "killTask" }
func (*FrameworkToSlave) Kind() Kind    { return "frameworkToSlave" }
func (*FrameworkRegistered) Kind() Kind { return "registered" }
func (*Error) Kind() Kind               { return "error" }
func (*ResourceOffer) Kind() Kind       { return "resourceOffer" }
func (*RescindOffer) Kind() Kind        { return "rescindOffer" }
func (*StatusUpdate) Kind() Kind        { return "statusUpdate" }
func (*FrameworkMessage) Kind() Kind    { return "frameworkMessage" }
func (*LostSlave) Kind() Kind           { return "lostSlave" }
