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
	"time"

	"github.com/benh/twesos/pkg/common/scalar"
	"github.com/benh/twesos/pkg/master/models"
)

// RunningTask is a task a re-registering slave reports as still running.
type RunningTask struct {
	FrameworkID models.FrameworkID `json:"framework_id"`
	TaskID      models.TaskID      `json:"task_id"`
	Name        string             `json:"name"`
	State       models.TaskState   `json:"state"`
	Resources   scalar.Resources   `json:"resources"`
}

// RegisterSlave asks for a new slave ID.
type RegisterSlave struct {
	Hostname  string           `json:"hostname"`
	PublicDNS string           `json:"public_dns"`
	Resources scalar.Resources `json:"resources"`
}

// ReregisterSlave reconnects a slave, replaying its running tasks.
type ReregisterSlave struct {
	SlaveID   models.SlaveID   `json:"slave_id"`
	Hostname  string           `json:"hostname"`
	PublicDNS string           `json:"public_dns"`
	Resources scalar.Resources `json:"resources"`
	Tasks     []RunningTask    `json:"tasks"`
}

// UnregisterSlave removes the slave.
type UnregisterSlave struct {
	SlaveID models.SlaveID `json:"slave_id"`
}

// Heartbeat keeps a slave alive.
type Heartbeat struct {
	SlaveID models.SlaveID `json:"slave_id"`
}

// SlaveStatusUpdate reports a task state change. Reliable updates are
// retried by the slave until acknowledged and may arrive more than once.
type SlaveStatusUpdate struct {
	SlaveID     models.SlaveID     `json:"slave_id"`
	FrameworkID models.FrameworkID `json:"framework_id"`
	TaskID      models.TaskID      `json:"task_id"`
	State       models.TaskState   `json:"state"`
	Data        []byte             `json:"data,omitempty"`
	Reliable    bool               `json:"reliable"`
}

// SlaveToFramework carries an executor's payload for its framework.
type SlaveToFramework struct {
	SlaveID     models.SlaveID     `json:"slave_id"`
	FrameworkID models.FrameworkID `json:"framework_id"`
	TaskID      models.TaskID      `json:"task_id"`
	Data        []byte             `json:"data,omitempty"`
}

// ExecutorDisconnected is the ExecutorLost status of an executor that
// dropped its connection rather than exiting.
const ExecutorDisconnected int32 = -1

// ExecutorLost reports that a framework's executor on the slave is gone.
type ExecutorLost struct {
	SlaveID     models.SlaveID     `json:"slave_id"`
	FrameworkID models.FrameworkID `json:"framework_id"`
	Status      int32              `json:"status"`
}

// SlaveRegistered acknowledges a slave with its ID and heartbeat interval.
type SlaveRegistered struct {
	SlaveID           models.SlaveID `json:"slave_id"`
	HeartbeatInterval time.Duration  `json:"heartbeat_interval"`
}

// RunTask dispatches a task with everything the slave needs to start the
// framework's executor.
type RunTask struct {
	FrameworkID      models.FrameworkID  `json:"framework_id"`
	FrameworkName    string              `json:"framework_name"`
	User             string              `json:"user"`
	Executor         models.ExecutorInfo `json:"executor"`
	FrameworkAddress string              `json:"framework_address"`
	Task             TaskDescription     `json:"task"`
}

// SlaveKillTask asks a slave to kill a task.
type SlaveKillTask struct {
	FrameworkID models.FrameworkID `json:"framework_id"`
	TaskID      models.TaskID      `json:"task_id"`
}

// KillFramework asks a slave to kill all tasks of a framework.
type KillFramework struct {
	FrameworkID models.FrameworkID `json:"framework_id"`
}

// UpdateFrameworkAddress re-points a slave at a failed over framework.
type UpdateFrameworkAddress struct {
	FrameworkID models.FrameworkID `json:"framework_id"`
	Address     string             `json:"address"`
}

// SlaveFrameworkMessage relays a framework's payload to its executor.
type SlaveFrameworkMessage struct {
	FrameworkID models.FrameworkID `json:"framework_id"`
	SlaveID     models.SlaveID     `json:"slave_id"`
	TaskID      models.TaskID      `json:"task_id"`
	Data        []byte             `json:"data,omitempty"`
}

// SlaveShutdown tells a slave the master is going away.
type SlaveShutdown struct{}

func (*RegisterSlave) Kind() Kind          { return "registerSlave" }
func (*ReregisterSlave) Kind() Kind        { return "reregisterSlave" }
func (*UnregisterSlave) Kind() Kind        { return "unregisterSlave" }
func (*Heartbeat) Kind() Kind              { return "heartbeat" }
func (*SlaveStatusUpdate) Kind() Kind      { return "slaveStatusUpdate" }
func (*SlaveToFramework) Kind() Kind       { return "slaveToFramework" }
func (*ExecutorLost) Kind() Kind           { return "executorLost" }
func (*SlaveRegistered) Kind() Kind        { return "slaveRegistered" }
func (*RunTask) Kind() Kind                { return "runTask" }
func (*SlaveKillTask) Kind() Kind          { return "slaveKillTask" }
func (*KillFramework) Kind() Kind          { return "killFramework" }
func (*UpdateFrameworkAddress) Kind() Kind { return "updateFrameworkAddress" }
func (*SlaveFrameworkMessage) Kind() Kind  { return "slaveFrameworkMessage" }
func (*SlaveShutdown) Kind() Kind          { return "shutdown" }
