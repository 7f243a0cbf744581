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
)

// MasterState is a read-only snapshot of the master for introspection.
type MasterState struct {
	ID         string           `json:"id"`
	Address    string           `json:"address"`
	BuildDate  string           `json:"build_date"`
	BuildUser  string           `json:"build_user"`
	Slaves     []SlaveState     `json:"slaves"`
	Frameworks []FrameworkState `json:"frameworks"`
}

// SlaveState is the snapshot of one slave.
type SlaveState struct {
	ID          SlaveID   `json:"id"`
	Hostname    string    `json:"hostname"`
	PublicDNS   string    `json:"public_dns"`
	CPUs        float64   `json:"cpus"`
	Mem         float64   `json:"mem"`
	OfferedCPUs float64   `json:"offered_cpus"`
	OfferedMem  float64   `json:"offered_mem"`
	ConnectTime time.Time `json:"connect_time"`
}

// FrameworkState is the snapshot of one framework with its tasks and
// outstanding offers.
type FrameworkState struct {
	ID          FrameworkID  `json:"id"`
	User        string       `json:"user"`
	Name        string       `json:"name"`
	ExecutorURI string       `json:"executor"`
	CPUs        float64      `json:"cpus"`
	Mem         float64      `json:"mem"`
	ConnectTime time.Time    `json:"connect_time"`
	Active      bool         `json:"active"`
	Tasks       []TaskStatus `json:"tasks"`
	Offers      []OfferState `json:"offers"`
}

// TaskStatus is the snapshot of one task.
type TaskStatus struct {
	ID          TaskID      `json:"id"`
	Name        string      `json:"name"`
	FrameworkID FrameworkID `json:"framework_id"`
	SlaveID     SlaveID     `json:"slave_id"`
	State       TaskState   `json:"state"`
	CPUs        float64     `json:"cpus"`
	Mem         float64     `json:"mem"`
}

// OfferState is the snapshot of one outstanding offer.
type OfferState struct {
	ID          OfferID          `json:"id"`
	FrameworkID FrameworkID      `json:"framework_id"`
	Resources   []SlaveResources `json:"resources"`
}

// Snapshot returns the task's snapshot.
func (t *Task) Snapshot() TaskStatus {
	return TaskStatus{
		ID:          t.ID,
		Name:        t.Name,
		FrameworkID: t.FrameworkID,
		SlaveID:     t.SlaveID,
		State:       t.State(),
		CPUs:        t.Resources.CPU,
		Mem:         t.Resources.Mem,
	}
}

// Snapshot returns the slave's snapshot.
func (s *Slave) Snapshot() SlaveState {
	return SlaveState{
		ID:          s.ID,
		Hostname:    s.Hostname,
		PublicDNS:   s.PublicDNS,
		CPUs:        s.Resources.CPU,
		Mem:         s.Resources.Mem,
		OfferedCPUs: s.ResourcesOffered.CPU,
		OfferedMem:  s.ResourcesOffered.Mem,
		ConnectTime: s.ConnectTime,
	}
}

// Snapshot returns the offer's snapshot.
func (o *SlotOffer) Snapshot() OfferState {
	resources := make([]SlaveResources, len(o.Resources))
	copy(resources, o.Resources)
	return OfferState{
		ID:          o.ID,
		FrameworkID: o.FrameworkID,
		Resources:   resources,
	}
}
