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

	"github.com/benh/twesos/pkg/common/scalar"
)

// ExecutorInfo describes the executor a framework launches its tasks with.
type ExecutorInfo struct {
	URI  string `json:"uri"`
	Data []byte `json:"data,omitempty"`
}

// Framework is one connected workload owner.
type Framework struct {
	ID       FrameworkID
	Address  string
	Name     string
	User     string
	Executor ExecutorInfo

	Tasks  map[TaskID]*Task
	Offers map[OfferID]struct{}
	// SlaveFilter maps a declined slave to the time its filter expires.
	// The zero time never expires.
	SlaveFilter map[SlaveID]time.Time

	ConnectTime time.Time
	Active      bool
	// FailoverDeadline is set while the framework is disconnected and
	// waiting to be reclaimed by a re-registration.
	FailoverDeadline time.Time
}

// NewFramework returns an active framework with empty collections.
func NewFramework(
	id FrameworkID,
	address string,
	name string,
	user string,
	executor ExecutorInfo,
	now time.Time,
) *Framework {
	return &Framework{
		ID:          id,
		Address:     address,
		Name:        name,
		User:        user,
		Executor:    executor,
		Tasks:       make(map[TaskID]*Task),
		Offers:      make(map[OfferID]struct{}),
		SlaveFilter: make(map[SlaveID]time.Time),
		ConnectTime: now,
		Active:      true,
	}
}

// Resources sums the resources of the framework's tasks.
func (f *Framework) Resources() scalar.Resources {
	var total scalar.Resources
	for _, t := range f.Tasks {
		total = total.Add(t.Resources)
	}
	return total
}

// Filters reports whether the slave is filtered for this framework at now.
func (f *Framework) Filters(slaveID SlaveID, now time.Time) bool {
	expiry, ok := f.SlaveFilter[slaveID]
	if !ok {
		return false
	}
	return expiry.IsZero() || now.Before(expiry)
}

// RemoveExpiredFilters drops filters whose expiry is at or before now.
func (f *Framework) RemoveExpiredFilters(now time.Time) {
	for id, expiry := range f.SlaveFilter {
		if !expiry.IsZero() && !expiry.After(now) {
			delete(f.SlaveFilter, id)
		}
	}
}
