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


package deadlinequeue

import "time"

// QueueItem is an item which can be scheduled in a DeadlineQueue.
type QueueItem interface {
	// Index is the position in the queue, -1 when not queued.
	Index() int
	SetIndex(i int)
	// Deadline is the zero time when the item is not scheduled.
	Deadline() time.Time
	SetDeadline(deadline time.Time)
}

// Item is a QueueItem carrying a string key.
type Item struct {
	value    string
	index    int
	deadline time.Time
}

// NewItem returns an unscheduled item for the given key.
func NewItem(value string) *Item {
	return &Item{value: value, index: -1}
}

// Value returns the key the item was created with.
func (i *Item) Value() string { return i.value }

func (i *Item) Index() int                     { return i.index }
func (i *Item) SetIndex(index int)             { i.index = index }
func (i *Item) Deadline() time.Time            { return i.deadline }
func (i *Item) SetDeadline(deadline time.Time) { i.deadline = deadline }
