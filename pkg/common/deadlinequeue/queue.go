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

import (
	"container/heap"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DeadlineQueue defines the interface of a deadline queue implementation.
// Items with a deadline can be enqueued, and when the deadline expires,
// dequeue operation will return back the item.
type DeadlineQueue interface {
	// Enqueue schedules the item. An already scheduled item only moves
	// to an earlier deadline.
	Enqueue(qi QueueItem, deadline time.Time)
	// Remove unschedules the item if it is queued.
	Remove(qi QueueItem)
	// Len returns the number of scheduled items.
	Len() int
	// Dequeue is a blocking call to wait for the next queue item
	// whose deadline expires. Returns nil once stopChan is closed.
	Dequeue(stopChan <-chan struct{}) QueueItem
}

// NewDeadlineQueue returns a deadline queue object.
func NewDeadlineQueue(mtx *QueueMetrics, clock clockwork.Clock) DeadlineQueue {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	q := &deadlineQueue{
		pq:           &priorityQueue{},
		queueChanged: make(chan struct{}, 1),
		mtx:          mtx,
		clock:        clock,
	}
	heap.Init(q.pq)
	return q
}

type deadlineQueue struct {
	sync.RWMutex

	pq           *priorityQueue
	queueChanged chan struct{}
	mtx          *QueueMetrics
	clock        clockwork.Clock
}

func (q *deadlineQueue) nextDeadline() time.Time {
	if q.pq.Len() == 0 {
		return time.Time{}
	}
	return q.pq.NextDeadline()
}

func (q *deadlineQueue) popIfReady() QueueItem {
	if q.pq.Len() == 0 {
		return nil
	}
	if q.pq.NextDeadline().After(q.clock.Now()) {
		return nil
	}

	qi := heap.Pop(q.pq).(QueueItem)
	q.mtx.queuePopDelay.Record(q.clock.Since(qi.Deadline()))
	qi.SetDeadline(time.Time{})
	q.mtx.queueLength.Update(float64(q.pq.Len()))
	return qi
}

func (q *deadlineQueue) update(item QueueItem) {
	if item.Index() == -1 {
		if item.Deadline().IsZero() {
			return
		}
		heap.Push(q.pq, item)
		q.mtx.queueLength.Update(float64(q.pq.Len()))
		return
	}

	if item.Deadline().IsZero() {
		heap.Remove(q.pq, item.Index())
		q.mtx.queueLength.Update(float64(q.pq.Len()))
		return
	}
	heap.Fix(q.pq, item.Index())
}

func (q *deadlineQueue) notify() {
	select {
	case q.queueChanged <- struct{}{}:
	default:
	}
}

func (q *deadlineQueue) Enqueue(qi QueueItem, deadline time.Time) {
	q.Lock()
	defer q.Unlock()

	if !qi.Deadline().IsZero() && !deadline.Before(qi.Deadline()) {
		return
	}
	qi.SetDeadline(deadline)
	q.update(qi)
	q.notify()
}

func (q *deadlineQueue) Remove(qi QueueItem) {
	q.Lock()
	defer q.Unlock()

	if qi.Index() == -1 {
		return
	}
	qi.SetDeadline(time.Time{})
	q.update(qi)
	q.mtx.queueRemoved.Inc(1)
	q.notify()
}

func (q *deadlineQueue) Len() int {
	q.RLock()
	defer q.RUnlock()
	return q.pq.Len()
}

// Dequeue supports a single consumer; any number of goroutines may
// Enqueue or Remove concurrently.
func (q *deadlineQueue) Dequeue(stopChan <-chan struct{}) QueueItem {
	for {
		q.Lock()
		if r := q.popIfReady(); r != nil {
			q.Unlock()
			return r
		}
		deadline := q.nextDeadline()
		q.Unlock()

		var timer clockwork.Timer
		var timerChan <-chan time.Time
		if !deadline.IsZero() {
			timer = q.clock.NewTimer(deadline.Sub(q.clock.Now()))
			timerChan = timer.Chan()
		}

		select {
		case <-timerChan:
		case <-q.queueChanged:
		case <-stopChan:
			if timer != nil {
				timer.Stop()
			}
			return nil
		}

		if timer != nil {
			timer.Stop()
		}
	}
}
