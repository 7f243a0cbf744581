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
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/goleak"
)

func TestPriorityQueueOrdering(t *testing.T) {
	base := time.Unix(1000, 0)
	pq := &priorityQueue{}
	heap.Init(pq)

	items := []*Item{NewItem("c"), NewItem("a"), NewItem("b")}
	items[0].SetDeadline(base.Add(3 * time.Second))
	items[1].SetDeadline(base.Add(1 * time.Second))
	items[2].SetDeadline(base.Add(2 * time.Second))
	for _, i := range items {
		heap.Push(pq, i)
	}

	assert.Equal(t, 3, pq.Len())
	for _, expected := range []string{"a", "b", "c"} {
		i := heap.Pop(pq).(*Item)
		assert.Equal(t, expected, i.Value())
		assert.Equal(t, -1, i.Index())
	}
}

func TestEnqueueOnlyMovesEarlier(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := NewDeadlineQueue(NewQueueMetrics(tally.NoopScope), clock)
	i := NewItem("fw")

	q.Enqueue(i, clock.Now().Add(time.Minute))
	q.Enqueue(i, clock.Now().Add(time.Hour))
	assert.Equal(t, clock.Now().Add(time.Minute), i.Deadline())

	q.Enqueue(i, clock.Now().Add(time.Second))
	assert.Equal(t, clock.Now().Add(time.Second), i.Deadline())
	assert.Equal(t, 1, q.Len())
}

func TestRemove(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := NewDeadlineQueue(NewQueueMetrics(tally.NoopScope), clock)
	a, b := NewItem("a"), NewItem("b")

	q.Enqueue(a, clock.Now().Add(time.Second))
	q.Enqueue(b, clock.Now().Add(2*time.Second))
	q.Remove(a)
	q.Remove(a)
	assert.Equal(t, 1, q.Len())
	assert.True(t, a.Deadline().IsZero())
	assert.Equal(t, -1, a.Index())
}

func TestDequeueWaitsForDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := clockwork.NewFakeClock()
	q := NewDeadlineQueue(NewQueueMetrics(tally.NoopScope), clock)
	q.Enqueue(NewItem("late"), clock.Now().Add(2*time.Second))
	q.Enqueue(NewItem("early"), clock.Now().Add(time.Second))

	out := make(chan QueueItem)
	go func() {
		out <- q.Dequeue(nil)
	}()

	clock.BlockUntil(1)
	select {
	case <-out:
		t.Fatal("dequeued before deadline")
	default:
	}
	clock.Advance(time.Second)
	qi := <-out
	require.NotNil(t, qi)
	assert.Equal(t, "early", qi.(*Item).Value())
	assert.Equal(t, 1, q.Len())
}

func TestDequeueReturnsOnStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewDeadlineQueue(NewQueueMetrics(tally.NoopScope), clockwork.NewFakeClock())
	stop := make(chan struct{})
	done := make(chan QueueItem)
	go func() {
		done <- q.Dequeue(stop)
	}()
	close(stop)
	assert.Nil(t, <-done)
}

func TestDequeueExpiredImmediately(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := NewDeadlineQueue(NewQueueMetrics(tally.NoopScope), clock)
	q.Enqueue(NewItem("past"), clock.Now().Add(-time.Second))
	qi := q.Dequeue(nil)
	require.NotNil(t, qi)
	assert.Equal(t, "past", qi.(*Item).Value())
}
