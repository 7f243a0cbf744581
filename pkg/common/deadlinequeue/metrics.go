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
	"github.com/uber-go/tally"
)

// QueueMetrics contains all counters to track queue metrics
type QueueMetrics struct {
	queueLength   tally.Gauge // length of the queue
	queuePopDelay tally.Timer // delay between deadline expiry and dequeue
	queueRemoved  tally.Counter
}

// NewQueueMetrics returns a new QueueMetrics struct.
func NewQueueMetrics(scope tally.Scope) *QueueMetrics {
	queueScope := scope.SubScope("queue")
	return &QueueMetrics{
		queueLength:   queueScope.Gauge("length"),
		queuePopDelay: queueScope.Timer("pop_delay"),
		queueRemoved:  queueScope.Counter("removed"),
	}
}
