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

package master

import (
	"github.com/uber-go/tally"
)

// Metrics is the master's metric set.
type Metrics struct {
	FrameworksRegistered   tally.Counter
	FrameworksReregistered tally.Counter
	FrameworksRejected     tally.Counter
	FrameworksRemoved      tally.Counter
	FrameworksTerminated   tally.Counter
	FrameworksFailedOver   tally.Counter

	SlavesRegistered   tally.Counter
	SlavesReregistered tally.Counter
	SlavesRemoved      tally.Counter
	SlavesTimedOut     tally.Counter

	OffersMade      tally.Counter
	OffersRefused   tally.Counter
	OffersRescinded tally.Counter
	OffersReplied   tally.Counter
	InvalidReplies  tally.Counter
	StaleReplies    tally.Counter

	TasksLaunched tally.Counter
	TasksFinished tally.Counter
	TasksFailed   tally.Counter
	TasksKilled   tally.Counter
	TasksLost     tally.Counter

	StatusUpdates       tally.Counter
	DuplicateUpdates    tally.Counter
	InvalidTransitions  tally.Counter
	DroppedBeforeSeeded tally.Counter
	UnknownMessages     tally.Counter
	QueueFull           tally.Counter
	MessagesProcessed   tally.Counter
	ProcessLatency      tally.Timer

	Frameworks tally.Gauge
	Slaves     tally.Gauge
	Tasks      tally.Gauge
	Offers     tally.Gauge
	QueueDepth tally.Gauge
}

// NewMetrics returns the master metrics under scope.
func NewMetrics(scope tally.Scope) *Metrics {
	frameworkScope := scope.SubScope("framework")
	slaveScope := scope.SubScope("slave")
	offerScope := scope.SubScope("offer")
	taskScope := scope.SubScope("task")
	loopScope := scope.SubScope("loop")

	return &Metrics{
		FrameworksRegistered:   frameworkScope.Counter("registered"),
		FrameworksReregistered: frameworkScope.Counter("reregistered"),
		FrameworksRejected:     frameworkScope.Counter("rejected"),
		FrameworksRemoved:      frameworkScope.Counter("removed"),
		FrameworksTerminated:   frameworkScope.Counter("terminated"),
		FrameworksFailedOver:   frameworkScope.Counter("failed_over"),

		SlavesRegistered:   slaveScope.Counter("registered"),
		SlavesReregistered: slaveScope.Counter("reregistered"),
		SlavesRemoved:      slaveScope.Counter("removed"),
		SlavesTimedOut:     slaveScope.Counter("timed_out"),

		OffersMade:      offerScope.Counter("made"),
		OffersRefused:   offerScope.Counter("refused"),
		OffersRescinded: offerScope.Counter("rescinded"),
		OffersReplied:   offerScope.Counter("replied"),
		InvalidReplies:  offerScope.Counter("invalid_replies"),
		StaleReplies:    offerScope.Counter("stale_replies"),

		TasksLaunched: taskScope.Counter("launched"),
		TasksFinished: taskScope.Counter("finished"),
		TasksFailed:   taskScope.Counter("failed"),
		TasksKilled:   taskScope.Counter("killed"),
		TasksLost:     taskScope.Counter("lost"),

		StatusUpdates:       taskScope.Counter("status_updates"),
		DuplicateUpdates:    taskScope.Counter("duplicate_updates"),
		InvalidTransitions:  taskScope.Counter("invalid_transitions"),
		DroppedBeforeSeeded: loopScope.Counter("dropped_before_identity"),
		UnknownMessages:     loopScope.Counter("unknown_messages"),
		QueueFull:           loopScope.Counter("queue_full"),
		MessagesProcessed:   loopScope.Counter("processed"),
		ProcessLatency:      loopScope.Timer("process_latency"),

		Frameworks: frameworkScope.Gauge("count"),
		Slaves:     slaveScope.Gauge("count"),
		Tasks:      taskScope.Gauge("count"),
		Offers:     offerScope.Gauge("count"),
		QueueDepth: loopScope.Gauge("queue_depth"),
	}
}
