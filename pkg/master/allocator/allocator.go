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


package allocator

import (
	"time"

	"github.com/benh/twesos/pkg/master/models"
)

//go:generate mockgen -destination=mocks/mock_allocator.go -package=mocks github.com/benh/twesos/pkg/master/allocator Allocator,Cluster

// TaskRemovalReason says why a task left the master.
type TaskRemovalReason int

// Task removal reasons.
const (
	TaskEnded TaskRemovalReason = iota
	TaskFrameworkLost
	TaskExecutorLost
	TaskSlaveLost
)

func (r TaskRemovalReason) String() string {
	switch r {
	case TaskEnded:
		return "task_ended"
	case TaskFrameworkLost:
		return "framework_lost"
	case TaskExecutorLost:
		return "executor_lost"
	case TaskSlaveLost:
		return "slave_lost"
	}
	return "unknown"
}

// OfferReturnReason says why an offer was discarded.
type OfferReturnReason int

// Offer return reasons.
const (
	OfferFrameworkReplied OfferReturnReason = iota
	OfferFrameworkLost
	OfferFrameworkFailover
	OfferSlaveLost
)

func (r OfferReturnReason) String() string {
	switch r {
	case OfferFrameworkReplied:
		return "framework_replied"
	case OfferFrameworkLost:
		return "framework_lost"
	case OfferFrameworkFailover:
		return "framework_failover"
	case OfferSlaveLost:
		return "slave_lost"
	}
	return "unknown"
}

// Allocator is the allocation policy. The master calls it from its event
// loop, in the order the corresponding cluster events happened. The
// allocator never mutates master state itself; it asks for offers through
// Cluster.MakeOffer.
type Allocator interface {
	SlaveAdded(slave *models.Slave)
	SlaveRemoved(slave *models.Slave)
	FrameworkAdded(framework *models.Framework)
	FrameworkRemoved(framework *models.Framework)
	TaskAdded(task *models.Task)
	TaskRemoved(task *models.Task, reason TaskRemovalReason)
	// OfferReturned is called once per discarded offer with the resources
	// that went unused, which may be fewer than were offered.
	OfferReturned(offer *models.SlotOffer, reason OfferReturnReason, leftovers []models.SlaveResources)
	OffersRevived(framework *models.Framework)
	TimerTick()
}

// Cluster is the view of the master handed to an allocator. It is only
// valid inside an Allocator callback.
type Cluster interface {
	// ActiveFrameworks returns the connected frameworks, ordered by ID.
	ActiveFrameworks() []*models.Framework
	// ActiveSlaves returns the live slaves, ordered by ID.
	ActiveSlaves() []*models.Slave
	// Now is the master's clock.
	Now() time.Time
	// MakeOffer materializes and sends an offer. Resources must be free on
	// each slave; the returned ID is empty if the offer was refused.
	MakeOffer(frameworkID models.FrameworkID, resources []models.SlaveResources) models.OfferID
}
