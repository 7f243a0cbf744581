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
	"sort"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/benh/twesos/pkg/common/scalar"
	"github.com/benh/twesos/pkg/master/allocator"
	"github.com/benh/twesos/pkg/master/message"
	"github.com/benh/twesos/pkg/master/models"
)

// _refusalTimeoutParam overrides the refusal filter of an offer reply, in
// seconds. -1 filters the slave until offers are revived.
const (
	_refusalTimeoutParam = "timeout"
	_filterForever       = -1
)

// ReplyError is a protocol violation in an offer reply. The replying
// framework is terminated with Reason.
type ReplyError struct {
	Reason string
}

func (e *ReplyError) Error() string {
	return e.Reason
}

// ActiveFrameworks implements allocator.Cluster.
func (m *master) ActiveFrameworks() []*models.Framework {
	var result []*models.Framework
	for _, f := range m.sortedFrameworks() {
		if f.Active {
			result = append(result, f)
		}
	}
	return result
}

// ActiveSlaves implements allocator.Cluster.
func (m *master) ActiveSlaves() []*models.Slave {
	var result []*models.Slave
	for _, s := range m.sortedSlaves() {
		if s.Active {
			result = append(result, s)
		}
	}
	return result
}

// Now implements allocator.Cluster.
func (m *master) Now() time.Time {
	return m.now()
}

// MakeOffer implements allocator.Cluster. The offer is refused unless the
// framework is active and every slave is active, listed once, and has the
// resources free.
func (m *master) MakeOffer(
	frameworkID models.FrameworkID,
	resources []models.SlaveResources,
) models.OfferID {
	framework, ok := m.frameworks[frameworkID]
	if !ok || !framework.Active || len(resources) == 0 {
		m.refuseOffer(frameworkID, "framework unavailable or nothing offered")
		return ""
	}

	seen := make(map[models.SlaveID]bool, len(resources))
	for _, r := range resources {
		slave, ok := m.slaves[r.SlaveID]
		switch {
		case !ok || !slave.Active:
			m.refuseOffer(frameworkID, "slave unavailable")
			return ""
		case seen[r.SlaveID]:
			m.refuseOffer(frameworkID, "slave offered twice")
			return ""
		case !r.Resources.Positive() || !slave.FreeResources().Contains(r.Resources):
			m.refuseOffer(frameworkID, "resources not free")
			return ""
		}
		seen[r.SlaveID] = true
	}

	offer := &models.SlotOffer{
		ID:          m.ids.NextOfferID(),
		FrameworkID: framework.ID,
		Resources:   append([]models.SlaveResources(nil), resources...),
	}
	m.offers[offer.ID] = offer
	framework.Offers[offer.ID] = struct{}{}

	reply := &message.ResourceOffer{
		OfferID:   offer.ID,
		Addresses: make(map[models.SlaveID]string, len(resources)),
	}
	for _, r := range offer.Resources {
		slave := m.slaves[r.SlaveID]
		slave.Offers[offer.ID] = struct{}{}
		slave.ResourcesOffered = slave.ResourcesOffered.Add(r.Resources)

		reply.Offers = append(reply.Offers, message.SlaveOffer{
			SlaveID:  slave.ID,
			Hostname: slave.Hostname,
			Params:   r.Resources.ToParams(),
		})
		reply.Addresses[slave.ID] = slave.Address
	}

	log.WithFields(log.Fields{
		"offer_id":     offer.ID,
		"framework_id": framework.ID,
		"resources":    offer.Total(),
	}).Info("Sending offer")
	m.metrics.OffersMade.Inc(1)
	m.sender.Send(framework.Address, reply)
	return offer.ID
}

func (m *master) refuseOffer(frameworkID models.FrameworkID, reason string) {
	m.metrics.OffersRefused.Inc(1)
	log.WithFields(log.Fields{
		"framework_id": frameworkID,
		"reason":       reason,
	}).Warn("Refusing offer from allocator")
}

// removeOffer is the only way an offer goes away. The unused resources
// reported to the allocator are leftovers, which may be less than what
// was offered.
func (m *master) removeOffer(
	offer *models.SlotOffer,
	reason allocator.OfferReturnReason,
	leftovers []models.SlaveResources,
) {
	for _, r := range offer.Resources {
		slave, ok := m.slaves[r.SlaveID]
		if !ok {
			continue
		}
		slave.ResourcesOffered = slave.ResourcesOffered.Subtract(r.Resources)
		if slave.ResourcesOffered.Empty() {
			slave.ResourcesOffered = scalar.Resources{}
		}
		delete(slave.Offers, offer.ID)
	}

	if framework, ok := m.frameworks[offer.FrameworkID]; ok {
		delete(framework.Offers, offer.ID)
		if reason != allocator.OfferFrameworkReplied {
			m.metrics.OffersRescinded.Inc(1)
			m.sender.Send(framework.Address, &message.RescindOffer{OfferID: offer.ID})
		}
	}
	delete(m.offers, offer.ID)

	log.WithFields(log.Fields{
		"offer_id":     offer.ID,
		"framework_id": offer.FrameworkID,
		"reason":       reason,
	}).Debug("Removed offer")
	m.allocator.OfferReturned(offer, reason, leftovers)
}

// offersOf returns the framework's or slave's offers ordered by ID, safe to
// remove while iterating.
func (m *master) offersOf(ids map[models.OfferID]struct{}) []*models.SlotOffer {
	result := make([]*models.SlotOffer, 0, len(ids))
	for id := range ids {
		if offer, ok := m.offers[id]; ok {
			result = append(result, offer)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *master) handleOfferReply(msg *message.OfferReply) {
	framework, ok := m.frameworks[msg.FrameworkID]
	if !ok {
		log.WithField("framework_id", msg.FrameworkID).
			Warn("Offer reply from unknown framework")
		return
	}

	offer, ok := m.offers[msg.OfferID]
	if !ok || offer.FrameworkID != framework.ID {
		// Rescinded or the slave was lost: whatever the reply launched is
		// lost.
		m.metrics.StaleReplies.Inc(1)
		log.WithFields(log.Fields{
			"framework_id": framework.ID,
			"offer_id":     msg.OfferID,
			"tasks":        len(msg.Tasks),
		}).Info("Reply to an offer that is gone")
		for _, t := range msg.Tasks {
			m.sendStatus(framework, t.TaskID, models.TaskLost, nil)
		}
		return
	}

	m.processOfferReply(framework, offer, msg.Tasks, msg.Params)
}

// processOfferReply launches the tasks of a valid reply, filters the
// slaves the framework accepted nothing on and hands the rest back to the
// allocator. An invalid reply launches nothing and terminates the
// framework.
func (m *master) processOfferReply(
	framework *models.Framework,
	offer *models.SlotOffer,
	tasks []message.TaskDescription,
	params map[string]string,
) {
	log.WithFields(log.Fields{
		"framework_id": framework.ID,
		"offer_id":     offer.ID,
		"tasks":        len(tasks),
	}).Info("Received offer reply")
	m.metrics.OffersReplied.Inc(1)

	accepted, err := m.validateReply(framework, offer, tasks)
	if err != nil {
		m.metrics.InvalidReplies.Inc(1)
		m.terminateFramework(framework, message.ErrorCodeTerminated, err.Error())
		return
	}

	for _, t := range tasks {
		m.launchTask(framework, t)
	}

	now := m.now()
	timeout, forever := m.refusalTimeout(params)
	var leftovers []models.SlaveResources
	for _, r := range offer.Resources {
		used := accepted[r.SlaveID]
		if left := r.Resources.Subtract(used); left.Positive() {
			leftovers = append(leftovers, models.SlaveResources{SlaveID: r.SlaveID, Resources: left})
		}
		if used.Positive() || (!forever && timeout == 0) {
			continue
		}
		var expiry time.Time
		if !forever {
			expiry = now.Add(timeout)
		}
		framework.SlaveFilter[r.SlaveID] = expiry
		log.WithFields(log.Fields{
			"framework_id": framework.ID,
			"slave_id":     r.SlaveID,
			"forever":      forever,
			"timeout":      timeout,
		}).Info("Adding filter")
	}

	m.removeOffer(offer, allocator.OfferFrameworkReplied, leftovers)
}

// validateReply checks, in order, each task's size, that each task's slave
// is in the offer, that no slave is asked for more than offered, and that
// task IDs are new. It returns what the reply takes on each slave.
func (m *master) validateReply(
	framework *models.Framework,
	offer *models.SlotOffer,
	tasks []message.TaskDescription,
) (map[models.SlaveID]scalar.Resources, error) {
	accepted := make(map[models.SlaveID]scalar.Resources)
	for _, t := range tasks {
		res := scalar.FromParams(t.Params)
		if err := m.cfg.TaskBounds.Check(res); err != nil {
			return nil, &ReplyError{Reason: err.Error()}
		}
		if _, ok := m.slaves[t.SlaveID]; !ok {
			return nil, &ReplyError{Reason: "Invalid slave in offer reply"}
		}
		if _, ok := offer.ResourcesOn(t.SlaveID); !ok {
			return nil, &ReplyError{Reason: "Invalid slave in offer reply"}
		}
		accepted[t.SlaveID] = accepted[t.SlaveID].Add(res)
	}

	for slaveID, res := range accepted {
		offered, _ := offer.ResourcesOn(slaveID)
		if !offered.Contains(res) {
			return nil, &ReplyError{Reason: "Too many resources accepted"}
		}
	}

	ids := make(map[models.TaskID]struct{}, len(tasks))
	for _, t := range tasks {
		_, exists := framework.Tasks[t.TaskID]
		_, repeated := ids[t.TaskID]
		if exists || repeated {
			return nil, &ReplyError{Reason: "Duplicate task ID: " + string(t.TaskID)}
		}
		ids[t.TaskID] = struct{}{}
	}
	return accepted, nil
}

// refusalTimeout reads the reply's filter duration, falling back to the
// configured default.
func (m *master) refusalTimeout(params map[string]string) (time.Duration, bool) {
	v, ok := params[_refusalTimeoutParam]
	if !ok {
		return m.cfg.DefaultRefusalTimeout, false
	}
	seconds, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.WithField("timeout", v).Warn("Malformed refusal timeout, using default")
		return m.cfg.DefaultRefusalTimeout, false
	}
	if seconds == _filterForever {
		return 0, true
	}
	return time.Duration(seconds * float64(time.Second)), false
}

func (m *master) launchTask(framework *models.Framework, t message.TaskDescription) {
	// Validation guarantees the slave exists.
	slave := m.slaves[t.SlaveID]
	res := scalar.FromParams(t.Params)

	task, err := models.NewTask(t.TaskID, framework.ID, slave.ID, t.Name, res, models.TaskStarting, m.clock)
	if err != nil {
		log.WithError(err).
			WithField("task_id", t.TaskID).
			Error("Failed to create task")
		m.sendStatus(framework, t.TaskID, models.TaskLost, nil)
		return
	}

	framework.Tasks[task.ID] = task
	slave.Tasks[task.Key()] = task
	m.allocator.TaskAdded(task)
	m.metrics.TasksLaunched.Inc(1)

	log.WithFields(log.Fields{
		"framework_id": framework.ID,
		"task_id":      task.ID,
		"slave_id":     slave.ID,
		"resources":    res,
	}).Info("Launching task")
	m.sender.Send(slave.Address, &message.RunTask{
		FrameworkID:      framework.ID,
		FrameworkName:    framework.Name,
		User:             framework.User,
		Executor:         framework.Executor,
		FrameworkAddress: framework.Address,
		Task:             t,
	})
}
