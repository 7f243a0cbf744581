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
	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/benh/twesos/pkg/common/background"
	"github.com/benh/twesos/pkg/master/message"
)

const _timerTickWorkName = "master_timer_tick"

// tickWork feeds a TimerTick into the loop every tick interval. A full
// queue drops the tick; the next one catches up.
func (m *master) tickWork() background.Work {
	return background.Work{
		Name:         _timerTickWorkName,
		Period:       m.cfg.TimerTickInterval,
		InitialDelay: m.cfg.TimerTickInterval,
		Func: func(_ *atomic.Bool) {
			if err := m.Enqueue(message.Envelope{Body: &message.TimerTick{}}); err != nil {
				log.WithError(err).Debug("Dropping timer tick")
			}
		},
	}
}

// handleTimerTick removes slaves that missed their heartbeats, expires
// offer filters and gives the allocator its periodic turn.
func (m *master) handleTimerTick() {
	now := m.now()

	for _, slave := range m.sortedSlaves() {
		if slave.LastHeartbeat.Add(m.cfg.HeartbeatTimeout).After(now) {
			continue
		}
		log.WithFields(log.Fields{
			"slave_id":       slave.ID,
			"address":        slave.Address,
			"last_heartbeat": slave.LastHeartbeat,
		}).Warn("Lost contact with slave, removing it")
		m.metrics.SlavesTimedOut.Inc(1)
		m.removeSlave(slave)
	}

	for _, framework := range m.frameworks {
		framework.RemoveExpiredFilters(now)
	}

	if m.allocator != nil {
		m.allocator.TimerTick()
	}
	m.updateGauges()
}

func (m *master) updateGauges() {
	tasks := 0
	for _, slave := range m.slaves {
		tasks += len(slave.Tasks)
	}
	m.metrics.Frameworks.Update(float64(len(m.frameworks)))
	m.metrics.Slaves.Update(float64(len(m.slaves)))
	m.metrics.Tasks.Update(float64(tasks))
	m.metrics.Offers.Update(float64(len(m.offers)))
}
