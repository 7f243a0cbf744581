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

	"github.com/benh/twesos/pkg/master/message"
	"github.com/benh/twesos/pkg/master/models"
)

func (m *master) handleGetState(msg *message.GetState) {
	if msg.Reply == nil {
		return
	}
	select {
	case msg.Reply <- m.snapshot():
	default:
		log.Warn("Dropping state snapshot, reply channel is not ready")
	}
}

// snapshot copies the master's records into a MasterState ordered by ID.
func (m *master) snapshot() *models.MasterState {
	state := &models.MasterState{
		Address:    m.cfg.Address,
		BuildDate:  m.cfg.BuildDate,
		BuildUser:  m.cfg.BuildUser,
		Slaves:     make([]models.SlaveState, 0, len(m.slaves)),
		Frameworks: make([]models.FrameworkState, 0, len(m.frameworks)),
	}
	if m.ids != nil {
		state.ID = m.ids.MasterID()
	}

	for _, slave := range m.sortedSlaves() {
		state.Slaves = append(state.Slaves, slave.Snapshot())
	}
	for _, framework := range m.sortedFrameworks() {
		resources := framework.Resources()
		fs := models.FrameworkState{
			ID:          framework.ID,
			User:        framework.User,
			Name:        framework.Name,
			ExecutorURI: framework.Executor.URI,
			CPUs:        resources.CPU,
			Mem:         resources.Mem,
			ConnectTime: framework.ConnectTime,
			Active:      framework.Active,
			Tasks:       make([]models.TaskStatus, 0, len(framework.Tasks)),
			Offers:      make([]models.OfferState, 0, len(framework.Offers)),
		}
		for _, task := range sortedTasks(framework.Tasks) {
			fs.Tasks = append(fs.Tasks, task.Snapshot())
		}
		for _, offer := range m.offersOf(framework.Offers) {
			fs.Offers = append(fs.Offers, offer.Snapshot())
		}
		state.Frameworks = append(state.Frameworks, fs)
	}
	return state
}
