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
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/benh/twesos/pkg/common/scalar"
	"github.com/benh/twesos/pkg/master/models"
)

// SimpleName is the name of the default policy.
const SimpleName = "simple"

func init() {
	if err := Register(SimpleName, NewSimple); err != nil {
		log.WithError(err).Fatal("failed to register simple allocator")
	}
}

type simpleMetrics struct {
	rounds      tally.Counter
	offersMade  tally.Counter
	emptyRounds tally.Counter
}

// simple offers every free slave on every event. Frameworks are served in
// ascending order of dominant share, ties broken by ID, and each slave
// goes to at most one framework per round.
type simple struct {
	cluster Cluster
	minimum scalar.Resources
	metrics simpleMetrics
}

// NewSimple returns the default policy.
func NewSimple(cluster Cluster, scope tally.Scope) (Allocator, error) {
	return &simple{
		cluster: cluster,
		minimum: scalar.Resources{CPU: scalar.MinCPUs, Mem: scalar.MinMem},
		metrics: simpleMetrics{
			rounds:      scope.Counter("rounds"),
			offersMade:  scope.Counter("offers_made"),
			emptyRounds: scope.Counter("empty_rounds"),
		},
	}, nil
}

func (a *simple) SlaveAdded(*models.Slave)         { a.makeNewOffers() }
func (a *simple) SlaveRemoved(*models.Slave)       {}
func (a *simple) FrameworkAdded(*models.Framework) { a.makeNewOffers() }
func (a *simple) FrameworkRemoved(*models.Framework) {
	a.makeNewOffers()
}
func (a *simple) TaskAdded(*models.Task) {}
func (a *simple) TaskRemoved(*models.Task, TaskRemovalReason) {
	a.makeNewOffers()
}

func (a *simple) OfferReturned(*models.SlotOffer, OfferReturnReason, []models.SlaveResources) {
	a.makeNewOffers()
}

func (a *simple) OffersRevived(*models.Framework) { a.makeNewOffers() }
func (a *simple) TimerTick()                      { a.makeNewOffers() }

// dominantShare is the framework's largest share of any cluster resource.
func dominantShare(used, total scalar.Resources) float64 {
	var share float64
	if total.CPU > 0 {
		share = used.CPU / total.CPU
	}
	if total.Mem > 0 && used.Mem/total.Mem > share {
		share = used.Mem / total.Mem
	}
	return share
}

func (a *simple) makeNewOffers() {
	a.metrics.rounds.Inc(1)

	frameworks := a.cluster.ActiveFrameworks()
	slaves := a.cluster.ActiveSlaves()
	if len(frameworks) == 0 || len(slaves) == 0 {
		a.metrics.emptyRounds.Inc(1)
		return
	}

	var total scalar.Resources
	for _, s := range slaves {
		total = total.Add(s.Resources)
	}
	shares := make(map[models.FrameworkID]float64, len(frameworks))
	for _, f := range frameworks {
		shares[f.ID] = dominantShare(f.Resources(), total)
	}
	sort.SliceStable(frameworks, func(i, j int) bool {
		si, sj := shares[frameworks[i].ID], shares[frameworks[j].ID]
		if si != sj {
			return si < sj
		}
		return frameworks[i].ID < frameworks[j].ID
	})

	now := a.cluster.Now()
	taken := make(map[models.SlaveID]bool, len(slaves))
	for _, f := range frameworks {
		var offer []models.SlaveResources
		for _, s := range slaves {
			if taken[s.ID] || f.Filters(s.ID, now) {
				continue
			}
			free := s.FreeResources()
			if !free.AtLeast(a.minimum) {
				continue
			}
			offer = append(offer, models.SlaveResources{SlaveID: s.ID, Resources: free})
			taken[s.ID] = true
		}
		if len(offer) == 0 {
			continue
		}
		if id := a.cluster.MakeOffer(f.ID, offer); id != "" {
			a.metrics.offersMade.Inc(1)
			log.WithFields(log.Fields{
				"framework_id": f.ID,
				"offer_id":     id,
				"slaves":       len(offer),
			}).Debug("Made offer")
		}
	}
}
