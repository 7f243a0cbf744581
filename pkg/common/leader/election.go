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


package leader

import (
	"errors"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/docker/leadership"
	"github.com/docker/libkv/store"
	"github.com/docker/libkv/store/zookeeper"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
)

const (
	// ttl is the election ttl for docker/leadership.
	// Caution: required but not used.
	ttl = 5 * time.Second

	// znodeEphemeralTimeout is how long the ephemeral election node
	// survives a lost ZooKeeper session.
	znodeEphemeralTimeout = 5 * time.Second

	// zkConnErrRetry is the pause before campaigning again after a
	// connection error.
	zkConnErrRetry = 30 * time.Second

	_metricsUpdateTick = 10 * time.Second
)

// ElectionConfig is config related to leader election of the master.
type ElectionConfig struct {
	// ZKServers lists the ZooKeeper ensemble. Empty means standalone.
	ZKServers []string `yaml:"zk_servers"`

	// Root is the ZooKeeper path under which masters campaign,
	// e.g. /twesos/YOURCLUSTERHERE.
	Root string `yaml:"root"`
}

// Standalone reports whether no ZooKeeper ensemble is configured.
func (c ElectionConfig) Standalone() bool {
	return len(c.ZKServers) == 0
}

type election struct {
	sync.Mutex
	metrics    electionMetrics
	running    bool
	role       string
	candidate  *leadership.Candidate
	nomination Nomination
	stopChan   chan struct{}
	wg         sync.WaitGroup
}

// NewCandidate creates a ZooKeeper backed candidate for the role.
func NewCandidate(
	cfg ElectionConfig,
	parent tally.Scope,
	role string,
	nomination Nomination) (Candidate, error) {
	if role == "" {
		return nil, errors.New("You need to specify a role to campaign " +
			"for that isnt the empty string")
	}

	client, err := zookeeper.New(
		cfg.ZKServers,
		&store.Config{ConnectionTimeout: znodeEphemeralTimeout},
	)
	if err != nil {
		return nil, err
	}

	leaderPath := leaderZkPath(cfg.Root, role)
	log.WithFields(log.Fields{
		"id":          nomination.GetID(),
		"role":        role,
		"leader_path": leaderPath,
	}).Debug("Creating new Candidate")

	hostname, err := os.Hostname()
	if err != nil {
		return nil, err
	}
	return newElection(
		leadership.NewCandidate(client, leaderPath, nomination.GetID(), ttl),
		parent.SubScope("election"),
		hostname,
		role,
		nomination,
	), nil
}

func newElection(
	candidate *leadership.Candidate,
	scope tally.Scope,
	hostname string,
	role string,
	nomination Nomination) *election {
	return &election{
		metrics:    newElectionMetrics(scope, hostname),
		role:       role,
		nomination: nomination,
		candidate:  candidate,
		stopChan:   make(chan struct{}),
	}
}

// Start begins campaigning and runs until Stop, retrying on connection
// errors.
func (el *election) Start() error {
	el.Lock()
	defer el.Unlock()

	if el.running {
		return errors.New("Already running election")
	}
	el.running = true
	el.metrics.Start.Inc(1)
	el.metrics.Running.Update(1)

	log.WithField("role", el.role).Info("Joining election")

	el.wg.Add(2)
	go func() {
		defer el.wg.Done()
		el.campaign()
	}()
	go func() {
		defer el.wg.Done()
		el.updateLeaderElectionMetrics(_metricsUpdateTick)
	}()
	return nil
}

func (el *election) updateLeaderElectionMetrics(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			if el.IsLeader() {
				el.metrics.IsLeader.Update(1)
			} else {
				el.metrics.IsLeader.Update(0)
			}
		}
	}
}

func (el *election) campaign() {
	for {
		select {
		case <-el.stopChan:
			log.Info("Stopped running election")
			return
		default:
		}
		if err := el.waitForEvent(); err != nil {
			log.WithError(err).
				WithField("role", el.role).
				Error("Failure running election; retrying")
			select {
			case <-el.stopChan:
				return
			case <-time.After(zkConnErrRetry):
			}
		}
	}
}

func (el *election) declareLostLeadership() error {
	log.WithFields(log.Fields{
		"id":   el.nomination.GetID(),
		"role": el.role,
	}).Info("Leadership lost")
	el.metrics.LostLeadership.Inc(1)
	el.metrics.IsLeader.Update(0)
	return el.nomination.LostLeadershipCallback()
}

// waitForEvent blocks handling election results until the election
// channel closes or an error is reported.
func (el *election) waitForEvent() error {
	electionCh, errCh := el.candidate.RunForElection()

	for {
		select {
		case isElected, ok := <-electionCh:
			if !ok {
				return nil
			}
			if isElected {
				log.WithFields(log.Fields{
					"id":   el.nomination.GetID(),
					"role": el.role,
				}).Info("Leadership gained")
				el.metrics.GainedLeadership.Inc(1)
				el.metrics.IsLeader.Update(1)
				if err := el.nomination.GainedLeadershipCallback(); err != nil {
					log.WithError(err).WithField("role", el.role).
						Error("GainedLeadershipCallback failed")
					el.candidate.Resign()
				}
			} else if err := el.declareLostLeadership(); err != nil {
				log.WithError(err).WithField("role", el.role).
					Error("LostLeadershipCallback failed")
			}
		case err := <-errCh:
			if err != nil {
				log.WithError(err).WithField("role", el.role).
					Error("Error participating in election")
				el.metrics.Error.Inc(1)
				return err
			}
			// docker/leadership signals shutdown with a nil error.
			return nil
		}
	}
}

// Stop stops campaigning and calls the shutdown callback.
func (el *election) Stop() error {
	el.Lock()
	if el.running {
		el.running = false
		close(el.stopChan)
		el.candidate.Stop()
		el.metrics.Stop.Inc(1)
		el.metrics.Running.Update(0)
		el.metrics.Resigned.Inc(1)
	}
	el.Unlock()

	el.wg.Wait()
	return el.nomination.ShutDownCallback()
}

// IsLeader returns whether this candidate is the current leader.
func (el *election) IsLeader() bool {
	el.Lock()
	defer el.Unlock()

	// The candidate keeps reporting leader after resigning.
	return el.running && el.candidate.IsLeader()
}

// Resign gives up leadership.
func (el *election) Resign() {
	el.metrics.Resigned.Inc(1)
	el.candidate.Resign()
}

// leaderZkPath returns the ZK path of the leader node for a role. libkv
// keys have no leading slash.
func leaderZkPath(rootPath string, role string) string {
	return strings.TrimPrefix(path.Join(rootPath, role, "leader"), "/")
}
