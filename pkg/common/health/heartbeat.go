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

package health

import (
	"time"

	"github.com/benh/twesos/pkg/common/background"
	"github.com/benh/twesos/pkg/common/leader"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"
)

const (
	// HeartbeatWorkName is the background work name of the heartbeat.
	HeartbeatWorkName = "health_heartbeat"

	_defaultHeartbeatInterval = 10 * time.Second
)

// Config configures the health heartbeat.
type Config struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

// Metrics are the gauges the heartbeat keeps at 1 while the process is up
// and, for Leader, while it holds leadership.
type Metrics struct {
	Init      tally.Counter
	Heartbeat tally.Gauge
	Leader    tally.Gauge
}

// NewMetrics returns a new instance of Metrics.
func NewMetrics(scope tally.Scope) *Metrics {
	return &Metrics{
		Init:      scope.Counter("init"),
		Heartbeat: scope.Gauge("heartbeat"),
		Leader:    scope.Gauge("leader"),
	}
}

// Heartbeat emits liveness gauges on every beat.
type Heartbeat struct {
	metrics   *Metrics
	candidate leader.Candidate
}

// NewHeartbeat creates a heartbeat reporting under scope's "health"
// sub-scope. candidate may be nil.
func NewHeartbeat(scope tally.Scope, candidate leader.Candidate) *Heartbeat {
	hb := &Heartbeat{
		metrics:   NewMetrics(scope.SubScope("health")),
		candidate: candidate,
	}
	hb.metrics.Init.Inc(1)
	return hb
}

// Work wraps the heartbeat as periodic background work.
func (hb *Heartbeat) Work(cfg Config) background.Work {
	interval := cfg.HeartbeatInterval
	if interval <= 0 {
		interval = _defaultHeartbeatInterval
	}
	return background.Work{
		Name:   HeartbeatWorkName,
		Period: interval,
		Func:   func(*atomic.Bool) { hb.Beat() },
	}
}

// Beat emits one heartbeat.
func (hb *Heartbeat) Beat() {
	log.Debug("Emitting heartbeat.")
	hb.metrics.Heartbeat.Update(1)

	// Only the elected leader reports the leader gauge as 1.
	if hb.candidate != nil && hb.candidate.IsLeader() {
		hb.metrics.Leader.Update(1)
	} else {
		hb.metrics.Leader.Update(0)
	}
}
