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

package main

import (
	"github.com/benh/twesos/pkg/common/health"
	"github.com/benh/twesos/pkg/common/leader"
	"github.com/benh/twesos/pkg/common/logging"
	"github.com/benh/twesos/pkg/common/metrics"
	"github.com/benh/twesos/pkg/master"
	"github.com/benh/twesos/pkg/master/transport"
	"github.com/benh/twesos/pkg/middleware/inbound"
)

// ServerConfig is where the master listens.
type ServerConfig struct {
	// Hostname is advertised to peers. Empty means os.Hostname.
	Hostname string `yaml:"hostname"`

	Port int `yaml:"port" validate:"min=1"`
}

// Config is the top level config of the master binary.
type Config struct {
	Logging   logging.Config          `yaml:"logging"`
	Metrics   metrics.Config          `yaml:"metrics"`
	Health    health.Config           `yaml:"health"`
	Election  leader.ElectionConfig   `yaml:"election"`
	Server    ServerConfig            `yaml:"server"`
	Master    master.Config           `yaml:"master"`
	Sender    transport.SenderConfig  `yaml:"sender"`
	RateLimit inbound.RateLimitConfig `yaml:"rate_limit"`
}
