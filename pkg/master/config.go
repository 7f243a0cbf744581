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
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/benh/twesos/pkg/common/scalar"
	"github.com/benh/twesos/pkg/master/allocator"
	"github.com/benh/twesos/pkg/master/dedup"
)

const (
	_defaultHeartbeatInterval     = 2 * time.Second
	_defaultHeartbeatTimeout      = 2 * _defaultHeartbeatInterval
	_defaultRefusalTimeout        = 5 * time.Second
	_defaultTimerTickInterval     = time.Second
	_defaultQueueSize             = 10000
	_defaultFailoverRetryInterval = time.Second
)

// Config is the master configuration.
type Config struct {
	// Allocator names the allocation policy in the allocator registry.
	Allocator string `yaml:"allocator"`

	// RootSubmissions allows frameworks registering as user root.
	RootSubmissions bool `yaml:"root_submissions"`

	// HeartbeatInterval is handed to slaves on registration.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// HeartbeatTimeout is how long a slave may stay silent before it is
	// removed.
	HeartbeatTimeout time.Duration `yaml:"heartbeat_timeout"`

	// DefaultRefusalTimeout is how long a slave stays filtered for a
	// framework that accepted nothing on it, unless the reply overrides it.
	DefaultRefusalTimeout time.Duration `yaml:"default_refusal_timeout"`

	// FrameworkFailoverTimeout is how long a disconnected framework may
	// take to re-register before it is removed. Zero removes it right away.
	FrameworkFailoverTimeout time.Duration `yaml:"framework_failover_timeout"`

	// TimerTickInterval is the period of the liveness tick.
	TimerTickInterval time.Duration `yaml:"timer_tick_interval"`

	// QueueSize bounds the inbound message queue.
	QueueSize int `yaml:"queue_size"`

	// TaskBounds are the allowed sizes of a single task.
	TaskBounds scalar.Bounds `yaml:"task_bounds"`

	// Dedup configures duplicate detection of reliable status updates.
	Dedup dedup.Config `yaml:"dedup"`

	// Address is the master's own address, reported in its state.
	Address string `yaml:"-"`

	// BuildDate and BuildUser are reported in the master's state.
	BuildDate string `yaml:"-"`
	BuildUser string `yaml:"-"`
}

// DefaultConfig returns the configuration YAML files are merged onto.
func DefaultConfig() Config {
	return Config{
		Allocator:             allocator.SimpleName,
		RootSubmissions:       true,
		HeartbeatInterval:     _defaultHeartbeatInterval,
		HeartbeatTimeout:      _defaultHeartbeatTimeout,
		DefaultRefusalTimeout: _defaultRefusalTimeout,
		TimerTickInterval:     _defaultTimerTickInterval,
		QueueSize:             _defaultQueueSize,
		TaskBounds:            scalar.DefaultBounds(),
	}
}

// Validate returns every problem with the configuration.
func (c Config) Validate() error {
	errs := new(multierror.Error)

	if !allocator.IsRegistered(c.Allocator) {
		errs = multierror.Append(errs, errors.Wrapf(
			allocator.ErrUnknownAllocator, "allocator %q", c.Allocator))
	}
	if c.HeartbeatInterval <= 0 {
		errs = multierror.Append(errs, errors.New("heartbeat_interval must be positive"))
	}
	if c.HeartbeatTimeout <= c.HeartbeatInterval {
		errs = multierror.Append(errs, errors.Errorf(
			"heartbeat_timeout %v must exceed heartbeat_interval %v",
			c.HeartbeatTimeout, c.HeartbeatInterval))
	}
	if c.DefaultRefusalTimeout < 0 {
		errs = multierror.Append(errs, errors.New("default_refusal_timeout must not be negative"))
	}
	if c.FrameworkFailoverTimeout < 0 {
		errs = multierror.Append(errs, errors.New("framework_failover_timeout must not be negative"))
	}
	if c.TimerTickInterval <= 0 {
		errs = multierror.Append(errs, errors.New("timer_tick_interval must be positive"))
	}
	if c.QueueSize <= 0 {
		errs = multierror.Append(errs, errors.New("queue_size must be positive"))
	}
	if c.TaskBounds.Min.CPU <= 0 || c.TaskBounds.Min.Mem <= 0 ||
		!c.TaskBounds.Max.Contains(c.TaskBounds.Min) {
		errs = multierror.Append(errs, errors.Errorf(
			"task_bounds: min %v must be positive and within max %v",
			c.TaskBounds.Min, c.TaskBounds.Max))
	}
	return errs.ErrorOrNil()
}
