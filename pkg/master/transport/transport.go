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

// Package transport carries master messages over yarpc using the JSON
// encoding. Every message kind is its own oneway procedure named
// "<Service>::<kind>"; the sender's reply address and sequence number
// travel in headers.
package transport

//go:generate mockgen -destination mocks/mock_sender.go -package mocks github.com/benh/twesos/pkg/master/transport Sender

import (
	"time"

	"github.com/benh/twesos/pkg/common/backoff"
	"github.com/benh/twesos/pkg/master/message"
)

const (
	// ServiceName is the yarpc service every master, framework and slave
	// dispatcher serves under.
	ServiceName = "twesos"

	// GetStateProcedure is the unary procedure returning the master snapshot.
	GetStateProcedure = "Master::getState"
)

const (
	_defaultPeerQueueSize = 1024
	_defaultSendTimeout   = 5 * time.Second
	_defaultRetryInterval = 100 * time.Millisecond
	_callerName           = "twesos-master"
	_peerService          = ServiceName
)

// Sender delivers messages to frameworks and slaves. Send never blocks;
// delivery failures are reported asynchronously.
type Sender interface {
	Send(address string, m message.Message)
	// Forget releases everything kept for address once the messages
	// already queued for it are delivered.
	Forget(address string)
}

// DisconnectFunc is called with the address of a peer that could not be
// reached.
type DisconnectFunc func(address string)

// SenderConfig configures outbound delivery.
type SenderConfig struct {
	// Address is where this master accepts messages. It is stamped on
	// every outbound message.
	Address string `yaml:"address"`

	// QueueSize bounds the messages buffered per peer.
	QueueSize int `yaml:"queue_size"`

	// Timeout bounds a single delivery.
	Timeout time.Duration `yaml:"timeout"`

	// Retries is how many times a failed delivery is retried before the
	// peer is reported as exited.
	Retries int `yaml:"retries"`

	// RetryInterval is the first delay between retries. It doubles up to
	// MaxRetryInterval.
	RetryInterval    time.Duration `yaml:"retry_interval"`
	MaxRetryInterval time.Duration `yaml:"max_retry_interval"`
}

func (c SenderConfig) queueSize() int {
	if c.QueueSize <= 0 {
		return _defaultPeerQueueSize
	}
	return c.QueueSize
}

func (c SenderConfig) retryPolicy() backoff.RetryPolicy {
	interval := c.RetryInterval
	if interval <= 0 {
		interval = _defaultRetryInterval
	}
	retries := c.Retries
	if retries < 0 {
		retries = 0
	}
	return backoff.NewRetryPolicy(retries+1, interval, c.MaxRetryInterval)
}

func (c SenderConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return _defaultSendTimeout
	}
	return c.Timeout
}
