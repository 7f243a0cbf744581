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

// Package master implements the cluster master: a single event loop that
// owns every framework, slave, task and slot offer, admits frameworks and
// slaves, drives the allocator, validates offer replies and tracks tasks
// to completion.
package master

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/benh/twesos/pkg/common/background"
	"github.com/benh/twesos/pkg/common/deadlinequeue"
	"github.com/benh/twesos/pkg/common/lifecycle"
	"github.com/benh/twesos/pkg/master/allocator"
	"github.com/benh/twesos/pkg/master/dedup"
	"github.com/benh/twesos/pkg/master/message"
	"github.com/benh/twesos/pkg/master/models"
	"github.com/benh/twesos/pkg/master/transport"
)

var (
	// ErrQueueFull is returned by Enqueue when the inbound queue is full.
	ErrQueueFull = errors.New("master queue is full")

	errNotRunning = errors.New("master is not running")
	errNilMessage = errors.New("envelope has no message")
	errShutdown   = errors.New("master shut down")
)

// Master is the cluster master.
type Master interface {
	// Start runs the event loop and its timers.
	Start()
	// Stop terminates the event loop and waits for it to exit.
	Stop()
	// Enqueue hands a message to the event loop without blocking.
	Enqueue(env message.Envelope) error
	// GetState returns a snapshot taken by the event loop.
	GetState(ctx context.Context) (*models.MasterState, error)
	// Wait blocks until the loop exits and returns why it did.
	Wait() error
}

type master struct {
	cfg     Config
	sender  transport.Sender
	clock   clockwork.Clock
	scope   tally.Scope
	metrics *Metrics

	lifecycle  lifecycle.LifeCycle
	queue      chan message.Envelope
	background background.Manager
	wg         sync.WaitGroup

	// Everything below is owned by the event loop.
	ids        *models.IDGenerator
	allocator  allocator.Allocator
	frameworks map[models.FrameworkID]*models.Framework
	slaves     map[models.SlaveID]*models.Slave
	offers     map[models.OfferID]*models.SlotOffer

	frameworksByAddress map[string]models.FrameworkID
	slavesByAddress     map[string]models.SlaveID

	dedup         dedup.Tracker
	failovers     deadlinequeue.DeadlineQueue
	failoverItems map[models.FrameworkID]*failoverItem
}

// New creates a master. The allocator is only built once the master
// identity arrives, but its name is checked here.
func New(
	cfg Config,
	sender transport.Sender,
	scope tally.Scope,
	clock clockwork.Clock,
) (Master, error) {
	return newMaster(cfg, sender, scope, clock)
}

func newMaster(
	cfg Config,
	sender transport.Sender,
	scope tally.Scope,
	clock clockwork.Clock,
) (*master, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid master config")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	m := &master{
		cfg:                 cfg,
		sender:              sender,
		clock:               clock,
		scope:               scope,
		metrics:             NewMetrics(scope),
		lifecycle:           lifecycle.NewLifeCycle(),
		queue:               make(chan message.Envelope, cfg.QueueSize),
		background:          background.NewManager(clock),
		frameworks:          make(map[models.FrameworkID]*models.Framework),
		slaves:              make(map[models.SlaveID]*models.Slave),
		offers:              make(map[models.OfferID]*models.SlotOffer),
		frameworksByAddress: make(map[string]models.FrameworkID),
		slavesByAddress:     make(map[string]models.SlaveID),
		dedup:               dedup.NewTracker(cfg.Dedup, scope),
		failovers: deadlinequeue.NewDeadlineQueue(
			deadlinequeue.NewQueueMetrics(scope.SubScope("failover")), clock),
		failoverItems: make(map[models.FrameworkID]*failoverItem),
	}
	if err := m.background.RegisterWorks(m.tickWork()); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *master) Start() {
	if !m.lifecycle.Start() {
		log.Warn("Master is already running")
		return
	}
	stopCh := m.lifecycle.StopCh()

	m.background.Start()
	m.wg.Add(1)
	go m.watchFailovers(stopCh)
	go m.run(stopCh)

	log.WithField("allocator", m.cfg.Allocator).Info("Master started")
}

func (m *master) Stop() {
	if !m.lifecycle.Stop(nil) {
		return
	}
	m.lifecycle.Wait()
	log.Info("Master stopped")
}

func (m *master) Wait() error {
	return m.lifecycle.Wait()
}

func (m *master) Enqueue(env message.Envelope) error {
	if env.Body == nil {
		return errNilMessage
	}
	select {
	case m.queue <- env:
		return nil
	default:
		m.metrics.QueueFull.Inc(1)
		return ErrQueueFull
	}
}

func (m *master) GetState(ctx context.Context) (*models.MasterState, error) {
	if !m.lifecycle.Running() {
		return nil, errNotRunning
	}
	reply := make(chan *models.MasterState, 1)
	if err := m.Enqueue(message.Envelope{Body: &message.GetState{Reply: reply}}); err != nil {
		return nil, err
	}
	select {
	case state := <-reply:
		return state, nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "waiting for master state")
	}
}

func (m *master) run(stopCh <-chan struct{}) {
	defer m.lifecycle.StopComplete()
	defer m.shutdownHelpers()

	for {
		select {
		case <-stopCh:
			return
		case env := <-m.queue:
			err := m.process(env)
			if err == nil {
				continue
			}
			if err == errShutdown {
				m.lifecycle.Stop(nil)
			} else {
				log.WithError(err).Error("Master loop exiting")
				m.lifecycle.Stop(err)
			}
			return
		}
	}
}

// shutdownHelpers stops the goroutines feeding the loop.
func (m *master) shutdownHelpers() {
	m.background.Stop()
	m.wg.Wait()
	m.dedup.Stop()
}

// process handles one message. A non-nil error ends the loop.
func (m *master) process(env message.Envelope) error {
	start := m.clock.Now()
	defer func() {
		m.metrics.MessagesProcessed.Inc(1)
		m.metrics.ProcessLatency.Record(m.clock.Since(start))
		m.metrics.QueueDepth.Update(float64(len(m.queue)))
	}()

	if m.ids == nil {
		switch msg := env.Body.(type) {
		case *message.MasterIdentity:
			return m.handleMasterIdentity(msg)
		case *message.GetState:
			m.handleGetState(msg)
		case *message.Shutdown:
			return m.handleShutdown(env.From)
		case *message.NewMasterDetected:
			log.WithField("address", msg.Address).Info("New master detected ... maybe it's us!")
		case *message.NoMasterDetected:
			log.Info("No master detected ... maybe we're next!")
		case *message.TimerTick:
			m.metrics.DroppedBeforeSeeded.Inc(1)
		default:
			m.metrics.DroppedBeforeSeeded.Inc(1)
			log.WithFields(log.Fields{
				"kind":    env.Body.Kind(),
				"address": env.From,
			}).Warn("Dropping message received before the master identity")
		}
		return nil
	}

	switch msg := env.Body.(type) {
	case *message.MasterIdentity:
		log.WithFields(log.Fields{
			"master_id": msg.ID,
			"current":   m.ids.MasterID(),
		}).Warn("Ignoring master identity, already seeded")
	case *message.NewMasterDetected:
		log.WithField("address", msg.Address).Info("New master detected ... maybe it's us!")
	case *message.NoMasterDetected:
		log.Info("No master detected ... maybe we're next!")

	case *message.RegisterFramework:
		m.handleRegisterFramework(env.From, msg)
	case *message.ReregisterFramework:
		m.handleReregisterFramework(env.From, msg)
	case *message.UnregisterFramework:
		m.handleUnregisterFramework(env.From, msg)
	case *message.OfferReply:
		m.handleOfferReply(msg)
	case *message.ReviveOffers:
		m.handleReviveOffers(msg)
	case *message.KillTask:
		m.handleKillTask(msg)
	case *message.FrameworkToSlave:
		m.handleFrameworkToSlave(msg)

	case *message.RegisterSlave:
		m.handleRegisterSlave(env.From, msg)
	case *message.ReregisterSlave:
		m.handleReregisterSlave(env.From, msg)
	case *message.UnregisterSlave:
		m.handleUnregisterSlave(msg)
	case *message.Heartbeat:
		m.handleHeartbeat(env.From, msg)
	case *message.SlaveStatusUpdate:
		m.handleStatusUpdate(env, msg)
	case *message.SlaveToFramework:
		m.handleSlaveToFramework(msg)
	case *message.ExecutorLost:
		m.handleExecutorLost(msg)

	case *message.TimerTick:
		m.handleTimerTick()
	case *message.FrameworkFailoverExpired:
		m.handleFailoverExpired(msg)
	case *message.PeerExited:
		m.handlePeerExited(msg)
	case *message.GetState:
		m.handleGetState(msg)
	case *message.Shutdown:
		return m.handleShutdown(env.From)

	default:
		m.metrics.UnknownMessages.Inc(1)
		log.WithFields(log.Fields{
			"kind":    env.Body.Kind(),
			"address": env.From,
		}).Error("Received unknown message")
	}
	return nil
}

func (m *master) handleMasterIdentity(msg *message.MasterIdentity) error {
	if msg.ID == "" {
		log.Error("Ignoring empty master identity")
		return nil
	}
	m.ids = models.NewIDGenerator(msg.ID)

	log.WithFields(log.Fields{
		"master_id": msg.ID,
		"allocator": m.cfg.Allocator,
	}).Info("Master seeded, creating allocator")

	alloc, err := allocator.New(m.cfg.Allocator, m, m.scope.SubScope("allocator"))
	if err != nil {
		return errors.Wrap(err, "failed to create allocator")
	}
	m.allocator = alloc
	return nil
}

func (m *master) handleShutdown(from string) error {
	log.WithField("address", from).Info("Asked to shut down")
	for _, slave := range m.sortedSlaves() {
		m.sender.Send(slave.Address, &message.SlaveShutdown{})
	}
	return errShutdown
}

// now is the master's clock, shared with the allocator.
func (m *master) now() time.Time {
	return m.clock.Now()
}
