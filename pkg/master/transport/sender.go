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

package transport

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benh/twesos/pkg/common/backoff"
	"github.com/benh/twesos/pkg/master/message"
	"github.com/benh/twesos/pkg/middleware/outbound"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	"go.uber.org/multierr"
	"go.uber.org/yarpc"
	"go.uber.org/yarpc/encoding/json"
	"go.uber.org/yarpc/transport/http"
)

// YARPCSender is the Sender used by the master binary. Each peer gets its
// own queue, delivery goroutine and single-outbound dispatcher, so a slow
// peer never delays messages to the others.
type YARPCSender struct {
	sync.Mutex

	cfg          SenderConfig
	onDisconnect DisconnectFunc
	metrics      *senderMetrics
	identity     *outbound.IdentityOutboundMiddleware

	peers   map[string]*peer
	// all holds every peer whose dispatcher is still running, retired
	// ones included.
	all     map[*peer]struct{}
	stopped bool
	wg      sync.WaitGroup
}

type peer struct {
	address    string
	queue      chan message.Message
	done       chan struct{}
	retired    chan struct{}
	dispatcher *yarpc.Dispatcher
	client     json.Client
	seq        uint64
}

// NewSender creates a sender. onDisconnect may be nil.
func NewSender(
	cfg SenderConfig,
	onDisconnect DisconnectFunc,
	scope tally.Scope,
) *YARPCSender {
	if onDisconnect == nil {
		onDisconnect = func(string) {}
	}
	return &YARPCSender{
		cfg:          cfg,
		onDisconnect: onDisconnect,
		metrics:      newSenderMetrics(scope),
		identity:     outbound.NewIdentityOutboundMiddleware(cfg.Address),
		peers:        make(map[string]*peer),
		all:          make(map[*peer]struct{}),
	}
}

// Send queues m for delivery to address. When the peer's queue is full the
// message is dropped.
func (s *YARPCSender) Send(address string, m message.Message) {
	if m.Kind().Service() == "" {
		s.metrics.unroutable.Inc(1)
		log.WithField("kind", m.Kind()).Error("message kind is not routable")
		return
	}

	s.Lock()
	p, err := s.getOrCreatePeer(address)
	queued := false
	if p != nil {
		// Enqueued under the lock so Forget never retires a peer that is
		// still being handed messages.
		select {
		case p.queue <- m:
			queued = true
		default:
		}
	}
	s.Unlock()

	if err != nil {
		s.metrics.sendFail.Inc(1)
		log.WithError(err).
			WithField("address", address).
			Warn("failed to connect to peer")
		s.onDisconnect(address)
		return
	}
	if p == nil {
		// Sender stopped.
		return
	}
	if !queued {
		s.metrics.dropped.Inc(1)
		log.WithFields(log.Fields{
			"address": address,
			"kind":    m.Kind(),
		}).Warn("peer queue full, dropping message")
	}
}

// Forget retires the peer for address. Its goroutine delivers what is
// already queued, then stops the peer's dispatcher. A later Send connects
// again.
func (s *YARPCSender) Forget(address string) {
	s.Lock()
	defer s.Unlock()

	p, ok := s.peers[address]
	if !ok {
		return
	}
	delete(s.peers, address)
	close(p.retired)
	s.metrics.forgotten.Inc(1)
	s.metrics.peers.Update(float64(len(s.peers)))
}

// Stop shuts down every peer, including retired ones still draining.
// Messages still queued are discarded.
func (s *YARPCSender) Stop() error {
	s.Lock()
	s.stopped = true
	peers := s.all
	s.peers = make(map[string]*peer)
	s.all = make(map[*peer]struct{})
	s.Unlock()

	for p := range peers {
		close(p.done)
	}
	s.wg.Wait()

	var errs error
	for p := range peers {
		errs = multierr.Append(errs, p.dispatcher.Stop())
	}
	s.metrics.peers.Update(0)
	return errs
}

// getOrCreatePeer must be called with the lock held.
func (s *YARPCSender) getOrCreatePeer(address string) (*peer, error) {
	if s.stopped {
		return nil, nil
	}
	if p, ok := s.peers[address]; ok {
		return p, nil
	}

	t := http.NewTransport()
	d := yarpc.NewDispatcher(yarpc.Config{
		Name: _callerName,
		Outbounds: yarpc.Outbounds{
			_peerService: {
				Oneway: t.NewSingleOutbound(peerURL(address)),
			},
		},
		OutboundMiddleware: yarpc.OutboundMiddleware{
			Unary:  yarpc.UnaryOutboundMiddleware(s.identity),
			Oneway: yarpc.OnewayOutboundMiddleware(s.identity),
		},
	})
	if err := d.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start dispatcher for %s", address)
	}

	p := &peer{
		address:    address,
		queue:      make(chan message.Message, s.cfg.queueSize()),
		done:       make(chan struct{}),
		retired:    make(chan struct{}),
		dispatcher: d,
		client:     json.New(d.ClientConfig(_peerService)),
	}
	s.peers[address] = p
	s.all[p] = struct{}{}
	s.metrics.peers.Update(float64(len(s.peers)))

	s.wg.Add(1)
	go s.run(p)
	return p, nil
}

func (s *YARPCSender) run(p *peer) {
	defer s.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case m := <-p.queue:
			if err := s.deliverWithRetry(p, m); err != nil {
				s.disconnect(p, err)
				return
			}
		case <-p.retired:
			s.drain(p)
			return
		}
	}
}

// drain delivers what was queued before the peer was retired, then
// releases it. Nothing is enqueued after retirement.
func (s *YARPCSender) drain(p *peer) {
	for {
		select {
		case <-p.done:
			return
		case m := <-p.queue:
			if err := s.deliverWithRetry(p, m); err != nil {
				log.WithError(err).
					WithField("address", p.address).
					Info("failed to deliver to retired peer")
				s.release(p)
				return
			}
		default:
			s.release(p)
			return
		}
	}
}

// release stops a retired peer's dispatcher unless Stop already owns it.
func (s *YARPCSender) release(p *peer) {
	s.Lock()
	_, owned := s.all[p]
	delete(s.all, p)
	s.Unlock()
	if !owned {
		return
	}
	if err := p.dispatcher.Stop(); err != nil {
		log.WithError(err).
			WithField("address", p.address).
			Warn("failed to stop peer dispatcher")
	}
}

// deliverWithRetry gives up on the first success, once the retry policy is
// exhausted, or when the peer is stopped.
func (s *YARPCSender) deliverWithRetry(p *peer, m message.Message) error {
	retrier := backoff.NewRetrier(s.cfg.retryPolicy())
	// Retries reuse the sequence number so the peer can drop duplicates.
	p.seq++
	for {
		err := s.deliver(p, m, p.seq)
		if err == nil {
			return nil
		}
		delay := retrier.NextBackOff()
		if delay == backoff.Done {
			return err
		}
		s.metrics.retries.Inc(1)
		select {
		case <-p.done:
			return err
		case <-time.After(delay):
		}
	}
}

func (s *YARPCSender) deliver(p *peer, m message.Message, seq uint64) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.timeout())
	defer cancel()

	_, err := p.client.CallOneway(
		ctx,
		m.Kind().Procedure(),
		m,
		yarpc.WithHeader(message.HeaderSeq, strconv.FormatUint(seq, 10)),
	)
	if err != nil {
		s.metrics.sendFail.Inc(1)
		return errors.Wrapf(err, "failed to deliver %s", m.Kind())
	}
	s.metrics.sent.Inc(1)
	return nil
}

// disconnect forgets the peer so a later Send reconnects, then reports it.
func (s *YARPCSender) disconnect(p *peer, err error) {
	s.Lock()
	current, ok := s.peers[p.address]
	if !ok || current != p {
		// Retired or stopped meanwhile; nobody waits for the report.
		s.Unlock()
		s.release(p)
		return
	}
	delete(s.peers, p.address)
	delete(s.all, p)
	s.metrics.peers.Update(float64(len(s.peers)))
	s.Unlock()

	s.metrics.disconnects.Inc(1)
	log.WithError(err).
		WithField("address", p.address).
		Info("peer disconnected")

	if stopErr := p.dispatcher.Stop(); stopErr != nil {
		log.WithError(stopErr).
			WithField("address", p.address).
			Warn("failed to stop peer dispatcher")
	}
	s.onDisconnect(p.address)
}

func peerURL(address string) string {
	if strings.HasPrefix(address, "http://") || strings.HasPrefix(address, "https://") {
		return address
	}
	return "http://" + address
}
