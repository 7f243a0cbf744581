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


package dedup

import (
	"time"

	"github.com/karlseguin/ccache/v2"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
)

const (
	_defaultWindow     = 1024
	_defaultSenderTTL  = 10 * time.Minute
	_defaultMaxSenders = 100000
)

// Config configures duplicate detection.
type Config struct {
	// Window is how many sequence numbers below the highest seen are
	// remembered per sender. Anything older counts as a duplicate.
	Window uint64 `yaml:"window"`
	// SenderTTL evicts senders that have been silent this long.
	SenderTTL time.Duration `yaml:"sender_ttl"`
	// MaxSenders bounds the number of tracked senders.
	MaxSenders int64 `yaml:"max_senders"`
}

func (c Config) withDefaults() Config {
	if c.Window == 0 {
		c.Window = _defaultWindow
	}
	if c.SenderTTL <= 0 {
		c.SenderTTL = _defaultSenderTTL
	}
	if c.MaxSenders <= 0 {
		c.MaxSenders = _defaultMaxSenders
	}
	return c
}

// Tracker detects redelivered messages by (sender, sequence) key.
type Tracker interface {
	// Observe records the key and returns true if it was seen before.
	// A zero sequence is never a duplicate.
	Observe(sender string, seq uint64) bool
	// Forget drops everything known about a sender.
	Forget(sender string)
	// Stop releases the tracker's background goroutine.
	Stop()
}

type metrics struct {
	observed   tally.Counter
	duplicates tally.Counter
	tooOld     tally.Counter
	senders    tally.Gauge
}

type tracker struct {
	cfg     Config
	cache   *ccache.Cache
	metrics metrics
}

// window remembers the sequence numbers of one sender within the window
// below the highest seen.
type window struct {
	highest uint64
	seen    map[uint64]struct{}
}

// NewTracker returns a Tracker backed by a TTL cache of senders.
func NewTracker(cfg Config, scope tally.Scope) Tracker {
	cfg = cfg.withDefaults()
	s := scope.SubScope("dedup")
	return &tracker{
		cfg:   cfg,
		cache: ccache.New(ccache.Configure().MaxSize(cfg.MaxSenders).ItemsToPrune(100)),
		metrics: metrics{
			observed:   s.Counter("observed"),
			duplicates: s.Counter("duplicates"),
			tooOld:     s.Counter("too_old"),
			senders:    s.Gauge("senders"),
		},
	}
}

func (t *tracker) Observe(sender string, seq uint64) bool {
	if seq == 0 {
		return false
	}
	t.metrics.observed.Inc(1)

	item, err := t.cache.Fetch(sender, t.cfg.SenderTTL, func() (interface{}, error) {
		return &window{seen: make(map[uint64]struct{})}, nil
	})
	if err != nil {
		log.WithError(err).WithField("sender", sender).Error("dedup fetch failed")
		return false
	}
	item.Extend(t.cfg.SenderTTL)
	t.metrics.senders.Update(float64(t.cache.ItemCount()))

	w := item.Value().(*window)
	if w.highest > t.cfg.Window && seq <= w.highest-t.cfg.Window {
		t.metrics.tooOld.Inc(1)
		t.metrics.duplicates.Inc(1)
		return true
	}
	if _, ok := w.seen[seq]; ok {
		t.metrics.duplicates.Inc(1)
		return true
	}

	w.seen[seq] = struct{}{}
	if seq > w.highest {
		w.highest = seq
		if w.highest > t.cfg.Window {
			floor := w.highest - t.cfg.Window
			for s := range w.seen {
				if s <= floor {
					delete(w.seen, s)
				}
			}
		}
	}
	return false
}

func (t *tracker) Forget(sender string) {
	t.cache.Delete(sender)
}

func (t *tracker) Stop() {
	t.cache.Stop()
}
