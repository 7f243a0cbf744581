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

package inbound

import (
	"context"
	"strings"
	"time"

	"github.com/benh/twesos/pkg/master/message"

	"github.com/karlseguin/ccache/v2"
	"go.uber.org/yarpc/api/transport"
	"go.uber.org/yarpc/yarpcerrors"
	"golang.org/x/time/rate"
)

const (
	_procedureSeparator = "::"
	// rule that matches every kind
	_matchAllRule     = "*"
	_defaultSenderTTL = 10 * time.Minute
	_maxSenders       = 100000
)

var rateLimitError = yarpcerrors.ResourceExhaustedErrorf("rate limit reached")

// TokenBucket configures one token bucket. A negative Rate or Burst means
// no limit.
type TokenBucket struct {
	Rate  rate.Limit `yaml:"rate"`
	Burst int        `yaml:"burst"`
}

// KindLimit applies a bucket to the message kinds matching Kind, which is
// either a kind name, a prefix ending in "*", or "*".
type KindLimit struct {
	Kind        string `yaml:"kind"`
	TokenBucket `yaml:",inline"`
}

// RateLimitConfig configures RateLimitInboundMiddleware.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`

	// Kinds is evaluated top to bottom and the first match applies.
	Kinds []KindLimit `yaml:"kinds"`

	// Default applies to kinds not matched by Kinds. Unset means no limit.
	Default *TokenBucket `yaml:"default,omitempty"`

	// PerSender, when set, additionally limits each sender address.
	PerSender *TokenBucket `yaml:"per_sender,omitempty"`

	// SenderTTL is how long an idle sender's bucket is kept.
	SenderTTL time.Duration `yaml:"sender_ttl"`
}

// RateLimitInboundMiddleware rejects calls over their token bucket with
// ResourceExhausted before they reach the master's queue.
type RateLimitInboundMiddleware struct {
	enabled bool

	kinds        []*kindLimiter
	defaultLimit *rate.Limiter

	perSender *TokenBucket
	senderTTL time.Duration
	senders   *ccache.Cache
}

type kindLimiter struct {
	*rate.Limiter
	rule string
}

// NewRateLimitInboundMiddleware builds the middleware, rejecting rules that
// name a kind the master does not receive.
func NewRateLimitInboundMiddleware(config RateLimitConfig) (*RateLimitInboundMiddleware, error) {
	result := &RateLimitInboundMiddleware{
		defaultLimit: createLimiter(rate.Inf, 0),
	}
	if !config.Enabled {
		return result, nil
	}
	result.enabled = true

	for _, k := range config.Kinds {
		if !validRule(k.Kind) {
			return nil, yarpcerrors.InvalidArgumentErrorf(
				"invalid rate limit rule: %q", k.Kind)
		}
		result.kinds = append(result.kinds,
			&kindLimiter{rule: k.Kind, Limiter: createLimiter(k.Rate, k.Burst)})
	}

	if config.Default != nil {
		result.defaultLimit = createLimiter(config.Default.Rate, config.Default.Burst)
	}

	if config.PerSender != nil {
		result.perSender = config.PerSender
		result.senderTTL = config.SenderTTL
		if result.senderTTL <= 0 {
			result.senderTTL = _defaultSenderTTL
		}
		result.senders = ccache.New(ccache.Configure().MaxSize(_maxSenders))
	}
	return result, nil
}

func validRule(rule string) bool {
	if rule == "" {
		return false
	}
	if strings.HasSuffix(rule, _matchAllRule) {
		return true
	}
	return message.Kind(rule).Service() == message.ServiceMaster
}

func createLimiter(r rate.Limit, b int) *rate.Limiter {
	if r < 0 || b < 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(r, b)
}

// Handle checks rate limit quota and invokes underlying handler
func (m *RateLimitInboundMiddleware) Handle(
	ctx context.Context,
	req *transport.Request,
	resw transport.ResponseWriter,
	h transport.UnaryHandler,
) error {
	if !m.allow(req) {
		return rateLimitError
	}
	return h.Handle(ctx, req, resw)
}

// HandleOneway checks rate limit quota and invokes underlying handler
func (m *RateLimitInboundMiddleware) HandleOneway(
	ctx context.Context,
	req *transport.Request,
	h transport.OnewayHandler,
) error {
	if !m.allow(req) {
		return rateLimitError
	}
	return h.HandleOneway(ctx, req)
}

func (m *RateLimitInboundMiddleware) allow(req *transport.Request) bool {
	if !m.enabled {
		return true
	}
	if !m.allowSender(req) {
		return false
	}
	return m.allowKind(kindOf(req.Procedure))
}

func (m *RateLimitInboundMiddleware) allowKind(kind string) bool {
	for _, l := range m.kinds {
		if matchRule(kind, l.rule) {
			return l.Allow()
		}
	}
	return m.defaultLimit.Allow()
}

func (m *RateLimitInboundMiddleware) allowSender(req *transport.Request) bool {
	if m.senders == nil {
		return true
	}
	from, ok := req.Headers.Get(message.HeaderFrom)
	if !ok {
		// The handler rejects the request anyway.
		return true
	}
	item, err := m.senders.Fetch(from, m.senderTTL, func() (interface{}, error) {
		return createLimiter(m.perSender.Rate, m.perSender.Burst), nil
	})
	if err != nil {
		return true
	}
	item.Extend(m.senderTTL)
	return item.Value().(*rate.Limiter).Allow()
}

// kindOf returns the kind part of "<Service>::<kind>".
func kindOf(procedure string) string {
	if i := strings.Index(procedure, _procedureSeparator); i >= 0 {
		return procedure[i+len(_procedureSeparator):]
	}
	return procedure
}

func matchRule(kind string, rule string) bool {
	if len(rule) == 0 {
		return false
	}
	if rule == _matchAllRule {
		return true
	}
	if strings.HasSuffix(rule, _matchAllRule) {
		return strings.HasPrefix(kind, rule[:len(rule)-1])
	}
	return rule == kind
}

// Stop releases the per-sender bucket cache.
func (m *RateLimitInboundMiddleware) Stop() {
	if m.senders != nil {
		m.senders.Stop()
	}
}
