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

	"github.com/benh/twesos/pkg/common/leader"

	"go.uber.org/yarpc/api/transport"
	"go.uber.org/yarpc/yarpcerrors"
)

// LeaderCheckInboundMiddleware rejects calls while this master is not the
// elected one, so peers go looking for the leader.
type LeaderCheckInboundMiddleware struct {
	Candidate leader.Candidate
}

// SetCandidate sets the candidate whose leadership gates the calls
func (m *LeaderCheckInboundMiddleware) SetCandidate(candidate leader.Candidate) {
	m.Candidate = candidate
}

// Handle checks leadership and invokes the underlying handler
func (m *LeaderCheckInboundMiddleware) Handle(
	ctx context.Context,
	req *transport.Request,
	resw transport.ResponseWriter,
	h transport.UnaryHandler,
) error {
	if !m.isLeader() {
		return yarpcerrors.UnavailableErrorf("call to non-leader master")
	}
	return h.Handle(ctx, req, resw)
}

// HandleOneway checks leadership and invokes the underlying handler
func (m *LeaderCheckInboundMiddleware) HandleOneway(
	ctx context.Context,
	req *transport.Request,
	h transport.OnewayHandler,
) error {
	if !m.isLeader() {
		return yarpcerrors.UnavailableErrorf("call to non-leader master")
	}
	return h.HandleOneway(ctx, req)
}

func (m *LeaderCheckInboundMiddleware) isLeader() bool {
	return m.Candidate != nil && m.Candidate.IsLeader()
}
