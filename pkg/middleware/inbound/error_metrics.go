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

	"github.com/uber-go/tally"
	"go.uber.org/net/metrics"
	"go.uber.org/yarpc/api/transport"
	"go.uber.org/yarpc/yarpcerrors"
)

const _unknownError = "unknown"

// ErrorMetricsInboundMiddleware counts calls and failed calls per message
// kind, tagging failures with their yarpc status code.
type ErrorMetricsInboundMiddleware struct {
	Scope tally.Scope
}

// Handle invokes the handler and records the outcome
func (m *ErrorMetricsInboundMiddleware) Handle(
	ctx context.Context,
	req *transport.Request,
	resw transport.ResponseWriter,
	h transport.UnaryHandler,
) error {
	err := h.Handle(ctx, req, resw)
	m.record(req.Procedure, err)
	return err
}

// HandleOneway invokes the handler and records the outcome
func (m *ErrorMetricsInboundMiddleware) HandleOneway(
	ctx context.Context,
	req *transport.Request,
	h transport.OnewayHandler,
) error {
	err := h.HandleOneway(ctx, req)
	m.record(req.Procedure, err)
	return err
}

func (m *ErrorMetricsInboundMiddleware) record(procedure string, err error) {
	kind := kindOf(procedure)
	m.Scope.Tagged(metrics.Tags{"kind": kind}).Counter("calls").Inc(1)
	if err == nil {
		return
	}
	m.Scope.Tagged(metrics.Tags{
		"kind":  kind,
		"error": errorCode(err),
	}).Counter("error").Inc(1)
}

func errorCode(err error) string {
	if yarpcerrors.IsStatus(err) {
		return yarpcerrors.FromError(err).Code().String()
	}
	return _unknownError
}
