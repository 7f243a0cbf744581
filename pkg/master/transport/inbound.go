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
	encjson "encoding/json"
	"io"
	"sort"
	"strconv"

	"github.com/benh/twesos/pkg/master/message"
	"github.com/benh/twesos/pkg/master/models"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	"go.uber.org/yarpc/api/transport"
	"go.uber.org/yarpc/encoding/json"
	"go.uber.org/yarpc/yarpcerrors"
)

var errMissingFrom = errors.New("missing " + message.HeaderFrom + " header")

// Master is what the inbound side delivers to.
type Master interface {
	Enqueue(message.Envelope) error
	GetState(ctx context.Context) (*models.MasterState, error)
}

// GetStateRequest is the (empty) body of GetStateProcedure.
type GetStateRequest struct{}

// Inbound exposes the master's procedures.
type Inbound struct {
	master  Master
	metrics *inboundMetrics
}

// NewInbound returns the inbound adapter for master.
func NewInbound(master Master, scope tally.Scope) *Inbound {
	return &Inbound{
		master:  master,
		metrics: newInboundMetrics(scope),
	}
}

// Procedures returns one oneway procedure per message kind addressed to
// the master, plus GetStateProcedure.
func (i *Inbound) Procedures() []transport.Procedure {
	kinds := message.KindsFor(message.ServiceMaster)
	sort.Slice(kinds, func(a, b int) bool { return kinds[a] < kinds[b] })

	var procs []transport.Procedure
	for _, kind := range kinds {
		procs = append(procs, transport.Procedure{
			Name:        kind.Procedure(),
			Encoding:    json.Encoding,
			HandlerSpec: transport.NewOnewayHandlerSpec(&kindHandler{kind: kind, inbound: i}),
		})
	}
	return append(procs, json.Procedure(GetStateProcedure, i.getState)...)
}

type kindHandler struct {
	kind    message.Kind
	inbound *Inbound
}

// HandleOneway decodes the request into an envelope and enqueues it.
func (h *kindHandler) HandleOneway(ctx context.Context, req *transport.Request) error {
	return h.inbound.handle(h.kind, req)
}

func (i *Inbound) handle(kind message.Kind, req *transport.Request) error {
	env, err := Decode(kind, req)
	if err != nil {
		i.metrics.decodeFail.Inc(1)
		log.WithError(err).
			WithField("kind", kind).
			Warn("failed to decode inbound message")
		return yarpcerrors.InvalidArgumentErrorf("%s: %v", kind, err)
	}

	if err := i.master.Enqueue(env); err != nil {
		i.metrics.rejected.Inc(1)
		return yarpcerrors.ResourceExhaustedErrorf("%s: %v", kind, err)
	}
	i.metrics.received.Inc(1)
	return nil
}

func (i *Inbound) getState(
	ctx context.Context,
	_ *GetStateRequest,
) (*models.MasterState, error) {
	i.metrics.stateQueries.Inc(1)
	state, err := i.master.GetState(ctx)
	if err != nil {
		return nil, toYARPCError(err)
	}
	return state, nil
}

// Decode builds the envelope for a request carrying a message of kind.
// An empty body decodes to the zero message.
func Decode(kind message.Kind, req *transport.Request) (message.Envelope, error) {
	var env message.Envelope

	from, ok := req.Headers.Get(message.HeaderFrom)
	if !ok || from == "" {
		return env, errMissingFrom
	}
	env.From = from

	if v, ok := req.Headers.Get(message.HeaderSeq); ok && v != "" {
		seq, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return env, errors.Wrapf(err, "invalid %s header", message.HeaderSeq)
		}
		env.Seq = seq
	}

	body, err := message.New(kind)
	if err != nil {
		return env, err
	}
	if req.Body != nil {
		if err := encjson.NewDecoder(req.Body).Decode(body); err != nil && err != io.EOF {
			return env, errors.Wrap(err, "invalid body")
		}
	}
	env.Body = body
	return env, nil
}

// toYARPCError keeps a yarpc status found in the cause chain and maps
// everything else to an internal error.
func toYARPCError(err error) error {
	if yarpcerrors.IsStatus(err) {
		return err
	}
	code := yarpcerrors.CodeInternal
	if yarpcerrors.IsStatus(errors.Cause(err)) {
		code = yarpcerrors.FromError(errors.Cause(err)).Code()
	}
	if errors.Cause(err) == context.DeadlineExceeded {
		code = yarpcerrors.CodeDeadlineExceeded
	}
	return yarpcerrors.Newf(code, "%s", err.Error())
}
