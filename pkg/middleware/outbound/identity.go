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

package outbound

import (
	"context"

	"github.com/benh/twesos/pkg/master/message"

	"go.uber.org/yarpc/api/transport"
)

// IdentityOutboundMiddleware stamps the local reply address on every
// outbound request so the receiver knows where to answer.
type IdentityOutboundMiddleware struct {
	Address string
}

// NewIdentityOutboundMiddleware returns IdentityOutboundMiddleware
func NewIdentityOutboundMiddleware(address string) *IdentityOutboundMiddleware {
	return &IdentityOutboundMiddleware{Address: address}
}

// Call adds the identity header and invokes the underlying outbound call
func (m *IdentityOutboundMiddleware) Call(
	ctx context.Context,
	request *transport.Request,
	out transport.UnaryOutbound,
) (*transport.Response, error) {
	request.Headers = m.withIdentity(request.Headers)
	return out.Call(ctx, request)
}

// CallOneway adds the identity header and invokes the underlying outbound call
func (m *IdentityOutboundMiddleware) CallOneway(
	ctx context.Context,
	request *transport.Request,
	out transport.OnewayOutbound,
) (transport.Ack, error) {
	request.Headers = m.withIdentity(request.Headers)
	return out.CallOneway(ctx, request)
}

func (m *IdentityOutboundMiddleware) withIdentity(headers transport.Headers) transport.Headers {
	if m.Address == "" {
		return headers
	}
	return headers.With(message.HeaderFrom, m.Address)
}
