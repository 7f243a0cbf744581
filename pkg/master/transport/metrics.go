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
	"github.com/uber-go/tally"
)

type senderMetrics struct {
	sent        tally.Counter
	sendFail    tally.Counter
	retries     tally.Counter
	dropped     tally.Counter
	unroutable  tally.Counter
	disconnects tally.Counter
	forgotten   tally.Counter
	peers       tally.Gauge
}

func newSenderMetrics(scope tally.Scope) *senderMetrics {
	s := scope.SubScope("outbound")
	return &senderMetrics{
		sent:        s.Counter("sent"),
		sendFail:    s.Counter("send_fail"),
		retries:     s.Counter("retries"),
		dropped:     s.Counter("dropped"),
		unroutable:  s.Counter("unroutable"),
		disconnects: s.Counter("disconnects"),
		forgotten:   s.Counter("forgotten"),
		peers:       s.Gauge("peers"),
	}
}

type inboundMetrics struct {
	received     tally.Counter
	decodeFail   tally.Counter
	rejected     tally.Counter
	stateQueries tally.Counter
}

func newInboundMetrics(scope tally.Scope) *inboundMetrics {
	s := scope.SubScope("inbound")
	return &inboundMetrics{
		received:     s.Counter("received"),
		decodeFail:   s.Counter("decode_fail"),
		rejected:     s.Counter("rejected"),
		stateQueries: s.Counter("state_queries"),
	}
}
