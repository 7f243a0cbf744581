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
	"testing"

	"github.com/benh/twesos/pkg/master/message"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/yarpc/api/transport"
	"go.uber.org/yarpc/api/transport/transporttest"
)

type IdentityOutboundMiddlewareTestSuite struct {
	suite.Suite

	ctrl *gomock.Controller
}

func (suite *IdentityOutboundMiddlewareTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
}

func (suite *IdentityOutboundMiddlewareTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *IdentityOutboundMiddlewareTestSuite) TestCallOnewayAddsHeader() {
	mw := NewIdentityOutboundMiddleware("http://master:5050")
	out := transporttest.NewMockOnewayOutbound(suite.ctrl)

	out.EXPECT().CallOneway(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, req *transport.Request) {
			v, ok := req.Headers.Get(message.HeaderFrom)
			suite.True(ok)
			suite.Equal("http://master:5050", v)
		}).
		Return(nil, nil)

	_, err := mw.CallOneway(context.Background(), &transport.Request{}, out)
	suite.NoError(err)
}

func (suite *IdentityOutboundMiddlewareTestSuite) TestCallAddsHeader() {
	mw := NewIdentityOutboundMiddleware("http://master:5050")
	out := transporttest.NewMockUnaryOutbound(suite.ctrl)

	out.EXPECT().Call(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, req *transport.Request) {
			_, ok := req.Headers.Get(message.HeaderFrom)
			suite.True(ok)
		}).
		Return(&transport.Response{}, nil)

	_, err := mw.Call(context.Background(), &transport.Request{}, out)
	suite.NoError(err)
}

func (suite *IdentityOutboundMiddlewareTestSuite) TestEmptyAddressLeavesHeaders() {
	mw := NewIdentityOutboundMiddleware("")
	out := transporttest.NewMockOnewayOutbound(suite.ctrl)

	out.EXPECT().CallOneway(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, req *transport.Request) {
			_, ok := req.Headers.Get(message.HeaderFrom)
			suite.False(ok)
		}).
		Return(nil, nil)

	_, err := mw.CallOneway(context.Background(), &transport.Request{}, out)
	suite.NoError(err)
}

func TestIdentityOutboundMiddleware(t *testing.T) {
	suite.Run(t, new(IdentityOutboundMiddlewareTestSuite))
}
