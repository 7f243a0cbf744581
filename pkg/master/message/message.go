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


package message

import (
	"github.com/pkg/errors"
)

// Kind names a message type.
type Kind string

// Service is the role a message is addressed to.
type Service string

// Services that receive messages.
const (
	ServiceMaster    Service = "Master"
	ServiceFramework Service = "Framework"
	ServiceSlave     Service = "Slave"
)

// Message is implemented by every message body.
type Message interface {
	Kind() Kind
}

// Envelope carries a message with its sender address and the sender's
// sequence number. Seq is zero when the sender does not number messages.
type Envelope struct {
	From string
	Seq  uint64
	Body Message
}

// ErrUnknownKind is returned when decoding a kind with no registered type.
var ErrUnknownKind = errors.New("unknown message kind")

type route struct {
	service Service
	factory func() Message
}

var _routes = map[Kind]route{}

func register(service Service, factory func() Message) {
	_routes[factory().Kind()] = route{service: service, factory: factory}
}

// Service returns who receives messages of this kind. Internal kinds have
// no service.
func (k Kind) Service() Service {
	return _routes[k].service
}

// Procedure returns the transport procedure name, "<Service>::<kind>".
func (k Kind) Procedure() string {
	return string(k.Service()) + "::" + string(k)
}

// New returns an empty message of the given kind, ready for decoding.
func New(k Kind) (Message, error) {
	r, ok := _routes[k]
	if !ok || r.factory == nil {
		return nil, errors.Wrapf(ErrUnknownKind, "kind %q", k)
	}
	return r.factory(), nil
}

// KindsFor lists the routable kinds addressed to a service.
func KindsFor(service Service) []Kind {
	var kinds []Kind
	for k, r := range _routes {
		if r.service == service {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func init() {
	// Framework -> Master
	register(ServiceMaster, func() Message { return &RegisterFramework{} })
	register(ServiceMaster, func() Message { return &ReregisterFramework{} })
	register(ServiceMaster, func() Message { return &UnregisterFramework{} })
	register(ServiceMaster, func() Message { return &OfferReply{} })
	register(ServiceMaster, func() Message { return &ReviveOffers{} })
	register(ServiceMaster, func() Message { return &KillTask{} })
	register(ServiceMaster, func() Message { return &FrameworkToSlave{} })

	// Slave -> Master
	register(ServiceMaster, func() Message { return &RegisterSlave{} })
	register(ServiceMaster, func() Message { return &ReregisterSlave{} })
	register(ServiceMaster, func() Message { return &UnregisterSlave{} })
	register(ServiceMaster, func() Message { return &Heartbeat{} })
	register(ServiceMaster, func() Message { return &SlaveStatusUpdate{} })
	register(ServiceMaster, func() Message { return &SlaveToFramework{} })
	register(ServiceMaster, func() Message { return &ExecutorLost{} })

	// Master -> Framework
	register(ServiceFramework, func() Message { return &FrameworkRegistered{} })
	register(ServiceFramework, func() Message { return &Error{} })
	register(ServiceFramework, func() Message { return &ResourceOffer{} })
	register(ServiceFramework, func() Message { return &RescindOffer{} })
	register(ServiceFramework, func() Message { return &StatusUpdate{} })
	register(ServiceFramework, func() Message { return &FrameworkMessage{} })
	register(ServiceFramework, func() Message { return &LostSlave{} })

	// Master -> Slave
	register(ServiceSlave, func() Message { return &SlaveRegistered{} })
	register(ServiceSlave, func() Message { return &RunTask{} })
	register(ServiceSlave, func() Message { return &SlaveKillTask{} })
	register(ServiceSlave, func() Message { return &KillFramework{} })
	register(ServiceSlave, func() Message { return &UpdateFrameworkAddress{} })
	register(ServiceSlave, func() Message { return &SlaveFrameworkMessage{} })
	register(ServiceSlave, func() Message { return &SlaveShutdown{} })
}
