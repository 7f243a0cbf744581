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


package models

import (
	"github.com/benh/twesos/pkg/common/scalar"
)

// SlaveResources is the part of an offer located on one slave.
type SlaveResources struct {
	SlaveID   SlaveID          `json:"slave_id"`
	Resources scalar.Resources `json:"resources"`
}

// SlotOffer is a bundle of unconsumed resources offered to one framework.
type SlotOffer struct {
	ID          OfferID
	FrameworkID FrameworkID
	Resources   []SlaveResources
}

// ResourcesOn returns what the offer holds on the slave, and whether the
// slave is part of the offer at all.
func (o *SlotOffer) ResourcesOn(slaveID SlaveID) (scalar.Resources, bool) {
	for _, r := range o.Resources {
		if r.SlaveID == slaveID {
			return r.Resources, true
		}
	}
	return scalar.Resources{}, false
}

// Total sums the offered resources over all slaves.
func (o *SlotOffer) Total() scalar.Resources {
	var total scalar.Resources
	for _, r := range o.Resources {
		total = total.Add(r.Resources)
	}
	return total
}
