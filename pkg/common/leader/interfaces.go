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


package leader

// Candidate is an interface representing a participant campaigning to
// become the leading master.
type Candidate interface {
	IsLeader() bool
	Start() error
	Stop() error
	Resign()
}

// Nomination is the component that acts on leadership changes.
type Nomination interface {
	// GetID returns the value stored in the leader node.
	GetID() string
	// GainedLeadershipCallback is called when this candidate is elected.
	GainedLeadershipCallback() error
	// LostLeadershipCallback is called when leadership is lost, and once
	// before every campaign.
	LostLeadershipCallback() error
	// ShutDownCallback is called once the candidate stops campaigning.
	ShutDownCallback() error
}
