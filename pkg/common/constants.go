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

package common

const (
	// TwesosMaster is the service name of the master.
	TwesosMaster = "twesos-master"

	// MasterRole is the leader election role of the master.
	MasterRole = "master"

	// AppLogField is the log field key for the application name.
	AppLogField = "app"

	// RPCPath is where the master's procedures are served.
	RPCPath = "/"

	// StatePath serves the master's state as JSON.
	StatePath = "/master/state.json"

	// ResourceEpsilon is the smallest resource difference which is
	// considered significant.
	ResourceEpsilon = 0.000001

	// MesosCPU is the name of the cpu resource in task params and offers.
	MesosCPU = "cpus"
	// MesosMem is the name of the memory resource (in MB).
	MesosMem = "mem"
)
