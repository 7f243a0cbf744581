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


package allocator

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/uber-go/tally"
)

// ErrUnknownAllocator is returned for a policy name nobody registered.
var ErrUnknownAllocator = errors.New("unknown allocator")

// Constructor builds an allocator bound to a cluster.
type Constructor func(cluster Cluster, scope tally.Scope) (Allocator, error)

var (
	_registryLock sync.RWMutex
	_registry     = make(map[string]Constructor)
)

// Register makes a policy available by name.
func Register(name string, constructor Constructor) error {
	_registryLock.Lock()
	defer _registryLock.Unlock()

	if name == "" || constructor == nil {
		return errors.New("allocator name and constructor are required")
	}
	if _, ok := _registry[name]; ok {
		return errors.Errorf("allocator %q already registered", name)
	}
	_registry[name] = constructor
	return nil
}

// IsRegistered reports whether a policy exists.
func IsRegistered(name string) bool {
	_registryLock.RLock()
	defer _registryLock.RUnlock()
	_, ok := _registry[name]
	return ok
}

// Names lists the registered policies.
func Names() []string {
	_registryLock.RLock()
	defer _registryLock.RUnlock()
	names := make([]string, 0, len(_registry))
	for name := range _registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the named policy.
func New(name string, cluster Cluster, scope tally.Scope) (Allocator, error) {
	_registryLock.RLock()
	constructor, ok := _registry[name]
	_registryLock.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAllocator, "%q", name)
	}
	return constructor(cluster, scope.Tagged(map[string]string{"allocator": name}))
}
