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

package scalar

import (
	"fmt"
	"math"
	"strconv"

	"github.com/benh/twesos/pkg/common"
)

// Default task size bounds.
const (
	MinCPUs = 1.0
	MaxCPUs = 1000000.0
	MinMem  = 32.0
	MaxMem  = 1024.0 * 1024.0
)

// Resources is a non-thread safe value type holding the resources known
// to the master. Mem is in megabytes.
type Resources struct {
	CPU float64 `json:"cpus" yaml:"cpus"`
	Mem float64 `json:"mem" yaml:"mem"`
}

// a safe less than or equal to comparator which takes epsilon into consideration.
func lessThanOrEqual(f1, f2 float64) bool {
	v := f1 - f2
	if math.Abs(v) < common.ResourceEpsilon {
		return true
	}
	return v < 0
}

// a safe less than to comparator which takes epsilon into consideration.
func lessThan(f1, f2 float64) bool {
	v := f1 - f2
	if math.Abs(v) < common.ResourceEpsilon {
		return false
	}
	return v < 0
}

// GetCPU returns the CPU resource
func (r Resources) GetCPU() float64 {
	return r.CPU
}

// GetMem returns the Memory resource
func (r Resources) GetMem() float64 {
	return r.Mem
}

// Contains determines whether current Resources is large enough to contain
// the other one.
func (r Resources) Contains(other Resources) bool {
	return lessThanOrEqual(other.CPU, r.CPU) &&
		lessThanOrEqual(other.Mem, r.Mem)
}

// AtLeast returns true if every field of r is greater than or equal to the
// same field of other.
func (r Resources) AtLeast(other Resources) bool {
	return !lessThan(r.CPU, other.CPU) && !lessThan(r.Mem, other.Mem)
}

// Add another scalar resources onto current one and return a new copy.
func (r Resources) Add(other Resources) Resources {
	return Resources{
		CPU: r.CPU + other.CPU,
		Mem: r.Mem + other.Mem,
	}
}

// TrySubtract attempts to subtract another scalar resources from current one
// , but returns false if other has more resources.
func (r Resources) TrySubtract(other Resources) (Resources, bool) {
	if !r.Contains(other) {
		return Resources{}, false
	}
	return r.Subtract(other), true
}

// Subtract another scalar resources from current one and return a new copy
// of result. Callers are expected to check Contains first.
func (r Resources) Subtract(other Resources) Resources {
	return Resources{
		CPU: r.CPU - other.CPU,
		Mem: r.Mem - other.Mem,
	}
}

// NonEmptyFields returns the resource names for fields which are not empty.
func (r Resources) NonEmptyFields() []string {
	var nonEmptyFields []string
	if math.Abs(r.CPU) > common.ResourceEpsilon {
		nonEmptyFields = append(nonEmptyFields, common.MesosCPU)
	}
	if math.Abs(r.Mem) > common.ResourceEpsilon {
		nonEmptyFields = append(nonEmptyFields, common.MesosMem)
	}
	return nonEmptyFields
}

// Empty returns whether all fields are empty now.
func (r Resources) Empty() bool {
	return len(r.NonEmptyFields()) == 0
}

// Positive returns whether any field is strictly positive.
func (r Resources) Positive() bool {
	return r.CPU > common.ResourceEpsilon || r.Mem > common.ResourceEpsilon
}

// String returns a formatted string for scalar resources
func (r Resources) String() string {
	return fmt.Sprintf("CPU:%.2f MEM:%.2f", r.GetCPU(), r.GetMem())
}

// ToParams renders the resources as string parameters, the form used in
// slot offers sent to frameworks.
func (r Resources) ToParams() map[string]string {
	return map[string]string{
		common.MesosCPU: strconv.FormatFloat(r.CPU, 'f', -1, 64),
		common.MesosMem: strconv.FormatFloat(r.Mem, 'f', -1, 64),
	}
}

// FromParams parses the cpus and mem entries of task parameters. A missing
// or malformed entry is read as -1, which never passes a bounds check.
func FromParams(params map[string]string) Resources {
	return Resources{
		CPU: paramValue(params, common.MesosCPU),
		Mem: paramValue(params, common.MesosMem),
	}
}

func paramValue(params map[string]string, name string) float64 {
	v, ok := params[name]
	if !ok {
		return -1
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return -1
	}
	return f
}

// Bounds are the inclusive minimum and maximum size of a single task.
type Bounds struct {
	Min Resources `yaml:"min"`
	Max Resources `yaml:"max"`
}

// DefaultBounds returns the default task size bounds.
func DefaultBounds() Bounds {
	return Bounds{
		Min: Resources{CPU: MinCPUs, Mem: MinMem},
		Max: Resources{CPU: MaxCPUs, Mem: MaxMem},
	}
}

// Check returns an error if r falls outside of the bounds.
func (b Bounds) Check(r Resources) error {
	if math.IsNaN(r.CPU) || math.IsNaN(r.Mem) ||
		lessThan(r.CPU, b.Min.CPU) || lessThan(r.Mem, b.Min.Mem) ||
		lessThan(b.Max.CPU, r.CPU) || lessThan(b.Max.Mem, r.Mem) {
		return fmt.Errorf("Invalid task size: <%v CPUs, %v MEM>", r.CPU, r.Mem)
	}
	return nil
}
