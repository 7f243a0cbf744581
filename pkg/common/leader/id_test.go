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

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMasterID(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC)
	id := NewMasterID(now)
	assert.True(t, strings.HasPrefix(id, "202403051407-"))
	assert.NotEqual(t, id, NewMasterID(now))
}

func TestNewID(t *testing.T) {
	s, err := NewID(5050, "dev")
	if err != nil {
		t.Skip("no usable network interface")
	}
	var id ID
	require.NoError(t, json.Unmarshal([]byte(s), &id))
	assert.Equal(t, 5050, id.HTTPPort)
	assert.Equal(t, "dev", id.Version)
	assert.NotEmpty(t, id.IP)
}
