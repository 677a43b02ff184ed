// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry_test covers the debug log ring buffer.
package telemetry_test

import (
	"fmt"
	"testing"

	"github.com/faithlence/faithlence/internal/telemetry"
	"github.com/stretchr/testify/assert"
)

func fill(buffer *telemetry.LogBuffer, n int) {
	for i := 0; i < n; i++ {
		buffer.Append(telemetry.LogEntry{Severity: "INFO", Message: fmt.Sprintf("entry-%d", i)})
	}
}

func TestLogBufferNewestFirst(t *testing.T) {
	buffer := telemetry.NewLogBuffer(10)
	fill(buffer, 3)

	recent := buffer.Recent(0)
	assert.Len(t, recent, 3)
	assert.Equal(t, "entry-2", recent[0].Message)
	assert.Equal(t, "entry-0", recent[2].Message)
}

func TestLogBufferEvictsOldest(t *testing.T) {
	buffer := telemetry.NewLogBuffer(3)
	fill(buffer, 5)

	assert.Equal(t, 3, buffer.Len())
	recent := buffer.Recent(0)
	assert.Equal(t, "entry-4", recent[0].Message)
	assert.Equal(t, "entry-2", recent[2].Message)
}

func TestLogBufferLimit(t *testing.T) {
	buffer := telemetry.NewLogBuffer(10)
	fill(buffer, 8)

	recent := buffer.Recent(2)
	assert.Len(t, recent, 2)
	assert.Equal(t, "entry-7", recent[0].Message)

	// A limit beyond the count returns what exists.
	assert.Len(t, buffer.Recent(100), 8)
}

func TestLogBufferDefaultCapacity(t *testing.T) {
	buffer := telemetry.NewLogBuffer(0)
	fill(buffer, telemetry.DefaultLogBufferCapacity+10)
	assert.Equal(t, telemetry.DefaultLogBufferCapacity, buffer.Len())
}
