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

package cor

import (
	"context"
	"log/slog"
	"os"
)

// namedCleanup pairs a cleanup func with the name it was registered under,
// so failures can be attributed in logs.
type namedCleanup struct {
	name string
	fn   CleanupFunc
}

// BaseContext is the default Context implementation. It is not safe for
// concurrent use; each workflow run gets its own instance.
type BaseContext struct {
	data      map[string]interface{}
	errors    map[string]error
	tempFiles []string
	cleanups  []namedCleanup
	context   context.Context
}

// NewBaseContext returns an empty Context ready for a single workflow run.
func NewBaseContext() Context {
	return &BaseContext{
		data:      make(map[string]interface{}),
		errors:    make(map[string]error),
		tempFiles: make([]string, 0),
		cleanups:  make([]namedCleanup, 0),
	}
}

func (c *BaseContext) SetContext(context context.Context) {
	c.context = context
}

func (c *BaseContext) GetContext() context.Context {
	return c.context
}

// Close removes tracked temp files, then runs registered cleanups in order.
// Failures are logged and do not stop the remaining cleanups.
func (c *BaseContext) Close() {
	for _, file := range c.GetTempFiles() {
		if err := os.Remove(file); err != nil {
			slog.Warn("failed to remove temporary file", "file", file, "error", err)
		}
	}
	ctx := c.context
	if ctx == nil {
		ctx = context.Background()
	}
	for _, cleanup := range c.cleanups {
		if err := cleanup.fn(ctx); err != nil {
			slog.Warn("workflow cleanup failed", "cleanup", cleanup.name, "error", err)
		}
	}
}

// Add stores a key-value pair and returns the Context for fluent use.
func (c *BaseContext) Add(key string, value interface{}) Context {
	c.data[key] = value
	return c
}

func (c *BaseContext) AddTempFile(file string) {
	c.tempFiles = append(c.tempFiles, file)
}

func (c *BaseContext) GetTempFiles() []string {
	return c.tempFiles
}

func (c *BaseContext) AddCleanup(name string, fn CleanupFunc) {
	c.cleanups = append(c.cleanups, namedCleanup{name: name, fn: fn})
}

func (c *BaseContext) AddError(key string, err error) {
	c.errors[key] = err
}

func (c *BaseContext) GetErrors() map[string]error {
	return c.errors
}

func (c *BaseContext) Get(key string) interface{} {
	return c.data[key]
}

func (c *BaseContext) Remove(key string) {
	delete(c.data, key)
}

func (c *BaseContext) HasErrors() bool {
	return len(c.errors) > 0
}
