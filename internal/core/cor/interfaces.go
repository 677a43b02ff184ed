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

// Package cor implements a small chain-of-responsibility engine used to
// assemble the content processing pipelines. A workflow is a Chain of
// Commands sharing a Context; the chain pipes each command's primary
// output into the next command's primary input.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// CtxIn is the default context key a command reads its primary input from.
	// The chain populates it with the previous command's output.
	CtxIn = "__IN__"
	// CtxOut is the default context key a command writes its primary output to.
	CtxOut = "__OUT__"
)

// CleanupFunc releases a resource acquired during a workflow run. Cleanup
// funcs run when the Context is closed, regardless of whether the chain
// succeeded.
type CleanupFunc func(ctx context.Context) error

// Context is the shared state for one workflow execution. It carries data
// between commands, collects per-command errors, and tracks resources
// (temp files, remote objects) that must be released when the run ends.
type Context interface {
	// SetContext replaces the Go context, used by chains to scope each
	// command under its own trace span.
	SetContext(context context.Context)

	// GetContext returns the current Go context.
	GetContext() context.Context

	// Add stores a key-value pair and returns the Context for chaining.
	Add(key string, value interface{}) Context

	// Get returns the value stored under key, or nil.
	Get(key string) interface{}

	// Remove deletes the value stored under key.
	Remove(key string)

	// AddError records an error under the name of the command that raised it.
	AddError(key string, err error)

	// GetErrors returns all errors recorded during the run.
	GetErrors() map[string]error

	// HasErrors reports whether any command recorded an error.
	HasErrors() bool

	// AddTempFile tracks a temporary file for removal on Close.
	AddTempFile(file string)

	// GetTempFiles returns the tracked temporary file paths.
	GetTempFiles() []string

	// AddCleanup registers a named cleanup func to run on Close. Cleanups
	// run after temp file removal, in registration order, best effort.
	AddCleanup(name string, fn CleanupFunc)

	// Close removes temp files and runs registered cleanups. Defer it at
	// the start of every workflow run.
	Close()
}

// Executable is anything with a single unit of pipeline work.
type Executable interface {
	Execute(context Context)
}

// Command is an atomic, named unit of work within a chain.
type Command interface {
	Executable

	// GetName returns the command name used in spans, metrics, and errors.
	GetName() string

	// GetInputParam returns the context key the command reads its input from.
	GetInputParam() string

	// GetOutputParam returns the context key the command writes its output to.
	GetOutputParam() string

	// IsExecutable reports whether the command's preconditions hold.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain executes commands in order. A Chain is itself a Command, so chains
// may be nested.
type Chain interface {
	Command

	// ContinueOnFailure controls whether the chain keeps executing after a
	// command records an error. Defaults to false.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
