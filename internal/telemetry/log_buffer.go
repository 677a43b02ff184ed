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

// This file implements a bounded in-memory log buffer exposed through the
// debug endpoint. A slog handler tees every record into the buffer while the
// primary JSON handler keeps writing to disk and stdout.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultLogBufferCapacity bounds the buffer when no capacity is configured.
const DefaultLogBufferCapacity = 500

// LogEntry is one captured log record.
type LogEntry struct {
	Time     time.Time              `json:"time"`
	Severity string                 `json:"severity"`
	Message  string                 `json:"message"`
	Attrs    map[string]interface{} `json:"attrs,omitempty"`
}

// LogBuffer is a fixed-capacity ring of recent log entries. Appends drop the
// oldest entry once full. Safe for concurrent use.
type LogBuffer struct {
	mu       sync.Mutex
	entries  []LogEntry
	start    int
	count    int
	capacity int
}

// NewLogBuffer returns a buffer holding at most capacity entries.
func NewLogBuffer(capacity int) *LogBuffer {
	if capacity <= 0 {
		capacity = DefaultLogBufferCapacity
	}
	return &LogBuffer{
		entries:  make([]LogEntry, capacity),
		capacity: capacity,
	}
}

// Append records one entry, evicting the oldest when the ring is full.
func (b *LogBuffer) Append(entry LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := (b.start + b.count) % b.capacity
	b.entries[idx] = entry
	if b.count < b.capacity {
		b.count++
	} else {
		b.start = (b.start + 1) % b.capacity
	}
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns everything buffered.
func (b *LogBuffer) Recent(limit int) []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]LogEntry, 0, n)
	for i := 0; i < n; i++ {
		idx := (b.start + b.count - 1 - i) % b.capacity
		out = append(out, b.entries[idx])
	}
	return out
}

// Len returns the number of buffered entries.
func (b *LogBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// bufferHandler adapts a LogBuffer to slog.Handler so it can sit in the
// logging fan-out.
type bufferHandler struct {
	buf   *LogBuffer
	attrs []slog.Attr
}

func newBufferHandler(buf *LogBuffer) *bufferHandler {
	return &bufferHandler{buf: buf}
}

func (h *bufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (h *bufferHandler) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]interface{}, record.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	record.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})
	if len(attrs) == 0 {
		attrs = nil
	}
	h.buf.Append(LogEntry{
		Time:     record.Time,
		Severity: record.Level.String(),
		Message:  record.Message,
		Attrs:    attrs,
	})
	return nil
}

func (h *bufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &bufferHandler{buf: h.buf, attrs: merged}
}

func (h *bufferHandler) WithGroup(_ string) slog.Handler {
	// Groups are flattened; the debug feed does not need nesting.
	return h
}

// teeHandler fans one record out to multiple handlers.
type teeHandler struct {
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		out[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{handlers: out}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		out[i] = h.WithGroup(name)
	}
	return &teeHandler{handlers: out}
}
