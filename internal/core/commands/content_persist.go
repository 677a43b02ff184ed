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

// This file defines the persistence command. Persistence failures never fail
// the run: the analysis already cost a model round-trip and the caller gets
// it back either way, with a warning instead of an id.
package commands

import (
	"context"
	"log/slog"

	"github.com/faithlence/faithlence/internal/core/cor"
	"github.com/faithlence/faithlence/internal/core/model"
)

// RecordSaver persists a content record and returns its id.
type RecordSaver interface {
	Save(ctx context.Context, record *model.ContentRecord) (string, error)
}

// ContentPersist writes the assembled record through a RecordSaver.
type ContentPersist struct {
	cor.BaseCommand
	saver RecordSaver
}

// NewContentPersist builds the persistence command. A nil saver means the
// store is unavailable; the command then skips itself.
func NewContentPersist(name string, saver RecordSaver) *ContentPersist {
	cmd := &ContentPersist{
		BaseCommand: *cor.NewBaseCommand(name),
		saver:       saver,
	}
	cmd.InputParamName = RecordKey
	return cmd
}

// IsExecutable holds when a record exists and a store is wired.
func (c *ContentPersist) IsExecutable(ctx cor.Context) bool {
	if ctx == nil || ctx.GetContext() == nil || c.saver == nil {
		return false
	}
	_, ok := ctx.Get(c.GetInputParam()).(*model.ContentRecord)
	return ok
}

func (c *ContentPersist) Execute(context cor.Context) {
	record := context.Get(c.GetInputParam()).(*model.ContentRecord)

	id, err := c.saver.Save(context.GetContext(), record)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		slog.Warn("failed to persist content record, returning analysis unsaved",
			"title", record.Title, "error", err)
		context.Add(RecordIDKey, "")
		context.Add(c.GetOutputParam(), record)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.Info("persisted content record", "id", id, "title", record.Title)
	context.Add(RecordIDKey, id)
	context.Add(c.GetOutputParam(), record)
}
