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

// This file defines the decoder command that turns the raw model output into
// a ContentRecord. Models wrap JSON in markdown fences and add fields the
// schema never asked for, so the decoder strips fences and routes unknown
// top-level fields into the analysis Extra map instead of dropping them.
package commands

import (
	"encoding/json"
	"time"

	"github.com/faithlence/faithlence/internal/cloud"
	"github.com/faithlence/faithlence/internal/core/cor"
	"github.com/faithlence/faithlence/internal/core/model"
)

// analysisFields are the top-level keys bound to AnalysisResult fields.
// Anything else the model emits lands in Extra.
var analysisFields = map[string]struct{}{
	"title":            {},
	"summary":          {},
	"captions":         {},
	"hashtags":         {},
	"story":            {},
	"scriptures":       {},
	"themes":           {},
	"deepAnalysis":     {},
	"socialMediaHooks": {},
	"extra":            {},
}

// AnalysisDecoder parses the analysis JSON and assembles the ContentRecord
// for persistence.
type AnalysisDecoder struct {
	cor.BaseCommand
}

// NewAnalysisDecoder builds the decoder reading the raw JSON from the prior
// command's output.
func NewAnalysisDecoder(name string) *AnalysisDecoder {
	return &AnalysisDecoder{BaseCommand: *cor.NewBaseCommand(name)}
}

func (c *AnalysisDecoder) Execute(context cor.Context) {
	raw, ok := context.Get(c.GetInputParam()).(string)
	if !ok || raw == "" {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), model.NewServiceError(
			model.CodeExternalService, "no analysis output to decode", nil))
		return
	}
	cleaned := cloud.ExtractJSON(raw)

	var analysis model.AnalysisResult
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), model.NewServiceError(
			model.CodeExternalService, "model returned malformed analysis JSON", err))
		return
	}

	// Second pass over the same bytes to capture fields outside the schema.
	var flat map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &flat); err == nil {
		for key := range analysisFields {
			delete(flat, key)
		}
		if len(flat) > 0 {
			if analysis.Extra == nil {
				analysis.Extra = make(map[string]interface{})
			}
			for key, value := range flat {
				analysis.Extra[key] = value
			}
		}
	}

	record := &model.ContentRecord{
		Title:    c.resolveTitle(context, &analysis),
		Analysis: analysis,
	}
	if job, ok := context.Get(JobKey).(*model.UploadJob); ok {
		record.Kind = job.Kind
		record.MimeType = job.MimeType
	}
	if transcript, ok := context.Get(TranscriptKey).(string); ok {
		record.Transcription = transcript
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(RecordKey, record)
	context.Add(c.GetOutputParam(), record)
}

// resolveTitle prefers the caller-supplied title, then the model's, then the
// file name.
func (c *AnalysisDecoder) resolveTitle(context cor.Context, analysis *model.AnalysisResult) string {
	job, _ := context.Get(JobKey).(*model.UploadJob)
	if job != nil && job.Title != "" {
		return job.Title
	}
	if analysis.Title != "" {
		return analysis.Title
	}
	if job != nil && job.FileName != "" {
		return job.FileName
	}
	return "Untitled"
}
