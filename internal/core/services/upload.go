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

// This file implements the upload service, the thin seam between the HTTP
// layer and the upload pipeline.
package services

import (
	"context"

	"github.com/faithlence/faithlence/internal/core/model"
	"github.com/faithlence/faithlence/internal/core/workflow"
)

// Text analysis bounds, in characters.
const (
	AnalyzeTextMin = 50
	AnalyzeTextMax = 50000
)

// UploadService runs submissions through the upload pipeline.
type UploadService struct {
	pipeline *workflow.UploadWorkflow
}

// NewUploadService wraps the given pipeline.
func NewUploadService(pipeline *workflow.UploadWorkflow) *UploadService {
	return &UploadService{pipeline: pipeline}
}

// Process runs one upload job end to end.
func (s *UploadService) Process(ctx context.Context, job *model.UploadJob) (*model.UploadResult, error) {
	return s.pipeline.Run(ctx, job)
}

// AnalyzeText analyzes a raw text submission. The length bounds are checked
// here so no pipeline or model work starts for out-of-range input.
func (s *UploadService) AnalyzeText(ctx context.Context, title string, text string) (*model.UploadResult, error) {
	runes := []rune(text)
	if len(runes) < AnalyzeTextMin {
		return nil, model.ValidationError("text must be at least 50 characters")
	}
	if len(runes) > AnalyzeTextMax {
		return nil, model.ValidationError("text must be at most 50000 characters")
	}

	job := &model.UploadJob{
		Title:     title,
		MimeType:  "text/plain",
		Kind:      model.KindText,
		Transport: model.TransportInMemory,
		Text:      text,
	}
	return s.pipeline.Run(ctx, job)
}
