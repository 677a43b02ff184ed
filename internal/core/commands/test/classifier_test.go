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

// Package commands_test exercises the pipeline commands that run without
// external services.
package commands_test

import (
	"context"
	"testing"

	"github.com/faithlence/faithlence/internal/core/commands"
	"github.com/faithlence/faithlence/internal/core/cor"
	"github.com/faithlence/faithlence/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func classify(t *testing.T, job *model.UploadJob) cor.Context {
	t.Helper()
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(commands.JobKey, job)

	cmd := commands.NewMediaClassifier("classify")
	cmd.Execute(ctx)
	return ctx
}

func TestClassifierDeclaredTypeWins(t *testing.T) {
	job := &model.UploadJob{FileName: "sermon.bin", MimeType: "audio/mpeg"}
	ctx := classify(t, job)

	assert.False(t, ctx.HasErrors())
	assert.Equal(t, model.KindAudio, job.Kind)
	assert.Equal(t, "audio/mpeg", job.MimeType)
}

func TestClassifierSniffsOctetStream(t *testing.T) {
	// PNG magic bytes; the declared type is the generic fallback browsers
	// send for unknown files.
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	job := &model.UploadJob{FileName: "upload", MimeType: "application/octet-stream", Data: png}
	ctx := classify(t, job)

	assert.False(t, ctx.HasErrors())
	assert.Equal(t, model.KindImage, job.Kind)
	assert.Equal(t, "image/png", job.MimeType)
}

func TestClassifierFallsBackToExtension(t *testing.T) {
	job := &model.UploadJob{FileName: "notes.md", MimeType: ""}
	ctx := classify(t, job)

	assert.False(t, ctx.HasErrors())
	assert.Equal(t, model.KindText, job.Kind)
	assert.Equal(t, "text/markdown", job.MimeType)
}

func TestClassifierTextSeedsTranscript(t *testing.T) {
	job := &model.UploadJob{
		FileName: "devotional.txt",
		MimeType: "text/plain",
		Data:     []byte("Consider the lilies of the field."),
	}
	ctx := classify(t, job)

	assert.False(t, ctx.HasErrors())
	assert.Equal(t, model.KindText, job.Kind)
	// Text submissions skip transcription; the payload becomes the transcript.
	assert.Equal(t, "Consider the lilies of the field.", ctx.Get(commands.TranscriptKey))
}

func TestClassifierRejectsUnsupportedType(t *testing.T) {
	job := &model.UploadJob{FileName: "binary.exe", MimeType: "application/x-msdownload"}
	ctx := classify(t, job)

	assert.True(t, ctx.HasErrors())
	err := ctx.GetErrors()["classify"]
	assert.Equal(t, model.CodeValidation, model.CodeOf(err))
}
