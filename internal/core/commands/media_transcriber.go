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

// This file defines the transcription command. Audio and video payloads are
// transcribed; images are described. Both branches send the media inline
// with a templated prompt through the model-fallback invoker and store the
// resulting text under TranscriptKey for the analysis step.
package commands

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/faithlence/faithlence/internal/cloud"
	"github.com/faithlence/faithlence/internal/core/cor"
	"github.com/faithlence/faithlence/internal/core/model"
	"google.golang.org/genai"
)

// MediaTranscriber turns an upload job's media payload into text.
type MediaTranscriber struct {
	cor.BaseCommand
	invoker            *cloud.FallbackInvoker
	transcribeTemplate *template.Template
	describeTemplate   *template.Template
}

// NewMediaTranscriber builds the transcriber with the two prompt templates:
// transcribe for audio/video, describe for images.
func NewMediaTranscriber(
	name string,
	invoker *cloud.FallbackInvoker,
	transcribeTemplate *template.Template,
	describeTemplate *template.Template) *MediaTranscriber {
	cmd := &MediaTranscriber{
		BaseCommand:        *cor.NewBaseCommand(name),
		invoker:            invoker,
		transcribeTemplate: transcribeTemplate,
		describeTemplate:   describeTemplate,
	}
	cmd.InputParamName = JobKey
	return cmd
}

// IsExecutable holds for media jobs; text jobs already carry their
// transcript and skip this step.
func (c *MediaTranscriber) IsExecutable(ctx cor.Context) bool {
	if ctx == nil || ctx.GetContext() == nil {
		return false
	}
	job, ok := ctx.Get(c.GetInputParam()).(*model.UploadJob)
	return ok && job.Kind != model.KindText
}

func (c *MediaTranscriber) Execute(context cor.Context) {
	job := context.Get(c.GetInputParam()).(*model.UploadJob)

	data, err := c.payload(job)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	prompt, err := c.renderPrompt(job)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to execute prompt template: %w", err))
		return
	}

	contents := []*genai.Content{
		{
			Parts: []*genai.Part{
				{Text: prompt},
				{InlineData: &genai.Blob{MIMEType: job.MimeType, Data: data}},
			},
			Role: "user",
		},
	}

	// Transcription output is prose, not JSON, so the default generation
	// config is overridden with a plain-text response type.
	config := &genai.GenerateContentConfig{
		SafetySettings:   cloud.DefaultSafetySettings,
		ResponseMIMEType: "text/plain",
	}
	text, modelUsed, err := c.invoker.Invoke(context.GetContext(), contents, config)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), model.NewServiceError(
			model.CodeExternalService, "transcription failed", err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(TranscriptKey, text)
	context.Add("transcription_model", modelUsed)
	context.Add(c.GetOutputParam(), job)
}

// payload returns the media bytes from whichever transport carried them.
func (c *MediaTranscriber) payload(job *model.UploadJob) ([]byte, error) {
	if len(job.Data) > 0 {
		return job.Data, nil
	}
	if job.TempPath != "" {
		data, err := os.ReadFile(job.TempPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read spooled payload %s: %w", job.TempPath, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("upload job %q has no payload", job.FileName)
}

func (c *MediaTranscriber) renderPrompt(job *model.UploadJob) (string, error) {
	tmpl := c.transcribeTemplate
	if job.Kind == model.KindImage {
		tmpl = c.describeTemplate
	}
	params := map[string]interface{}{
		"FILE_NAME": job.FileName,
		"TITLE":     job.Title,
		"MIME_TYPE": job.MimeType,
	}
	var buffer bytes.Buffer
	if err := tmpl.Execute(&buffer, params); err != nil {
		return "", err
	}
	return buffer.String(), nil
}
