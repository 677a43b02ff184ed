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

// This file defines the analysis command, the heart of the pipeline: it
// prompts a generative model to produce the structured faith-content
// analysis of a transcript. The prompt embeds a complete example of the
// expected JSON so the model mirrors its shape.
package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/faithlence/faithlence/internal/cloud"
	"github.com/faithlence/faithlence/internal/core/cor"
	"github.com/faithlence/faithlence/internal/core/model"
	"google.golang.org/genai"
)

// AnalysisCreator prompts the model with the transcript and emits the raw
// JSON analysis string for the decoder.
type AnalysisCreator struct {
	cor.BaseCommand
	invoker  *cloud.FallbackInvoker
	template *template.Template
}

// NewAnalysisCreator builds the analysis command around the analysis prompt
// template.
func NewAnalysisCreator(name string, invoker *cloud.FallbackInvoker, template *template.Template) *AnalysisCreator {
	cmd := &AnalysisCreator{
		BaseCommand: *cor.NewBaseCommand(name),
		invoker:     invoker,
		template:    template,
	}
	cmd.InputParamName = TranscriptKey
	return cmd
}

// GenerateParams assembles the template substitutions: the transcript, the
// submission title, and the few-shot example JSON.
func (c *AnalysisCreator) GenerateParams(context cor.Context) map[string]interface{} {
	params := make(map[string]interface{})
	params["TRANSCRIPT"] = context.Get(TranscriptKey)

	if job, ok := context.Get(JobKey).(*model.UploadJob); ok {
		params["TITLE"] = job.Title
		params["CONTENT_KIND"] = job.Kind
	}

	exampleAnalysis, _ := json.Marshal(model.GetExampleAnalysis())
	params["EXAMPLE_JSON"] = string(exampleAnalysis)
	return params
}

func (c *AnalysisCreator) Execute(context cor.Context) {
	var buffer bytes.Buffer
	if err := c.template.Execute(&buffer, c.GenerateParams(context)); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to execute prompt template: %w", err))
		return
	}

	contents := []*genai.Content{
		{Parts: []*genai.Part{{Text: buffer.String()}}, Role: "user"},
	}

	out, modelUsed, err := c.invoker.Invoke(context.GetContext(), contents, nil)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), model.NewServiceError(
			model.CodeExternalService, "analysis generation failed", err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add("analysis_model", modelUsed)
	context.Add(c.GetOutputParam(), out)
}
