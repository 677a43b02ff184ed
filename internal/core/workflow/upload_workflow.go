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

// Package workflow assembles the pipeline commands into the content
// processing orchestrations. This file implements the primary upload
// workflow: payload materialization, classification, transcription,
// analysis, and persistence.
package workflow

import (
	"context"
	"errors"
	"text/template"

	"github.com/faithlence/faithlence/internal/cloud"
	"github.com/faithlence/faithlence/internal/core/commands"
	"github.com/faithlence/faithlence/internal/core/cor"
	"github.com/faithlence/faithlence/internal/core/model"
)

// UploadWorkflow processes one content submission end to end. It is a
// cor.Chain under the hood, so it composes into listeners as a Command.
type UploadWorkflow struct {
	cor.BaseCommand
	config *cloud.Config
	cloud  *cloud.ServiceClients
	saver  commands.RecordSaver
	chain  cor.Chain
}

// Execute runs the underlying chain.
func (w *UploadWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// initializeChain wires the commands in pipeline order. Relay objects are
// fetched before classification because their bytes are not sniffable until
// they exist locally; the classifier then settles the MIME type for every
// transport uniformly.
func (w *UploadWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())

	out.AddCommand(commands.NewBlobToTempFile(
		"fetch-relay-object",
		w.cloud.StorageClient,
		w.config.Storage.RelayBucket,
		w.config.Storage.MaxRelayBytes))

	out.AddCommand(commands.NewMediaClassifier("classify-media"))

	if w.config.Extraction.Enabled {
		out.AddCommand(commands.NewAudioExtractor("extract-audio", w.config.Extraction.FfmpegPath))
	}

	out.AddCommand(commands.NewMediaTranscriber(
		"transcribe-media",
		w.cloud.Invoker,
		mustParse("transcribe-template", w.config.PromptTemplates.Transcribe),
		mustParse("describe-template", w.config.PromptTemplates.DescribeImage)))

	out.AddCommand(commands.NewAnalysisCreator(
		"generate-analysis",
		w.cloud.Invoker,
		mustParse("analysis-template", w.config.PromptTemplates.Analysis)))

	out.AddCommand(commands.NewAnalysisDecoder("decode-analysis"))

	out.AddCommand(commands.NewContentPersist("persist-content", w.saver))

	w.chain = out
}

// Run executes the workflow for one job and maps the chain outcome onto an
// UploadResult. The cor context is closed before returning, which removes
// spooled temp files and deletes the relay object.
func (w *UploadWorkflow) Run(ctx context.Context, job *model.UploadJob) (*model.UploadResult, error) {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	defer chainCtx.Close()

	chainCtx.Add(commands.JobKey, job)
	chainCtx.Add(cor.CtxIn, job)

	w.Execute(chainCtx)

	if chainCtx.HasErrors() {
		return nil, firstError(chainCtx.GetErrors())
	}

	record, _ := chainCtx.Get(commands.RecordKey).(*model.ContentRecord)
	if record == nil {
		return nil, model.NewServiceError(model.CodeInternal, "pipeline produced no record", nil)
	}

	id, _ := chainCtx.Get(commands.RecordIDKey).(string)
	result := &model.UploadResult{
		RecordID:      id,
		Saved:         id != "",
		Title:         record.Title,
		FileName:      job.FileName,
		Kind:          record.Kind,
		MimeType:      record.MimeType,
		Transcription: record.Transcription,
		Analysis:      &record.Analysis,
	}
	return result, nil
}

// firstError surfaces the most specific failure: a ServiceError if any
// command raised one, otherwise the first error wrapped as internal.
func firstError(errs map[string]error) error {
	var fallback error
	for _, err := range errs {
		var svcErr *model.ServiceError
		if errors.As(err, &svcErr) {
			return err
		}
		if fallback == nil {
			fallback = err
		}
	}
	return model.NewServiceError(model.CodeInternal, "content processing failed", fallback)
}

// mustParse compiles a prompt template or panics; the service cannot run
// with a broken prompt.
func mustParse(name string, text string) *template.Template {
	return template.Must(template.New(name).Parse(text))
}

// NewUploadWorkflow builds the upload pipeline from the application config
// and service clients. saver may be nil when the content store is
// unavailable; processing then completes without persistence.
func NewUploadWorkflow(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	saver commands.RecordSaver) *UploadWorkflow {
	w := &UploadWorkflow{
		BaseCommand: *cor.NewBaseCommand("upload-pipeline"),
		config:      config,
		cloud:       serviceClients,
		saver:       saver,
	}
	w.initializeChain()
	return w
}
