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

// Package commands provides the concrete pipeline commands executed by the
// content workflows. This file defines the classifier, the first command of
// the upload pipeline: it resolves the effective MIME type of a submission
// and partitions it into the transcribe, describe, or text branch.
package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/faithlence/faithlence/internal/core/cor"
	"github.com/faithlence/faithlence/internal/core/model"
	"github.com/h2non/filetype"
)

// Context keys shared between the pipeline commands.
const (
	// JobKey holds the *model.UploadJob for the whole run.
	JobKey = "__upload_job__"
	// TranscriptKey holds the transcription or description text.
	TranscriptKey = "__transcript__"
	// RecordKey holds the assembled *model.ContentRecord.
	RecordKey = "__content_record__"
	// RecordIDKey holds the persisted record id, or "" when persistence
	// was skipped or failed.
	RecordIDKey = "__record_id__"
)

// extensionTypes resolves MIME types for extensions the sniffer cannot
// identify from magic bytes alone.
var extensionTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".txt":  "text/plain",
	".md":   "text/markdown",
}

// MediaClassifier resolves the MIME type of an upload job and assigns its
// processing kind. The declared type wins unless it is empty or the generic
// octet-stream, in which case the head bytes are sniffed and the file
// extension consulted. Unsupported types fail the run before any model call.
type MediaClassifier struct {
	cor.BaseCommand
}

// NewMediaClassifier builds a classifier reading the job from JobKey.
func NewMediaClassifier(name string) *MediaClassifier {
	cmd := &MediaClassifier{BaseCommand: *cor.NewBaseCommand(name)}
	cmd.InputParamName = JobKey
	return cmd
}

func (c *MediaClassifier) Execute(context cor.Context) {
	job := context.Get(c.GetInputParam()).(*model.UploadJob)

	mimeType := strings.ToLower(strings.TrimSpace(job.MimeType))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = c.resolveType(job)
	}

	kind, ok := kindForMime(mimeType)
	if !ok {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), model.NewServiceError(
			model.CodeValidation,
			fmt.Sprintf("unsupported content type %q", mimeType), nil))
		return
	}

	job.MimeType = mimeType
	job.Kind = kind
	if kind == model.KindText && job.Text == "" {
		job.Text = string(job.Data)
	}
	// Text submissions skip transcription; the text itself is the transcript.
	if kind == model.KindText {
		context.Add(TranscriptKey, job.Text)
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), job)
}

// resolveType sniffs the payload head, then falls back to the extension map.
// Returns application/octet-stream when both come up empty.
func (c *MediaClassifier) resolveType(job *model.UploadJob) string {
	if len(job.Data) > 0 {
		if t, err := filetype.Match(job.Data); err == nil && t != filetype.Unknown {
			return t.MIME.Value
		}
	}
	ext := strings.ToLower(filepath.Ext(job.FileName))
	if mt, ok := extensionTypes[ext]; ok {
		return mt
	}
	return "application/octet-stream"
}

// kindForMime maps a MIME type onto a processing branch.
func kindForMime(mimeType string) (string, bool) {
	switch {
	case strings.HasPrefix(mimeType, "audio/"):
		return model.KindAudio, true
	case strings.HasPrefix(mimeType, "video/"):
		return model.KindVideo, true
	case strings.HasPrefix(mimeType, "image/"):
		return model.KindImage, true
	case strings.HasPrefix(mimeType, "text/"), mimeType == "application/json":
		return model.KindText, true
	default:
		return "", false
	}
}
