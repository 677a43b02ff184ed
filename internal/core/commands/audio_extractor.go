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

// This file defines the optional audio extraction command. Video payloads
// spooled to disk are reduced to an audio-only track with FFmpeg before
// transcription, which cuts the bytes sent to the provider by an order of
// magnitude. Extraction failures are non-fatal; the original file is used.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/faithlence/faithlence/internal/core/cor"
	"github.com/faithlence/faithlence/internal/core/model"
)

const (
	// audioExtractArgs strips the video stream (-vn) and re-encodes the
	// audio track as AAC in an mp4 container.
	audioExtractArgs = "-y -hide_banner -i %s -vn -acodec aac -f mp4 %s"
	audioTempPattern = "audio-extract-*.m4a"
	argSeparator     = " "
)

// AudioExtractor runs FFmpeg to pull the audio track out of a video file.
type AudioExtractor struct {
	cor.BaseCommand
	commandPath string
}

// NewAudioExtractor builds the extractor. commandPath is the FFmpeg binary
// location, e.g. "/usr/bin/ffmpeg".
func NewAudioExtractor(name string, commandPath string) *AudioExtractor {
	cmd := &AudioExtractor{
		BaseCommand: *cor.NewBaseCommand(name),
		commandPath: commandPath,
	}
	cmd.InputParamName = JobKey
	return cmd
}

// IsExecutable holds only for video jobs already spooled to disk.
func (c *AudioExtractor) IsExecutable(ctx cor.Context) bool {
	if ctx == nil || ctx.GetContext() == nil || c.commandPath == "" {
		return false
	}
	job, ok := ctx.Get(c.GetInputParam()).(*model.UploadJob)
	return ok && job.Kind == model.KindVideo && job.TempPath != ""
}

func (c *AudioExtractor) Execute(context cor.Context) {
	job := context.Get(c.GetInputParam()).(*model.UploadJob)

	tempFile, err := os.CreateTemp("", audioTempPattern)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("could not create temp file: %w", err))
		return
	}
	_ = tempFile.Close()
	context.AddTempFile(tempFile.Name())

	args := fmt.Sprintf(audioExtractArgs, job.TempPath, tempFile.Name())
	cmd := exec.CommandContext(context.GetContext(), c.commandPath, strings.Split(args, argSeparator)...)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		// Transcription still works on the full video; extraction is an
		// optimization, not a gate.
		c.GetErrorCounter().Add(context.GetContext(), 1)
		slog.Warn("audio extraction failed, transcribing original file",
			"file", job.TempPath, "error", err)
		context.Add(c.GetOutputParam(), job)
		return
	}

	job.TempPath = tempFile.Name()
	job.MimeType = "audio/mp4"
	job.Data = nil
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), job)
}
