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

// This file defines the relay fetch command: it materializes an
// out-of-band uploaded object into a tracked temp file and schedules the
// object's deletion for the end of the run, success or failure.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"github.com/faithlence/faithlence/internal/core/cor"
	"github.com/faithlence/faithlence/internal/core/model"
)

// BlobToTempFile downloads a relay object to a temp file for jobs on the
// object-store transport. Jobs on other transports pass through untouched.
type BlobToTempFile struct {
	cor.BaseCommand
	client         *storage.Client
	defaultBucket  string
	maxRelayBytes  int64
	tempFilePrefix string
}

// NewBlobToTempFile builds the relay fetch command. maxRelayBytes of zero
// disables the size check.
func NewBlobToTempFile(name string, client *storage.Client, defaultBucket string, maxRelayBytes int64) *BlobToTempFile {
	cmd := &BlobToTempFile{
		BaseCommand:    *cor.NewBaseCommand(name),
		client:         client,
		defaultBucket:  defaultBucket,
		maxRelayBytes:  maxRelayBytes,
		tempFilePrefix: "relay-",
	}
	cmd.InputParamName = JobKey
	return cmd
}

// IsExecutable holds only for relay jobs that still need fetching.
func (c *BlobToTempFile) IsExecutable(ctx cor.Context) bool {
	if ctx == nil || ctx.GetContext() == nil {
		return false
	}
	job, ok := ctx.Get(c.GetInputParam()).(*model.UploadJob)
	return ok && job.Transport == model.TransportObjectStoreRelay && job.Blob != nil && job.TempPath == ""
}

func (c *BlobToTempFile) Execute(corCtx cor.Context) {
	job := corCtx.Get(c.GetInputParam()).(*model.UploadJob)

	bucket := job.Blob.Bucket
	if bucket == "" {
		bucket = c.defaultBucket
	}
	obj := c.client.Bucket(bucket).Object(job.Blob.Object)

	// The relay object is transient by contract: delete it when the run
	// ends no matter how the pipeline fares.
	corCtx.AddCleanup(c.GetName(), func(ctx context.Context) error {
		if err := obj.Delete(ctx); err != nil {
			return fmt.Errorf("failed to delete relay object gs://%s/%s: %w", bucket, job.Blob.Object, err)
		}
		return nil
	})

	attrs, err := obj.Attrs(corCtx.GetContext())
	if err != nil {
		c.GetErrorCounter().Add(corCtx.GetContext(), 1)
		corCtx.AddError(c.GetName(), fmt.Errorf("failed to stat relay object gs://%s/%s: %w", bucket, job.Blob.Object, err))
		return
	}
	if c.maxRelayBytes > 0 && attrs.Size > c.maxRelayBytes {
		c.GetErrorCounter().Add(corCtx.GetContext(), 1)
		corCtx.AddError(c.GetName(), model.NewServiceError(
			model.CodeValidation,
			fmt.Sprintf("relay object is %d bytes, limit is %d", attrs.Size, c.maxRelayBytes), nil))
		return
	}
	if job.MimeType == "" {
		job.MimeType = attrs.ContentType
	}

	reader, err := obj.NewReader(corCtx.GetContext())
	if err != nil {
		c.GetErrorCounter().Add(corCtx.GetContext(), 1)
		corCtx.AddError(c.GetName(), fmt.Errorf("failed to open relay object gs://%s/%s: %w", bucket, job.Blob.Object, err))
		return
	}
	defer func() {
		if err := reader.Close(); err != nil {
			slog.Warn("failed to close relay object reader", "error", err)
		}
	}()

	tempFile, err := os.CreateTemp("", c.tempFilePrefix)
	if err != nil {
		c.GetErrorCounter().Add(corCtx.GetContext(), 1)
		corCtx.AddError(c.GetName(), fmt.Errorf("could not create temp file: %w", err))
		return
	}
	corCtx.AddTempFile(tempFile.Name())

	written, err := io.Copy(tempFile, reader)
	_ = tempFile.Close()
	if err != nil {
		c.GetErrorCounter().Add(corCtx.GetContext(), 1)
		corCtx.AddError(c.GetName(), fmt.Errorf("failed to copy relay object, %d bytes written: %w", written, err))
		return
	}

	job.TempPath = tempFile.Name()
	c.GetSuccessCounter().Add(corCtx.GetContext(), 1)
	slog.Info("fetched relay object", "bucket", bucket, "object", job.Blob.Object, "bytes", written)
	corCtx.Add(c.GetOutputParam(), job)
}
