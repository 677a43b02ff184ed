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

// This file defines the commands behind the upload-completed listener. The
// bucket publishes an object-finalize notification when a client finishes a
// direct upload; the listener decodes it and records the arrival. The object
// itself is processed when the client calls the completion endpoint, so the
// listener is observational and acks on success.
package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/faithlence/faithlence/internal/cloud"
	"github.com/faithlence/faithlence/internal/core/cor"
)

// NotificationReader decodes an object-store notification payload into a
// BlobObject for downstream commands.
type NotificationReader struct {
	cor.BaseCommand
}

// NewNotificationReader builds the reader. Input is the raw notification
// JSON delivered on the subscription.
func NewNotificationReader(name string) *NotificationReader {
	return &NotificationReader{BaseCommand: *cor.NewBaseCommand(name)}
}

func (c *NotificationReader) Execute(context cor.Context) {
	raw, ok := context.Get(c.GetInputParam()).(string)
	if !ok || raw == "" {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("notification payload is empty"))
		return
	}

	var notification cloud.StorageNotification
	if err := json.Unmarshal([]byte(raw), &notification); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to decode storage notification: %w", err))
		return
	}

	size, err := strconv.ParseInt(notification.Size, 10, 64)
	if err != nil {
		size = 0
	}
	blob := &cloud.BlobObject{
		Bucket:   notification.Bucket,
		Name:     notification.Name,
		MIMEType: notification.ContentType,
		Size:     size,
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cloud.BlobObjectKey, blob)
	context.Add(c.GetOutputParam(), blob)
}

// UploadArrivalLogger records that a direct upload landed in the relay
// bucket. Processing waits for the client's completion call, which carries
// the title and declared type the notification lacks.
type UploadArrivalLogger struct {
	cor.BaseCommand
}

// NewUploadArrivalLogger builds the logger command.
func NewUploadArrivalLogger(name string) *UploadArrivalLogger {
	cmd := &UploadArrivalLogger{BaseCommand: *cor.NewBaseCommand(name)}
	cmd.InputParamName = cloud.BlobObjectKey
	return cmd
}

func (c *UploadArrivalLogger) Execute(context cor.Context) {
	blob, ok := context.Get(c.GetInputParam()).(*cloud.BlobObject)
	if !ok {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("no blob object in context"))
		return
	}

	slog.Info("direct upload arrived in relay bucket",
		"bucket", blob.Bucket, "object", blob.Name,
		"contentType", blob.MIMEType, "bytes", blob.Size)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), blob)
}
