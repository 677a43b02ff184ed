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

// This file implements the workflow attached to the upload-completed
// subscription. It decodes the bucket's object-finalize notification and
// records the arrival; the message is acked only when both steps succeed.
package workflow

import (
	"github.com/faithlence/faithlence/internal/core/commands"
	"github.com/faithlence/faithlence/internal/core/cor"
)

// UploadNoticeWorkflow handles relay bucket notifications.
type UploadNoticeWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

// Execute runs the underlying chain.
func (w *UploadNoticeWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// NewUploadNoticeWorkflow builds the notification handling chain.
func NewUploadNoticeWorkflow() *UploadNoticeWorkflow {
	w := &UploadNoticeWorkflow{
		BaseCommand: *cor.NewBaseCommand("upload-notice-pipeline"),
	}
	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewNotificationReader("read-storage-notification"))
	out.AddCommand(commands.NewUploadArrivalLogger("log-upload-arrival"))
	w.chain = out
	return w
}
