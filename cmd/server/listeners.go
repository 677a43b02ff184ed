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

// This file starts the background Pub/Sub listeners. The relay bucket's
// object-finalize notifications arrive on the UploadCompleted subscription.
package main

import (
	"context"
	"log/slog"

	"github.com/faithlence/faithlence/internal/cloud"
	"github.com/faithlence/faithlence/internal/core/workflow"
)

// uploadCompletedListener is the TopicSubscriptions key for the relay
// bucket's finalize notifications.
const uploadCompletedListener = "UploadCompleted"

// SetupListeners attaches the notification workflow and starts the
// configured listeners. Missing subscriptions are not an error; direct
// uploads work without Pub/Sub.
func SetupListeners(cloudClients *cloud.ServiceClients, ctx context.Context) {
	listener, ok := cloudClients.PubSubListeners[uploadCompletedListener]
	if !ok {
		slog.Info("no upload-completed subscription configured, listener disabled")
		return
	}
	listener.SetCommand(workflow.NewUploadNoticeWorkflow())
	listener.Listen(ctx)
}
