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

// This file holds the application state container and its initialization:
// configuration loading, external clients, and the service layer wiring.
package main

import (
	"context"
	"log"
	"os"

	"github.com/faithlence/faithlence/internal/cloud"
	"github.com/faithlence/faithlence/internal/core/commands"
	"github.com/faithlence/faithlence/internal/core/services"
	"github.com/faithlence/faithlence/internal/core/workflow"
)

// StateManager bundles the shared dependencies built once at startup.
type StateManager struct {
	config         *cloud.Config
	cloud          *cloud.ServiceClients
	contentService *services.ContentService
	chatService    *services.ChatService
	uploadService  *services.UploadService
	blobService    *services.BlobService
}

var state = &StateManager{}

// SetupOS points the configuration loader at the config directory and the
// runtime override file when the environment has not set them already.
func SetupOS() (err error) {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

// GetConfig loads the application configuration once and caches it.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to set up environment: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// InitState builds every external client and service, wires the upload
// pipeline, and starts the Pub/Sub listeners.
func InitState(ctx context.Context) {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		log.Fatalf("failed to initialize cloud clients: %v\n", err)
	}
	state.cloud = cloudClients

	state.contentService = services.NewContentService(
		cloudClients.MongoClient, config.ContentStore,
		cloudClients.RedisClient, config.Cache)

	// The persist step only runs when the store is wired; otherwise the
	// pipeline completes and the response carries a warning.
	var saver commands.RecordSaver
	if state.contentService.Available() {
		saver = state.contentService
	}
	pipeline := workflow.NewUploadWorkflow(config, cloudClients, saver)

	state.uploadService = services.NewUploadService(pipeline)
	state.chatService = services.NewChatService(state.contentService, cloudClients.Invoker, config)
	state.blobService = services.NewBlobService(
		cloudClients.StorageClient,
		cloudClients.IAMClient,
		config.Application.SignerServiceAccountEmail,
		config.Storage)

	SetupListeners(cloudClients, ctx)
}
