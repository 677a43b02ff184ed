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

// This file initializes every external client the service talks to and
// bundles them into one container built once at startup. The generative
// provider is mandatory; the content store, cache, and Pub/Sub degrade to
// nil clients with a logged warning.
package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/genai"
)

// ServiceClients holds every initialized external client plus the shared
// model-fallback invoker. It is built once in main and injected downward.
type ServiceClients struct {
	StorageClient   *storage.Client
	PubsubClient    *pubsub.Client
	GenAIClient     *genai.Client
	IAMClient       *credentials.IamCredentialsClient
	MongoClient     *mongo.Client
	RedisClient     *redis.Client
	PubSubListeners map[string]*PubSubListener
	Invoker         *FallbackInvoker
}

// Close releases all live client connections. Nil clients from degraded
// startup are skipped.
func (c *ServiceClients) Close() {
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
	if c.PubsubClient != nil {
		_ = c.PubsubClient.Close()
	}
	if c.IAMClient != nil {
		_ = c.IAMClient.Close()
	}
	if c.MongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.MongoClient.Disconnect(ctx)
	}
	if c.RedisClient != nil {
		_ = c.RedisClient.Close()
	}
}

// NewGenerationConfig builds the default content generation parameters
// shared by every candidate model.
func NewGenerationConfig(cfg Generation) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](cfg.Temperature),
		TopP:              genai.Ptr[float32](cfg.TopP),
		TopK:              genai.Ptr[float32](cfg.TopK),
		MaxOutputTokens:   cfg.MaxTokens,
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: cfg.SystemInstructions}}},
		SafetySettings:    DefaultSafetySettings,
		ResponseMIMEType:  cfg.OutputFormat,
	}
}

// NewCloudServiceClients initializes all external dependencies from config.
// The provider API key (EnvAPIKey) is required; everything else is optional
// and logged when absent.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	apiKey := os.Getenv(EnvAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("environment variable %s is required", EnvAPIKey)
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	sc, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	iamClient, err := credentials.NewIamCredentialsClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create iam credentials client: %w", err)
	}

	var pc *pubsub.Client
	listeners := make(map[string]*PubSubListener)
	if len(config.TopicSubscriptions) > 0 {
		pc, err = pubsub.NewClient(ctx, config.Application.GoogleProjectId)
		if err != nil {
			return nil, fmt.Errorf("failed to create pubsub client: %w", err)
		}
		for subKey, values := range config.TopicSubscriptions {
			listener, err := NewPubSubListener(pc, values.Name, nil)
			if err != nil {
				return nil, err
			}
			listeners[subKey] = listener
		}
	}

	mc, err := newMongoClient(ctx, config.ContentStore)
	if err != nil {
		return nil, err
	}

	var rc *redis.Client
	if config.Cache.Addr != "" {
		rc = redis.NewClient(&redis.Options{
			Addr:     config.Cache.Addr,
			Password: config.Cache.Password,
			DB:       config.Cache.DB,
		})
	}

	invoker := NewFallbackInvoker(gc.Models, NewGenerationConfig(config.Generation), config.Generation)

	return &ServiceClients{
		StorageClient:   sc,
		PubsubClient:    pc,
		GenAIClient:     gc,
		IAMClient:       iamClient,
		MongoClient:     mc,
		RedisClient:     rc,
		PubSubListeners: listeners,
		Invoker:         invoker,
	}, nil
}

// newMongoClient connects to the content store. A missing URI is not an
// error: the service runs degraded, processing without persistence.
func newMongoClient(ctx context.Context, cfg ContentStore) (*mongo.Client, error) {
	uri := os.Getenv(EnvMongoURI)
	if uri == "" {
		uri = cfg.URI
	}
	if uri == "" {
		slog.Warn("no content store URI configured, persistence disabled")
		return nil, nil
	}

	timeout := time.Duration(cfg.ConnectTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts := options.Client().ApplyURI(uri).SetConnectTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to content store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		// Reachability failures degrade rather than abort: the store may
		// come up later and the pipeline tolerates save failures.
		slog.Warn("content store unreachable at startup, continuing degraded", "error", err)
	}
	return client, nil
}
