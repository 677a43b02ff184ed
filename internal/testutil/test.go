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

// Package test provides helpers and fixtures shared across the test suite:
// test configuration loading, sample payloads, and a fake content generator
// for driving the invoker without a network.
package test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/faithlence/faithlence/internal/cloud"
	"google.golang.org/genai"
)

// StateManager caches the test configuration so TOML files load once per run.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is not nil.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// GetTestAnalysisJSON returns a model-shaped analysis payload, fenced the way
// the provider returns it, for decoder and pipeline tests.
func GetTestAnalysisJSON() string {
	return "```json\n" + `{
  "title": "Grace in the Storm",
  "summary": "A sermon on finding peace through faith when circumstances collapse. The speaker walks through Mark 4 and argues that trust grows in, not despite, turbulence.",
  "captions": ["Peace is a person, not a circumstance.", "The storm is the classroom."],
  "hashtags": ["#faith", "#peace", "#Mark4"],
  "story": "A boat, a squall, and twelve panicked disciples. The sermon retells the crossing of the sea as the moment the disciples learned that the presence of Jesus outweighs the absence of calm.",
  "scriptures": [
    {
      "book": "Mark",
      "chapter": 4,
      "verse": "35-41",
      "text": "And he said unto them, Why are ye so fearful? how is it that ye have no faith?"
    },
    {
      "book": "Philippians",
      "chapter": 4,
      "verse": 7,
      "text": "And the peace of God, which passeth all understanding, shall keep your hearts and minds."
    }
  ],
  "themes": ["faith", "peace", "trust", "fear"],
  "deepAnalysis": {
    "keyQuotes": [
      {
        "quote": "The storm is not the absence of God; it is the classroom of trust.",
        "analysis": "Frames adversity as formative rather than punitive.",
        "theologicalInsight": "Echoes the disciples' formation narrative in Mark.",
        "positivity": "high"
      }
    ],
    "theologicalViews": [
      {
        "theme": "faith",
        "biblicalPerspective": "Faith matures under testing.",
        "practicalApplication": "Name the fear, then name the promise.",
        "relatedScriptures": [
          { "book": "James", "chapter": 1, "verse": "2-4", "text": "Count it all joy when ye fall into divers temptations." }
        ]
      }
    ],
    "positivityInsights": ["Hope-centered framing throughout"],
    "overallMessage": "Peace is a person, not a circumstance."
  },
  "socialMediaHooks": [
    { "type": "question", "text": "What if the storm is the classroom?", "platform": "instagram" },
    { "type": "opening", "text": "The disciples panicked. Jesus slept.", "platform": "twitter" }
  ],
  "audienceNotes": "Works well for small group discussion."
}` + "\n```"
}

// GetTestStorageNotification returns a finalize notification payload as the
// relay bucket publishes it to Pub/Sub.
func GetTestStorageNotification() string {
	return `{
  "kind": "storage#object",
  "id": "faithlence-test-relay/sermon-042.mp3/1728615848664286",
  "selfLink": "https://www.googleapis.com/storage/v1/b/faithlence-test-relay/o/sermon-042.mp3",
  "name": "sermon-042.mp3",
  "bucket": "faithlence-test-relay",
  "generation": "1728615848664286",
  "metageneration": "1",
  "contentType": "audio/mpeg",
  "timeCreated": "2024-10-11T03:04:08.672Z",
  "updated": "2024-10-11T03:04:08.672Z",
  "storageClass": "STANDARD",
  "timeStorageClassUpdated": "2024-10-11T03:04:08.672Z",
  "size": "8422911",
  "md5Hash": "67c1rAU+1RYZzK5zp8iBkA==",
  "mediaLink": "https://storage.googleapis.com/download/storage/v1/b/faithlence-test-relay/o/sermon-042.mp3?generation=1728615848664286&alt=media",
  "metadata": { "touch": "18" },
  "crc32c": "IYeSTw==",
  "etag": "CN658+yrhYkDEAE="
}`
}

// SetupOS points the configuration loader at the test TOML files.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is the singleton accessor for the test configuration.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// GeneratorCall records one GenerateContent invocation on the fake.
type GeneratorCall struct {
	Model    string
	Contents []*genai.Content
	Config   *genai.GenerateContentConfig
}

// ScriptedGenerator is a fake cloud.ContentGenerator that replays a scripted
// sequence of outcomes and records every call.
type ScriptedGenerator struct {
	Calls   []GeneratorCall
	Outcome func(call int, model string) (*genai.GenerateContentResponse, error)
}

// GenerateContent implements cloud.ContentGenerator.
func (s *ScriptedGenerator) GenerateContent(
	_ context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	call := len(s.Calls)
	s.Calls = append(s.Calls, GeneratorCall{Model: model, Contents: contents, Config: config})
	return s.Outcome(call, model)
}

// TextResponse builds a single-candidate response carrying text, matching
// the shape the provider returns.
func TextResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{{Text: text}},
					Role:  "model",
				},
			},
		},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: 20,
		},
	}
}

// NewTestInvoker builds an invoker over gen with instant, recorded backoff.
// The returned slice pointer collects each requested backoff duration.
func NewTestInvoker(gen cloud.ContentGenerator, models []string) (*cloud.FallbackInvoker, *[]time.Duration) {
	cfg := cloud.Generation{
		Models:              models,
		MaxRateLimitRetries: 2,
		BackoffBaseMillis:   1000,
		RateLimit:           1000,
	}
	invoker := cloud.NewFallbackInvoker(gen, nil, cfg)
	sleeps := &[]time.Duration{}
	invoker.SetSleep(func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	})
	return invoker, sleeps
}
