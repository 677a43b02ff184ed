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

// Package cloud holds the configuration structures, external service clients,
// and the generative model invoker used by the content pipelines. Settings
// load from hierarchical TOML files; secrets come from the environment.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings disables provider-side content blocking. Sermon and
// scripture material regularly trips the default harassment and dangerous
// content filters, so thresholds stay open and moderation is editorial.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// PromptTemplates holds the text templates for every generative call. Each
// template is expanded with Go text/template syntax by the command using it.
type PromptTemplates struct {
	Analysis      string `toml:"analysis"`
	Transcribe    string `toml:"transcribe"`
	DescribeImage string `toml:"describe_image"`
	Chat          string `toml:"chat"`
}

// Generation configures the model-fallback invoker and the shared content
// generation parameters applied to every candidate model.
type Generation struct {
	// Models is the candidate list in preference order. The invoker walks
	// it until one call succeeds.
	Models              []string `toml:"models"`
	MaxRateLimitRetries int      `toml:"max_rate_limit_retries"`
	BackoffBaseMillis   int      `toml:"backoff_base_millis"`
	RateLimit           int      `toml:"rate_limit"`
	SystemInstructions  string   `toml:"system_instructions"`
	ChatInstructions    string   `toml:"chat_instructions"`
	Temperature         float32  `toml:"temperature"`
	TopP                float32  `toml:"top_p"`
	TopK                float32  `toml:"top_k"`
	MaxTokens           int32    `toml:"max_tokens"`
	OutputFormat        string   `toml:"output_format"`
}

// TopicSubscription configures one Pub/Sub subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`
	DeadLetterTopic  string `toml:"dead_letter_topic"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// Storage configures the relay bucket used for out-of-band uploads.
type Storage struct {
	RelayBucket         string   `toml:"relay_bucket"`
	MaxRelayBytes       int64    `toml:"max_relay_bytes"`
	UploadURLTTLSeconds int      `toml:"upload_url_ttl_seconds"`
	AllowedContentTypes []string `toml:"allowed_content_types"`
	// RelayRetentionSeconds bounds how long an unclaimed relay object may
	// sit before the sweeper deletes it. Zero disables the sweep.
	RelayRetentionSeconds int `toml:"relay_retention_seconds"`
	// RelaySweepIntervalSeconds is how often the sweeper runs.
	RelaySweepIntervalSeconds int `toml:"relay_sweep_interval_seconds"`
}

// ContentStore configures the MongoDB record store. An empty URI puts the
// service in degraded mode: processing works, persistence is skipped.
type ContentStore struct {
	URI              string `toml:"uri"`
	Database         string `toml:"database"`
	Collection       string `toml:"collection"`
	ConnectTimeoutMS int    `toml:"connect_timeout_ms"`
}

// Cache configures the optional Redis read cache. An empty Addr disables it.
type Cache struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

// Extraction configures the optional pre-transcription audio extraction for
// video files spooled to disk.
type Extraction struct {
	FfmpegPath string `toml:"ffmpeg_path"`
	Enabled    bool   `toml:"enabled"`
}

// Config is the root configuration, loaded from TOML files by LoadConfig.
type Config struct {
	Application struct {
		Name                      string `toml:"name"`
		GoogleProjectId           string `toml:"google_project_id"`
		GoogleLocation            string `toml:"location"`
		SignerServiceAccountEmail string `toml:"signer_service_account_email"`
	} `toml:"application"`
	Server struct {
		Port string `toml:"port"`
		// MaxUploadBytes caps direct multipart uploads.
		MaxUploadBytes int64 `toml:"max_upload_bytes"`
		// InMemoryLimitBytes is the threshold above which direct uploads
		// spool to a temp file instead of staying in the request buffer.
		InMemoryLimitBytes int64 `toml:"in_memory_limit_bytes"`
		DebugLogCapacity   int   `toml:"debug_log_capacity"`
	} `toml:"server"`
	Storage            Storage                      `toml:"storage"`
	ContentStore       ContentStore                 `toml:"content_store"`
	Cache              Cache                        `toml:"cache"`
	Generation         Generation                   `toml:"generation"`
	Extraction         Extraction                   `toml:"extraction"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`
}

// NewConfig returns a Config with its maps initialized so the TOML decoder
// can populate them in place.
func NewConfig() *Config {
	return &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
	}
}
