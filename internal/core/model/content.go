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

// Package model defines the persistent and transient data structures of the
// content service: the analysis produced by the generative models, the
// stored content record, and the chat exchange types.
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Content kinds as stored on a record.
const (
	KindAudio = "audio"
	KindVideo = "video"
	KindImage = "image"
	KindText  = "text"
)

// Scripture is a single referenced passage. Chapter and Verse are untyped
// because the models emit both numbers (3) and range strings ("1-3").
type Scripture struct {
	Book    string      `json:"book" bson:"book"`
	Chapter interface{} `json:"chapter" bson:"chapter"`
	Verse   interface{} `json:"verse" bson:"verse"`
	Text    string      `json:"text" bson:"text"`
}

// KeyQuote is a notable quote pulled from the source material together with
// its interpretation.
type KeyQuote struct {
	Quote              string `json:"quote" bson:"quote"`
	Timestamp          string `json:"timestamp,omitempty" bson:"timestamp,omitempty"`
	Analysis           string `json:"analysis" bson:"analysis"`
	TheologicalInsight string `json:"theologicalInsight" bson:"theological_insight"`
	Positivity         string `json:"positivity" bson:"positivity"`
}

// TheologicalView expands one theme into perspective, application, and the
// scriptures that support it.
type TheologicalView struct {
	Theme                string      `json:"theme" bson:"theme"`
	BiblicalPerspective  string      `json:"biblicalPerspective" bson:"biblical_perspective"`
	PracticalApplication string      `json:"practicalApplication" bson:"practical_application"`
	RelatedScriptures    []Scripture `json:"relatedScriptures" bson:"related_scriptures"`
}

// DeepAnalysis is the long-form portion of an analysis.
type DeepAnalysis struct {
	KeyQuotes          []KeyQuote        `json:"keyQuotes" bson:"key_quotes"`
	TheologicalViews   []TheologicalView `json:"theologicalViews" bson:"theological_views"`
	PositivityInsights []string          `json:"positivityInsights" bson:"positivity_insights"`
	OverallMessage     string            `json:"overallMessage" bson:"overall_message"`
}

// Social media hook types.
const (
	HookOpening   = "opening"
	HookCuriosity = "curiosity"
	HookEmotional = "emotional"
	HookQuestion  = "question"
	HookStatistic = "statistic"
)

// SocialMediaHook is a short promotional line suggested for a platform.
type SocialMediaHook struct {
	Type     string `json:"type" bson:"type"`
	Text     string `json:"text" bson:"text"`
	Platform string `json:"platform" bson:"platform"`
}

// AnalysisResult is the structured output of the analysis step. Summary,
// Captions, Hashtags, Story, and Scriptures are the core fields, always
// present once analysis succeeds and stored losslessly; anything else the
// model returns at the top level is kept verbatim in Extra so it survives
// persistence and round-trips to clients.
type AnalysisResult struct {
	Title            string                 `json:"title" bson:"title"`
	Summary          string                 `json:"summary" bson:"summary"`
	Captions         []string               `json:"captions" bson:"captions"`
	Hashtags         []string               `json:"hashtags" bson:"hashtags"`
	Story            string                 `json:"story" bson:"story"`
	Scriptures       []Scripture            `json:"scriptures" bson:"scriptures"`
	Themes           []string               `json:"themes" bson:"themes"`
	DeepAnalysis     *DeepAnalysis          `json:"deepAnalysis,omitempty" bson:"deep_analysis,omitempty"`
	SocialMediaHooks []SocialMediaHook      `json:"socialMediaHooks,omitempty" bson:"social_media_hooks,omitempty"`
	Extra            map[string]interface{} `json:"extra,omitempty" bson:"extra,omitempty"`
}

// ContentRecord is the stored unit of processed content.
type ContentRecord struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title         string             `json:"title" bson:"title"`
	Kind          string             `json:"type" bson:"type"`
	MimeType      string             `json:"mimeType,omitempty" bson:"mime_type,omitempty"`
	Transcription string             `json:"transcription,omitempty" bson:"transcription,omitempty"`
	Analysis      AnalysisResult     `json:"analysis" bson:"analysis"`
	CreatedAt     time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updated_at"`
}

// HistoryEntry is the compact projection of a record served on the history
// feed. Summary is truncated to HistorySummaryMax characters.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
}

// HistorySummaryMax is the summary length cap on history projections.
const HistorySummaryMax = 100

// TruncateSummary shortens s to HistorySummaryMax characters for the history
// feed, respecting rune boundaries.
func TruncateSummary(s string) string {
	runes := []rune(s)
	if len(runes) <= HistorySummaryMax {
		return s
	}
	return string(runes[:HistorySummaryMax])
}

// Chat roles accepted on replayed history turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is one prior exchange replayed with a chat request.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
