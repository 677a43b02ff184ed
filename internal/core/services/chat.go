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

// This file implements the chat service. A chat is always grounded in one
// stored record: the record is fetched before any model call so an unknown
// id costs nothing, and its transcript is injected into the grounding
// prompt that opens the conversation.
package services

import (
	"bytes"
	"context"
	"text/template"

	"github.com/faithlence/faithlence/internal/cloud"
	"github.com/faithlence/faithlence/internal/core/model"
	"google.golang.org/genai"
)

// chatHistoryMax caps how many prior turns are replayed to the model.
const chatHistoryMax = 50

// RecordGetter loads one stored record by id.
type RecordGetter interface {
	Get(ctx context.Context, id string) (*model.ContentRecord, error)
}

// ChatService answers questions about a stored record.
type ChatService struct {
	store        RecordGetter
	invoker      *cloud.FallbackInvoker
	template     *template.Template
	instructions string
}

// NewChatService builds the chat service from the chat prompt template and
// the chat system instructions.
func NewChatService(store RecordGetter, invoker *cloud.FallbackInvoker, config *cloud.Config) *ChatService {
	return &ChatService{
		store:        store,
		invoker:      invoker,
		template:     template.Must(template.New("chat-template").Parse(config.PromptTemplates.Chat)),
		instructions: config.Generation.ChatInstructions,
	}
}

// Chat answers message about the record identified by contentID, replaying
// up to chatHistoryMax prior turns for continuity.
func (s *ChatService) Chat(ctx context.Context, contentID string, message string, history []model.ChatTurn) (string, error) {
	if message == "" {
		return "", model.ValidationError("message must not be empty")
	}

	record, err := s.store.Get(ctx, contentID)
	if err != nil {
		return "", err
	}

	grounding, err := s.renderGrounding(record)
	if err != nil {
		return "", model.NewServiceError(model.CodeInternal, "failed to build chat grounding", err)
	}

	contents := make([]*genai.Content, 0, len(history)+2)
	contents = append(contents, &genai.Content{
		Parts: []*genai.Part{{Text: grounding}},
		Role:  "user",
	})
	for _, turn := range trimHistory(history) {
		role := "user"
		if turn.Role == model.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: turn.Content}},
			Role:  role,
		})
	}
	contents = append(contents, &genai.Content{
		Parts: []*genai.Part{{Text: message}},
		Role:  "user",
	})

	config := &genai.GenerateContentConfig{
		SafetySettings:   cloud.DefaultSafetySettings,
		ResponseMIMEType: "text/plain",
	}
	if s.instructions != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: s.instructions}},
		}
	}

	answer, _, err := s.invoker.Invoke(ctx, contents, config)
	if err != nil {
		return "", model.NewServiceError(model.CodeExternalService, "chat generation failed", err)
	}
	return answer, nil
}

func (s *ChatService) renderGrounding(record *model.ContentRecord) (string, error) {
	params := map[string]interface{}{
		"TITLE":      record.Title,
		"TRANSCRIPT": record.Transcription,
		"SUMMARY":    record.Analysis.Summary,
	}
	var buffer bytes.Buffer
	if err := s.template.Execute(&buffer, params); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

// trimHistory keeps the most recent turns when the client sends more than
// the replay cap.
func trimHistory(history []model.ChatTurn) []model.ChatTurn {
	if len(history) <= chatHistoryMax {
		return history
	}
	return history[len(history)-chatHistoryMax:]
}
