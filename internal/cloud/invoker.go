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

// This file implements the model-fallback invoker: every generative call in
// the service goes through it. The invoker walks an ordered list of model
// candidates, retrying rate-limited calls against the same model with
// exponential backoff and moving to the next candidate on any other fault.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// FaultKind classifies a failed model call. The kind, not the raw error,
// drives the invoker's next step.
type FaultKind int

const (
	// FaultRateLimited means the provider rejected the call for quota
	// reasons. The same model is retried after a backoff.
	FaultRateLimited FaultKind = iota
	// FaultUnavailable means the provider had a transient server-side
	// failure. The invoker moves to the next candidate.
	FaultUnavailable
	// FaultFatal covers everything else: bad requests, blocked content,
	// auth failures. The invoker moves to the next candidate.
	FaultFatal
)

func (k FaultKind) String() string {
	switch k {
	case FaultRateLimited:
		return "rate_limited"
	case FaultUnavailable:
		return "unavailable"
	default:
		return "fatal"
	}
}

// ModelFault records which model failed and how.
type ModelFault struct {
	Model string
	Kind  FaultKind
	Err   error
}

func (f *ModelFault) Error() string {
	return fmt.Sprintf("model %s failed (%s): %v", f.Model, f.Kind, f.Err)
}

func (f *ModelFault) Unwrap() error {
	return f.Err
}

// ErrModelsExhausted reports that every candidate model failed.
var ErrModelsExhausted = errors.New("all candidate models exhausted")

// ContentGenerator is the provider call surface. *genai.Models satisfies it;
// tests substitute fakes.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ClassifyFault maps a provider error to a FaultKind. The genai SDK returns
// typed APIErrors; the message probe covers errors that arrive wrapped or
// stringified by intermediate layers.
func ClassifyFault(err error) FaultKind {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			return FaultRateLimited
		case apiErr.Code >= 500:
			return FaultUnavailable
		default:
			return FaultFatal
		}
	}
	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "rate limit") {
		return FaultRateLimited
	}
	if strings.Contains(msg, "503") || strings.Contains(msg, "UNAVAILABLE") || strings.Contains(msg, "overloaded") {
		return FaultUnavailable
	}
	return FaultFatal
}

// FallbackInvoker executes generative calls against an ordered candidate
// list behind a shared rate limiter. It carries a default generation config;
// callers with special needs (chat grounding) pass their own per call.
type FallbackInvoker struct {
	generator           ContentGenerator
	config              *genai.GenerateContentConfig
	models              []string
	limiter             *rate.Limiter
	maxRateLimitRetries int
	backoffBase         time.Duration

	// sleep is swappable so tests can observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error

	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
	retryCounter       metric.Int64Counter
}

// NewFallbackInvoker wires an invoker from the generation config. The rate
// limiter allows bursts of cfg.RateLimit and refills once per second,
// shared across all callers of this invoker.
func NewFallbackInvoker(generator ContentGenerator, genCfg *genai.GenerateContentConfig, cfg Generation) *FallbackInvoker {
	meter := otel.Meter("github.com/faithlence/faithlence")
	inputTokens, err := meter.Int64Counter("genai.tokens.input")
	if err != nil {
		slog.Warn("failed to create input token counter", "error", err)
	}
	outputTokens, err := meter.Int64Counter("genai.tokens.output")
	if err != nil {
		slog.Warn("failed to create output token counter", "error", err)
	}
	retries, err := meter.Int64Counter("genai.retries")
	if err != nil {
		slog.Warn("failed to create retry counter", "error", err)
	}

	backoff := time.Duration(cfg.BackoffBaseMillis) * time.Millisecond
	if backoff <= 0 {
		backoff = time.Second
	}
	requestsPerSecond := cfg.RateLimit
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}

	return &FallbackInvoker{
		generator:           generator,
		config:              genCfg,
		models:              cfg.Models,
		limiter:             rate.NewLimiter(rate.Every(time.Second), requestsPerSecond),
		maxRateLimitRetries: cfg.MaxRateLimitRetries,
		backoffBase:         backoff,
		sleep:               sleepContext,
		inputTokenCounter:   inputTokens,
		outputTokenCounter:  outputTokens,
		retryCounter:        retries,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SetSleep replaces the backoff sleeper. Tests use it to observe requested
// delays without waiting them out.
func (q *FallbackInvoker) SetSleep(fn func(ctx context.Context, d time.Duration) error) {
	q.sleep = fn
}

// Models returns the candidate list in preference order.
func (q *FallbackInvoker) Models() []string {
	return q.models
}

// Invoke runs one generative call through the fallback ladder and returns
// the response text plus the model that produced it. A nil config uses the
// invoker's default. Backoff for a rate-limited attempt n is base<<n.
func (q *FallbackInvoker) Invoke(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, string, error) {
	if len(q.models) == 0 {
		return "", "", errors.New("no generative models configured")
	}
	if config == nil {
		config = q.config
	}

	var lastFault *ModelFault
	for _, modelName := range q.models {
		for attempt := 0; ; attempt++ {
			if err := q.limiter.Wait(ctx); err != nil {
				return "", "", err
			}

			resp, err := q.generator.GenerateContent(ctx, modelName, contents, config)
			if err == nil {
				q.recordUsage(ctx, resp)
				return q.collectText(resp), modelName, nil
			}

			kind := ClassifyFault(err)
			lastFault = &ModelFault{Model: modelName, Kind: kind, Err: err}

			if kind == FaultRateLimited && attempt < q.maxRateLimitRetries {
				q.retryCounter.Add(ctx, 1)
				delay := q.backoffBase << attempt
				slog.Warn("model rate limited, backing off",
					"model", modelName, "attempt", attempt+1, "delay", delay)
				if err := q.sleep(ctx, delay); err != nil {
					return "", "", err
				}
				continue
			}

			slog.Warn("model call failed, advancing to next candidate",
				"model", modelName, "fault", kind.String(), "error", err)
			break
		}
	}

	return "", "", fmt.Errorf("%w: %w", ErrModelsExhausted, lastFault)
}

func (q *FallbackInvoker) recordUsage(ctx context.Context, resp *genai.GenerateContentResponse) {
	if resp == nil || resp.UsageMetadata == nil {
		return
	}
	q.inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
	q.outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
}

// collectText concatenates all text parts across candidates and strips the
// JSON fences the models add despite the response MIME type.
func (q *FallbackInvoker) collectText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return ExtractJSON(sb.String())
}
