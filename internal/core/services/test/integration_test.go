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

// This file holds the live integration test for the text analysis path. It
// runs the real provider stack end to end and is skipped when no API key is
// present in the environment.
package services_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/faithlence/faithlence/internal/cloud"
	"github.com/faithlence/faithlence/internal/core/services"
	"github.com/faithlence/faithlence/internal/core/workflow"
	test "github.com/faithlence/faithlence/internal/testutil"
	"github.com/zeebo/assert"
)

const integrationText = `
Consider the lilies of the field, how they grow: they neither toil nor spin,
and yet Solomon in all his glory was not arrayed like one of these. Therefore
do not be anxious about tomorrow. Seek first the kingdom, and everything else
will be added to you. This short reflection from Matthew chapter six reminds
us that worry adds nothing, and that trust is the posture of the faithful.
`

// TestAnalyzeTextLive runs a real analysis through the configured provider.
// It validates the whole chain: prompt rendering, the model-fallback invoker,
// JSON extraction, and decoding into the structured record.
func TestAnalyzeTextLive(t *testing.T) {
	if os.Getenv(cloud.EnvAPIKey) == "" {
		t.Skipf("%s is not set, skipping live provider test", cloud.EnvAPIKey)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := test.GetConfig()
	// The test runtime config points at scripted model names; the live run
	// needs a real candidate list.
	config.Generation.Models = []string{"gemini-flash-latest", "gemini-2.5-flash"}
	clients, err := cloud.NewCloudServiceClients(ctx, config)
	test.HandleErr(err, t)
	defer clients.Close()
	assert.NotNil(t, clients.Invoker)

	pipeline := workflow.NewUploadWorkflow(config, clients, nil)
	svc := services.NewUploadService(pipeline)

	result, err := svc.AnalyzeText(ctx, "Consider the Lilies", strings.TrimSpace(integrationText))
	assert.Nil(t, err)
	assert.NotNil(t, result)
	assert.NotNil(t, result.Analysis)
	assert.True(t, len(result.Analysis.Summary) > 0)
	assert.True(t, len(result.Analysis.Themes) > 0)
}
