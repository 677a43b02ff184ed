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

package cloud_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/faithlence/faithlence/internal/cloud"
	"github.com/stretchr/testify/assert"
)

const baseToml = `
[application]
name = "base-name"
google_project_id = "base-project"

[server]
port = "8080"
max_upload_bytes = 1000

[generation]
models = ["base-model"]
rate_limit = 1
`

const overrideToml = `
[application]
name = "override-name"

[generation]
models = ["override-model-a", "override-model-b"]
`

func writeConfigs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte(baseToml), 0o644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, ".env.staging.toml"), []byte(overrideToml), 0o644))
	return dir
}

func TestLoadConfigOverlaysRuntimeFile(t *testing.T) {
	dir := writeConfigs(t)
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "staging")

	config := cloud.NewConfig()
	cloud.LoadConfig(&config)

	// Override file wins where it speaks, base survives where it is silent.
	assert.Equal(t, "override-name", config.Application.Name)
	assert.Equal(t, "base-project", config.Application.GoogleProjectId)
	assert.Equal(t, int64(1000), config.Server.MaxUploadBytes)
	assert.Equal(t, []string{"override-model-a", "override-model-b"}, config.Generation.Models)
}

func TestLoadConfigBaseOnly(t *testing.T) {
	dir := writeConfigs(t)
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "missing")

	config := cloud.NewConfig()
	cloud.LoadConfig(&config)

	assert.Equal(t, "base-name", config.Application.Name)
	assert.Equal(t, []string{"base-model"}, config.Generation.Models)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cloud.ExtractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cloud.ExtractJSON("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cloud.ExtractJSON(`  {"a":1}  `))
	assert.Equal(t, "plain text", cloud.ExtractJSON("plain text"))
}
