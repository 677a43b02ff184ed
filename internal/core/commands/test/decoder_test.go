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

package commands_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/faithlence/faithlence/internal/core/commands"
	"github.com/faithlence/faithlence/internal/core/cor"
	"github.com/faithlence/faithlence/internal/core/model"
	testutil "github.com/faithlence/faithlence/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func decode(t *testing.T, job *model.UploadJob, transcript string, raw string) cor.Context {
	t.Helper()
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(commands.JobKey, job)
	ctx.Add(commands.TranscriptKey, transcript)
	ctx.Add(cor.CtxIn, raw)

	cmd := commands.NewAnalysisDecoder("decode")
	cmd.Execute(ctx)
	return ctx
}

func TestDecoderParsesFencedAnalysis(t *testing.T) {
	job := &model.UploadJob{Title: "", FileName: "sermon-042.mp3", Kind: model.KindAudio, MimeType: "audio/mpeg"}
	ctx := decode(t, job, "full transcript here", testutil.GetTestAnalysisJSON())

	assert.False(t, ctx.HasErrors())
	record, ok := ctx.Get(commands.RecordKey).(*model.ContentRecord)
	assert.True(t, ok)

	// No caller title, so the model's title wins.
	assert.Equal(t, "Grace in the Storm", record.Title)
	assert.Equal(t, model.KindAudio, record.Kind)
	assert.Equal(t, "full transcript here", record.Transcription)
	assert.Len(t, record.Analysis.Scriptures, 2)
	assert.Equal(t, []string{"faith", "peace", "trust", "fear"}, record.Analysis.Themes)
	assert.NotNil(t, record.Analysis.DeepAnalysis)
	assert.Len(t, record.Analysis.SocialMediaHooks, 2)
	assert.False(t, record.CreatedAt.IsZero())
}

func TestDecoderBindsCoreContentFields(t *testing.T) {
	job := &model.UploadJob{FileName: "sermon-042.mp3", Kind: model.KindAudio}
	ctx := decode(t, job, "transcript", testutil.GetTestAnalysisJSON())

	record := ctx.Get(commands.RecordKey).(*model.ContentRecord)
	analysis := record.Analysis

	// Captions, hashtags, and story are first-class fields, never Extra.
	assert.Len(t, analysis.Captions, 2)
	assert.Equal(t, []string{"#faith", "#peace", "#Mark4"}, analysis.Hashtags)
	assert.Contains(t, analysis.Story, "twelve panicked disciples")
	assert.NotContains(t, analysis.Extra, "captions")
	assert.NotContains(t, analysis.Extra, "hashtags")
	assert.NotContains(t, analysis.Extra, "story")

	// And they survive serialization as top-level keys, so a stored record
	// returns them unchanged.
	raw, err := json.Marshal(analysis)
	assert.NoError(t, err)
	var flat map[string]interface{}
	assert.NoError(t, json.Unmarshal(raw, &flat))
	assert.Contains(t, flat, "captions")
	assert.Contains(t, flat, "hashtags")
	assert.Contains(t, flat, "story")
	assert.Contains(t, flat, "summary")
	assert.Contains(t, flat, "scriptures")
}

func TestDecoderRoutesUnknownFieldsToExtra(t *testing.T) {
	job := &model.UploadJob{FileName: "sermon-042.mp3", Kind: model.KindAudio}
	ctx := decode(t, job, "transcript", testutil.GetTestAnalysisJSON())

	record := ctx.Get(commands.RecordKey).(*model.ContentRecord)
	// "audienceNotes" is not part of the schema; it must survive in Extra.
	assert.Equal(t, "Works well for small group discussion.", record.Analysis.Extra["audienceNotes"])
	assert.NotContains(t, record.Analysis.Extra, "title")
	assert.NotContains(t, record.Analysis.Extra, "scriptures")
}

func TestDecoderCallerTitleWins(t *testing.T) {
	job := &model.UploadJob{Title: "My Upload Title", FileName: "f.mp3", Kind: model.KindAudio}
	ctx := decode(t, job, "transcript", testutil.GetTestAnalysisJSON())

	record := ctx.Get(commands.RecordKey).(*model.ContentRecord)
	assert.Equal(t, "My Upload Title", record.Title)
}

func TestDecoderMalformedJSONIsExternalServiceError(t *testing.T) {
	job := &model.UploadJob{FileName: "f.mp3", Kind: model.KindAudio}
	ctx := decode(t, job, "transcript", "this is not json")

	assert.True(t, ctx.HasErrors())
	err := ctx.GetErrors()["decode"]
	assert.Equal(t, model.CodeExternalService, model.CodeOf(err))
}

func TestDecoderEmptyInputFails(t *testing.T) {
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())

	cmd := commands.NewAnalysisDecoder("decode")
	assert.False(t, cmd.IsExecutable(ctx))
}

// recordingSaver captures the record it is asked to persist.
type recordingSaver struct {
	saved *model.ContentRecord
	id    string
	err   error
}

func (s *recordingSaver) Save(_ context.Context, record *model.ContentRecord) (string, error) {
	s.saved = record
	return s.id, s.err
}

func TestPersistStoresRecordID(t *testing.T) {
	saver := &recordingSaver{id: "abc123"}
	cmd := commands.NewContentPersist("persist", saver)

	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(commands.RecordKey, &model.ContentRecord{Title: "t"})

	cmd.Execute(ctx)
	assert.False(t, ctx.HasErrors())
	assert.Equal(t, "abc123", ctx.Get(commands.RecordIDKey))
	assert.NotNil(t, saver.saved)
}

func TestPersistFailureIsNonFatal(t *testing.T) {
	saver := &recordingSaver{err: errors.New("store down")}
	cmd := commands.NewContentPersist("persist", saver)

	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(commands.RecordKey, &model.ContentRecord{Title: "t"})

	cmd.Execute(ctx)
	// A failed save must not fail the chain; the analysis is still returned.
	assert.False(t, ctx.HasErrors())
	assert.Equal(t, "", ctx.Get(commands.RecordIDKey))
}

func TestPersistSkipsWithoutSaver(t *testing.T) {
	cmd := commands.NewContentPersist("persist", nil)

	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(commands.RecordKey, &model.ContentRecord{Title: "t"})

	assert.False(t, cmd.IsExecutable(ctx))
}
