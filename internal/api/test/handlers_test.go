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

// Package api_test drives the HTTP handlers through httptest with fakes
// behind the handler interfaces.
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/faithlence/faithlence/internal/api"
	"github.com/faithlence/faithlence/internal/core/model"
	"github.com/faithlence/faithlence/internal/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeUploads struct {
	processed []*model.UploadJob
	analyzed  int
	result    *model.UploadResult
	err       error
}

func (f *fakeUploads) Process(_ context.Context, job *model.UploadJob) (*model.UploadResult, error) {
	f.processed = append(f.processed, job)
	return f.result, f.err
}

func (f *fakeUploads) AnalyzeText(_ context.Context, title string, _ string) (*model.UploadResult, error) {
	f.analyzed++
	if f.err != nil {
		return nil, f.err
	}
	out := *f.result
	out.Title = title
	return &out, nil
}

type fakeChats struct {
	calls  int
	answer string
	err    error
}

func (f *fakeChats) Chat(_ context.Context, _ string, _ string, _ []model.ChatTurn) (string, error) {
	f.calls++
	return f.answer, f.err
}

type fakeStore struct {
	record  *model.ContentRecord
	records []model.ContentRecord
	total   int64
	entries []model.HistoryEntry
	err     error

	lastPage  int
	lastLimit int
}

func (f *fakeStore) Get(_ context.Context, _ string) (*model.ContentRecord, error) {
	return f.record, f.err
}

func (f *fakeStore) List(_ context.Context, page, limit int) ([]model.ContentRecord, int64, error) {
	f.lastPage = page
	f.lastLimit = limit
	return f.records, f.total, f.err
}

func (f *fakeStore) History(_ context.Context) ([]model.HistoryEntry, error) {
	return f.entries, f.err
}

type fakeBlobs struct {
	claim *model.BlobClaim
	err   error
}

func (f *fakeBlobs) IssueUploadURL(_ context.Context, _ string, _ string, _ int64) (*model.BlobClaim, error) {
	return f.claim, f.err
}

func okResult() *model.UploadResult {
	return &model.UploadResult{
		RecordID:      "0123456789abcdef01234567",
		Saved:         true,
		Title:         "t",
		FileName:      "devotional.txt",
		Kind:          model.KindText,
		Transcription: "tr",
		Analysis:      &model.AnalysisResult{Title: "t", Summary: "s"},
	}
}

func newRouter(h *api.Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if h.Logs == nil {
		h.Logs = telemetry.NewLogBuffer(10)
	}
	h.RegisterRoutes(r)
	return r
}

func do(r *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, api.Envelope) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var envelope api.Envelope
	_ = json.Unmarshal(w.Body.Bytes(), &envelope)
	return w, envelope
}

func multipartBody(t *testing.T, field, name string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, name)
	assert.NoError(t, err)
	_, err = part.Write(payload)
	assert.NoError(t, err)
	assert.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadSmallFileSucceeds(t *testing.T) {
	uploads := &fakeUploads{result: okResult()}
	r := newRouter(&api.Handlers{Uploads: uploads, MaxUploadBytes: 1 << 20, InMemoryLimitBytes: 1 << 16})

	body, contentType := multipartBody(t, "file", "devotional.txt", []byte("text payload"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)

	w, envelope := do(r, req)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.Timestamp)

	// The payload echoes the file name alongside the analysis.
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, "devotional.txt", data["fileName"])

	assert.Len(t, uploads.processed, 1)
	job := uploads.processed[0]
	assert.Equal(t, model.TransportInMemory, job.Transport)
	assert.Equal(t, "devotional.txt", job.FileName)
}

func TestUploadOversizedFileRejectedBeforeProcessing(t *testing.T) {
	uploads := &fakeUploads{result: okResult()}
	r := newRouter(&api.Handlers{Uploads: uploads, MaxUploadBytes: 16, InMemoryLimitBytes: 8})

	body, contentType := multipartBody(t, "file", "big.mp3", bytes.Repeat([]byte("x"), 64))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)

	w, envelope := do(r, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.False(t, envelope.Success)
	assert.Equal(t, model.CodeInvalidInput, envelope.Error.Code)
	// The pipeline must never start for oversized uploads.
	assert.Empty(t, uploads.processed)
}

func TestUploadMissingFileField(t *testing.T) {
	uploads := &fakeUploads{result: okResult()}
	r := newRouter(&api.Handlers{Uploads: uploads})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")

	w, envelope := do(r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, model.CodeValidation, envelope.Error.Code)
	assert.Empty(t, uploads.processed)
}

func TestUploadDegradedStoreReturnsWarning(t *testing.T) {
	result := okResult()
	result.RecordID = ""
	result.Saved = false
	uploads := &fakeUploads{result: result}
	r := newRouter(&api.Handlers{Uploads: uploads, MaxUploadBytes: 1 << 20, InMemoryLimitBytes: 1 << 16})

	body, contentType := multipartBody(t, "file", "devotional.txt", []byte("text payload"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)

	w, envelope := do(r, req)
	// Processing succeeded even though persistence is down: still a 201.
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, envelope.Success)

	data := envelope.Data.(map[string]interface{})
	assert.Nil(t, data["id"])
	assert.Equal(t, false, data["saved"])
	assert.Contains(t, data["warning"], "not persisted")
}

func TestAnalyzeValidationErrorPropagates(t *testing.T) {
	uploads := &fakeUploads{err: model.ValidationError("text must be at least 50 characters")}
	r := newRouter(&api.Handlers{Uploads: uploads})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze",
		strings.NewReader(`{"title":"x","text":"too short"}`))
	req.Header.Set("Content-Type", "application/json")

	w, envelope := do(r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, model.CodeValidation, envelope.Error.Code)
}

func TestAnalyzeAcceptsTranscriptionField(t *testing.T) {
	uploads := &fakeUploads{result: okResult()}
	r := newRouter(&api.Handlers{Uploads: uploads})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze",
		strings.NewReader(`{"title":"Lilies","transcription":"consider the lilies of the field and how they grow"}`))
	req.Header.Set("Content-Type", "application/json")

	w, envelope := do(r, req)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, envelope.Success)
	assert.Equal(t, 1, uploads.analyzed)
}

func TestAnalyzeRejectsMissingTranscription(t *testing.T) {
	uploads := &fakeUploads{result: okResult()}
	r := newRouter(&api.Handlers{Uploads: uploads})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze",
		strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	w, envelope := do(r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, model.CodeValidation, envelope.Error.Code)
	assert.Zero(t, uploads.analyzed)
}

func TestUpstreamFailureMapsTo503(t *testing.T) {
	uploads := &fakeUploads{err: model.NewServiceError(
		model.CodeExternalService, "all candidate models failed", nil)}
	r := newRouter(&api.Handlers{Uploads: uploads})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze",
		strings.NewReader(`{"transcription":"a perfectly reasonable transcript of fifty characters"}`))
	req.Header.Set("Content-Type", "application/json")

	w, envelope := do(r, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, model.CodeExternalService, envelope.Error.Code)
}

func TestStoreFailureOnReadMapsTo500(t *testing.T) {
	store := &fakeStore{err: model.NewServiceError(
		model.CodeDatabase, "content store is unavailable", nil)}
	r := newRouter(&api.Handlers{Store: store})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/content/0123456789abcdef01234567", nil)
	w, envelope := do(r, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, model.CodeDatabase, envelope.Error.Code)
}

func TestChatUnknownContentReturns404(t *testing.T) {
	chats := &fakeChats{err: model.NotFoundError("content missing not found")}
	r := newRouter(&api.Handlers{Chats: chats})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat",
		strings.NewReader(`{"contentId":"missing","message":"what is this about?"}`))
	req.Header.Set("Content-Type", "application/json")

	w, envelope := do(r, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, model.CodeNotFound, envelope.Error.Code)
}

func TestChatReturnsAnswer(t *testing.T) {
	chats := &fakeChats{answer: "It is about grace."}
	r := newRouter(&api.Handlers{Chats: chats})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat",
		strings.NewReader(`{"contentId":"abc","message":"topic?","history":[{"role":"user","content":"hi"}]}`))
	req.Header.Set("Content-Type", "application/json")

	w, envelope := do(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, "It is about grace.", data["response"])
	assert.Equal(t, "abc", data["contentId"])
}

func TestListContentsPaginationMetadata(t *testing.T) {
	store := &fakeStore{records: []model.ContentRecord{{Title: "a"}, {Title: "b"}}, total: 42}
	r := newRouter(&api.Handlers{Store: store})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/contents?page=2&limit=20", nil)
	w, envelope := do(r, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, store.lastPage)
	assert.Equal(t, 20, store.lastLimit)

	data := envelope.Data.(map[string]interface{})
	pagination := data["pagination"].(map[string]interface{})
	assert.Equal(t, float64(2), pagination["page"])
	assert.Equal(t, float64(20), pagination["limit"])
	assert.Equal(t, float64(42), pagination["total"])
	assert.Equal(t, float64(3), pagination["pages"])
	assert.Equal(t, float64(3), pagination["totalPages"])
}

func TestListContentsClampsBeforeQuery(t *testing.T) {
	store := &fakeStore{total: 250}
	r := newRouter(&api.Handlers{Store: store})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/contents?page=0&limit=1000", nil)
	w, envelope := do(r, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// The store sees the clamped values, and the metadata reports the same.
	assert.Equal(t, 1, store.lastPage)
	assert.Equal(t, 100, store.lastLimit)
	data := envelope.Data.(map[string]interface{})
	pagination := data["pagination"].(map[string]interface{})
	assert.Equal(t, float64(1), pagination["page"])
	assert.Equal(t, float64(100), pagination["limit"])
	assert.Equal(t, float64(3), pagination["pages"])
}

func TestGetContentNotFound(t *testing.T) {
	store := &fakeStore{err: model.NotFoundError("content abc not found")}
	r := newRouter(&api.Handlers{Store: store})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/content/abc", nil)
	w, envelope := do(r, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, envelope.Success)
}

func TestBlobUploadIssuesClaim(t *testing.T) {
	blobs := &fakeBlobs{claim: &model.BlobClaim{Bucket: "relay", Object: "obj", UploadURL: "https://signed"}}
	r := newRouter(&api.Handlers{Blobs: blobs})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/blob-upload",
		strings.NewReader(`{"fileName":"sermon.mp4","contentType":"video/mp4","sizeBytes":1000}`))
	req.Header.Set("Content-Type", "application/json")

	w, envelope := do(r, req)
	assert.Equal(t, http.StatusCreated, w.Code)
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, "https://signed", data["uploadUrl"])
}

func TestCompleteBlobUploadBuildsRelayJob(t *testing.T) {
	uploads := &fakeUploads{result: okResult()}
	r := newRouter(&api.Handlers{Uploads: uploads})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/blob-upload/completed",
		strings.NewReader(`{"title":"Sermon","object":"obj-1","bucket":"relay","mimeType":"video/mp4"}`))
	req.Header.Set("Content-Type", "application/json")

	w, _ := do(r, req)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, uploads.processed, 1)
	job := uploads.processed[0]
	assert.Equal(t, model.TransportObjectStoreRelay, job.Transport)
	assert.Equal(t, "obj-1", job.Blob.Object)
	assert.Equal(t, "relay", job.Blob.Bucket)
}

func TestHealthzReportsStore(t *testing.T) {
	r := newRouter(&api.Handlers{StoreAvailable: true})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w, envelope := do(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, true, data["store"])
}

func TestDebugLogsHonorsLimit(t *testing.T) {
	buffer := telemetry.NewLogBuffer(10)
	for i := 0; i < 5; i++ {
		buffer.Append(telemetry.LogEntry{Severity: "INFO", Message: "entry"})
	}
	r := newRouter(&api.Handlers{Logs: buffer})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/debug/logs?limit=3", nil)
	w, envelope := do(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	entries := envelope.Data.([]interface{})
	assert.Len(t, entries, 3)
}
