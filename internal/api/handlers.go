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

// This file defines the route handlers. Handlers depend on small interfaces
// rather than the concrete services so tests can drive them with fakes.
package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/faithlence/faithlence/internal/core/model"
	"github.com/faithlence/faithlence/internal/telemetry"
	"github.com/gin-gonic/gin"
)

// UploadRunner processes content submissions through the pipeline.
type UploadRunner interface {
	Process(ctx context.Context, job *model.UploadJob) (*model.UploadResult, error)
	AnalyzeText(ctx context.Context, title string, text string) (*model.UploadResult, error)
}

// ChatRunner answers questions about one stored record.
type ChatRunner interface {
	Chat(ctx context.Context, contentID string, message string, history []model.ChatTurn) (string, error)
}

// ContentStore reads stored records.
type ContentStore interface {
	Get(ctx context.Context, id string) (*model.ContentRecord, error)
	List(ctx context.Context, page, limit int) ([]model.ContentRecord, int64, error)
	History(ctx context.Context) ([]model.HistoryEntry, error)
}

// BlobIssuer grants direct upload claims against the relay bucket.
type BlobIssuer interface {
	IssueUploadURL(ctx context.Context, fileName string, contentType string, sizeBytes int64) (*model.BlobClaim, error)
}

// Handlers holds the route dependencies.
type Handlers struct {
	Uploads UploadRunner
	Chats   ChatRunner
	Store   ContentStore
	Blobs   BlobIssuer
	Logs    *telemetry.LogBuffer

	// MaxUploadBytes caps direct uploads; larger files must use the relay.
	MaxUploadBytes int64
	// InMemoryLimitBytes is the spool-to-disk threshold for direct uploads.
	InMemoryLimitBytes int64
	// StoreAvailable reflects whether persistence is wired, surfaced on the
	// health endpoint.
	StoreAvailable bool
}

// RegisterRoutes attaches every route to the engine. API routes live under
// /api/v1; the health probe stays at the root.
func (h *Handlers) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.Healthz)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/upload", h.Upload)
		apiV1.POST("/analyze", h.Analyze)
		apiV1.POST("/chat", h.Chat)
		apiV1.GET("/content/:id", h.GetContent)
		apiV1.GET("/contents", h.ListContents)
		apiV1.GET("/contents/:id", h.GetContent)
		apiV1.GET("/history", h.History)
		apiV1.POST("/blob-upload", h.IssueBlobUpload)
		apiV1.POST("/blob-upload/completed", h.CompleteBlobUpload)
		apiV1.GET("/debug/logs", h.DebugLogs)
	}
}

// Healthz reports liveness plus whether persistence is degraded.
func (h *Handlers) Healthz(c *gin.Context) {
	respondData(c, http.StatusOK, gin.H{
		"status": "ok",
		"store":  h.StoreAvailable,
	})
}

// Upload accepts one multipart file under the "file" field with an optional
// "title" field. The size decides the transport: small files stay in memory,
// large ones spool to a temp file, anything over the cap is rejected before
// a single pipeline step runs.
func (h *Handlers) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondValidation(c, "multipart field \"file\" is required")
		return
	}
	if h.MaxUploadBytes > 0 && fileHeader.Size > h.MaxUploadBytes {
		respondTooLarge(c, "file exceeds the direct upload limit; request a blob upload instead")
		return
	}

	job := &model.UploadJob{
		Title:    c.PostForm("title"),
		FileName: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
	}

	if fileHeader.Size <= h.InMemoryLimitBytes {
		src, err := fileHeader.Open()
		if err != nil {
			respondError(c, model.NewServiceError(model.CodeInternal, "failed to open upload", err))
			return
		}
		defer func() { _ = src.Close() }()
		data, err := io.ReadAll(src)
		if err != nil {
			respondError(c, model.NewServiceError(model.CodeInternal, "failed to read upload", err))
			return
		}
		job.Transport = model.TransportInMemory
		job.Data = data
	} else {
		tempFile, err := os.CreateTemp("", "upload-")
		if err != nil {
			respondError(c, model.NewServiceError(model.CodeInternal, "failed to spool upload", err))
			return
		}
		_ = tempFile.Close()
		if err := c.SaveUploadedFile(fileHeader, tempFile.Name()); err != nil {
			_ = os.Remove(tempFile.Name())
			respondError(c, model.NewServiceError(model.CodeInternal, "failed to spool upload", err))
			return
		}
		defer func() {
			if err := os.Remove(tempFile.Name()); err != nil {
				slog.Warn("failed to remove spooled upload", "file", tempFile.Name(), "error", err)
			}
		}()
		job.Transport = model.TransportTemporaryFile
		job.TempPath = tempFile.Name()
	}

	h.runJob(c, job)
}

// analyzeRequest is the JSON body of POST /analyze. The payload field is
// "transcription"; "text" is accepted as an alias.
type analyzeRequest struct {
	Title         string `json:"title"`
	Transcription string `json:"transcription"`
	Text          string `json:"text"`
}

// Analyze runs the analysis pipeline over raw text.
func (h *Handlers) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "body must be JSON with a \"transcription\" field")
		return
	}
	text := req.Transcription
	if text == "" {
		text = req.Text
	}
	if text == "" {
		respondValidation(c, "body must carry a \"transcription\" field")
		return
	}
	result, err := h.Uploads.AnalyzeText(c.Request.Context(), req.Title, text)
	if err != nil {
		respondError(c, err)
		return
	}
	respondResult(c, result)
}

// chatRequest is the JSON body of POST /chat.
type chatRequest struct {
	ContentID string           `json:"contentId" binding:"required"`
	Message   string           `json:"message" binding:"required"`
	History   []model.ChatTurn `json:"history"`
}

// Chat answers a question grounded in one stored record.
func (h *Handlers) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "body must be JSON with \"contentId\" and \"message\" fields")
		return
	}
	answer, err := h.Chats.Chat(c.Request.Context(), req.ContentID, req.Message, req.History)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"contentId": req.ContentID,
		"response":  answer,
	})
}

// GetContent returns one stored record.
func (h *Handlers) GetContent(c *gin.Context) {
	record, err := h.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, record)
}

// ListContents returns one page of records plus pagination metadata. The
// clamps run before the store call so the metadata always reflects the
// values the query used.
func (h *Handlers) ListContents(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	records, total, err := h.Store.List(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	pages := (total + int64(limit) - 1) / int64(limit)
	respondData(c, http.StatusOK, gin.H{
		"items": records,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"pages":      pages,
			"totalPages": pages,
		},
	})
}

// History returns the compact recent-activity feed.
func (h *Handlers) History(c *gin.Context) {
	entries, err := h.Store.History(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, entries)
}

// blobUploadRequest is the JSON body of POST /blob-upload.
type blobUploadRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType" binding:"required"`
	SizeBytes   int64  `json:"sizeBytes"`
}

// IssueBlobUpload grants a signed PUT URL for a direct-to-bucket upload.
func (h *Handlers) IssueBlobUpload(c *gin.Context) {
	var req blobUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "body must be JSON with a \"contentType\" field")
		return
	}
	claim, err := h.Blobs.IssueUploadURL(c.Request.Context(), req.FileName, req.ContentType, req.SizeBytes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, claim)
}

// completeBlobRequest is the JSON body of POST /blob-upload/completed.
type completeBlobRequest struct {
	Title    string `json:"title"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Bucket   string `json:"bucket"`
	Object   string `json:"object" binding:"required"`
}

// CompleteBlobUpload processes an object the client pushed to the relay
// bucket via a previously issued claim.
func (h *Handlers) CompleteBlobUpload(c *gin.Context) {
	var req completeBlobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "body must be JSON with an \"object\" field")
		return
	}

	job := &model.UploadJob{
		Title:     req.Title,
		FileName:  req.FileName,
		MimeType:  req.MimeType,
		Transport: model.TransportObjectStoreRelay,
		Blob:      &model.BlobReference{Bucket: req.Bucket, Object: req.Object},
	}
	h.runJob(c, job)
}

// DebugLogs serves the recent in-process log entries, newest first.
func (h *Handlers) DebugLogs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 {
		limit = 100
	}
	respondData(c, http.StatusOK, h.Logs.Recent(limit))
}

// runJob executes one pipeline job and writes the shared upload response.
func (h *Handlers) runJob(c *gin.Context, job *model.UploadJob) {
	result, err := h.Uploads.Process(c.Request.Context(), job)
	if err != nil {
		respondError(c, err)
		return
	}
	respondResult(c, result)
}

// respondResult writes the 201 upload envelope. A processed-but-unsaved
// result keeps the 201 and carries a warning: the caller got the analysis
// it paid for even though the store was down.
func respondResult(c *gin.Context, result *model.UploadResult) {
	data := gin.H{
		"id":            nullableID(result),
		"saved":         result.Saved,
		"title":         result.Title,
		"fileName":      result.FileName,
		"type":          result.Kind,
		"mimeType":      result.MimeType,
		"transcription": result.Transcription,
		"analysis":      result.Analysis,
	}
	if !result.Saved {
		data["warning"] = "content was analyzed but not persisted; the content store is unavailable"
	}
	respondData(c, http.StatusCreated, data)
}

func nullableID(result *model.UploadResult) interface{} {
	if result.RecordID == "" {
		return nil
	}
	return result.RecordID
}
