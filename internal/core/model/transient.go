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

// This file holds the transient types that move through the upload pipeline
// in memory; none of them are persisted in this form.
package model

import "time"

// TransportKind names how upload bytes travel into the pipeline.
type TransportKind int

const (
	// TransportInMemory keeps the payload in the request buffer. Used for
	// small direct uploads.
	TransportInMemory TransportKind = iota
	// TransportTemporaryFile spools the payload to a tracked temp file.
	// Used for large direct uploads.
	TransportTemporaryFile
	// TransportObjectStoreRelay fetches the payload from an object the
	// client uploaded out of band; the object is deleted after processing.
	TransportObjectStoreRelay
)

func (k TransportKind) String() string {
	switch k {
	case TransportInMemory:
		return "in_memory"
	case TransportTemporaryFile:
		return "temporary_file"
	case TransportObjectStoreRelay:
		return "object_store_relay"
	default:
		return "unknown"
	}
}

// BlobReference points at a relay object awaiting processing.
type BlobReference struct {
	Bucket string `json:"bucket,omitempty"`
	Object string `json:"object"`
}

// UploadJob is the unit of work submitted to the upload pipeline. Exactly
// one of Data, TempPath, or Blob is set, matching Transport. Text
// submissions skip transcription and carry their payload in Text.
type UploadJob struct {
	Title     string
	FileName  string
	MimeType  string
	Kind      string
	Transport TransportKind
	Data      []byte
	TempPath  string
	Blob      *BlobReference
	Text      string
}

// UploadResult is what the pipeline hands back to the API layer.
// RecordID is empty when persistence was skipped or failed; Saved
// distinguishes the degraded case so the handler can attach a warning.
type UploadResult struct {
	RecordID      string
	Saved         bool
	Title         string
	FileName      string
	Kind          string
	MimeType      string
	Transcription string
	Analysis      *AnalysisResult
}

// BlobClaim is an issued permission to upload one object directly to the
// relay bucket.
type BlobClaim struct {
	Bucket    string    `json:"bucket"`
	Object    string    `json:"object"`
	UploadURL string    `json:"uploadUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}
