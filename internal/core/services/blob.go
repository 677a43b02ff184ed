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

// This file implements the blob service: it issues time-limited signed PUT
// URLs so clients can push large media straight to the relay bucket instead
// of through the API process. Signing goes through the IAM Credentials API,
// which works on GCP infrastructure without local service account keys.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"github.com/faithlence/faithlence/internal/cloud"
	"github.com/faithlence/faithlence/internal/core/model"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

// BlobService issues direct upload claims against the relay bucket and
// sweeps objects that were claimed but never reported complete.
type BlobService struct {
	StorageClient *storage.Client
	IAMClient     *credentials.IamCredentialsClient
	SignerEmail   string
	Bucket        string
	TTL           time.Duration
	MaxBytes      int64
	AllowedTypes  []string
	Retention     time.Duration
	SweepInterval time.Duration
}

// NewBlobService wires the service from the storage config.
func NewBlobService(
	storageClient *storage.Client,
	iamClient *credentials.IamCredentialsClient,
	signerEmail string,
	cfg cloud.Storage) *BlobService {
	ttl := time.Duration(cfg.UploadURLTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	sweep := time.Duration(cfg.RelaySweepIntervalSeconds) * time.Second
	if sweep <= 0 {
		sweep = time.Hour
	}
	return &BlobService{
		StorageClient: storageClient,
		IAMClient:     iamClient,
		SignerEmail:   signerEmail,
		Bucket:        cfg.RelayBucket,
		TTL:           ttl,
		MaxBytes:      cfg.MaxRelayBytes,
		AllowedTypes:  cfg.AllowedContentTypes,
		Retention:     time.Duration(cfg.RelayRetentionSeconds) * time.Second,
		SweepInterval: sweep,
	}
}

// IssueUploadURL validates the declared upload and returns a claim with a
// signed PUT URL. The object name is random; the original file name survives
// only as the extension.
func (s *BlobService) IssueUploadURL(ctx context.Context, fileName string, contentType string, sizeBytes int64) (*model.BlobClaim, error) {
	if s.Bucket == "" {
		return nil, model.NewServiceError(model.CodeInternal, "relay bucket is not configured", nil)
	}
	if contentType == "" {
		return nil, model.ValidationError("contentType is required")
	}
	if !s.typeAllowed(contentType) {
		return nil, model.ValidationError(fmt.Sprintf("content type %q is not accepted for direct upload", contentType))
	}
	if s.MaxBytes > 0 && sizeBytes > s.MaxBytes {
		return nil, model.ValidationError(fmt.Sprintf("declared size %d exceeds the %d byte limit", sizeBytes, s.MaxBytes))
	}

	objectName := uuid.NewString() + strings.ToLower(filepath.Ext(fileName))
	expires := time.Now().Add(s.TTL)

	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "PUT",
		Expires:        expires,
		ContentType:    contentType,
		GoogleAccessID: s.SignerEmail,
		SignBytes: func(b []byte) ([]byte, error) {
			req := &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			}
			resp, err := s.IAMClient.SignBlob(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		},
	}

	u, err := s.StorageClient.Bucket(s.Bucket).SignedURL(objectName, opts)
	if err != nil {
		return nil, model.NewServiceError(model.CodeExternalService,
			fmt.Sprintf("failed to sign upload URL for gs://%s/%s", s.Bucket, objectName), err)
	}

	return &model.BlobClaim{
		Bucket:    s.Bucket,
		Object:    objectName,
		UploadURL: u,
		ExpiresAt: expires.UTC(),
	}, nil
}

// SweepExpiredObjects deletes relay objects older than the retention window.
// Processed uploads are already removed by the pipeline's cleanup, so
// anything this finds belongs to a claim that was never completed.
func (s *BlobService) SweepExpiredObjects(ctx context.Context) (int, error) {
	if s.Bucket == "" || s.Retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-s.Retention)
	bucket := s.StorageClient.Bucket(s.Bucket)

	deleted := 0
	it := bucket.Objects(ctx, nil)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return deleted, model.NewServiceError(model.CodeExternalService,
				fmt.Sprintf("failed to list relay bucket %s", s.Bucket), err)
		}
		if !attrs.Created.Before(cutoff) {
			continue
		}
		if err := bucket.Object(attrs.Name).Delete(ctx); err != nil {
			slog.Warn("failed to delete stale relay object",
				"bucket", s.Bucket, "object", attrs.Name, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// RunSweeper loops SweepExpiredObjects on the configured interval until the
// context is canceled. Intended to run on its own goroutine.
func (s *BlobService) RunSweeper(ctx context.Context) {
	if s.Bucket == "" || s.Retention <= 0 {
		return
	}
	ticker := time.NewTicker(s.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepExpiredObjects(ctx)
			if err != nil {
				slog.Warn("relay sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("relay sweep removed stale objects", "count", n)
			}
		}
	}
}

// typeAllowed checks the declared type against the allow list. Entries
// ending in "/" match the whole top-level type.
func (s *BlobService) typeAllowed(contentType string) bool {
	if len(s.AllowedTypes) == 0 {
		return true
	}
	for _, allowed := range s.AllowedTypes {
		if strings.HasSuffix(allowed, "/") {
			if strings.HasPrefix(contentType, allowed) {
				return true
			}
			continue
		}
		if contentType == allowed {
			return true
		}
	}
	return false
}
