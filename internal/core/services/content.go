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

// Package services contains the business logic between the HTTP layer and
// the pipelines. This file implements the content record store on MongoDB
// with an optional Redis read cache for single-record lookups.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/faithlence/faithlence/internal/cloud"
	"github.com/faithlence/faithlence/internal/core/model"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// ListLimitMax caps a single page of the content listing.
	ListLimitMax = 100
	// ListLimitDefault applies when the caller gives no limit.
	ListLimitDefault = 10
	// HistoryLimit is the fixed size of the history feed.
	HistoryLimit = 50

	cacheKeyPrefix = "content:"
)

// ContentService persists and retrieves content records. A nil collection
// puts the service in degraded mode: every call returns a database error and
// the pipeline's persist step skips itself.
type ContentService struct {
	collection *mongo.Collection
	cache      *redis.Client
	cacheTTL   time.Duration
}

// NewContentService wires the store from the Mongo client and cache config.
// mongoClient may be nil when the store is unreachable.
func NewContentService(mongoClient *mongo.Client, storeCfg cloud.ContentStore, cache *redis.Client, cacheCfg cloud.Cache) *ContentService {
	svc := &ContentService{
		cache:    cache,
		cacheTTL: time.Duration(cacheCfg.TTLSeconds) * time.Second,
	}
	if svc.cacheTTL <= 0 {
		svc.cacheTTL = 5 * time.Minute
	}
	if mongoClient != nil {
		svc.collection = mongoClient.Database(storeCfg.Database).Collection(storeCfg.Collection)
	}
	return svc
}

// Available reports whether the backing store is wired.
func (s *ContentService) Available() bool {
	return s.collection != nil
}

// Save inserts a record and returns its hex id. The record's ID and
// timestamps are set in place.
func (s *ContentService) Save(ctx context.Context, record *model.ContentRecord) (string, error) {
	if s.collection == nil {
		return "", model.NewServiceError(model.CodeDatabase, "content store is unavailable", nil)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	record.UpdatedAt = time.Now().UTC()

	res, err := s.collection.InsertOne(ctx, record)
	if err != nil {
		return "", model.NewServiceError(model.CodeDatabase, "failed to insert content record", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", model.NewServiceError(model.CodeDatabase,
			fmt.Sprintf("unexpected inserted id type %T", res.InsertedID), nil)
	}
	record.ID = oid
	return oid.Hex(), nil
}

// Get returns one record by hex id, consulting the cache first.
func (s *ContentService) Get(ctx context.Context, id string) (*model.ContentRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, model.NewServiceError(model.CodeValidation,
			fmt.Sprintf("invalid content id %q", id), err)
	}
	// The cache answers first so reads keep working through short store
	// outages.
	if cached := s.cacheGet(ctx, id); cached != nil {
		return cached, nil
	}
	if s.collection == nil {
		return nil, model.NewServiceError(model.CodeDatabase, "content store is unavailable", nil)
	}

	var record model.ContentRecord
	err = s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.NotFoundError(fmt.Sprintf("content %s not found", id))
	}
	if err != nil {
		return nil, model.NewServiceError(model.CodeDatabase, "failed to load content record", err)
	}

	s.cacheSet(ctx, id, &record)
	return &record, nil
}

// List returns one page of records, newest first, plus the total count.
// page is 1-based; out-of-range values are clamped rather than rejected.
func (s *ContentService) List(ctx context.Context, page, limit int) ([]model.ContentRecord, int64, error) {
	if s.collection == nil {
		return nil, 0, model.NewServiceError(model.CodeDatabase, "content store is unavailable", nil)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = ListLimitDefault
	}
	if limit > ListLimitMax {
		limit = ListLimitMax
	}

	total, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, model.NewServiceError(model.CodeDatabase, "failed to count content records", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(page-1) * int64(limit)).
		SetLimit(int64(limit))
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, model.NewServiceError(model.CodeDatabase, "failed to list content records", err)
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			slog.Warn("failed to close list cursor", "error", err)
		}
	}()

	records := make([]model.ContentRecord, 0, limit)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, 0, model.NewServiceError(model.CodeDatabase, "failed to decode content records", err)
	}
	return records, total, nil
}

// History returns the last HistoryLimit records as compact entries with
// truncated summaries, newest first.
func (s *ContentService) History(ctx context.Context) ([]model.HistoryEntry, error) {
	if s.collection == nil {
		return nil, model.NewServiceError(model.CodeDatabase, "content store is unavailable", nil)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(HistoryLimit).
		SetProjection(bson.M{
			"title":            1,
			"type":             1,
			"created_at":       1,
			"analysis.summary": 1,
		})
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, model.NewServiceError(model.CodeDatabase, "failed to load history", err)
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			slog.Warn("failed to close history cursor", "error", err)
		}
	}()

	var records []model.ContentRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, model.NewServiceError(model.CodeDatabase, "failed to decode history", err)
	}

	entries := make([]model.HistoryEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, model.HistoryEntry{
			ID:        record.ID.Hex(),
			Title:     record.Title,
			Summary:   model.TruncateSummary(record.Analysis.Summary),
			Timestamp: record.CreatedAt,
			Type:      record.Kind,
		})
	}
	return entries, nil
}

// cacheGet is best effort: any cache failure falls through to the store.
func (s *ContentService) cacheGet(ctx context.Context, id string) *model.ContentRecord {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, cacheKeyPrefix+id).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("content cache read failed", "id", id, "error", err)
		}
		return nil
	}
	var record model.ContentRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		slog.Warn("content cache entry is corrupt, dropping", "id", id, "error", err)
		s.cache.Del(ctx, cacheKeyPrefix+id)
		return nil
	}
	return &record
}

func (s *ContentService) cacheSet(ctx context.Context, id string, record *model.ContentRecord) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKeyPrefix+id, raw, s.cacheTTL).Err(); err != nil {
		slog.Warn("content cache write failed", "id", id, "error", err)
	}
}
