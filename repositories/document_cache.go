package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/bracket-sync/models"
)

const CacheKeyPrefix = "ksss_cache_"

type cachedDocument struct {
	Data      json.RawMessage     `json:"data"`
	SHA       models.VersionToken `json:"sha"`
	Timestamp time.Time           `json:"timestamp"`
}

// DocumentCache serves recently read documents for a freshness window.
type DocumentCache struct {
	store  KeyValueStore
	ttl    time.Duration
	clock  Clock
	logger *slog.Logger
}

func NewDocumentCache(store KeyValueStore, ttl time.Duration, clock Clock, logger *slog.Logger) *DocumentCache {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentCache{store: store, ttl: ttl, clock: clock, logger: logger}
}

func CacheKey(grade models.Grade) string {
	return CacheKeyPrefix + "grade" + string(grade)
}

// Get returns a fresh entry. Stale or unreadable entries are removed and reported as a miss.
func (c *DocumentCache) Get(ctx context.Context, grade models.Grade) (*models.Competition, models.VersionToken, bool) {
	key := CacheKey(grade)
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			c.logger.Warn("cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		return nil, "", false
	}

	var entry cachedDocument
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("dropping unreadable cache entry", slog.String("key", key), slog.Any("error", err))
		c.drop(ctx, key)
		return nil, "", false
	}
	if c.clock.Now().Sub(entry.Timestamp) >= c.ttl {
		c.drop(ctx, key)
		return nil, "", false
	}
	doc, err := models.DecodeCompetition(entry.Data)
	if err != nil {
		c.logger.Warn("dropping malformed cached document", slog.String("key", key), slog.Any("error", err))
		c.drop(ctx, key)
		return nil, "", false
	}
	return doc, entry.SHA, true
}

func (c *DocumentCache) Put(ctx context.Context, grade models.Grade, doc *models.Competition, token models.VersionToken) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode cached document: %w", err)
	}
	raw, err := json.Marshal(cachedDocument{Data: data, SHA: token, Timestamp: c.clock.Now()})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return c.store.Set(ctx, CacheKey(grade), raw)
}

func (c *DocumentCache) Invalidate(ctx context.Context, grade models.Grade) error {
	return c.store.Delete(ctx, CacheKey(grade))
}

func (c *DocumentCache) drop(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("cache delete failed", slog.String("key", key), slog.Any("error", err))
	}
}
