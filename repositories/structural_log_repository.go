package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Dosada05/bracket-sync/models"
)

const StructuralLogKey = "ksss_structural_action_log"

type StructuralLogRepository interface {
	Append(ctx context.Context, entry models.AuditEntry) error
	List(ctx context.Context) ([]models.AuditEntry, error)
}

type kvStructuralLogRepository struct {
	mu    sync.Mutex
	store KeyValueStore
}

// NewStructuralLogRepository keeps the newest models.MaxLogEntries entries under StructuralLogKey.
func NewStructuralLogRepository(store KeyValueStore) StructuralLogRepository {
	return &kvStructuralLogRepository{store: store}
}

func (r *kvStructuralLogRepository) Append(ctx context.Context, entry models.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load(ctx)
	if err != nil {
		return err
	}
	entries = models.AppendCapped(entries, entry, models.MaxLogEntries)

	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode structural log: %w", err)
	}
	return r.store.Set(ctx, StructuralLogKey, raw)
}

func (r *kvStructuralLogRepository) List(ctx context.Context) ([]models.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

func (r *kvStructuralLogRepository) load(ctx context.Context) ([]models.AuditEntry, error) {
	raw, err := r.store.Get(ctx, StructuralLogKey)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return []models.AuditEntry{}, nil
		}
		return nil, err
	}
	var entries []models.AuditEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode structural log: %w", err)
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	return entries, nil
}
