package metadata

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/filebroker/internal/common"
)

// InMemoryRepository is a map-backed Repository used in tests and as the
// "memory" backend for local experiments. Rows are never expired.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{records: make(map[string]Record)}
}

func (r *InMemoryRepository) Put(ctx context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.FileID] = *record
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, fileID string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[fileID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &record, nil
}

func (r *InMemoryRepository) ScanAll(ctx context.Context) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Record, 0, len(r.records))
	for _, record := range r.records {
		record := record
		result = append(result, &record)
	}
	// Stable order keeps listings and tests deterministic.
	sort.Slice(result, func(i, j int) bool { return result[i].FileID < result[j].FileID })
	return result, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, fileID)
	return nil
}
