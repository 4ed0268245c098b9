package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// Batches are all-or-nothing: a batch is validated in full before any
// document is touched.
type DocumentStore struct {
	mu           sync.RWMutex
	collections  map[string]map[string]domain.Record
	maxBatchSize int
}

// NewDocumentStore creates a new in-memory document store with the
// default batch limit.
func NewDocumentStore() *DocumentStore {
	return NewDocumentStoreWithBatchSize(domain.DefaultPageSize)
}

// NewDocumentStoreWithBatchSize creates an in-memory store with a custom
// batch limit.
func NewDocumentStoreWithBatchSize(maxBatchSize int) *DocumentStore {
	if maxBatchSize <= 0 {
		maxBatchSize = domain.DefaultPageSize
	}
	return &DocumentStore{
		collections:  make(map[string]map[string]domain.Record),
		maxBatchSize: maxBatchSize,
	}
}

// Put stores or replaces a record. Used to seed collections.
func (s *DocumentStore) Put(_ context.Context, collection string, rec domain.Record) error {
	if collection == "" || rec.ID == "" {
		return fmt.Errorf("%w: collection and id are required", domain.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]domain.Record)
		s.collections[collection] = docs
	}
	docs[rec.ID] = rec.Clone()
	return nil
}

// Query returns matching records ordered by ID.
func (s *DocumentStore) Query(_ context.Context, q domain.Query) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[q.Collection]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		if q.StartAfter != "" && id <= q.StartAfter {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var result []domain.Record
	for _, id := range ids {
		rec := docs[id]
		if !q.Filter.Matches(rec) {
			continue
		}
		result = append(result, rec.Clone())
		if q.Limit > 0 && len(result) >= q.Limit {
			break
		}
	}
	return result, nil
}

// GetByID retrieves a record by ID.
func (s *DocumentStore) GetByID(_ context.Context, collection, id string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.collections[collection][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := rec.Clone()
	return &out, nil
}

// BatchDelete removes records atomically.
func (s *DocumentStore) BatchDelete(_ context.Context, collection string, ids []string) error {
	if len(ids) > s.maxBatchSize {
		return fmt.Errorf("%w: %d deletes exceeds %d", domain.ErrBatchTooLarge, len(ids), s.maxBatchSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collections[collection]
	for _, id := range ids {
		delete(docs, id)
	}
	return nil
}

// BatchUpdate patches records atomically. Every target must exist.
func (s *DocumentStore) BatchUpdate(_ context.Context, collection string, updates []domain.FieldUpdate) error {
	if len(updates) > s.maxBatchSize {
		return fmt.Errorf("%w: %d updates exceeds %d", domain.ErrBatchTooLarge, len(updates), s.maxBatchSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[collection]
	for _, u := range updates {
		if _, ok := docs[u.ID]; !ok {
			return fmt.Errorf("updating %s/%s: %w", collection, u.ID, domain.ErrNotFound)
		}
	}

	for _, u := range updates {
		rec := docs[u.ID].Clone()
		if rec.Fields == nil {
			rec.Fields = make(map[string]any, len(u.Fields))
		}
		for k, v := range u.Fields {
			rec.Fields[k] = v
		}
		docs[u.ID] = rec
	}
	return nil
}

// Count returns the number of matching records.
func (s *DocumentStore) Count(_ context.Context, collection string, filter domain.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.collections[collection] {
		if filter.Matches(rec) {
			n++
		}
	}
	return n, nil
}

// MaxBatchSize returns the batch limit.
func (s *DocumentStore) MaxBatchSize() int {
	return s.maxBatchSize
}

// Close is a no-op.
func (s *DocumentStore) Close() error {
	return nil
}
