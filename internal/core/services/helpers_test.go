package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recon/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driven"
)

// countingStore wraps a DocumentStore and records write calls. Hooks
// let tests inject failures or misbehaviour.
type countingStore struct {
	driven.DocumentStore

	mu        sync.Mutex
	deletes   int
	updates   int
	deleted   []string
	onQuery   func(q domain.Query, recs []domain.Record) ([]domain.Record, error)
	onGet     func(collection, id string) error
	onDelete  func() error
	deleteErr error
	dropWrite bool
}

func (s *countingStore) Query(ctx context.Context, q domain.Query) ([]domain.Record, error) {
	recs, err := s.DocumentStore.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if s.onQuery != nil {
		return s.onQuery(q, recs)
	}
	return recs, nil
}

func (s *countingStore) GetByID(ctx context.Context, collection, id string) (*domain.Record, error) {
	if s.onGet != nil {
		if err := s.onGet(collection, id); err != nil {
			return nil, err
		}
	}
	return s.DocumentStore.GetByID(ctx, collection, id)
}

func (s *countingStore) BatchDelete(ctx context.Context, collection string, ids []string) error {
	s.mu.Lock()
	s.deletes++
	s.deleted = append(s.deleted, ids...)
	s.mu.Unlock()
	if s.onDelete != nil {
		if err := s.onDelete(); err != nil {
			return err
		}
	}
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if s.dropWrite {
		return nil
	}
	return s.DocumentStore.BatchDelete(ctx, collection, ids)
}

func (s *countingStore) BatchUpdate(ctx context.Context, collection string, updates []domain.FieldUpdate) error {
	s.mu.Lock()
	s.updates++
	s.mu.Unlock()
	return s.DocumentStore.BatchUpdate(ctx, collection, updates)
}

func (s *countingStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletes + s.updates
}

func newStores(t *testing.T) (*memory.DocumentStore, *countingStore) {
	t.Helper()
	mem := memory.NewDocumentStore()
	return mem, &countingStore{DocumentStore: mem}
}

func put(t *testing.T, store *memory.DocumentStore, collection string, recs ...domain.Record) {
	t.Helper()
	for _, r := range recs {
		require.NoError(t, store.Put(context.Background(), collection, r))
	}
}

func rec(id, tenant string, fields map[string]any) domain.Record {
	return domain.Record{ID: id, TenantID: tenant, Fields: fields}
}

var errBoom = errors.New("connection reset")

type batchStore struct {
	mem   *memory.DocumentStore
	store *countingStore
}

func newBatchStore(t *testing.T, size int) batchStore {
	t.Helper()
	mem := memory.NewDocumentStoreWithBatchSize(size)
	return batchStore{mem: mem, store: &countingStore{DocumentStore: mem}}
}
