package driven

import (
	"context"

	"github.com/custodia-labs/recon/internal/core/domain"
)

// DocumentStore is the tenant-scoped document database the toolkit
// reconciles. Backed by Firestore in production and SQLite locally.
//
// Implementations must return domain.ErrNotFound for missing documents and
// wrap transport failures in domain.ErrStoreUnavailable so callers can tell
// "confirmed missing" from "lookup failed".
type DocumentStore interface {
	// Query returns up to q.Limit records matching q.Filter, ordered by ID.
	// Records of other tenants are never returned.
	Query(ctx context.Context, q domain.Query) ([]domain.Record, error)

	// GetByID retrieves a single document regardless of tenant.
	GetByID(ctx context.Context, collection, id string) (*domain.Record, error)

	// BatchDelete removes the given documents atomically.
	// Missing IDs are ignored. len(ids) must not exceed MaxBatchSize.
	BatchDelete(ctx context.Context, collection string, ids []string) error

	// BatchUpdate patches fields on the given documents atomically.
	// A nil field value sets the field to null.
	BatchUpdate(ctx context.Context, collection string, updates []domain.FieldUpdate) error

	// Count returns the number of documents matching filter.
	Count(ctx context.Context, collection string, filter domain.Filter) (int, error)

	// MaxBatchSize is the largest atomic write the store accepts.
	MaxBatchSize() int

	// Close releases connections held by the store.
	Close() error
}
