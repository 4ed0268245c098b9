package driving

import (
	"context"

	"github.com/custodia-labs/recon/internal/core/domain"
)

// KeyFunc derives the dedup key of a record. It must be total: missing
// fields map to documented sentinels, never to a panic.
type KeyFunc func(domain.Record) string

// TieBreakFunc selects the surviving record of a duplicate group.
// It is only called with two or more records.
type TieBreakFunc func([]domain.Record) domain.Record

// DetectRequest parameterises duplicate detection.
type DetectRequest struct {
	Collection string
	TenantID   string

	// KeyFunc defaults to the external source/ID key when nil.
	KeyFunc KeyFunc

	// TieBreak defaults to newest-first when nil.
	TieBreak TieBreakFunc
}

// DuplicateService finds duplicate records. Read only.
type DuplicateService interface {
	// Detect groups the tenant's records by key, one group per key.
	Detect(ctx context.Context, req DetectRequest) ([]domain.DuplicateGroup, error)
}

// CheckRequest parameterises a reference integrity check.
type CheckRequest struct {
	SourceCollection string
	ReferenceField   string
	TargetCollection string
	TenantID         string
}

// ReferenceService finds and repairs dangling foreign keys.
type ReferenceService interface {
	// Check returns every broken reference. Read only.
	Check(ctx context.Context, req CheckRequest) ([]domain.BrokenReference, error)

	// Repair clears each broken reference still present and returns the
	// number of fields cleared. Re-running it is a no-op.
	Repair(ctx context.Context, refs []domain.BrokenReference) (int, error)
}

// PurgeService deletes tenant-scoped documents in bounded pages.
type PurgeService interface {
	// Purge deletes everything matching req page by page. onPage may be nil.
	Purge(ctx context.Context, req domain.PurgeRequest, onPage func(domain.PurgeProgress)) (domain.PurgeResult, error)

	// Count returns how many documents a purge would currently match.
	Count(ctx context.Context, collection string, filter domain.Filter) (int, error)
}

// PlanService applies reconciliation plans.
type PlanService interface {
	// Apply executes the plan. It is the only mutating entry point for plans.
	Apply(ctx context.Context, plan *domain.ReconciliationPlan) (domain.ApplyResult, error)
}
