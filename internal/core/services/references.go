package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driven"
	"github.com/custodia-labs/recon/internal/core/ports/driving"
	"github.com/custodia-labs/recon/internal/logger"
)

// Ensure ReferenceChecker implements the interface.
var _ driving.ReferenceService = (*ReferenceChecker)(nil)

// ReferenceChecker finds foreign keys that do not resolve inside their tenant.
type ReferenceChecker struct {
	store    driven.DocumentStore
	pageSize int
}

// NewReferenceChecker creates a checker reading pageSize records per query.
func NewReferenceChecker(store driven.DocumentStore, pageSize int) *ReferenceChecker {
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	return &ReferenceChecker{store: store, pageSize: pageSize}
}

// lookup is the memoised outcome of resolving one target ID.
type lookup struct {
	found    bool
	tenantID string
}

// Check returns every broken reference in the tenant's source collection.
// Null and blank references are not broken. A failed lookup aborts the
// check rather than reporting the reference as missing.
func (c *ReferenceChecker) Check(ctx context.Context, req driving.CheckRequest) ([]domain.BrokenReference, error) {
	switch {
	case req.SourceCollection == "":
		return nil, invalidArg("source collection is required")
	case req.TargetCollection == "":
		return nil, invalidArg("target collection is required")
	case req.ReferenceField == "":
		return nil, invalidArg("reference field is required")
	case req.TenantID == "":
		return nil, invalidArg("tenant ID is required")
	}

	logger.Section("Reference check")
	records, err := scanTenant(ctx, c.store, req.SourceCollection, domain.Filter{TenantID: req.TenantID}, c.pageSize)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]lookup)
	var broken []domain.BrokenReference
	for i := range records {
		r := records[i]
		v, ok := r.Field(req.ReferenceField)
		if !ok {
			continue
		}

		ref := domain.BrokenReference{
			SourceCollection: req.SourceCollection,
			SourceID:         r.ID,
			TenantID:         req.TenantID,
			Field:            req.ReferenceField,
		}

		target, isString := v.(string)
		if !isString {
			ref.DanglingTargetID = fmt.Sprintf("%v", v)
			ref.Kind = domain.BrokenMalformed
			broken = append(broken, ref)
			continue
		}
		if strings.TrimSpace(target) == "" {
			continue
		}
		ref.DanglingTargetID = target

		res, cached := seen[target]
		if !cached {
			res, err = c.resolve(ctx, req.TargetCollection, target)
			if err != nil {
				return nil, errors.Wrapf(err, "resolving %s.%s of %s", req.ReferenceField, target, r.ID)
			}
			seen[target] = res
		}

		switch {
		case !res.found:
			ref.Kind = domain.BrokenMissing
		case res.tenantID != req.TenantID:
			ref.Kind = domain.BrokenCrossTenant
		default:
			continue
		}
		broken = append(broken, ref)
	}

	logger.Debug("checked %d %s records: %d broken references", len(records), req.SourceCollection, len(broken))
	return broken, nil
}

func (c *ReferenceChecker) resolve(ctx context.Context, collection, id string) (lookup, error) {
	rec, err := c.store.GetByID(ctx, collection, id)
	switch {
	case err == nil:
		return lookup{found: true, tenantID: rec.TenantID}, nil
	case errors.Is(err, domain.ErrNotFound):
		return lookup{}, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return lookup{}, err
	default:
		return lookup{}, fmt.Errorf("%w: %w", domain.ErrReferenceLookupFailed, storeFailure(err))
	}
}

// Repair nulls each broken reference that is still present and still
// holds the dangling value. Fields that changed since detection are left
// alone, so running it twice performs no second write.
func (c *ReferenceChecker) Repair(ctx context.Context, refs []domain.BrokenReference) (int, error) {
	for i := range refs {
		if refs[i].SourceCollection == "" || refs[i].SourceID == "" ||
			refs[i].Field == "" || refs[i].TenantID == "" {
			return 0, invalidArg("broken reference %d is incomplete", i)
		}
	}

	// Preserve input order per collection.
	var order []string
	pending := make(map[string][]domain.FieldUpdate)
	queued := make(map[string]bool)

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		dedup := ref.SourceCollection + "\x00" + ref.SourceID + "\x00" + ref.Field
		if queued[dedup] {
			continue
		}

		current, err := c.store.GetByID(ctx, ref.SourceCollection, ref.SourceID)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("skipping repair of %s/%s: record gone", ref.SourceCollection, ref.SourceID)
			continue
		}
		if err != nil {
			return 0, errors.Wrapf(storeFailure(err), "re-reading %s/%s", ref.SourceCollection, ref.SourceID)
		}
		if current.TenantID != ref.TenantID {
			logger.Warn("skipping repair of %s/%s: record belongs to tenant %q, not %q",
				ref.SourceCollection, ref.SourceID, current.TenantID, ref.TenantID)
			continue
		}
		if !stillDangling(*current, ref) {
			continue
		}

		queued[dedup] = true
		if _, ok := pending[ref.SourceCollection]; !ok {
			order = append(order, ref.SourceCollection)
		}
		pending[ref.SourceCollection] = append(pending[ref.SourceCollection], domain.FieldUpdate{
			ID:     ref.SourceID,
			Fields: map[string]any{ref.Field: nil},
		})
	}

	cleared := 0
	batch := c.store.MaxBatchSize()
	if batch <= 0 {
		batch = domain.DefaultPageSize
	}
	for _, collection := range order {
		updates := pending[collection]
		for start := 0; start < len(updates); start += batch {
			end := min(start+batch, len(updates))
			if err := c.store.BatchUpdate(ctx, collection, updates[start:end]); err != nil {
				return cleared, errors.Wrapf(storeFailure(err), "clearing references in %s", collection)
			}
			cleared += end - start
			logger.Debug("cleared %d references in %s", end-start, collection)
		}
	}
	return cleared, nil
}

// stillDangling reports whether the field still holds the value that was
// found broken. An empty DanglingTargetID clears any non-null value.
func stillDangling(current domain.Record, ref domain.BrokenReference) bool {
	v, ok := current.Field(ref.Field)
	if !ok {
		return false
	}
	if ref.DanglingTargetID == "" {
		return true
	}
	return fmt.Sprintf("%v", v) == ref.DanglingTargetID
}

// PlanReferences turns broken references into a plan of field clears.
func PlanReferences(tenantID string, refs []domain.BrokenReference) *domain.ReconciliationPlan {
	plan := newPlan(tenantID, domain.PlanKindReferences)
	for _, ref := range refs {
		plan.Entries = append(plan.Entries, domain.PlanEntry{
			Action:     domain.ActionClearField,
			Collection: ref.SourceCollection,
			TargetID:   ref.SourceID,
			Field:      ref.Field,
			Expected:   ref.DanglingTargetID,
			Reason:     fmt.Sprintf("%s reference to %s", ref.Kind, ref.DanglingTargetID),
		})
	}
	return plan
}
