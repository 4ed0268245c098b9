package services

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driven"
	"github.com/custodia-labs/recon/internal/core/ports/driving"
	"github.com/custodia-labs/recon/internal/logger"
)

// Ensure BulkPurger implements the interface.
var _ driving.PurgeService = (*BulkPurger)(nil)

// BulkPurger deletes tenant-scoped documents one bounded page at a time.
type BulkPurger struct {
	store driven.DocumentStore
}

// NewBulkPurger creates a purger over store.
func NewBulkPurger(store driven.DocumentStore) *BulkPurger {
	return &BulkPurger{store: store}
}

// Purge deletes every document matching req. Each page is re-queried from
// the start of the result set, so an interrupted run resumes by calling
// Purge again with the same request.
func (p *BulkPurger) Purge(
	ctx context.Context,
	req domain.PurgeRequest,
	onPage func(domain.PurgeProgress),
) (domain.PurgeResult, error) {
	var result domain.PurgeResult

	if req.Collection == "" {
		return result, invalidArg("collection is required")
	}
	tenantID := req.Filter.TenantID
	if tenantID == "" {
		return result, invalidArg("tenant filter is required")
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	if limit := p.store.MaxBatchSize(); limit > 0 && pageSize > limit {
		return result, invalidArg("page size %d exceeds store batch limit %d", pageSize, limit)
	}

	logger.Section("Purge")
	var previous map[string]struct{}
	for {
		if err := ctx.Err(); err != nil {
			return result, interrupted(err, req, result)
		}

		recs, err := p.store.Query(ctx, domain.Query{
			Collection: req.Collection,
			Filter:     req.Filter,
			Limit:      pageSize,
		})
		if err != nil {
			if ctx.Err() != nil {
				return result, interrupted(err, req, result)
			}
			return result, errors.Wrapf(storeFailure(err), "querying %s page %d", req.Collection, result.Pages+1)
		}
		if len(recs) == 0 {
			break
		}

		ids := make([]string, 0, len(recs))
		current := make(map[string]struct{}, len(recs))
		for i := range recs {
			if recs[i].TenantID != tenantID {
				return result, errors.Wrapf(domain.ErrTenantMismatch,
					"%s/%s belongs to tenant %q, purge is scoped to %q",
					req.Collection, recs[i].ID, recs[i].TenantID, tenantID)
			}
			if _, again := previous[recs[i].ID]; again {
				return result, errors.WithHint(
					errors.Wrapf(domain.ErrPurgeStalled, "%s/%s reappeared after deletion", req.Collection, recs[i].ID),
					"the store may not apply deletes before the next read; retry once it is consistent")
			}
			ids = append(ids, recs[i].ID)
			current[recs[i].ID] = struct{}{}
		}

		if err := p.store.BatchDelete(ctx, req.Collection, ids); err != nil {
			if ctx.Err() != nil {
				return result, interrupted(err, req, result)
			}
			return result, errors.Wrapf(storeFailure(err), "deleting %s page %d", req.Collection, result.Pages+1)
		}

		result.Pages++
		result.DeletedCount += len(ids)
		previous = current
		logger.Debug("deleted page %d of %s: %d documents (%d total)",
			result.Pages, req.Collection, len(ids), result.DeletedCount)
		if onPage != nil {
			onPage(domain.PurgeProgress{
				Page:         result.Pages,
				PageDeleted:  len(ids),
				DeletedSoFar: result.DeletedCount,
			})
		}
	}

	logger.Info("purged %d documents from %s in %d pages", result.DeletedCount, req.Collection, result.Pages)
	return result, nil
}

func interrupted(cause error, req domain.PurgeRequest, result domain.PurgeResult) error {
	err := fmt.Errorf("%w after %d documents in %d pages: %w",
		domain.ErrPurgeInterrupted, result.DeletedCount, result.Pages, cause)
	return errors.WithHint(err, fmt.Sprintf(
		"re-run the purge of %s for tenant %s to resume; deleted pages are not revisited",
		req.Collection, req.Filter.TenantID))
}

// Count returns the number of documents a purge with filter would delete.
func (p *BulkPurger) Count(ctx context.Context, collection string, filter domain.Filter) (int, error) {
	if collection == "" {
		return 0, invalidArg("collection is required")
	}
	if filter.TenantID == "" {
		return 0, invalidArg("tenant filter is required")
	}
	n, err := p.store.Count(ctx, collection, filter)
	if err != nil {
		return 0, errors.Wrapf(storeFailure(err), "counting %s", collection)
	}
	return n, nil
}

// DeleteIDs deletes the listed documents in store-sized batches. Each
// target is re-read first; documents that are gone or owned by another
// tenant are skipped. It returns the number deleted and skipped.
func (p *BulkPurger) DeleteIDs(
	ctx context.Context,
	collection, tenantID string,
	ids []string,
	onPage func(domain.PurgeProgress),
) (deleted, skipped int, err error) {
	if collection == "" {
		return 0, 0, invalidArg("collection is required")
	}
	if tenantID == "" {
		return 0, 0, invalidArg("tenant ID is required")
	}

	batch := p.store.MaxBatchSize()
	if batch <= 0 || batch > domain.DefaultPageSize {
		batch = domain.DefaultPageSize
	}

	seen := make(map[string]bool, len(ids))
	page := 0
	for start := 0; start < len(ids); start += batch {
		if err := ctx.Err(); err != nil {
			return deleted, skipped, errors.Wrapf(err, "deleting from %s", collection)
		}

		end := min(start+batch, len(ids))
		confirmed := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			if seen[id] {
				skipped++
				continue
			}
			seen[id] = true

			rec, err := p.store.GetByID(ctx, collection, id)
			if errors.Is(err, domain.ErrNotFound) {
				skipped++
				continue
			}
			if err != nil {
				return deleted, skipped, errors.Wrapf(storeFailure(err), "re-reading %s/%s", collection, id)
			}
			if rec.TenantID != tenantID {
				logger.Warn("not deleting %s/%s: belongs to tenant %q, not %q",
					collection, id, rec.TenantID, tenantID)
				skipped++
				continue
			}
			confirmed = append(confirmed, id)
		}
		if len(confirmed) == 0 {
			continue
		}

		if err := p.store.BatchDelete(ctx, collection, confirmed); err != nil {
			return deleted, skipped, errors.Wrapf(storeFailure(err), "deleting from %s", collection)
		}
		page++
		deleted += len(confirmed)
		if onPage != nil {
			onPage(domain.PurgeProgress{Page: page, PageDeleted: len(confirmed), DeletedSoFar: deleted})
		}
	}
	return deleted, skipped, nil
}
