package services

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driven"
	"github.com/custodia-labs/recon/internal/logger"
)

// scanTenant reads every record of a tenant using ID-cursor pages.
// Records reported under another tenant are dropped with a warning.
func scanTenant(
	ctx context.Context,
	store driven.DocumentStore,
	collection string,
	filter domain.Filter,
	pageSize int,
) ([]domain.Record, error) {
	var (
		all    []domain.Record
		cursor string
	)
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "scanning %s", collection)
		}

		recs, err := store.Query(ctx, domain.Query{
			Collection: collection,
			Filter:     filter,
			Limit:      pageSize,
			StartAfter: cursor,
		})
		if err != nil {
			return nil, errors.Wrapf(storeFailure(err), "scanning %s page %d", collection, page)
		}

		for i := range recs {
			if recs[i].TenantID != filter.TenantID {
				logger.Warn("skipping %s/%s: belongs to tenant %q, not %q",
					collection, recs[i].ID, recs[i].TenantID, filter.TenantID)
				continue
			}
			all = append(all, recs[i])
		}
		logger.Debug("scanned %s page %d: %d records", collection, page, len(recs))

		if len(recs) < pageSize {
			return all, nil
		}
		last := recs[len(recs)-1].ID
		if last <= cursor {
			return nil, errors.Wrapf(domain.ErrStoreUnavailable,
				"store ignored cursor %q while scanning %s", cursor, collection)
		}
		cursor = last
	}
}

// storeFailure makes sure err is recognisable as a store failure.
func storeFailure(err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}

func invalidArg(format string, args ...any) error {
	return errors.Wrapf(domain.ErrInvalidArgument, format, args...)
}
