package firestore

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/recon/internal/core/domain"
)

// mapError translates transport errors into domain sentinels.
// 404 becomes domain.ErrNotFound; everything else is domain.ErrStoreUnavailable.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("firestore %s: %w", op, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("firestore %s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%w: firestore %s: %w", domain.ErrStoreUnavailable, op, err)
}

// IsRateLimited reports whether err was caused by Firestore throttling.
func IsRateLimited(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests
	}
	return false
}
