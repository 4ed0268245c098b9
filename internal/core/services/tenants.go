package services

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultTenantConcurrency bounds how many tenants are scanned at once.
const DefaultTenantConcurrency = 4

// ForEachTenant runs fn once per distinct tenant with at most limit calls
// in flight. Results come back in the order tenants were first listed.
// The first error cancels the remaining calls.
func ForEachTenant[T any](
	ctx context.Context,
	tenants []string,
	limit int,
	fn func(ctx context.Context, tenantID string) (T, error),
) ([]T, error) {
	unique := make([]string, 0, len(tenants))
	seen := make(map[string]bool, len(tenants))
	for _, t := range tenants {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, invalidArg("tenant ID is required")
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		unique = append(unique, t)
	}

	if limit <= 0 {
		limit = DefaultTenantConcurrency
	}

	results := make([]T, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, tenantID := range unique {
		g.Go(func() error {
			out, err := fn(gctx, tenantID)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
