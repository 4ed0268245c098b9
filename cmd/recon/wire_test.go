package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/recon/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/recon/internal/adapters/driven/storage/throttle"
	"github.com/custodia-labs/recon/internal/core/domain"
)

func TestOpenSettings_UsesConfigDir(t *testing.T) {
	dir := t.TempDir()

	svc, err := openSettings(dir)
	require.NoError(t, err)
	require.NoError(t, svc.Set("tenant_id", "A"))

	again, err := openSettings(dir)
	require.NoError(t, err)
	s, err := again.Get()
	require.NoError(t, err)
	assert.Equal(t, "A", s.TenantID)
}

func TestOpenServices_Memory(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.Store.Driver = domain.StoreDriverMemory

	svcs, err := openServices(context.Background(), settings)

	require.NoError(t, err)
	assert.NotNil(t, svcs.Duplicates)
	assert.NotNil(t, svcs.References)
	assert.NotNil(t, svcs.Purge)
	assert.NotNil(t, svcs.Plans)
	require.NotNil(t, svcs.Close)
	assert.NoError(t, svcs.Close())
}

func TestOpenServices_SQLite(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.Store.Path = t.TempDir()
	settings.Throttle.WritesPerSecond = 10

	svcs, err := openServices(context.Background(), settings)
	require.NoError(t, err)
	defer svcs.Close() //nolint:errcheck

	n, err := svcs.Purge.Count(context.Background(), "listings", domain.Filter{TenantID: "A"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

// rateLimitedStore rejects the first few delete batches with a 429.
type rateLimitedStore struct {
	*memory.DocumentStore

	rejects int
	calls   int
}

func (s *rateLimitedStore) BatchDelete(ctx context.Context, collection string, ids []string) error {
	s.calls++
	if s.calls <= s.rejects {
		return &googleapi.Error{Code: http.StatusTooManyRequests, Message: "quota exceeded"}
	}
	return s.DocumentStore.BatchDelete(ctx, collection, ids)
}

func TestThrottleConfig_RetriesRateLimitedWrites(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.Throttle.WritesPerSecond = 1000

	cfg := throttleConfig(settings)
	assert.Equal(t, domain.DefaultMaxRetries, cfg.MaxRetries)
	require.NotNil(t, cfg.IsRateLimited)

	cfg.Backoff = time.Millisecond
	inner := &rateLimitedStore{DocumentStore: memory.NewDocumentStore(), rejects: 2}
	store := throttle.Wrap(inner, cfg)

	err := store.BatchDelete(context.Background(), "listings", []string{"l1"})

	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestThrottleConfig_UsesConfiguredRetries(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.Throttle.WritesPerSecond = 1000
	settings.Throttle.MaxRetries = 1

	cfg := throttleConfig(settings)
	cfg.Backoff = time.Millisecond
	inner := &rateLimitedStore{DocumentStore: memory.NewDocumentStore(), rejects: 5}
	store := throttle.Wrap(inner, cfg)

	err := store.BatchDelete(context.Background(), "listings", []string{"l1"})

	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.Store.Driver = "mongo"

	_, err := openStore(context.Background(), settings)

	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
