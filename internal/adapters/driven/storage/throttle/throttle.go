// Package throttle limits the write rate of a driven.DocumentStore.
package throttle

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driven"
	"github.com/custodia-labs/recon/internal/logger"
)

// DefaultBackoff is the pause after a rate-limited write.
const DefaultBackoff = 2 * time.Second

// Config holds rate limiting configuration for writes.
type Config struct {
	// WritesPerSecond is the sustained batch rate. Zero disables throttling.
	WritesPerSecond float64

	// Burst is the maximum burst size.
	Burst int

	// IsRateLimited classifies store errors that should be retried after
	// Backoff. Nil disables retries.
	IsRateLimited func(error) bool

	// MaxRetries bounds retries of one rate-limited batch.
	MaxRetries int

	// Backoff is the pause before retrying. Zero means DefaultBackoff.
	Backoff time.Duration
}

// Store wraps a DocumentStore and spaces out its batch writes using a
// token bucket. Reads pass through unchanged.
type Store struct {
	driven.DocumentStore

	cfg     Config
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

var _ driven.DocumentStore = (*Store)(nil)

// Wrap returns store unchanged when cfg disables throttling.
func Wrap(store driven.DocumentStore, cfg Config) driven.DocumentStore {
	if cfg.WritesPerSecond <= 0 {
		return store
	}
	return New(store, cfg)
}

// New creates a throttled store.
func New(store driven.DocumentStore, cfg Config) *Store {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	return &Store{
		DocumentStore: store,
		cfg:           cfg,
		limiter:       rate.NewLimiter(rate.Limit(cfg.WritesPerSecond), cfg.Burst),
	}
}

// BatchDelete waits for a token, then deletes.
func (s *Store) BatchDelete(ctx context.Context, collection string, ids []string) error {
	return s.write(ctx, func() error {
		return s.DocumentStore.BatchDelete(ctx, collection, ids)
	})
}

// BatchUpdate waits for a token, then updates.
func (s *Store) BatchUpdate(ctx context.Context, collection string, updates []domain.FieldUpdate) error {
	return s.write(ctx, func() error {
		return s.DocumentStore.BatchUpdate(ctx, collection, updates)
	})
}

func (s *Store) write(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		if err := s.wait(ctx); err != nil {
			return err
		}
		err := fn()
		if err == nil || s.cfg.IsRateLimited == nil || !s.cfg.IsRateLimited(err) || attempt >= s.cfg.MaxRetries {
			return err
		}
		logger.Warn("store rate limited, retrying in %s (attempt %d of %d)", s.cfg.Backoff, attempt+1, s.cfg.MaxRetries)
		s.mu.Lock()
		s.retryAt = time.Now().Add(s.cfg.Backoff)
		s.mu.Unlock()
	}
}

// wait blocks until a backoff has passed and a token is available.
func (s *Store) wait(ctx context.Context) error {
	s.mu.Lock()
	retryAt := s.retryAt
	s.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return s.limiter.Wait(ctx)
}
