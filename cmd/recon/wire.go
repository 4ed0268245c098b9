package main

import (
	"context"
	"fmt"

	"github.com/custodia-labs/recon/internal/adapters/driven/config/file"
	"github.com/custodia-labs/recon/internal/adapters/driven/storage/firestore"
	"github.com/custodia-labs/recon/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/recon/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/recon/internal/adapters/driven/storage/throttle"
	"github.com/custodia-labs/recon/internal/adapters/driving/cli"
	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driven"
	"github.com/custodia-labs/recon/internal/core/ports/driving"
	"github.com/custodia-labs/recon/internal/core/services"
	"github.com/custodia-labs/recon/internal/logger"
)

// openSettings loads config.toml from configDir (default ~/.recon).
func openSettings(configDir string) (driving.SettingsService, error) {
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, err
	}
	return services.NewSettingsService(store), nil
}

// openServices connects the configured document store and builds the
// reconciliation services on top of it.
func openServices(ctx context.Context, settings *domain.Settings) (*cli.Services, error) {
	store, err := openStore(ctx, settings)
	if err != nil {
		return nil, err
	}

	store = throttle.Wrap(store, throttleConfig(settings))

	purger := services.NewBulkPurger(store)
	refs := services.NewReferenceChecker(store, settings.PageSize)

	return &cli.Services{
		Duplicates: services.NewDuplicateDetector(store, settings.PageSize),
		References: refs,
		Purge:      purger,
		Plans:      services.NewPlanApplier(purger, refs),
		Close:      store.Close,
	}, nil
}

// throttleConfig retries batches Firestore rejects with 429.
func throttleConfig(settings *domain.Settings) throttle.Config {
	return throttle.Config{
		WritesPerSecond: settings.Throttle.WritesPerSecond,
		Burst:           settings.Throttle.Burst,
		IsRateLimited:   firestore.IsRateLimited,
		MaxRetries:      settings.Throttle.MaxRetries,
	}
}

func openStore(ctx context.Context, settings *domain.Settings) (driven.DocumentStore, error) {
	switch settings.Store.Driver {
	case domain.StoreDriverMemory:
		logger.Warn("using the in-memory store: it starts empty and nothing is persisted")
		return memory.NewDocumentStore(), nil
	case domain.StoreDriverSQLite:
		store, err := sqlite.NewStore(settings.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store, nil
	case domain.StoreDriverFirestore:
		store, err := firestore.New(ctx, firestore.Config{
			Project:         settings.Firestore.Project,
			Database:        settings.Firestore.Database,
			CredentialsFile: settings.Firestore.CredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to firestore: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", domain.ErrInvalidArgument, settings.Store.Driver)
	}
}
