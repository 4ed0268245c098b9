package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driven"
	"github.com/custodia-labs/recon/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyTenantID          = "tenant_id"
	keyPageSize          = "page_size"
	keySourceCollection  = "collections.source"
	keyTargetCollection  = "collections.target"
	keyReferenceField    = "collections.reference_field"
	keyStoreDriver       = "store.driver"
	keyStorePath         = "store.path"
	keyFirestoreProject  = "firestore.project"
	keyFirestoreDatabase = "firestore.database"
	keyFirestoreCreds    = "firestore.credentials_file"
	keyThrottleRate      = "throttle.writes_per_second"
	keyThrottleBurst     = "throttle.burst"
	keyThrottleRetries   = "throttle.max_retries"
)

var settingKeys = []string{
	keyTenantID,
	keyPageSize,
	keySourceCollection,
	keyTargetCollection,
	keyReferenceField,
	keyStoreDriver,
	keyStorePath,
	keyFirestoreProject,
	keyFirestoreDatabase,
	keyFirestoreCreds,
	keyThrottleRate,
	keyThrottleBurst,
	keyThrottleRetries,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current settings. Unset or invalid values fall back to defaults.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := domain.DefaultSettings()

	settings := &domain.Settings{
		TenantID: s.configStore.GetString(keyTenantID), // No default - tenants are always explicit
		PageSize: s.getInt(keyPageSize, defaults.PageSize),
		Collections: domain.CollectionSettings{
			Source:         s.getString(keySourceCollection, defaults.Collections.Source),
			Target:         s.getString(keyTargetCollection, defaults.Collections.Target),
			ReferenceField: s.getString(keyReferenceField, defaults.Collections.ReferenceField),
		},
		Store: domain.StoreSettings{
			Driver: s.getDriver(defaults.Store.Driver),
			Path:   s.configStore.GetString(keyStorePath),
		},
		Firestore: domain.FirestoreSettings{
			Project:         s.configStore.GetString(keyFirestoreProject),
			Database:        s.getString(keyFirestoreDatabase, defaults.Firestore.Database),
			CredentialsFile: s.configStore.GetString(keyFirestoreCreds),
		},
		Throttle: domain.ThrottleSettings{
			WritesPerSecond: s.configStore.GetFloat(keyThrottleRate),
			Burst:           s.getInt(keyThrottleBurst, defaults.Throttle.Burst),
			MaxRetries:      s.getInt(keyThrottleRetries, defaults.Throttle.MaxRetries),
		},
	}

	return settings, nil
}

// Set parses value for key and persists it.
func (s *SettingsService) Set(key, value string) error {
	value = strings.TrimSpace(value)

	switch key {
	case keyPageSize, keyThrottleBurst:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: %s must be a positive integer, got %q", domain.ErrInvalidArgument, key, value)
		}
		return s.save(key, n)

	case keyThrottleRetries:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: %s must be a positive integer, got %q", domain.ErrInvalidArgument, key, value)
		}
		return s.save(key, n)

	case keyThrottleRate:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number, got %q", domain.ErrInvalidArgument, key, value)
		}
		return s.save(key, f)

	case keyStoreDriver:
		driver := domain.StoreDriver(value)
		if !driver.IsValid() {
			return fmt.Errorf("%w: unknown store driver %q", domain.ErrInvalidArgument, value)
		}
		return s.save(key, driver.String())

	case keySourceCollection, keyTargetCollection, keyReferenceField, keyFirestoreDatabase:
		if value == "" {
			return fmt.Errorf("%w: %s must not be empty", domain.ErrInvalidArgument, key)
		}
		return s.save(key, value)

	case keyTenantID, keyStorePath, keyFirestoreProject, keyFirestoreCreds:
		return s.save(key, value)

	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidArgument, key)
	}
}

func (s *SettingsService) save(key string, value any) error {
	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return *domain.DefaultSettings()
}

// Keys lists the recognised config keys in display order.
func (s *SettingsService) Keys() []string {
	out := make([]string, len(settingKeys))
	copy(out, settingKeys)
	return out
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getDriver(defaultVal domain.StoreDriver) domain.StoreDriver {
	val := s.configStore.GetString(keyStoreDriver)
	if val == "" {
		return defaultVal
	}
	driver := domain.StoreDriver(val)
	if !driver.IsValid() {
		return defaultVal
	}
	return driver
}
