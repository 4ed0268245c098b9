package driving

import "github.com/custodia-labs/recon/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current settings, with defaults for unset keys.
	Get() (*domain.Settings, error)

	// Set stores a single setting by its config key.
	Set(key string, value string) error

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings

	// Keys lists the recognised config keys.
	Keys() []string
}
