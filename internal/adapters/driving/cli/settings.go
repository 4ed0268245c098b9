package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recon/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change the default tenant, collections, store backend and
write throttle stored in ~/.recon/config.toml.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Long: `Change a single setting by its config key.

Keys:
  tenant_id                     default tenant when none is given
  page_size                     documents per page and write batch
  collections.source            collection holding references
  collections.target            collection references point to
  collections.reference_field   reference field on the source collection
  store.driver                  sqlite, firestore or memory
  store.path                    SQLite data directory
  firestore.project             Google Cloud project ID
  firestore.database            Firestore database ID
  firestore.credentials_file    service account JSON key
  throttle.writes_per_second    write batches per second (0 = unlimited)
  throttle.burst                write batches allowed in a burst
  throttle.max_retries          retries of a rate-limited write batch`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[General]")
	cmd.Printf("  Tenant: %s\n", valueOrUnset(settings.TenantID))
	cmd.Printf("  Page size: %d\n", settings.PageSize)
	cmd.Println()

	cmd.Println("[Collections]")
	cmd.Printf("  Source: %s\n", settings.Collections.Source)
	cmd.Printf("  Target: %s\n", settings.Collections.Target)
	cmd.Printf("  Reference field: %s\n", settings.Collections.ReferenceField)
	cmd.Println()

	cmd.Println("[Store]")
	cmd.Printf("  Driver: %s\n", settings.Store.Driver.Description())
	switch settings.Store.Driver {
	case domain.StoreDriverSQLite:
		cmd.Printf("  Path: %s\n", valueOrDefault(settings.Store.Path, "~/.recon/data"))
	case domain.StoreDriverFirestore:
		cmd.Printf("  Project: %s\n", valueOrUnset(settings.Firestore.Project))
		cmd.Printf("  Database: %s\n", settings.Firestore.Database)
		cmd.Printf("  Credentials: %s\n", valueOrDefault(settings.Firestore.CredentialsFile, "application default"))
	}
	cmd.Println()

	cmd.Println("[Throttle]")
	if settings.Throttle.WritesPerSecond > 0 {
		cmd.Printf("  Writes per second: %g\n", settings.Throttle.WritesPerSecond)
		cmd.Printf("  Burst: %d\n", settings.Throttle.Burst)
		cmd.Printf("  Max retries: %d\n", settings.Throttle.MaxRetries)
	} else {
		cmd.Println("  Writes per second: unlimited")
	}
	cmd.Println()

	if err := settings.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'recon settings set <key> <value>' to fix it.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key := strings.TrimSpace(args[0])
	if err := settingsService.Set(key, args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("Set %s = %s\n", key, args[1])
	return nil
}

func valueOrUnset(v string) string {
	return valueOrDefault(v, "(not set)")
}

func valueOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
