// Package cli implements the recon command line interface.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recon/internal/adapters/driving/cli/styles"
	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driven"
	"github.com/custodia-labs/recon/internal/core/ports/driving"
	"github.com/custodia-labs/recon/internal/logger"
)

// version is set at build time.
var version = "dev"

// Persistent flags.
var (
	configDir   string
	verbose     bool
	jsonLogs    bool
	storeDriver string
)

// Services injected by cmd/recon.
var (
	duplicateService driving.DuplicateService
	referenceService driving.ReferenceService
	purgeService     driving.PurgeService
	planService      driving.PlanService
	settingsService  driving.SettingsService
	planStore        driven.PlanStore
	closeServices    func() error
)

// currentSettings holds the settings the services were built with.
var currentSettings = domain.DefaultSettings()

var reportStyles = styles.DefaultStyles()

// Services groups the driving ports a command may use.
type Services struct {
	Duplicates driving.DuplicateService
	References driving.ReferenceService
	Purge      driving.PurgeService
	Plans      driving.PlanService

	// Close releases the document store. Optional.
	Close func() error
}

// Wiring builds services on demand so commands that never touch the
// document store (version, settings) never open it.
type Wiring struct {
	// Settings opens the settings service for a config directory.
	// An empty directory means the default ~/.recon.
	Settings func(configDir string) (driving.SettingsService, error)

	// Services opens the document store described by settings.
	Services func(ctx context.Context, settings *domain.Settings) (*Services, error)
}

var wiring Wiring

// SetVersion sets the version reported by `recon version`.
func SetVersion(v string) {
	version = v
}

// SetWiring installs the constructors used to build services.
func SetWiring(w Wiring) {
	wiring = w
}

// SetPlanStore injects the plan file store. It needs no document store.
func SetPlanStore(s driven.PlanStore) {
	planStore = s
}

// SetServices injects ready-made services.
func SetServices(s *Services) {
	duplicateService = s.Duplicates
	referenceService = s.References
	purgeService = s.Purge
	planService = s.Plans
	closeServices = s.Close
}

var rootCmd = &cobra.Command{
	Use:   "recon",
	Short: "Reconcile tenant-scoped documents",
	Long: `recon finds and repairs data-integrity problems in a multi-tenant
document database: duplicate records, references that no longer resolve
inside their tenant, and bulk purges of a tenant's collection.

Detection commands write reconciliation plans; nothing changes until a
plan is applied with 'recon apply'.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.recon)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "store backend: sqlite, firestore or memory")
}

// Execute runs the root command and releases the store afterwards.
func Execute(ctx context.Context) error {
	defer shutdown()
	return rootCmd.ExecuteContext(ctx)
}

func shutdown() {
	if closeServices == nil {
		return
	}
	if err := closeServices(); err != nil {
		logger.Warn("closing store: %v", err)
	}
	closeServices = nil
}

// setup applies logging flags and opens the settings service.
func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetJSON(jsonLogs)

	if settingsService != nil || wiring.Settings == nil {
		return nil
	}
	svc, err := wiring.Settings(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	settingsService = svc
	return nil
}

// ensureServices opens the document store on first use.
func ensureServices(cmd *cobra.Command) error {
	if duplicateService != nil || wiring.Services == nil {
		return nil
	}

	settings := domain.DefaultSettings()
	if settingsService != nil {
		s, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		settings = s
	}
	if storeDriver != "" {
		driver := domain.StoreDriver(strings.ToLower(storeDriver))
		if !driver.IsValid() {
			return fmt.Errorf("%w: unknown store %q (want sqlite, firestore or memory)", domain.ErrInvalidArgument, storeDriver)
		}
		settings.Store.Driver = driver
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	svcs, err := wiring.Services(cmd.Context(), settings)
	if err != nil {
		return err
	}
	SetServices(svcs)
	currentSettings = settings
	logger.With("store", settings.Store.Driver).Debugf("document store ready")
	return nil
}

// tenantArgs returns the tenants named on the command line, falling back
// to the configured tenant_id.
func tenantArgs(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if currentSettings.TenantID != "" {
		return []string{currentSettings.TenantID}, nil
	}
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil && s.TenantID != "" {
			return []string{s.TenantID}, nil
		}
	}
	return nil, fmt.Errorf("%w: no tenant given and tenant_id is not configured", domain.ErrInvalidArgument)
}

// parseWhere converts repeated k=v flags into filter equalities.
func parseWhere(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	equals := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: --where %q is not key=value", domain.ErrInvalidArgument, pair)
		}
		equals[k] = domain.ParseFilterValue(v)
	}
	return equals, nil
}
