package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recon/internal/adapters/driven/planfile"
	"github.com/custodia-labs/recon/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/services"
)

// setupTestServices wires real services over an in-memory store and
// restores the package state when the test ends.
func setupTestServices(t *testing.T) *memory.DocumentStore {
	t.Helper()

	oldDup, oldRef, oldPurge, oldPlan := duplicateService, referenceService, purgeService, planService
	oldSettings, oldPlanStore, oldClose := settingsService, planStore, closeServices
	oldCurrent, oldWiring, oldInteractive := currentSettings, wiring, isInteractive

	store := memory.NewDocumentStore()
	purger := services.NewBulkPurger(store)
	refs := services.NewReferenceChecker(store, 0)
	SetServices(&Services{
		Duplicates: services.NewDuplicateDetector(store, 0),
		References: refs,
		Purge:      purger,
		Plans:      services.NewPlanApplier(purger, refs),
	})
	SetPlanStore(planfile.NewStore())
	settingsService = services.NewSettingsService(memory.NewConfigStore())
	currentSettings = domain.DefaultSettings()
	wiring = Wiring{}
	isInteractive = func() bool { return false }
	lipgloss.SetColorProfile(termenv.Ascii)

	t.Cleanup(func() {
		duplicateService, referenceService, purgeService, planService = oldDup, oldRef, oldPurge, oldPlan
		settingsService, planStore, closeServices = oldSettings, oldPlanStore, oldClose
		currentSettings, wiring, isInteractive = oldCurrent, oldWiring, oldInteractive
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	})

	return store
}

// execute runs rootCmd with fresh flag values and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default; cobra keeps values
// between executions of the same command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil) //nolint:errcheck // string slices never fail
		} else {
			_ = f.Value.Set(f.DefValue) //nolint:errcheck // defaults always parse
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func put(t *testing.T, store *memory.DocumentStore, collection, id, tenant string, fields map[string]any) {
	t.Helper()
	if fields == nil {
		fields = map[string]any{}
	}
	fields[domain.FieldTenantID] = tenant
	require.NoError(t, store.Put(context.Background(), collection, domain.Record{ID: id, TenantID: tenant, Fields: fields}))
}

// seedDuplicates stores p1/p2 sharing a key in tenant A (p2 newer),
// a singleton p3, and a duplicate pair in tenant B.
func seedDuplicates(t *testing.T, store *memory.DocumentStore) {
	t.Helper()
	put(t, store, "properties", "p1", "A", map[string]any{
		"external_source": "HOMEAWAY", "external_id": "1", "created_at": "2023-01-01T00:00:00Z",
	})
	put(t, store, "properties", "p2", "A", map[string]any{
		"external_source": "HOMEAWAY", "external_id": "1", "created_at": "2024-01-01T00:00:00Z",
	})
	put(t, store, "properties", "p3", "A", map[string]any{
		"external_source": "HOMEAWAY", "external_id": "2",
	})
	put(t, store, "properties", "q1", "B", map[string]any{
		"external_source": "VRBO", "external_id": "9", "created_at": "2024-05-01T00:00:00Z",
	})
	put(t, store, "properties", "q2", "B", map[string]any{
		"external_source": "VRBO", "external_id": "9", "created_at": "2022-05-01T00:00:00Z",
	})
}

// seedReferences stores listings l1 (A) and l2 (B) and properties in A
// pointing at l1 (ok), l2 (cross tenant) and l-gone (missing).
func seedReferences(t *testing.T, store *memory.DocumentStore) {
	t.Helper()
	put(t, store, "listings", "l1", "A", nil)
	put(t, store, "listings", "l2", "B", nil)
	put(t, store, "properties", "p1", "A", map[string]any{"canonical_listing_id": "l1"})
	put(t, store, "properties", "p2", "A", map[string]any{"canonical_listing_id": "l2"})
	put(t, store, "properties", "p3", "A", map[string]any{"canonical_listing_id": "l-gone"})
}
