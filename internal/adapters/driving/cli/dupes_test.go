package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recon/internal/adapters/driven/planfile"
	"github.com/custodia-labs/recon/internal/core/domain"
)

func TestDupesCmd_Use(t *testing.T) {
	assert.Equal(t, "dupes [tenant-id...]", dupesCmd.Use)
}

func TestDupesCmd_ReportsGroups(t *testing.T) {
	store := setupTestServices(t)
	seedDuplicates(t, store)

	out, err := execute(t, "dupes", "A", "--collection", "properties")

	require.NoError(t, err)
	assert.Contains(t, out, "Duplicates in properties for tenant A")
	assert.Contains(t, out, "Scanned 3 documents: 2 keys, 1 duplicate groups, 1 redundant copies")
	assert.Contains(t, out, "HOMEAWAY_1 (2 members)")
	assert.Contains(t, out, "keep    p2")
	assert.Contains(t, out, "delete  p1")
	assert.NotContains(t, out, "q1")
}

func TestDupesCmd_DefaultsToSourceCollection(t *testing.T) {
	store := setupTestServices(t)
	seedDuplicates(t, store)

	out, err := execute(t, "dupes", "A")

	require.NoError(t, err)
	assert.Contains(t, out, "Duplicates in properties for tenant A")
	assert.Contains(t, out, "HOMEAWAY_1 (2 members)")
	assert.NotContains(t, out, "No duplicates found.")
}

func TestDupesCmd_NoDuplicates(t *testing.T) {
	store := setupTestServices(t)
	put(t, store, "properties", "p1", "A", map[string]any{"external_source": "HOMEAWAY", "external_id": "1"})

	out, err := execute(t, "dupes", "A", "-c", "properties")

	require.NoError(t, err)
	assert.Contains(t, out, "No duplicates found.")
}

func TestDupesCmd_WritesPlan(t *testing.T) {
	store := setupTestServices(t)
	seedDuplicates(t, store)
	path := filepath.Join(t.TempDir(), "plan.json")

	out, err := execute(t, "dupes", "A", "-c", "properties", "--out", path)

	require.NoError(t, err)
	assert.Contains(t, out, "to "+path)
	assert.Contains(t, out, "recon apply "+path)

	plan, err := planfile.NewStore().Load(path)
	require.NoError(t, err)
	assert.Equal(t, "A", plan.TenantID)
	assert.Equal(t, domain.PlanKindDuplicates, plan.Kind)
	require.Len(t, plan.Entries, 1)
	assert.Equal(t, "p1", plan.Entries[0].TargetID)

	// Detection never mutates.
	_, err = store.GetByID(t.Context(), "properties", "p1")
	assert.NoError(t, err)
}

func TestDupesCmd_MultipleTenantsWritePerTenantPlans(t *testing.T) {
	store := setupTestServices(t)
	seedDuplicates(t, store)
	dir := t.TempDir()

	out, err := execute(t, "dupes", "A", "B", "-c", "properties", "-o", filepath.Join(dir, "plan.json"))

	require.NoError(t, err)
	assert.Contains(t, out, "tenant A")
	assert.Contains(t, out, "tenant B")

	planB, err := planfile.NewStore().Load(filepath.Join(dir, "plan.B.json"))
	require.NoError(t, err)
	require.Len(t, planB.Entries, 1)
	assert.Equal(t, "q2", planB.Entries[0].TargetID)
	assert.FileExists(t, filepath.Join(dir, "plan.A.json"))
}

func TestDupesCmd_UsesConfiguredTenant(t *testing.T) {
	store := setupTestServices(t)
	seedDuplicates(t, store)
	require.NoError(t, settingsService.Set("tenant_id", "B"))

	out, err := execute(t, "dupes", "-c", "properties")

	require.NoError(t, err)
	assert.Contains(t, out, "tenant B")
}

func TestDupesCmd_NoTenant(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "dupes")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "tenant_id is not configured")
}

func TestDupesCmd_ServiceNotConfigured(t *testing.T) {
	setupTestServices(t)
	duplicateService = nil

	_, err := execute(t, "dupes", "A")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate service not configured")
}
