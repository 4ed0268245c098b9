package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recon/internal/core/domain"
)

func record(id string) domain.Record {
	return domain.Record{ID: id, TenantID: "A"}
}

func TestServer_handleFindDuplicates(t *testing.T) {
	ctx := context.Background()

	t.Run("lists duplicate groups only", func(t *testing.T) {
		ports, dupes, _, _ := newTestPorts()
		dupes.groups = []domain.DuplicateGroup{
			{
				Key:      "HOMEAWAY:1",
				Members:  []domain.Record{record("p1"), record("p2")},
				Survivor: record("p2"),
				ToDelete: []domain.Record{record("p1")},
			},
			{
				Key:      "HOMEAWAY:2",
				Members:  []domain.Record{record("p3")},
				Survivor: record("p3"),
			},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleFindDuplicates(ctx, nil, FindDuplicatesInput{TenantID: "A", Collection: "properties"})

		require.NoError(t, err)
		assert.Equal(t, "properties", dupes.req.Collection)
		assert.Equal(t, "A", dupes.req.TenantID)
		assert.Equal(t, 3, output.Scanned)
		assert.Equal(t, 1, output.GroupCount)
		assert.Equal(t, 1, output.Redundant)
		require.Len(t, output.Groups, 1)
		assert.Equal(t, "p2", output.Groups[0].SurvivorID)
		assert.Equal(t, []string{"p1"}, output.Groups[0].DeleteIDs)
		assert.False(t, output.Truncated)
	})

	t.Run("defaults collection from settings", func(t *testing.T) {
		ports, dupes, _, _ := newTestPorts()
		settings := domain.DefaultSettings()
		settings.Collections.Source = "units"
		ports.Settings = &mockSettingsService{settings: settings}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleFindDuplicates(ctx, nil, FindDuplicatesInput{TenantID: "A"})

		require.NoError(t, err)
		assert.Equal(t, "units", dupes.req.Collection)
		assert.Equal(t, "units", output.Collection)
	})

	t.Run("defaults to properties without settings", func(t *testing.T) {
		ports, dupes, _, _ := newTestPorts()
		ports.Settings = nil
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = server.handleFindDuplicates(ctx, nil, FindDuplicatesInput{TenantID: "A"})

		require.NoError(t, err)
		assert.Equal(t, "properties", dupes.req.Collection)
		assert.NotNil(t, output.Groups)
	})

	t.Run("truncates at limit", func(t *testing.T) {
		ports, dupes, _, _ := newTestPorts()
		for _, k := range []string{"a", "b", "c"} {
			dupes.groups = append(dupes.groups, domain.DuplicateGroup{
				Key:      k,
				Members:  []domain.Record{record(k + "1"), record(k + "2")},
				Survivor: record(k + "2"),
				ToDelete: []domain.Record{record(k + "1")},
			})
		}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleFindDuplicates(ctx, nil, FindDuplicatesInput{TenantID: "A", Limit: 2})

		require.NoError(t, err)
		assert.Equal(t, 3, output.GroupCount)
		assert.Equal(t, 3, output.Redundant)
		assert.Len(t, output.Groups, 2)
		assert.True(t, output.Truncated)
	})

	t.Run("returns error on detect failure", func(t *testing.T) {
		ports, dupes, _, _ := newTestPorts()
		dupes.err = domain.ErrStoreUnavailable
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = server.handleFindDuplicates(ctx, nil, FindDuplicatesInput{TenantID: "A"})

		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	})
}

func TestServer_handleCheckReferences(t *testing.T) {
	ctx := context.Background()

	t.Run("counts by kind", func(t *testing.T) {
		ports, _, refs, _ := newTestPorts()
		refs.broken = []domain.BrokenReference{
			{SourceID: "p2", Field: "canonical_listing_id", DanglingTargetID: "l-gone", Kind: domain.BrokenMissing},
			{SourceID: "p3", Field: "canonical_listing_id", DanglingTargetID: "l-b", Kind: domain.BrokenCrossTenant},
			{SourceID: "p8", Field: "canonical_listing_id", DanglingTargetID: "l-x", Kind: domain.BrokenMissing},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleCheckReferences(ctx, nil, CheckReferencesInput{TenantID: "A"})

		require.NoError(t, err)
		assert.Equal(t, "properties", refs.req.SourceCollection)
		assert.Equal(t, "listings", refs.req.TargetCollection)
		assert.Equal(t, "canonical_listing_id", refs.req.ReferenceField)
		assert.Equal(t, 3, output.Count)
		assert.Equal(t, map[string]int{"missing": 2, "cross_tenant": 1}, output.ByKind)
		require.Len(t, output.Broken, 3)
		assert.Equal(t, "l-b", output.Broken[1].Value)
	})

	t.Run("explicit collections override defaults", func(t *testing.T) {
		ports, _, refs, _ := newTestPorts()
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleCheckReferences(ctx, nil, CheckReferencesInput{
			TenantID:         "A",
			SourceCollection: "bookings",
			TargetCollection: "properties",
			Field:            "property_id",
		})

		require.NoError(t, err)
		assert.Equal(t, "bookings", refs.req.SourceCollection)
		assert.Equal(t, "properties", refs.req.TargetCollection)
		assert.Equal(t, "property_id", refs.req.ReferenceField)
		assert.Equal(t, 0, output.Count)
		assert.Empty(t, output.Broken)
	})

	t.Run("lookup failure is returned", func(t *testing.T) {
		ports, _, refs, _ := newTestPorts()
		refs.err = domain.ErrReferenceLookupFailed
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = server.handleCheckReferences(ctx, nil, CheckReferencesInput{TenantID: "A"})

		assert.ErrorIs(t, err, domain.ErrReferenceLookupFailed)
	})
}

func TestServer_handleCountDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("parses where values", func(t *testing.T) {
		ports, _, _, counter := newTestPorts()
		counter.count = 12
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleCountDocuments(ctx, nil, CountDocumentsInput{
			TenantID:   "A",
			Collection: "properties",
			Where:      map[string]string{"external_source": "HOMEAWAY", "active": "true", "canonical_listing_id": "null"},
		})

		require.NoError(t, err)
		assert.Equal(t, 12, output.Count)
		assert.Equal(t, "properties", counter.collection)
		assert.Equal(t, "A", counter.filter.TenantID)
		assert.Equal(t, map[string]any{
			"external_source":      "HOMEAWAY",
			"active":               true,
			"canonical_listing_id": nil,
		}, counter.filter.Equals)
	})

	t.Run("rejects empty field name", func(t *testing.T) {
		ports, _, _, _ := newTestPorts()
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = server.handleCountDocuments(ctx, nil, CountDocumentsInput{
			TenantID:   "A",
			Collection: "properties",
			Where:      map[string]string{" ": "x"},
		})

		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("returns count error", func(t *testing.T) {
		ports, _, _, counter := newTestPorts()
		counter.err = errors.New("database error")
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = server.handleCountDocuments(ctx, nil, CountDocumentsInput{TenantID: "A", Collection: "properties"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "database error")
	})
}
