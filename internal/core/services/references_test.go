package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driving"
)

func seedReferences(t *testing.T) (*countingStore, driving.CheckRequest) {
	t.Helper()
	mem, store := newStores(t)
	put(t, mem, "listings",
		rec("l-ok", "A", nil),
		rec("l-b", "B", nil),
	)
	put(t, mem, "properties",
		rec("p1", "A", map[string]any{"canonical_listing_id": "l-ok"}),
		rec("p2", "A", map[string]any{"canonical_listing_id": "l-gone"}),
		rec("p3", "A", map[string]any{"canonical_listing_id": "l-b"}),
		rec("p4", "A", map[string]any{"canonical_listing_id": int64(7)}),
		rec("p5", "A", map[string]any{"canonical_listing_id": nil}),
		rec("p6", "A", map[string]any{"canonical_listing_id": ""}),
		rec("p7", "A", nil),
		rec("p8", "A", map[string]any{"canonical_listing_id": "l-gone"}),
		rec("q1", "B", map[string]any{"canonical_listing_id": "l-gone"}),
	)
	return store, driving.CheckRequest{
		SourceCollection: "properties",
		ReferenceField:   "canonical_listing_id",
		TargetCollection: "listings",
		TenantID:         "A",
	}
}

func TestReferenceChecker_Check(t *testing.T) {
	store, req := seedReferences(t)
	lookups := 0
	store.onGet = func(string, string) error {
		lookups++
		return nil
	}

	broken, err := NewReferenceChecker(store, 3).Check(context.Background(), req)

	require.NoError(t, err)
	require.Len(t, broken, 4)

	byID := make(map[string]domain.BrokenReference)
	for _, b := range broken {
		byID[b.SourceID] = b
		assert.Equal(t, "A", b.TenantID)
		assert.Equal(t, "properties", b.SourceCollection)
		assert.Equal(t, "canonical_listing_id", b.Field)
	}
	assert.Equal(t, domain.BrokenMissing, byID["p2"].Kind)
	assert.Equal(t, "l-gone", byID["p2"].DanglingTargetID)
	assert.Equal(t, domain.BrokenCrossTenant, byID["p3"].Kind)
	assert.Equal(t, domain.BrokenMalformed, byID["p4"].Kind)
	assert.Equal(t, "7", byID["p4"].DanglingTargetID)
	assert.Equal(t, domain.BrokenMissing, byID["p8"].Kind)

	// l-ok, l-gone and l-b each resolved once.
	assert.Equal(t, 3, lookups)
	assert.Zero(t, store.writes())
}

func TestReferenceChecker_Check_LookupFailure(t *testing.T) {
	store, req := seedReferences(t)
	store.onGet = func(_, id string) error {
		if id == "l-gone" {
			return errBoom
		}
		return nil
	}

	broken, err := NewReferenceChecker(store, 0).Check(context.Background(), req)

	assert.Nil(t, broken)
	assert.ErrorIs(t, err, domain.ErrReferenceLookupFailed)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestReferenceChecker_Check_InvalidArguments(t *testing.T) {
	_, store := newStores(t)
	checker := NewReferenceChecker(store, 0)
	valid := driving.CheckRequest{
		SourceCollection: "properties",
		ReferenceField:   "canonical_listing_id",
		TargetCollection: "listings",
		TenantID:         "A",
	}

	tests := []struct {
		name   string
		mutate func(*driving.CheckRequest)
	}{
		{"no source", func(r *driving.CheckRequest) { r.SourceCollection = "" }},
		{"no target", func(r *driving.CheckRequest) { r.TargetCollection = "" }},
		{"no field", func(r *driving.CheckRequest) { r.ReferenceField = "" }},
		{"no tenant", func(r *driving.CheckRequest) { r.TenantID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := checker.Check(context.Background(), req)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}
}

func TestReferenceChecker_Repair_Idempotent(t *testing.T) {
	store, req := seedReferences(t)
	checker := NewReferenceChecker(store, 0)

	broken, err := checker.Check(context.Background(), req)
	require.NoError(t, err)

	cleared, err := checker.Repair(context.Background(), broken)
	require.NoError(t, err)
	assert.Equal(t, 4, cleared)
	assert.Equal(t, 1, store.updates)

	cleared, err = checker.Repair(context.Background(), broken)
	require.NoError(t, err)
	assert.Zero(t, cleared)
	assert.Equal(t, 1, store.updates)

	p2, err := store.GetByID(context.Background(), "properties", "p2")
	require.NoError(t, err)
	_, present := p2.Field("canonical_listing_id")
	assert.False(t, present)

	p1, err := store.GetByID(context.Background(), "properties", "p1")
	require.NoError(t, err)
	assert.Equal(t, "l-ok", p1.StringField("canonical_listing_id"))

	again, err := checker.Check(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestReferenceChecker_Repair_SkipsChangedAndForeign(t *testing.T) {
	mem, store := newStores(t)
	put(t, mem, "properties",
		rec("p1", "A", map[string]any{"canonical_listing_id": "l-new"}),
		rec("p2", "B", map[string]any{"canonical_listing_id": "l-gone"}),
	)
	refs := []domain.BrokenReference{
		{SourceCollection: "properties", SourceID: "p1", TenantID: "A", Field: "canonical_listing_id", DanglingTargetID: "l-gone"},
		{SourceCollection: "properties", SourceID: "p2", TenantID: "A", Field: "canonical_listing_id", DanglingTargetID: "l-gone"},
		{SourceCollection: "properties", SourceID: "p9", TenantID: "A", Field: "canonical_listing_id", DanglingTargetID: "l-gone"},
	}

	cleared, err := NewReferenceChecker(store, 0).Repair(context.Background(), refs)

	require.NoError(t, err)
	assert.Zero(t, cleared)
	assert.Zero(t, store.writes())
}

func TestReferenceChecker_Repair_Batches(t *testing.T) {
	mem := newBatchStore(t, 2)
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
		put(t, mem.mem, "properties", rec(id, "A", map[string]any{"canonical_listing_id": "gone"}))
	}
	var refs []domain.BrokenReference
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5", "p1"} {
		refs = append(refs, domain.BrokenReference{
			SourceCollection: "properties", SourceID: id, TenantID: "A",
			Field: "canonical_listing_id", DanglingTargetID: "gone",
		})
	}

	cleared, err := NewReferenceChecker(mem.store, 0).Repair(context.Background(), refs)

	require.NoError(t, err)
	assert.Equal(t, 5, cleared)
	assert.Equal(t, 3, mem.store.updates)
}

func TestReferenceChecker_Repair_Invalid(t *testing.T) {
	_, store := newStores(t)
	_, err := NewReferenceChecker(store, 0).Repair(context.Background(), []domain.BrokenReference{{SourceID: "p1"}})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Zero(t, store.writes())
}

func TestPlanReferences(t *testing.T) {
	refs := []domain.BrokenReference{
		{SourceCollection: "properties", SourceID: "p2", TenantID: "A", Field: "canonical_listing_id",
			DanglingTargetID: "l-gone", Kind: domain.BrokenMissing},
	}

	plan := PlanReferences("A", refs)

	require.NoError(t, plan.Validate())
	assert.Equal(t, domain.PlanKindReferences, plan.Kind)
	require.Len(t, plan.Entries, 1)
	e := plan.Entries[0]
	assert.Equal(t, domain.ActionClearField, e.Action)
	assert.Equal(t, "p2", e.TargetID)
	assert.Equal(t, "canonical_listing_id", e.Field)
	assert.Equal(t, "l-gone", e.Expected)
	assert.Equal(t, domain.PlanSummary{ClearFields: 1}, plan.Summary())
}
