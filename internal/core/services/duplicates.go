package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driven"
	"github.com/custodia-labs/recon/internal/core/ports/driving"
	"github.com/custodia-labs/recon/internal/logger"
)

// Ensure DuplicateDetector implements the interface.
var _ driving.DuplicateService = (*DuplicateDetector)(nil)

// DuplicateDetector groups a tenant's records by a derived key.
type DuplicateDetector struct {
	store    driven.DocumentStore
	pageSize int
}

// NewDuplicateDetector creates a detector reading pageSize records per query.
func NewDuplicateDetector(store driven.DocumentStore, pageSize int) *DuplicateDetector {
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	return &DuplicateDetector{store: store, pageSize: pageSize}
}

// Detect returns one group per distinct key, singletons included, sorted by key.
// It only reads from the store.
func (d *DuplicateDetector) Detect(ctx context.Context, req driving.DetectRequest) ([]domain.DuplicateGroup, error) {
	if req.Collection == "" {
		return nil, invalidArg("collection is required")
	}
	if req.TenantID == "" {
		return nil, invalidArg("tenant ID is required")
	}
	keyFn := req.KeyFunc
	if keyFn == nil {
		keyFn = SourceExternalIDKey
	}
	tieBreak := req.TieBreak
	if tieBreak == nil {
		tieBreak = NewestFirst
	}

	logger.Section("Duplicate detection")
	records, err := scanTenant(ctx, d.store, req.Collection, domain.Filter{TenantID: req.TenantID}, d.pageSize)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string][]domain.Record)
	for i := range records {
		key := safeKey(keyFn, records[i])
		byKey[key] = append(byKey[key], records[i])
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups := make([]domain.DuplicateGroup, 0, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		groups = append(groups, buildGroup(key, byKey[key], tieBreak))
	}

	logger.Debug("detected %d groups over %d records in %s", len(groups), len(records), req.Collection)
	return groups, nil
}

// safeKey shields detection from a key function that panics on an odd
// record shape. Such records get a unique key so they are never grouped.
func safeKey(keyFn driving.KeyFunc, r domain.Record) (key string) {
	defer func() {
		if p := recover(); p != nil {
			logger.Warn("key function failed for record %s: %v", r.ID, p)
			key = "unkeyed:" + r.ID
		}
	}()
	return keyFn(r)
}

func buildGroup(key string, members []domain.Record, tieBreak driving.TieBreakFunc) domain.DuplicateGroup {
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })

	group := domain.DuplicateGroup{Key: key, Members: members, Survivor: members[0]}
	if len(members) == 1 {
		return group
	}

	candidates := make([]domain.Record, len(members))
	copy(candidates, members)
	survivor := tieBreak(candidates)
	if !containsID(members, survivor.ID) {
		logger.Warn("tie-break chose %q outside group %q, using newest-first", survivor.ID, key)
		survivor = NewestFirst(members)
	}

	group.Survivor = survivor
	for i := range members {
		if members[i].ID != survivor.ID {
			group.ToDelete = append(group.ToDelete, members[i])
		}
	}
	return group
}

func containsID(records []domain.Record, id string) bool {
	for i := range records {
		if records[i].ID == id {
			return true
		}
	}
	return false
}

// PlanDuplicates turns duplicate groups into a deletion plan. Pure data.
func PlanDuplicates(tenantID, collection string, groups []domain.DuplicateGroup) *domain.ReconciliationPlan {
	plan := newPlan(tenantID, domain.PlanKindDuplicates)
	for _, g := range groups {
		if !g.IsDuplicate() {
			continue
		}
		for _, r := range g.ToDelete {
			plan.Entries = append(plan.Entries, domain.PlanEntry{
				Action:     domain.ActionDelete,
				Collection: collection,
				TargetID:   r.ID,
				Reason:     fmt.Sprintf("duplicate of %s (key %s)", g.Survivor.ID, g.Key),
			})
		}
	}
	return plan
}

func newPlan(tenantID string, kind domain.PlanKind) *domain.ReconciliationPlan {
	return &domain.ReconciliationPlan{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
		Entries:   []domain.PlanEntry{},
	}
}
