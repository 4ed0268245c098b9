package services

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driving"
	"github.com/custodia-labs/recon/internal/logger"
)

// Ensure PlanApplier implements the interface.
var _ driving.PlanService = (*PlanApplier)(nil)

// PlanApplier executes reconciliation plans. It is the only component that
// turns a plan into writes.
type PlanApplier struct {
	purger *BulkPurger
	refs   driving.ReferenceService
}

// NewPlanApplier creates an applier that deletes through purger and
// clears fields through refs.
func NewPlanApplier(purger *BulkPurger, refs driving.ReferenceService) *PlanApplier {
	return &PlanApplier{purger: purger, refs: refs}
}

// Apply validates plan, then performs its deletes followed by its field clears.
func (a *PlanApplier) Apply(ctx context.Context, plan *domain.ReconciliationPlan) (domain.ApplyResult, error) {
	var result domain.ApplyResult
	if plan == nil {
		return result, errors.Wrap(domain.ErrInvalidPlan, "no plan")
	}
	if err := plan.Validate(); err != nil {
		return result, err
	}
	if plan.IsEmpty() {
		return result, nil
	}

	logger.Section("Apply plan")
	logger.Debug("applying plan %s (%s) for tenant %s: %d entries",
		plan.ID, plan.Kind, plan.TenantID, len(plan.Entries))

	var (
		collections []string
		deletes     = make(map[string][]string)
		clears      []domain.BrokenReference
	)
	for _, e := range plan.Entries {
		switch e.Action {
		case domain.ActionDelete:
			if _, ok := deletes[e.Collection]; !ok {
				collections = append(collections, e.Collection)
			}
			deletes[e.Collection] = append(deletes[e.Collection], e.TargetID)
		case domain.ActionClearField:
			clears = append(clears, domain.BrokenReference{
				SourceCollection: e.Collection,
				SourceID:         e.TargetID,
				TenantID:         plan.TenantID,
				Field:            e.Field,
				DanglingTargetID: e.Expected,
			})
		}
	}

	for _, collection := range collections {
		deleted, _, err := a.purger.DeleteIDs(ctx, collection, plan.TenantID, deletes[collection], nil)
		result.Deleted += deleted
		if err != nil {
			result.Skipped = len(plan.Entries) - result.Deleted - result.Cleared
			return result, errors.Wrapf(err, "applying plan %s", plan.ID)
		}
	}

	if len(clears) > 0 {
		cleared, err := a.refs.Repair(ctx, clears)
		result.Cleared = cleared
		if err != nil {
			result.Skipped = len(plan.Entries) - result.Deleted - result.Cleared
			return result, errors.Wrapf(err, "applying plan %s", plan.ID)
		}
	}

	result.Skipped = len(plan.Entries) - result.Deleted - result.Cleared
	logger.Info("plan %s applied: %d deleted, %d cleared, %d skipped",
		plan.ID, result.Deleted, result.Cleared, result.Skipped)
	return result, nil
}
