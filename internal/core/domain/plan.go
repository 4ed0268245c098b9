package domain

import (
	"fmt"
	"time"
)

// PlanAction is the kind of change a plan entry requests.
type PlanAction string

// Plan actions.
const (
	// ActionDelete removes a whole document.
	ActionDelete PlanAction = "delete"

	// ActionClearField sets a single field to null.
	ActionClearField PlanAction = "clear_field"
)

// IsValid returns true if the action is recognised.
func (a PlanAction) IsValid() bool {
	return a == ActionDelete || a == ActionClearField
}

// PlanKind records which detector produced a plan.
type PlanKind string

// Plan kinds.
const (
	PlanKindDuplicates PlanKind = "duplicates"
	PlanKindReferences PlanKind = "references"
)

// PlanEntry is one requested change.
type PlanEntry struct {
	Action     PlanAction `json:"action"`
	Collection string     `json:"collection"`
	TargetID   string     `json:"target_id"`

	// Field and Expected are set for clear_field entries. The field is
	// only cleared while it still holds Expected.
	Field    string `json:"field,omitempty"`
	Expected string `json:"expected,omitempty"`

	Reason string `json:"reason"`
}

// ReconciliationPlan is the output of a detector. It is pure data:
// building one never mutates the store.
type ReconciliationPlan struct {
	ID        string      `json:"id"`
	TenantID  string      `json:"tenant_id"`
	Kind      PlanKind    `json:"kind"`
	CreatedAt time.Time   `json:"created_at"`
	Entries   []PlanEntry `json:"entries"`
}

// PlanSummary counts plan entries by action.
type PlanSummary struct {
	Deletes     int
	ClearFields int
}

// Summary counts entries by action.
func (p *ReconciliationPlan) Summary() PlanSummary {
	var s PlanSummary
	for i := range p.Entries {
		switch p.Entries[i].Action {
		case ActionDelete:
			s.Deletes++
		case ActionClearField:
			s.ClearFields++
		}
	}
	return s
}

// IsEmpty reports whether the plan requests no changes.
func (p *ReconciliationPlan) IsEmpty() bool {
	return len(p.Entries) == 0
}

// Validate checks that the plan is well formed.
func (p *ReconciliationPlan) Validate() error {
	if p.TenantID == "" {
		return fmt.Errorf("%w: plan has no tenant", ErrInvalidPlan)
	}
	for i := range p.Entries {
		e := p.Entries[i]
		if !e.Action.IsValid() {
			return fmt.Errorf("%w: entry %d has unknown action %q", ErrInvalidPlan, i, e.Action)
		}
		if e.Collection == "" || e.TargetID == "" {
			return fmt.Errorf("%w: entry %d is missing collection or target", ErrInvalidPlan, i)
		}
		if e.Action == ActionClearField && e.Field == "" {
			return fmt.Errorf("%w: entry %d clears no field", ErrInvalidPlan, i)
		}
	}
	return nil
}

// ApplyResult reports what applying a plan changed.
type ApplyResult struct {
	// Deleted is the number of documents removed.
	Deleted int

	// Cleared is the number of fields set to null.
	Cleared int

	// Skipped is the number of entries that were already satisfied or
	// whose targets left the tenant.
	Skipped int
}
