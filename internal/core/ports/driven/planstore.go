package driven

import "github.com/custodia-labs/recon/internal/core/domain"

// PlanStore persists reconciliation plans between the plan and apply phases.
type PlanStore interface {
	// Save writes the plan to path, replacing any existing file.
	Save(path string, plan *domain.ReconciliationPlan) error

	// Load reads a plan previously written by Save.
	Load(path string) (*domain.ReconciliationPlan, error)
}
