// Package planfile persists reconciliation plans as JSON files so a plan
// can be reviewed before it is applied.
package planfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.PlanStore = (*Store)(nil)

// Store reads and writes plan files.
type Store struct{}

// NewStore creates a plan file store.
func NewStore() *Store {
	return &Store{}
}

// Save writes plan to path with owner-only permissions. The file is
// written to a temporary name first and renamed into place.
func (s *Store) Save(path string, plan *domain.ReconciliationPlan) error {
	if plan == nil {
		return fmt.Errorf("%w: no plan to save", domain.ErrInvalidPlan)
	}
	if err := plan.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating plan directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".plan-*.json")
	if err != nil {
		return fmt.Errorf("creating plan file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing plan file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("setting plan file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing plan file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("saving plan file: %w", err)
	}
	return nil
}

// Load reads and validates the plan at path.
func (s *Store) Load(path string) (*domain.ReconciliationPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}

	var plan domain.ReconciliationPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidPlan, filepath.Base(path), err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if plan.Entries == nil {
		plan.Entries = []domain.PlanEntry{}
	}
	return &plan, nil
}
