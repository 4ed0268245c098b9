package mcp

import (
	"context"

	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driving"
)

// ReferenceChecker is the read-only half of driving.ReferenceService.
type ReferenceChecker interface {
	Check(ctx context.Context, req driving.CheckRequest) ([]domain.BrokenReference, error)
}

// DocumentCounter is the read-only half of driving.PurgeService.
type DocumentCounter interface {
	Count(ctx context.Context, collection string, filter domain.Filter) (int, error)
}

// Ports aggregates the driving ports the MCP server needs.
// Only read-only views are accepted, so the server cannot repair,
// purge or apply anything.
type Ports struct {
	// Duplicates finds duplicate groups.
	Duplicates driving.DuplicateService

	// References checks foreign keys.
	References ReferenceChecker

	// Counter counts documents matching a filter.
	Counter DocumentCounter

	// Settings supplies default collection names. Optional.
	Settings driving.SettingsService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Duplicates == nil {
		return ErrMissingDuplicateService
	}
	if p.References == nil {
		return ErrMissingReferenceService
	}
	if p.Counter == nil {
		return ErrMissingCountService
	}
	return nil
}

// settings returns configured settings, falling back to defaults.
func (p *Ports) settings() *domain.Settings {
	if p.Settings == nil {
		return domain.DefaultSettings()
	}
	s, err := p.Settings.Get()
	if err != nil || s == nil {
		return domain.DefaultSettings()
	}
	return s
}
