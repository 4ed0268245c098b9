package mcp

import (
	"context"

	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driving"
)

// mockDuplicateService is a mock implementation of driving.DuplicateService.
type mockDuplicateService struct {
	groups []domain.DuplicateGroup
	err    error
	req    driving.DetectRequest
}

func (m *mockDuplicateService) Detect(_ context.Context, req driving.DetectRequest) ([]domain.DuplicateGroup, error) {
	m.req = req
	return m.groups, m.err
}

// mockReferenceChecker is a mock implementation of ReferenceChecker.
type mockReferenceChecker struct {
	broken []domain.BrokenReference
	err    error
	req    driving.CheckRequest
}

func (m *mockReferenceChecker) Check(_ context.Context, req driving.CheckRequest) ([]domain.BrokenReference, error) {
	m.req = req
	return m.broken, m.err
}

// mockCounter is a mock implementation of DocumentCounter.
type mockCounter struct {
	count      int
	err        error
	collection string
	filter     domain.Filter
}

func (m *mockCounter) Count(_ context.Context, collection string, filter domain.Filter) (int, error) {
	m.collection = collection
	m.filter = filter
	return m.count, m.err
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings *domain.Settings
	err      error
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	return m.settings, m.err
}

func (m *mockSettingsService) Set(_, _ string) error {
	return m.err
}

func (m *mockSettingsService) GetDefaults() domain.Settings {
	return *domain.DefaultSettings()
}

func (m *mockSettingsService) Keys() []string {
	return nil
}

func newTestPorts() (*Ports, *mockDuplicateService, *mockReferenceChecker, *mockCounter) {
	dupes := &mockDuplicateService{}
	refs := &mockReferenceChecker{}
	counter := &mockCounter{}
	return &Ports{Duplicates: dupes, References: refs, Counter: counter}, dupes, refs, counter
}
