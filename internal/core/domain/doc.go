// Package domain defines the core reconciliation entities for recon.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Record: A tenant-scoped document with an opaque ID
//   - Filter / Query: Tenant-scoped selections over a collection
//   - DuplicateGroup: Records sharing a derived key
//   - BrokenReference: A foreign key that no longer resolves
//   - ReconciliationPlan: Data describing deletions and field clears
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
