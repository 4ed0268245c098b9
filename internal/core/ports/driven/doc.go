// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - DocumentStore: Tenant-scoped query, lookup, and atomic batch writes
//   - ConfigStore: Application configuration
//   - PlanStore: Reconciliation plan persistence
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
