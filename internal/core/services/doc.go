// Package services implements the driving port interfaces.
// Services contain the reconciliation logic and orchestrate
// calls to driven ports (adapters).
//
// Detection services only read. Writes happen in BulkPurger, in
// ReferenceChecker.Repair, and in PlanApplier, which combines the two.
package services
