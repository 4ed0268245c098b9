package domain

import "errors"

// Domain errors represent reconciliation failures.
// Adapters map their transport errors onto these so services can
// tell "confirmed missing" apart from "could not look".
var (
	// ErrNotFound indicates a requested document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates a missing or malformed tenant ID,
	// collection name, or option. Raised before any store call.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStoreUnavailable indicates the document store could not be reached
	// (network, auth, or driver failure).
	ErrStoreUnavailable = errors.New("document store unavailable")

	// ErrReferenceLookupFailed indicates a reference target could not be
	// looked up. Distinct from a confirmed broken reference.
	ErrReferenceLookupFailed = errors.New("reference lookup failed")

	// ErrPurgeInterrupted indicates a purge stopped between pages.
	// Completed pages stay deleted; re-running resumes.
	ErrPurgeInterrupted = errors.New("purge interrupted")

	// ErrPurgeStalled indicates the store returned records that were
	// just deleted, so the purge could not make progress.
	ErrPurgeStalled = errors.New("purge made no progress")

	// ErrTenantMismatch indicates a record outside the requested tenant
	// reached a mutating operation.
	ErrTenantMismatch = errors.New("tenant mismatch")

	// ErrBatchTooLarge indicates a write batch exceeds the store limit.
	ErrBatchTooLarge = errors.New("batch too large")

	// ErrInvalidPlan indicates a reconciliation plan failed validation.
	ErrInvalidPlan = errors.New("invalid plan")
)
