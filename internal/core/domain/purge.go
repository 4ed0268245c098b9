package domain

// DefaultPageSize is the page and batch size observed in platform scripts.
const DefaultPageSize = 500

// PurgeRequest describes a bulk purge.
type PurgeRequest struct {
	// Collection is the collection to purge.
	Collection string

	// Filter selects documents to delete. Filter.TenantID is required.
	Filter Filter

	// PageSize is the number of documents fetched and deleted per batch.
	// Zero means DefaultPageSize.
	PageSize int
}

// PurgeProgress is reported after each deleted page.
type PurgeProgress struct {
	// Page is the 1-based number of the page just deleted.
	Page int

	// PageDeleted is the number of documents in that page.
	PageDeleted int

	// DeletedSoFar is the running total.
	DeletedSoFar int
}

// PurgeResult summarises a purge run.
type PurgeResult struct {
	DeletedCount int
	Pages        int
}
