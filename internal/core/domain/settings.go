package domain

import "fmt"

const unknownDescription = "Unknown"

// StoreDriver identifies a DocumentStore backend.
type StoreDriver string

// Available store drivers.
const (
	// StoreDriverSQLite is a local SQLite snapshot of platform collections.
	StoreDriverSQLite StoreDriver = "sqlite"

	// StoreDriverFirestore is the production Firestore database.
	StoreDriverFirestore StoreDriver = "firestore"

	// StoreDriverMemory is an empty in-process store, useful for dry runs.
	StoreDriverMemory StoreDriver = "memory"
)

// IsValid returns true if the driver is recognised.
func (d StoreDriver) IsValid() bool {
	switch d {
	case StoreDriverSQLite, StoreDriverFirestore, StoreDriverMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (d StoreDriver) String() string {
	return string(d)
}

// Description returns a human-readable description of the driver.
func (d StoreDriver) Description() string {
	switch d {
	case StoreDriverSQLite:
		return "SQLite (local snapshot)"
	case StoreDriverFirestore:
		return "Firestore (production)"
	case StoreDriverMemory:
		return "Memory (empty, dry run)"
	default:
		return unknownDescription
	}
}

// DefaultMaxRetries is how often a rate-limited write batch is retried.
const DefaultMaxRetries = 3

// Settings holds everything an invocation needs besides its positional
// arguments. It replaces per-script tenant and collection literals.
type Settings struct {
	TenantID    string
	PageSize    int
	Collections CollectionSettings
	Store       StoreSettings
	Firestore   FirestoreSettings
	Throttle    ThrottleSettings
}

// CollectionSettings names the collections reconciled by default.
type CollectionSettings struct {
	// Source holds records carrying the reference (e.g. properties).
	Source string

	// Target holds the referenced documents (e.g. listings).
	Target string

	// ReferenceField is the foreign key on Source.
	ReferenceField string
}

// StoreSettings selects the store backend.
type StoreSettings struct {
	Driver StoreDriver

	// Path is the SQLite data directory. Empty means ~/.recon/data.
	Path string
}

// FirestoreSettings configures the Firestore adapter.
type FirestoreSettings struct {
	Project         string
	Database        string
	CredentialsFile string
}

// ThrottleSettings limits write batches sent to the store.
type ThrottleSettings struct {
	// WritesPerSecond is the sustained batch rate. Zero disables throttling.
	WritesPerSecond float64

	// Burst is the token bucket size.
	Burst int

	// MaxRetries bounds retries of a write batch the store rejected as
	// rate limited.
	MaxRetries int
}

// DefaultSettings returns settings matching the platform's conventions.
func DefaultSettings() *Settings {
	return &Settings{
		PageSize: DefaultPageSize,
		Collections: CollectionSettings{
			Source:         "properties",
			Target:         "listings",
			ReferenceField: FieldCanonicalListingID,
		},
		Store: StoreSettings{
			Driver: StoreDriverSQLite,
		},
		Firestore: FirestoreSettings{
			Database: "(default)",
		},
		Throttle: ThrottleSettings{
			Burst:      1,
			MaxRetries: DefaultMaxRetries,
		},
	}
}

// Validate checks the settings that every invocation relies on.
func (s *Settings) Validate() error {
	if s.PageSize <= 0 {
		return fmt.Errorf("%w: page_size must be positive", ErrInvalidArgument)
	}
	if !s.Store.Driver.IsValid() {
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidArgument, s.Store.Driver)
	}
	if s.Store.Driver == StoreDriverFirestore && s.Firestore.Project == "" {
		return fmt.Errorf("%w: firestore.project is required for the firestore driver", ErrInvalidArgument)
	}
	if s.Throttle.WritesPerSecond < 0 {
		return fmt.Errorf("%w: throttle.writes_per_second must not be negative", ErrInvalidArgument)
	}
	if s.Throttle.MaxRetries < 0 {
		return fmt.Errorf("%w: throttle.max_retries must not be negative", ErrInvalidArgument)
	}
	return nil
}
