package services

import (
	"strings"

	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driving"
)

// Sentinels for missing key parts of the default dedup key.
const (
	NoSource = "no-source"
	NoID     = "no-id"
)

// KeyPart is one component of a composite dedup key.
type KeyPart struct {
	// Field is the record field read for this part.
	Field string

	// Missing is substituted when the field is absent, null, or blank.
	Missing string
}

// CompositeKey builds a total key function joining parts with "_".
func CompositeKey(parts ...KeyPart) driving.KeyFunc {
	return func(r domain.Record) string {
		values := make([]string, 0, len(parts))
		for _, p := range parts {
			v := strings.TrimSpace(r.StringField(p.Field))
			if v == "" {
				v = p.Missing
			}
			values = append(values, v)
		}
		return strings.Join(values, "_")
	}
}

// SourceExternalIDKey keys a record by external_source and external_id.
// A record with neither maps to "no-source_no-id".
var SourceExternalIDKey = CompositeKey(
	KeyPart{Field: domain.FieldExternalSource, Missing: NoSource},
	KeyPart{Field: domain.FieldExternalID, Missing: NoID},
)

// NewestFirst picks the most recently created record. Equal timestamps
// prefer a record that already links a canonical listing, then the
// lexicographically smallest ID.
func NewestFirst(records []domain.Record) domain.Record {
	best := records[0]
	for _, r := range records[1:] {
		if preferred(r, best) {
			best = r
		}
	}
	return best
}

// preferred reports whether a should survive over b.
func preferred(a, b domain.Record) bool {
	ta, tb := a.CreatedAt(), b.CreatedAt()
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	la, lb := hasCanonicalListing(a), hasCanonicalListing(b)
	if la != lb {
		return la
	}
	return a.ID < b.ID
}

func hasCanonicalListing(r domain.Record) bool {
	return strings.TrimSpace(r.StringField(domain.FieldCanonicalListingID)) != ""
}
