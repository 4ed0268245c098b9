package domain

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Field names observed on platform documents.
const (
	FieldTenantID           = "tenant_id"
	FieldReference          = "reference"
	FieldExternalID         = "external_id"
	FieldExternalSource     = "external_source"
	FieldCanonicalListingID = "canonical_listing_id"
	FieldPropertyID         = "property_id"
	FieldCreatedAt          = "created_at"
)

// Record is a single document in a tenant-scoped collection.
type Record struct {
	// ID is the opaque document identifier, unique within a collection.
	ID string

	// TenantID is the isolation boundary the record belongs to.
	TenantID string

	// Fields holds the document body. Values use JSON-like Go types
	// (string, float64, int64, bool, time.Time, nil, maps and slices).
	Fields map[string]any
}

// Field returns the value stored under name and whether it is present and non-null.
func (r Record) Field(name string) (any, bool) {
	if r.Fields == nil {
		return nil, false
	}
	v, ok := r.Fields[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// StringField returns the field rendered as a string, or "" when absent.
// Non-string scalars are formatted with %v.
func (r Record) StringField(name string) string {
	v, ok := r.Field(name)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// CreatedAt derives the creation time from the created_at field.
// Unparseable or missing values yield the zero time.
func (r Record) CreatedAt() time.Time {
	v, ok := r.Field(FieldCreatedAt)
	if !ok {
		return time.Time{}
	}
	return ParseTimestamp(v)
}

// Clone returns a deep-enough copy: the top-level field map is copied so
// callers can mutate it without touching the original.
func (r Record) Clone() Record {
	out := Record{ID: r.ID, TenantID: r.TenantID}
	if r.Fields != nil {
		out.Fields = make(map[string]any, len(r.Fields))
		for k, v := range r.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// ParseTimestamp converts the timestamp shapes seen in stored documents.
// Integers above 1e12 are treated as unix milliseconds, smaller ones as seconds.
func ParseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case *time.Time:
		if t == nil {
			return time.Time{}
		}
		return t.UTC()
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC()
			}
		}
		return time.Time{}
	case int:
		return fromUnix(int64(t))
	case int64:
		return fromUnix(t)
	case float64:
		return fromUnix(int64(t))
	default:
		return time.Time{}
	}
}

func fromUnix(n int64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	if n > 1e12 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// Filter selects records within a single tenant.
type Filter struct {
	// TenantID is mandatory; stores must never return records of other tenants.
	TenantID string

	// Equals holds field equality constraints, all of which must match.
	Equals map[string]any
}

// Matches reports whether a record satisfies the filter.
func (f Filter) Matches(r Record) bool {
	if r.TenantID != f.TenantID {
		return false
	}
	for k, want := range f.Equals {
		got, ok := r.Fields[k]
		if !ok {
			if want != nil {
				return false
			}
			continue
		}
		if !ValuesEqual(got, want) {
			return false
		}
	}
	return true
}

// ParseFilterValue converts a textual filter value into the typed value
// stored documents hold: null, true and false become nil and booleans,
// integers become int64, other numbers float64. Double-quoted text is
// always a string, so `"42"` matches the string 42.
func ParseFilterValue(s string) any {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	switch s {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// ValuesEqual compares two scalar field values, treating numeric types
// as equal when they hold the same number. Values of different kinds
// never match, so the string "true" does not equal the boolean true.
func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum || bNum {
		return aNum && bNum && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return reflect.DeepEqual(a, b)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// Query describes a single page read from a collection.
type Query struct {
	// Collection is the collection name.
	Collection string

	// Filter scopes the query to a tenant plus equality constraints.
	Filter Filter

	// Limit caps the number of records returned. Zero means no limit.
	Limit int

	// StartAfter is an exclusive document ID cursor. Results are
	// ordered by ID ascending.
	StartAfter string
}

// FieldUpdate patches fields on one document. A nil value sets the field to null.
type FieldUpdate struct {
	ID     string
	Fields map[string]any
}
