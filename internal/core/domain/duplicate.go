package domain

// DuplicateGroup is the set of records sharing one derived key.
// Groups are ephemeral and never persisted.
type DuplicateGroup struct {
	// Key is the derived dedup key shared by every member.
	Key string

	// Members holds every record with this key, sorted by ID.
	Members []Record

	// Survivor is the canonical record kept when the group is reconciled.
	// For singleton groups it is the only member.
	Survivor Record

	// ToDelete holds Members minus Survivor, sorted by ID.
	ToDelete []Record
}

// IsDuplicate reports whether the group has more than one member.
func (g DuplicateGroup) IsDuplicate() bool {
	return len(g.Members) > 1
}

// Size returns the number of members.
func (g DuplicateGroup) Size() int {
	return len(g.Members)
}

// ToDeleteIDs returns the IDs of records slated for deletion.
func (g DuplicateGroup) ToDeleteIDs() []string {
	ids := make([]string, 0, len(g.ToDelete))
	for i := range g.ToDelete {
		ids = append(ids, g.ToDelete[i].ID)
	}
	return ids
}

// BrokenKind classifies a broken reference.
type BrokenKind string

// Broken reference kinds.
const (
	// BrokenMissing means the referenced document does not exist.
	BrokenMissing BrokenKind = "missing"

	// BrokenCrossTenant means the referenced document belongs to another tenant.
	BrokenCrossTenant BrokenKind = "cross_tenant"

	// BrokenMalformed means the reference value is not a document ID string.
	BrokenMalformed BrokenKind = "malformed"
)

// BrokenReference is a foreign key that does not resolve inside its tenant.
type BrokenReference struct {
	// SourceCollection holds the record carrying the reference.
	SourceCollection string

	// SourceID is the record carrying the reference.
	SourceID string

	// TenantID is the tenant of the source record.
	TenantID string

	// Field is the reference field name.
	Field string

	// DanglingTargetID is the unresolved value, formatted as a string.
	DanglingTargetID string

	// Kind explains why the reference is broken.
	Kind BrokenKind
}
