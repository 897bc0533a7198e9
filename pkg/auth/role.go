package auth

// PermissionGrant assigns a named permission (itself a glob over
// permission names) to a set of index patterns.
type PermissionGrant struct {
	Permission string
	Indices    []string
}

// Role is a named, ordered collection of permission grants and
// restrictions assigned to a client. Immutable once built.
type Role struct {
	Name         string
	Permissions  []PermissionGrant
	Restrictions []*Restriction
}
