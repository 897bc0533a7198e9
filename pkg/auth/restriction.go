package auth

import (
	"strings"

	"github.com/searchwall/searchwall/pkg/pattern"
)

// Restriction is one configured client restriction of the form
// mode/index-patterns[/type-patterns[/field-patterns]]. Scope sections
// hold comma-separated glob tokens; a `-` prefix marks an exclude, a `+`
// prefix an include overriding excludes, anything else a plain grant.
//
// The raw source is parsed at most once; parsing is deferred until the
// first permission check.
type Restriction struct {
	Raw string

	parsed   bool
	readOnly bool
	index    scope
	types    scope
	fields   scope
}

// scope holds the parsed patterns of one restriction tier.
type scope struct {
	patterns []string
	includes []string
	excludes []string
}

// empty reports whether the scope section was absent from the source.
func (s *scope) empty() bool {
	return len(s.patterns) == 0
}

// add sorts one trimmed token into the scope's pattern lists.
func (s *scope) add(token string) {
	switch {
	case strings.HasPrefix(token, "-"):
		s.excludes = append(s.excludes, token[1:])
	case strings.HasPrefix(token, "+"):
		s.includes = append(s.includes, token[1:])
	default:
		s.patterns = append(s.patterns, token)
	}
}

// permits applies the tier rule: the subject must match a plain pattern,
// and must either match no exclude or match an include. Includes
// override excludes, excludes override plain grants.
func (s *scope) permits(subject string) bool {
	if !pattern.MatchesAny(s.patterns, subject) {
		return false
	}

	if !pattern.MatchesAny(s.excludes, subject) {
		return true
	}

	return pattern.MatchesAny(s.includes, subject)
}

// NewRestriction wraps a raw restriction source. The source is not
// validated here; the first permission check parses it.
func NewRestriction(raw string) *Restriction {
	return &Restriction{Raw: raw}
}

func (r *Restriction) String() string {
	return r.Raw
}

// parse splits the raw source into its mode and scope sections. It is
// idempotent; a successful parse is never repeated.
func (r *Restriction) parse() error {
	if r.parsed {
		return nil
	}

	parts := strings.Split(r.Raw, "/")
	if len(parts) < 2 || len(parts) > 4 {
		return &RestrictionError{Restriction: r.Raw, Reason: "expected mode/index[/type[/field]]"}
	}

	sections := []struct {
		scope *scope
		name  string
	}{
		{&r.index, "index"},
		{&r.types, "document type"},
		{&r.fields, "document field"},
	}

	for i, part := range parts[1:] {
		section := sections[i]
		for _, token := range strings.Split(part, ",") {
			section.scope.add(strings.TrimSpace(token))
		}

		if section.scope.empty() {
			return &RestrictionError{
				Restriction: r.Raw,
				Reason:      "does not provide any " + section.name + " patterns",
			}
		}
	}

	r.readOnly = parts[0] == "read"
	r.parsed = true
	return nil
}

// check evaluates the tiers top-down. Empty docType or field means the
// request does not address that tier.
func (r *Restriction) check(index, docType, field string) bool {
	// A restriction covering a tier the request does not address denies
	// access, and so does a request addressing a tier the restriction
	// does not cover.
	if (field == "" && !r.fields.empty()) || (docType == "" && !r.types.empty()) {
		return false
	}
	if (field != "" && r.fields.empty()) || (docType != "" && r.types.empty()) {
		return false
	}

	if !r.index.permits(index) {
		return false
	}
	if docType == "" {
		return true
	}

	if !r.types.permits(docType) {
		return false
	}
	if field == "" {
		return true
	}

	return r.fields.permits(field)
}

// PermitsRead reports whether read access to the given entities is
// permitted. Pass empty strings for tiers the request does not address.
func (r *Restriction) PermitsRead(index, docType, field string) (bool, error) {
	if err := r.parse(); err != nil {
		return false, err
	}

	return r.check(index, docType, field), nil
}

// PermitsWrite reports whether write access to the given entities is
// permitted. Read-only restrictions never permit writes.
func (r *Restriction) PermitsWrite(index, docType, field string) (bool, error) {
	if err := r.parse(); err != nil {
		return false, err
	}
	if r.readOnly {
		return false, nil
	}

	return r.check(index, docType, field), nil
}
