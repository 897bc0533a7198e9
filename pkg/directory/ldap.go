package directory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Dial opens an LDAP connection to the given URL.
func Dial(url string) (Conn, error) {
	conn, err := ldap.DialURL(url)
	if err != nil {
		return nil, fmt.Errorf("dial directory %q: %w", url, err)
	}

	return &ldapConn{conn: conn}, nil
}

// ldapConn adapts *ldap.Conn to the Conn interface.
type ldapConn struct {
	conn *ldap.Conn
}

func (c *ldapConn) Bind(dn, password string) error {
	return c.conn.Bind(dn, password)
}

func (c *ldapConn) Search(baseDN string, filter map[string]string, attributes []string) ([]Entry, error) {
	// An empty non-nil attribute list is a names-only search.
	typesOnly := attributes != nil && len(attributes) == 0

	result, err := c.conn.Search(&ldap.SearchRequest{
		BaseDN:     baseDN,
		Scope:      ldap.ScopeWholeSubtree,
		Filter:     buildFilter(filter),
		Attributes: attributes,
		TypesOnly:  typesOnly,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(result.Entries))
	for _, e := range result.Entries {
		attrs := make(map[string][]string, len(e.Attributes))
		for _, attr := range e.Attributes {
			attrs[attr.Name] = attr.Values
		}
		entries = append(entries, Entry{DN: e.DN, Attributes: attrs})
	}

	return entries, nil
}

func (c *ldapConn) Unbind() error {
	return c.conn.Unbind()
}

// buildFilter renders the filter map as an ANDed LDAP filter string.
func buildFilter(filter map[string]string) string {
	if len(filter) == 0 {
		return "(objectClass=*)"
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("(%s=%s)", k, ldap.EscapeFilter(filter[k])))
	}

	if len(parts) == 1 {
		return parts[0]
	}

	return "(&" + strings.Join(parts, "") + ")"
}
