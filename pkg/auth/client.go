package auth

import (
	"strconv"

	"github.com/searchwall/searchwall/pkg/pattern"
)

// Client represents one connection sending requests through the proxy.
// It is created per connection, populated once by the Manager, and never
// shared across connections.
type Client struct {
	Address string
	Port    int

	// Name is the resolved display identity, set during authentication.
	Name          string
	Authenticated bool

	// Transient credentials taken from the request, if any. Credential
	// verification is delegated to the backend cluster.
	Username string
	Password string

	// Groups is nil until population concluded; an empty non-nil slice
	// means the client is a member of no groups.
	Groups []string

	// Roles is nil while role membership is undetermined.
	Roles []*Role
}

// NewClient returns a Client for the given remote address and port.
func NewClient(address string, port int) *Client {
	return &Client{Address: address, Port: port}
}

// String returns the display identity: the resolved name, else the
// username, else address:port.
func (c *Client) String() string {
	if c.Name != "" {
		return c.Name
	}
	if c.Username != "" {
		return c.Username
	}

	return c.Address + ":" + strconv.Itoa(c.Port)
}

// CanRead reports whether any restriction on any of the client's roles
// permits read access to the given entities. A client without roles can
// read nothing.
func (c *Client) CanRead(index, docType, field string) (bool, error) {
	return c.permits(index, docType, field, (*Restriction).PermitsRead)
}

// CanWrite reports whether any restriction on any of the client's roles
// permits write access to the given entities.
func (c *Client) CanWrite(index, docType, field string) (bool, error) {
	return c.permits(index, docType, field, (*Restriction).PermitsWrite)
}

func (c *Client) permits(index, docType, field string, check func(*Restriction, string, string, string) (bool, error)) (bool, error) {
	for _, role := range c.Roles {
		for _, restriction := range role.Restrictions {
			ok, err := check(restriction, index, docType, field)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
	}

	return false, nil
}

// Can reports whether the client holds the given permission for the
// given index or index pattern. A grant matches when its permission
// pattern and the queried permission match in either direction: grants
// may be globs over concrete permission names, and callers may query
// with a family glob over concrete grants.
func (c *Client) Can(permission, index string) bool {
	for _, role := range c.Roles {
		for _, grant := range role.Permissions {
			if !permissionsMatch(grant.Permission, permission) {
				continue
			}
			if pattern.MatchesAny(grant.Indices, index) {
				return true
			}
		}
	}

	return false
}

// FilterIndexPatterns intersects the requested index patterns with those
// the client holds the given permission on. A requested pattern covered
// by a held pattern is kept verbatim; a requested pattern covering held
// patterns is replaced by them (narrowing). The second return value is
// false when the client holds the permission on none of the requested
// patterns.
func (c *Client) FilterIndexPatterns(permission string, requested []string) ([]string, bool) {
	var filtered []string
	for _, want := range requested {
		if c.Can(permission, want) {
			filtered = append(filtered, want)
			continue
		}

		for _, held := range c.heldIndexPatterns(permission) {
			if pattern.Matches(want, held) {
				filtered = append(filtered, held)
			}
		}
	}

	if len(filtered) == 0 {
		return nil, false
	}

	return filtered, true
}

// heldIndexPatterns returns every index pattern the client holds the
// given permission on, in role order.
func (c *Client) heldIndexPatterns(permission string) []string {
	var patterns []string
	for _, role := range c.Roles {
		for _, grant := range role.Permissions {
			if permissionsMatch(grant.Permission, permission) {
				patterns = append(patterns, grant.Indices...)
			}
		}
	}

	return patterns
}

func permissionsMatch(held, queried string) bool {
	return pattern.Matches(held, queried) || pattern.Matches(queried, held)
}
