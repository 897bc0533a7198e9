// Package directory resolves group memberships against an LDAP
// directory and caches them per client.
package directory

// Entry is one directory search result.
type Entry struct {
	DN         string
	Attributes map[string][]string
}

// Conn is one connection to the directory service. Connections are
// created per refresh and never shared.
type Conn interface {
	// Bind authenticates the connection with the given DN and password.
	Bind(dn, password string) error

	// Search runs a subtree search below baseDN. The filter map is sent
	// as an AND filter. A nil attribute list retrieves all attributes;
	// an empty non-nil list retrieves attribute names only.
	Search(baseDN string, filter map[string]string, attributes []string) ([]Entry, error)

	// Unbind releases the connection.
	Unbind() error
}

// Dialer opens a fresh directory connection.
type Dialer func() (Conn, error)

// Settings configures the directory backends.
type Settings struct {
	URL          string
	BindDN       string
	BindPassword string

	UserBaseDN        string
	UserObjectClass   string
	UserNameAttribute string

	GroupBaseDN              string
	GroupObjectClass         string
	GroupNameAttribute       string
	GroupMembershipAttribute string
}
