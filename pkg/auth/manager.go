package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strings"
	"time"
)

// resolveTimeout bounds the reverse address lookup performed for
// credential-less clients.
const resolveTimeout = 2 * time.Second

// AllowFrom maps client addresses to the ports they may connect from.
// A nil port slice permits any port; an address missing from the map is
// denied. Only credential-less clients are checked against it.
type AllowFrom map[string][]int

// GroupBackend resolves the directory groups a client is a member of.
type GroupBackend interface {
	GetGroupMemberships(ctx context.Context, client *Client) ([]string, error)
}

// RoleBackend resolves the roles a client is a member of. A nil role
// slice with a nil error means the memberships are undetermined.
type RoleBackend interface {
	GetRoleMemberships(ctx context.Context, client *Client) ([]*Role, error)
}

// Manager authenticates clients and populates their group and role
// memberships. It mutates the Client it is given but does not retain it.
type Manager struct {
	allowFrom AllowFrom
	groups    GroupBackend
	roles     RoleBackend
	resolver  *net.Resolver
	log       *slog.Logger
}

// NewManager returns a Manager using the given address table and
// backends. groups may be nil when no directory is configured.
func NewManager(allowFrom AllowFrom, groups GroupBackend, roles RoleBackend) *Manager {
	return &Manager{
		allowFrom: allowFrom,
		groups:    groups,
		roles:     roles,
		resolver:  net.DefaultResolver,
		log:       slog.Default(),
	}
}

// Authenticate authenticates the given client and reports whether it
// succeeded. Clients without credentials are checked against the
// address table and given a resolved display name; clients with
// credentials are named after their username, with verification
// delegated to the backend. On success the client transitions to
// authenticated, after population when requested.
func (m *Manager) Authenticate(ctx context.Context, client *Client, populate bool) bool {
	if client.Username == "" || client.Password == "" {
		ports, ok := m.allowFrom[client.Address]
		if !ok {
			return false
		}
		if ports != nil && !slices.Contains(ports, client.Port) {
			return false
		}

		host := m.resolveName(ctx, client.Address)
		if ports == nil {
			client.Name = host
		} else {
			client.Name = fmt.Sprintf("%s:%d", host, client.Port)
		}
	} else {
		client.Name = client.Username
	}

	if populate {
		m.Populate(ctx, client)
	}

	client.Authenticated = true
	return true
}

// resolveName performs a bounded reverse lookup of the given address,
// falling back to the address itself on failure.
func (m *Manager) resolveName(ctx context.Context, address string) string {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	names, err := m.resolver.LookupAddr(ctx, address)
	if err != nil || len(names) == 0 {
		return address
	}

	return strings.TrimSuffix(names[0], ".")
}

// Populate fetches the group and role memberships of the given client.
// It is best-effort: fetch failures are logged and degrade the client to
// fewer or no grants instead of propagating. Roles are only looked up
// once group resolution has concluded, successfully or not with an empty
// result.
func (m *Manager) Populate(ctx context.Context, client *Client) {
	if m.groups != nil && client.Username != "" {
		m.log.Debug("fetching group memberships", "client", client.String())

		groups, err := m.groups.GetGroupMemberships(ctx, client)
		if err != nil {
			m.log.Error("failed to fetch group memberships",
				"client", client.String(), "error", err)
		} else {
			client.Groups = groups
			m.log.Debug("resolved group memberships",
				"client", client.String(), "groups", groups)
		}
	} else {
		client.Groups = []string{}
	}

	if client.Groups == nil || m.roles == nil {
		return
	}

	m.log.Debug("fetching role memberships", "client", client.String())

	roles, err := m.roles.GetRoleMemberships(ctx, client)
	if err != nil {
		m.log.Error("failed to fetch role memberships",
			"client", client.String(), "error", err)
		return
	}

	client.Roles = roles
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	m.log.Debug("resolved role memberships",
		"client", client.String(), "roles", names)
}
