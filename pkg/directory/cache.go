package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/searchwall/searchwall/pkg/auth"
)

// CacheTTL is how long cached group memberships stay valid.
const CacheTTL = 900 * time.Second

// cacheEntry is one cached membership list.
type cacheEntry struct {
	memberships []string
	expiresAt   time.Time
}

// UsergroupBackend resolves the directory groups a client is a member
// of, with a TTL-bounded cache keyed by client name. One reader/writer
// lock guards the cache: warm lookups take the read lock only, a refresh
// holds the write lock for its whole duration including the directory
// round trip. The cache is unbounded; ClearCache drops everything.
type UsergroupBackend struct {
	settings Settings
	dial     Dialer

	mu    sync.RWMutex
	cache map[string]cacheEntry
	now   func() time.Time
}

// NewUsergroupBackend returns a backend dialing the configured URL.
func NewUsergroupBackend(settings Settings) *UsergroupBackend {
	return &UsergroupBackend{
		settings: settings,
		dial:     func() (Conn, error) { return Dial(settings.URL) },
		cache:    make(map[string]cacheEntry),
		now:      time.Now,
	}
}

// ClearCache drops all cached memberships unconditionally.
func (b *UsergroupBackend) ClearCache() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache = make(map[string]cacheEntry)
}

// GetGroupMemberships fetches all groups the given client is a member
// of, in result order then value order. Cached memberships are returned
// while their TTL holds; otherwise the whole refresh runs under the
// write lock, serializing with every other lookup.
func (b *UsergroupBackend) GetGroupMemberships(_ context.Context, client *auth.Client) ([]string, error) {
	name := client.Name

	b.mu.RLock()
	entry, ok := b.cache[name]
	b.mu.RUnlock()

	if ok && b.now().Before(entry.expiresAt) {
		return entry.memberships, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	memberships, err := b.refresh(name)
	if err != nil {
		return nil, err
	}

	b.cache[name] = cacheEntry{
		memberships: memberships,
		expiresAt:   b.now().Add(CacheTTL),
	}

	return memberships, nil
}

// refresh runs one bind/search/unbind cycle against the directory on a
// fresh connection.
func (b *UsergroupBackend) refresh(name string) ([]string, error) {
	conn, err := b.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Unbind()

	if b.settings.BindDN != "" {
		if err := conn.Bind(b.settings.BindDN, b.settings.BindPassword); err != nil {
			return nil, fmt.Errorf("bind as %q: %w", b.settings.BindDN, err)
		}
	}

	userDN, err := b.fetchUserDN(conn, name)
	if err != nil {
		return nil, err
	}

	results, err := conn.Search(b.settings.GroupBaseDN, map[string]string{
		"objectClass":                       b.settings.GroupObjectClass,
		b.settings.GroupMembershipAttribute: userDN,
	}, []string{b.settings.GroupNameAttribute})
	if err != nil {
		return nil, err
	}

	memberships := []string{}
	for _, result := range results {
		memberships = append(memberships, result.Attributes[b.settings.GroupNameAttribute]...)
	}

	return memberships, nil
}

// fetchUserDN resolves the directory DN of the given user. Exactly one
// entry must match.
func (b *UsergroupBackend) fetchUserDN(conn Conn, user string) (string, error) {
	results, err := conn.Search(b.settings.UserBaseDN, map[string]string{
		"objectClass":                b.settings.UserObjectClass,
		b.settings.UserNameAttribute: user,
	}, []string{})
	if err != nil {
		return "", err
	}

	switch len(results) {
	case 0:
		return "", fmt.Errorf("no DN found for user %q", user)
	case 1:
		return results[0].DN, nil
	default:
		return "", fmt.Errorf("multiple DNs found for user %q", user)
	}
}
