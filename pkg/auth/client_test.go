package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientString(t *testing.T) {
	client := NewClient("192.0.2.10", 41234)
	assert.Equal(t, "192.0.2.10:41234", client.String())

	client.Username = "alice"
	assert.Equal(t, "alice", client.String())

	client.Name = "alice.example.org"
	assert.Equal(t, "alice.example.org", client.String())
}

func TestClientCanReadAcrossRoles(t *testing.T) {
	client := NewClient("192.0.2.10", 41234)
	client.Roles = []*Role{
		{Name: "a-reader", Restrictions: []*Restriction{NewRestriction("read/a-*")}},
		{Name: "empty"},
	}

	ok, err := client.CanRead("a-1", "", "")
	require.NoError(t, err)
	assert.True(t, ok, "any role granting access suffices")

	ok, err = client.CanRead("b-1", "", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClientWithoutRoles(t *testing.T) {
	client := NewClient("192.0.2.10", 41234)

	ok, err := client.CanRead("a-1", "", "")
	require.NoError(t, err)
	assert.False(t, ok, "nil roles must deny, not panic")

	ok, err = client.CanWrite("a-1", "", "")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.False(t, client.Can("api/indices/get/settings", "a-1"))
}

func TestClientCanWrite(t *testing.T) {
	client := NewClient("192.0.2.10", 41234)
	client.Roles = []*Role{
		{Name: "writer", Restrictions: []*Restriction{NewRestriction("write/logs-*,-logs-secret")}},
	}

	ok, err := client.CanWrite("logs-app", "", "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.CanWrite("logs-secret", "", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClientCan(t *testing.T) {
	client := NewClient("192.0.2.10", 41234)
	client.Roles = []*Role{
		{Name: "ops", Permissions: []PermissionGrant{
			{Permission: "api/indices/get/settings", Indices: []string{"idx-*"}},
			{Permission: "api/indices/*", Indices: []string{"ops-*"}},
		}},
	}

	assert.True(t, client.Can("api/indices/get/settings", "idx-1"))
	assert.False(t, client.Can("api/indices/get/settings", "other"))

	// A glob grant covers concrete permission names.
	assert.True(t, client.Can("api/indices/get/mappings", "ops-1"))

	// A family glob query matches concrete grants.
	assert.True(t, client.Can("api/indices/get/*", "idx-1"))
}

func TestClientFilterIndexPatterns(t *testing.T) {
	client := NewClient("192.0.2.10", 41234)
	client.Roles = []*Role{
		{Name: "ops", Permissions: []PermissionGrant{
			{Permission: "api/indices/get/settings", Indices: []string{"idx-*"}},
		}},
	}

	// Requested patterns covered by a grant are kept verbatim.
	filtered, ok := client.FilterIndexPatterns("api/indices/get/*", []string{"idx-1", "idx-2"})
	require.True(t, ok)
	assert.Equal(t, []string{"idx-1", "idx-2"}, filtered)

	// A broader request narrows to the held patterns.
	filtered, ok = client.FilterIndexPatterns("api/indices/get/*", []string{"*"})
	require.True(t, ok)
	assert.Equal(t, []string{"idx-*"}, filtered)

	// Nothing held on the requested patterns.
	_, ok = client.FilterIndexPatterns("api/indices/get/*", []string{"other"})
	assert.False(t, ok)
}
