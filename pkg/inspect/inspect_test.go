package inspect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchwall/searchwall/pkg/auth"
)

// clientWithGrants builds an authenticated test client holding the
// given permission grants.
func clientWithGrants(grants ...auth.PermissionGrant) *auth.Client {
	client := auth.NewClient("192.0.2.10", 41234)
	client.Name = "tester"
	client.Roles = []*auth.Role{{Name: "test-role", Permissions: grants}}
	return client
}

func TestRegistryResolve(t *testing.T) {
	registry, err := NewRegistry(
		&Endpoint{
			Name:   "get-mapping",
			Routes: map[string][]string{"GET": {"/{indices}/_mapping{s}/{documents}"}},
		},
		&Endpoint{
			Name:   "get-index",
			Routes: map[string][]string{"GET": {"/{indices}"}},
		},
	)
	require.NoError(t, err)

	tests := []struct {
		name         string
		method       string
		path         string
		wantEndpoint string
		wantMatches  map[string]string
	}{
		{
			"placeholder extraction",
			"GET", "/logs-1,logs-2/_mappings/events",
			"get-mapping",
			map[string]string{"indices": "logs-1,logs-2", "documents": "events"},
		},
		{
			"optional plural suffix absent",
			"GET", "/logs-1/_mapping/events",
			"get-mapping",
			map[string]string{"indices": "logs-1", "documents": "events"},
		},
		{
			"single segment falls through to the later endpoint",
			"GET", "/logs-1",
			"get-index",
			map[string]string{"indices": "logs-1"},
		},
		{
			"trailing slash ignored",
			"GET", "/logs-1/",
			"get-index",
			map[string]string{"indices": "logs-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, endpoint, ok := registry.Resolve(tt.method, tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.wantEndpoint, endpoint.Name)
			for name, want := range tt.wantMatches {
				assert.Equal(t, want, req.Match(name))
			}
		})
	}
}

func TestRegistryResolveMisses(t *testing.T) {
	registry, err := NewRegistry(&Endpoint{
		Name:   "get-index",
		Routes: map[string][]string{"GET": {"/{indices}"}},
	})
	require.NoError(t, err)

	_, _, ok := registry.Resolve("DELETE", "/logs-1")
	assert.False(t, ok, "method must match")

	_, _, ok = registry.Resolve("GET", "/a/b/c")
	assert.False(t, ok, "extra segments must not match")
}

func TestRequestIndexPatterns(t *testing.T) {
	registry, err := NewRegistry(
		&Endpoint{Name: "stats", Routes: map[string][]string{"GET": {"/{indices}/_stats", "/_stats"}}},
	)
	require.NoError(t, err)

	req, _, ok := registry.Resolve("GET", "/logs-1, logs-2/_stats")
	require.True(t, ok)
	assert.Equal(t, []string{"logs-1", "logs-2"}, req.IndexPatterns())

	req, _, ok = registry.Resolve("GET", "/_stats")
	require.True(t, ok)
	assert.Equal(t, []string{"*"}, req.IndexPatterns(),
		"an index-less route addresses all indices")
}

func TestRequirePermission(t *testing.T) {
	inspect := RequirePermission("api/indices/stats", nil)

	client := clientWithGrants(auth.PermissionGrant{
		Permission: "api/indices/stats",
		Indices:    []string{"logs-*"},
	})

	req := &Request{Method: "GET", Path: "/logs-1/_stats", matches: map[string]string{"indices": "logs-1"}}
	assert.NoError(t, inspect(client, req))

	req = &Request{Method: "GET", Path: "/metrics-1/_stats", matches: map[string]string{"indices": "metrics-1"}}
	err := inspect(client, req)
	require.Error(t, err)

	var permErr *auth.PermissionError
	require.True(t, errors.As(err, &permErr))
	assert.Contains(t, permErr.Reason, "api/indices/stats")
	assert.Contains(t, permErr.Reason, "metrics-1")
}

func TestRequirePermissionAllPatternsRequired(t *testing.T) {
	inspect := RequirePermission("api/indices/stats", nil)
	client := clientWithGrants(auth.PermissionGrant{
		Permission: "api/indices/stats",
		Indices:    []string{"logs-*"},
	})

	req := &Request{
		Method:  "GET",
		Path:    "/logs-1,metrics-1/_stats",
		matches: map[string]string{"indices": "logs-1,metrics-1"},
	}
	assert.Error(t, inspect(client, req), "every requested pattern must be held")
}

func TestRequirePermissionRunsInner(t *testing.T) {
	ran := false
	inspect := RequirePermission("api/indices/stats", func(_ *auth.Client, _ *Request) error {
		ran = true
		return nil
	})

	client := clientWithGrants(auth.PermissionGrant{
		Permission: "api/indices/stats",
		Indices:    []string{"*"},
	})

	req := &Request{Method: "GET", Path: "/_stats", matches: map[string]string{}}
	require.NoError(t, inspect(client, req))
	assert.True(t, ran)
}

func TestRequirePermissionDeniesWithoutRoles(t *testing.T) {
	inspect := RequirePermission("api/indices/stats", nil)
	client := auth.NewClient("192.0.2.10", 41234)

	req := &Request{Method: "GET", Path: "/_stats", matches: map[string]string{}}
	assert.Error(t, inspect(client, req), "a client without roles holds nothing")
}
