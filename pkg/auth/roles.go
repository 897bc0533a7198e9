package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/searchwall/searchwall/pkg/backend"
)

const (
	// roleSearchPath is where the cluster keeps its role documents.
	roleSearchPath = "/.searchwall/role/_search"

	// roleSearchSize bounds the role search to a single page.
	roleSearchSize = 1000
)

// RoleDirectory fetches role definitions from the backend cluster. It
// performs no caching; every population refetches.
type RoleDirectory struct {
	transport backend.Transport
	log       *slog.Logger
}

// NewRoleDirectory returns a RoleDirectory using the given transport.
func NewRoleDirectory(transport backend.Transport) *RoleDirectory {
	return &RoleDirectory{transport: transport, log: slog.Default()}
}

// roleDocument is the stored shape of one role.
type roleDocument struct {
	Users        []string        `json:"users"`
	Groups       []string        `json:"groups"`
	Permissions  []grantDocument `json:"permissions"`
	Restrictions []string        `json:"restrictions"`
}

type grantDocument struct {
	Name    string   `json:"name"`
	Indices []string `json:"indices"`
}

// roleSearchResult is the subset of the search response consumed here.
type roleSearchResult struct {
	Hits struct {
		Hits []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// GetRoleMemberships fetches all roles the given client is a member of,
// matched by name and group list. A nil slice with a nil error means the
// memberships could not be determined. Documents failing validation are
// skipped with a warning; they do not fail the whole fetch.
func (d *RoleDirectory) GetRoleMemberships(ctx context.Context, client *Client) ([]*Role, error) {
	body, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"should": []any{
					map[string]any{"term": map[string]any{"users": client.Name}},
					map[string]any{"terms": map[string]any{"groups": client.Groups}},
				},
				"minimum_should_match": 1,
			},
		},
	})
	if err != nil {
		return nil, &RoleDirectoryError{Err: err}
	}

	resp, err := d.transport.Process(ctx, &backend.Request{
		Method: http.MethodPost,
		Path:   roleSearchPath,
		Params: url.Values{"size": []string{strconv.Itoa(roleSearchSize)}},
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
	})
	if err != nil {
		return nil, &RoleDirectoryError{Err: err}
	}
	if resp == nil {
		return nil, nil
	}
	if err := resp.Err(); err != nil {
		return nil, &RoleDirectoryError{Err: err}
	}

	var result roleSearchResult
	if err := resp.JSON(&result); err != nil {
		return nil, &RoleDirectoryError{Err: err}
	}

	roles := make([]*Role, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		role, err := parseRole(hit.ID, hit.Source)
		if err != nil {
			d.log.Warn("skipping role from search result", "role", hit.ID, "error", err)
			continue
		}

		roles = append(roles, role)
	}

	return roles, nil
}

// parseRole validates one role document and builds the Role. Restriction
// sources are wrapped unparsed; malformed ones surface on first use.
func parseRole(id string, source json.RawMessage) (*Role, error) {
	if id == "" {
		return nil, fmt.Errorf("role document without id")
	}

	var doc roleDocument
	if err := json.Unmarshal(source, &doc); err != nil {
		return nil, fmt.Errorf("malformed role document: %w", err)
	}

	role := &Role{Name: id}
	for _, grant := range doc.Permissions {
		if grant.Name == "" || len(grant.Indices) == 0 {
			return nil, fmt.Errorf("permission grant without name or index patterns")
		}
		role.Permissions = append(role.Permissions, PermissionGrant{
			Permission: grant.Name,
			Indices:    grant.Indices,
		})
	}
	for _, raw := range doc.Restrictions {
		role.Restrictions = append(role.Restrictions, NewRestriction(raw))
	}

	return role, nil
}
