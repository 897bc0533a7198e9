package inspect

import (
	"fmt"
	"strings"

	"github.com/searchwall/searchwall/pkg/auth"
)

// indexSetting maps one settings keyword of the index GET API to the
// permission guarding it.
type indexSetting struct {
	keyword    string
	permission string
}

// indexSettings are the keywords accepted by the index GET API, in the
// order missing permissions are enumerated.
var indexSettings = []indexSetting{
	{"_settings", "api/indices/get/settings"},
	{"_mappings", "api/indices/get/mappings"},
	{"_warmers", "api/indices/get/warmers"},
	{"_aliases", "api/indices/get/aliases"},
}

// IndicesEndpoints returns the endpoint definitions of the indices
// APIs. Order matters: the catch-all index GET endpoint comes last so
// the more specific templates win.
func IndicesEndpoints() []*Endpoint {
	return []*Endpoint{
		{
			Name:    "create-index",
			Routes:  map[string][]string{"PUT": {"/{index}"}},
			Inspect: RequirePermission("api/indices/create/index", nil),
		},
		{
			Name:    "delete-index",
			Routes:  map[string][]string{"DELETE": {"/{indices}"}},
			Inspect: RequirePermission("api/indices/delete/index", nil),
		},
		{
			Name:    "open-index",
			Routes:  map[string][]string{"POST": {"/{indices}/_open"}},
			Inspect: RequirePermission("api/indices/open", nil),
		},
		{
			Name:    "close-index",
			Routes:  map[string][]string{"POST": {"/{indices}/_close"}},
			Inspect: RequirePermission("api/indices/close", nil),
		},
		{
			Name:    "create-mapping",
			Routes:  map[string][]string{"PUT": {"/{indices}/_mapping{s}/{document}"}},
			Inspect: RequirePermission("api/indices/create/mappings", nil),
		},
		{
			Name: "get-mapping",
			Routes: map[string][]string{
				"GET": {
					"/_mapping{s}",
					"/{indices}/_mapping{s}",
					"/_mapping{s}/{documents}",
					"/{indices}/_mapping{s}/{documents}",
				},
				"HEAD": {"/{indices}/{documents}"},
			},
			Inspect: RequirePermission("api/indices/get/mappings", nil),
		},
		{
			Name: "get-field-mapping",
			Routes: map[string][]string{
				"GET": {
					"/{indices}/_mapping{s}/field/{fields}",
					"/{indices}/{documents}/_mapping{s}/field/{fields}",
					"/{indices}/_mapping{s}/{documents}/field/{fields}",
				},
			},
			Inspect: RequirePermission("api/indices/get/mappings", nil),
		},
		{
			Name: "delete-mapping",
			Routes: map[string][]string{
				"DELETE": {
					"/{indices}/_mapping{s}",
					"/{indices}/{documents}/_mapping{s}",
					"/{indices}/_mapping{s}/{documents}",
				},
			},
			Inspect: RequirePermission("api/indices/delete/mappings", nil),
		},
		{
			Name: "create-alias",
			Routes: map[string][]string{
				"POST": {"/_aliases"},
				"PUT":  {"/{indices}/_alias{es}/{name}"},
			},
			Inspect: RequirePermission("api/indices/create/aliases", nil),
		},
		{
			Name:    "delete-alias",
			Routes:  map[string][]string{"DELETE": {"/{indices}/_alias{es}/{names}"}},
			Inspect: RequirePermission("api/indices/delete/aliases", nil),
		},
		{
			Name: "get-alias",
			Routes: map[string][]string{
				"GET": {
					"/_alias",
					"/_alias/{name}",
					"/{indices}/_alias",
					"/{indices}/_alias/{name}",
				},
			},
			Inspect: RequirePermission("api/indices/get/aliases", nil),
		},
		{
			Name:    "update-index-settings",
			Routes:  map[string][]string{"PUT": {"/_settings", "/{indices}/_settings"}},
			Inspect: RequirePermission("api/indices/update/settings", nil),
		},
		{
			Name:    "get-index-settings",
			Routes:  map[string][]string{"GET": {"/_settings", "/{indices}/_settings"}},
			Inspect: RequirePermission("api/indices/get/settings", nil),
		},
		{
			Name: "analyze",
			Routes: map[string][]string{
				"GET":  {"/_analyze", "/{index}/_analyze"},
				"POST": {"/_analyze", "/{index}/_analyze"},
			},
			Inspect: RequirePermission("api/indices/analyze", nil),
		},
		{
			Name:    "create-index-template",
			Routes:  map[string][]string{"PUT": {"/_template/{name}"}},
			Inspect: RequirePermission("api/indices/create/templates", nil),
		},
		{
			Name:    "delete-index-template",
			Routes:  map[string][]string{"DELETE": {"/_template/{name}"}},
			Inspect: RequirePermission("api/indices/delete/templates", nil),
		},
		{
			Name:    "get-index-template",
			Routes:  map[string][]string{"GET": {"/_template", "/_template/{names}"}},
			Inspect: RequirePermission("api/indices/get/templates", nil),
		},
		{
			Name: "create-index-warmer",
			Routes: map[string][]string{
				"PUT": {
					"/_warmer{s}/{identifier}",
					"/{indices}/_warmer{s}/{identifier}",
					"/{indices}/{documents}/_warmer{s}/{identifier}",
				},
			},
			Inspect: RequirePermission("api/indices/create/warmers", nil),
		},
		{
			Name:    "delete-index-warmer",
			Routes:  map[string][]string{"DELETE": {"/{indices}/_warmer{s}/{identifiers}"}},
			Inspect: RequirePermission("api/indices/delete/warmers", nil),
		},
		{
			Name: "get-index-warmer",
			Routes: map[string][]string{
				"GET": {
					"/_warmer{s}/{identifiers}",
					"/{indices}/_warmer{s}/{identifiers}",
				},
			},
			Inspect: RequirePermission("api/indices/get/warmers", nil),
		},
		{
			Name:    "index-stats",
			Routes:  map[string][]string{"GET": {"/_stats", "/{indices}/_stats"}},
			Inspect: RequirePermission("api/indices/stats", nil),
		},
		{
			Name:    "index-segments",
			Routes:  map[string][]string{"GET": {"/_segments", "/{indices}/_segments"}},
			Inspect: RequirePermission("api/indices/segments", nil),
		},
		{
			Name:    "index-recovery",
			Routes:  map[string][]string{"GET": {"/_recovery", "/{indices}/_recovery"}},
			Inspect: RequirePermission("api/indices/recovery", nil),
		},
		{
			Name:    "clear-index-cache",
			Routes:  map[string][]string{"POST": {"/_cache/clear", "/{indices}/_cache/clear"}},
			Inspect: RequirePermission("api/indices/cache/clear", nil),
		},
		{
			Name: "index-flush",
			Routes: map[string][]string{
				"POST": {
					"/_flush",
					"/_flush/synced",
					"/{indices}/_flush",
					"/{indices}/_flush/synced",
				},
			},
			Inspect: RequirePermission("api/indices/flush", nil),
		},
		{
			Name:    "index-refresh",
			Routes:  map[string][]string{"POST": {"/_refresh", "/{indices}/_refresh"}},
			Inspect: RequirePermission("api/indices/refresh", nil),
		},
		{
			Name:    "index-optimize",
			Routes:  map[string][]string{"POST": {"/_optimize", "/{indices}/_optimize"}},
			Inspect: RequirePermission("api/indices/optimize", nil),
		},
		{
			Name: "index-upgrade",
			Routes: map[string][]string{
				"GET":  {"/{index}/_upgrade"},
				"POST": {"/{index}/_upgrade"},
			},
			Inspect: RequirePermission("api/indices/upgrade", nil),
		},
		{
			Name: "get-index",
			Routes: map[string][]string{
				"GET":  {"/{indices}", "/{indices}/{keywords}"},
				"HEAD": {"/{indices}", "/{indices}/{keywords}"},
			},
			Inspect: InspectGetIndex,
		},
	}
}

// InspectGetIndex inspects the index GET API, the fan-out metadata
// endpoint. It narrows the requested index patterns to those the client
// holds any settings-read permission on, validates the requested
// keywords, verifies the keyword/index permission matrix all-or-nothing,
// and finally narrows the outgoing path to the permitted keyword
// categories when none were explicitly requested.
func InspectGetIndex(client *auth.Client, req *Request) error {
	requested := req.Match("indices")
	narrowed, ok := client.FilterIndexPatterns("api/indices/get/*", SplitPatterns(requested))
	if !ok {
		return auth.Denied("you are not permitted to access any settings of the given index or indices")
	}
	if joined := strings.Join(narrowed, ","); joined != requested {
		req.Path = strings.Replace(req.Path, requested, joined, 1)
	}

	keywords := SplitPatterns(req.Match("keywords"))
	for _, keyword := range keywords {
		if !knownIndexSetting(keyword) {
			return auth.Denied("unknown index setting: %s", keyword)
		}
	}

	// The permitted list is flat on purpose: one record per permitted
	// keyword/index combination. The final comparison against the fixed
	// keyword count below depends on that.
	var permitted []string
	missing := make(map[string][]string)
	var missingOrder []string
	for _, setting := range indexSettings {
		if len(keywords) > 0 && !containsKeyword(keywords, setting.keyword) {
			continue
		}

		for _, index := range narrowed {
			if client.Can(setting.permission, index) {
				permitted = append(permitted, setting.keyword)
			} else {
				if _, seen := missing[setting.permission]; !seen {
					missingOrder = append(missingOrder, setting.permission)
				}
				missing[setting.permission] = append(missing[setting.permission], index)
			}
		}
	}

	if len(missing) > 0 {
		hints := make([]string, 0, len(missingOrder))
		for _, permission := range missingOrder {
			hints = append(hints, fmt.Sprintf("%s (%s)", permission, strings.Join(missing[permission], ", ")))
		}

		return auth.Denied("you are missing the following permissions: %s", strings.Join(hints, ", "))
	}

	if len(keywords) == 0 && len(permitted) < len(indexSettings) {
		req.Path = strings.TrimRight(req.Path, "/") + "/" + strings.Join(permitted, ",")
	}

	return nil
}

func knownIndexSetting(keyword string) bool {
	for _, setting := range indexSettings {
		if setting.keyword == keyword {
			return true
		}
	}

	return false
}

func containsKeyword(keywords []string, keyword string) bool {
	for _, k := range keywords {
		if k == keyword {
			return true
		}
	}

	return false
}
