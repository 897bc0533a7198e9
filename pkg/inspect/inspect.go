// Package inspect implements the permission-checked request-inspection
// protocol. Every endpoint the proxy knows declares a verb, one or more
// path templates, and an inspection step that runs after routing and
// before dispatch. An inspection may approve a request, reject it with
// a PermissionError, or narrow it by rewriting its outgoing path.
package inspect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/searchwall/searchwall/pkg/auth"
)

// Request is the inspectable view of one inbound request. Path is the
// outgoing path and may be rewritten by inspections.
type Request struct {
	Method string
	Path   string

	matches map[string]string
}

// Match returns the value extracted for the named template placeholder,
// or "" when the matched template has no such placeholder.
func (r *Request) Match(name string) string {
	return r.matches[name]
}

// IndexPatterns returns the comma-separated index patterns addressed by
// the request, or ["*"] when the matched template carries none.
func (r *Request) IndexPatterns() []string {
	raw := r.matches["indices"]
	if raw == "" {
		raw = r.matches["index"]
	}
	if raw == "" {
		return []string{"*"}
	}

	return SplitPatterns(raw)
}

// SplitPatterns splits a comma-separated pattern list, trimming each
// token and dropping empty ones.
func SplitPatterns(raw string) []string {
	var patterns []string
	for _, token := range strings.Split(raw, ",") {
		if token = strings.TrimSpace(token); token != "" {
			patterns = append(patterns, token)
		}
	}

	return patterns
}

// InspectFunc approves, rejects, or rewrites a request on behalf of a
// client.
type InspectFunc func(client *auth.Client, req *Request) error

// RequirePermission wraps an inspection with a fixed permission check:
// the client must hold the permission for every index pattern the
// request addresses, otherwise the request is denied before inner runs.
// inner may be nil for endpoints with no further inspection.
func RequirePermission(permission string, inner InspectFunc) InspectFunc {
	return func(client *auth.Client, req *Request) error {
		for _, index := range req.IndexPatterns() {
			if !client.Can(permission, index) {
				return auth.Denied("you are missing the following permissions: %s (%s)", permission, index)
			}
		}

		if inner != nil {
			return inner(client, req)
		}

		return nil
	}
}

// Endpoint declares one proxied API endpoint: its path templates per
// verb and the inspection guarding it.
type Endpoint struct {
	Name    string
	Routes  map[string][]string
	Inspect InspectFunc
}

// compiledRoute is one verb/template pair ready for matching.
type compiledRoute struct {
	method   string
	re       *regexp.Regexp
	endpoint *Endpoint
}

// Registry resolves requests to endpoints. Templates are tried in
// registration order; the first match wins.
type Registry struct {
	routes []compiledRoute
}

// NewRegistry compiles the given endpoints into a Registry.
func NewRegistry(endpoints ...*Endpoint) (*Registry, error) {
	r := &Registry{}
	for _, endpoint := range endpoints {
		for method, templates := range endpoint.Routes {
			for _, template := range templates {
				re, err := compileTemplate(template)
				if err != nil {
					return nil, fmt.Errorf("endpoint %s: %w", endpoint.Name, err)
				}
				r.routes = append(r.routes, compiledRoute{method: method, re: re, endpoint: endpoint})
			}
		}
	}

	return r, nil
}

// Resolve matches the given method and path against the registered
// templates and returns the endpoint with the extracted placeholder
// values. The boolean is false when no endpoint matches.
func (r *Registry) Resolve(method, path string) (*Request, *Endpoint, bool) {
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}

	for _, route := range r.routes {
		if route.method != method {
			continue
		}

		m := route.re.FindStringSubmatch(path)
		if m == nil {
			continue
		}

		matches := make(map[string]string)
		for i, name := range route.re.SubexpNames() {
			if name != "" {
				matches[name] = m[i]
			}
		}

		return &Request{Method: method, Path: path, matches: matches}, route.endpoint, true
	}

	return nil, nil, false
}

// placeholderRe matches one {name} placeholder inside a template.
var placeholderRe = regexp.MustCompile(`\{([a-z]+)\}`)

// compileTemplate turns a path template into an anchored regexp. A
// {name} placeholder matches one path segment and captures it; the
// {s} and {es} placeholders mark an optional plural suffix of the
// surrounding literal, as in /_mapping{s} or /_alias{es}.
func compileTemplate(template string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")

	rest := template
	for {
		loc := placeholderRe.FindStringSubmatchIndex(rest)
		if loc == nil {
			b.WriteString(regexp.QuoteMeta(rest))
			break
		}

		b.WriteString(regexp.QuoteMeta(rest[:loc[0]]))
		name := rest[loc[2]:loc[3]]
		switch name {
		case "s", "es":
			b.WriteString("(?:" + name + ")?")
		default:
			b.WriteString("(?P<" + name + ">[^/]+)")
		}

		rest = rest[loc[1]:]
	}

	b.WriteString("$")
	return regexp.Compile(b.String())
}
