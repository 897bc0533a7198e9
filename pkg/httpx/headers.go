// Package httpx provides the header and framing utilities the proxy
// needs to forward messages safely. Unlike net/http's header map, its
// Headers container keeps every on-wire occurrence of a field, since
// hop-by-hop stripping and framing validation depend on them.
package httpx

import (
	"net/http"
	"net/textproto"
	"sort"
	"strings"
)

// headerField is one on-wire header occurrence.
type headerField struct {
	name  string
	value string
}

// Headers is an ordered, case-insensitive multi-value header container.
// Single-value lookups return only the most recently seen occurrence.
type Headers struct {
	fields []headerField
}

// NewHeaders returns an empty header container.
func NewHeaders() *Headers {
	return &Headers{}
}

// FromHTTPHeader builds a Headers from a net/http header map, keeping
// every value of repeated fields.
func FromHTTPHeader(h http.Header) *Headers {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	headers := NewHeaders()
	for _, name := range names {
		for _, value := range h[name] {
			headers.Add(name, value)
		}
	}

	return headers
}

func canonical(name string) string {
	return textproto.CanonicalMIMEHeaderKey(name)
}

// joined returns all occurrence values of the given header joined with
// ", ", and whether the header exists at all.
func (h *Headers) joined(name string) (string, bool) {
	key := canonical(name)
	var values []string
	for _, f := range h.fields {
		if canonical(f.name) == key {
			values = append(values, f.value)
		}
	}

	return strings.Join(values, ", "), len(values) > 0
}

// Has reports whether the header exists.
func (h *Headers) Has(name string) bool {
	_, ok := h.joined(name)
	return ok
}

// Get returns the value of the given header, or "" if it does not
// exist. When multiple values exist, only the last one is returned.
func (h *Headers) Get(name string) string {
	value, ok := h.joined(name)
	if !ok {
		return ""
	}
	if i := strings.LastIndex(value, ", "); i >= 0 {
		return value[i+2:]
	}

	return value
}

// Values returns all values of the given header, or nil if it does not
// exist. Both repeated fields and ", "-separated list members count as
// separate values.
func (h *Headers) Values(name string) []string {
	value, ok := h.joined(name)
	if !ok {
		return nil
	}

	return strings.Split(value, ", ")
}

// Add appends an occurrence of the given header.
func (h *Headers) Add(name, value string) {
	h.fields = append(h.fields, headerField{name: name, value: value})
}

// Set replaces all occurrences of the given header with a single one.
func (h *Headers) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Del removes all occurrences of the given header.
func (h *Headers) Del(name string) {
	key := canonical(name)
	kept := h.fields[:0]
	for _, f := range h.fields {
		if canonical(f.name) != key {
			kept = append(kept, f)
		}
	}
	h.fields = kept
}

// ToHTTPHeader renders the container as a net/http header map.
func (h *Headers) ToHTTPHeader() http.Header {
	out := make(http.Header, len(h.fields))
	for _, f := range h.fields {
		out.Add(f.name, f.value)
	}

	return out
}

// ExtractConnectionOptions removes every header named by the Connection
// header and returns them as a map keyed by lowercase option name. The
// implicit Keep-Alive and close markers are included with an empty value
// even when no such header is present. The Connection header itself is
// deleted once any option was found. Must run before a message is
// forwarded, since these options are hop-by-hop state.
func (h *Headers) ExtractConnectionOptions() map[string]string {
	options := make(map[string]string)
	for _, option := range h.Values("Connection") {
		key := strings.ToLower(option)
		if value, ok := h.joined(option); ok {
			options[key] = value
			h.Del(option)
		} else if key == "keep-alive" || key == "close" {
			options[key] = ""
		}
	}

	if len(options) > 0 {
		h.Del("Connection")
	}

	return options
}

// ExtendVia appends a formatted entry to the Via header without
// discarding prior intermediaries.
func (h *Headers) ExtendVia(receivedProtocol, receivedBy, comment string) {
	formatted := receivedProtocol + " " + receivedBy
	if comment != "" {
		formatted += " " + comment
	}

	if existing, ok := h.joined("Via"); ok && existing != "" {
		formatted = existing + ", " + formatted
	}

	h.Set("Via", formatted)
}
