package httpx

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadersGetReturnsLastOccurrence(t *testing.T) {
	h := NewHeaders()
	h.Add("X-Forwarded-For", "203.0.113.1")
	h.Add("X-Forwarded-For", "203.0.113.2")

	assert.Equal(t, "203.0.113.2", h.Get("X-Forwarded-For"))
	assert.Equal(t, []string{"203.0.113.1", "203.0.113.2"}, h.Values("X-Forwarded-For"))
}

func TestHeadersGetSplitsListValues(t *testing.T) {
	h := NewHeaders()
	h.Add("Via", "1.0 alpha, 1.1 beta")

	assert.Equal(t, "1.1 beta", h.Get("Via"))
	assert.Equal(t, []string{"1.0 alpha", "1.1 beta"}, h.Values("Via"))
}

func TestHeadersCaseInsensitive(t *testing.T) {
	h := NewHeaders()
	h.Add("content-type", "application/json")

	assert.True(t, h.Has("Content-Type"))
	assert.Equal(t, "application/json", h.Get("CONTENT-TYPE"))

	h.Del("Content-type")
	assert.False(t, h.Has("content-type"))
}

func TestHeadersMissing(t *testing.T) {
	h := NewHeaders()

	assert.False(t, h.Has("X-Missing"))
	assert.Empty(t, h.Get("X-Missing"))
	assert.Nil(t, h.Values("X-Missing"))
}

func TestHeadersSetReplacesAll(t *testing.T) {
	h := NewHeaders()
	h.Add("Accept", "text/plain")
	h.Add("Accept", "text/html")
	h.Set("Accept", "application/json")

	assert.Equal(t, []string{"application/json"}, h.Values("Accept"))
}

func TestFromHTTPHeader(t *testing.T) {
	h := FromHTTPHeader(http.Header{
		"Content-Type":    {"application/json"},
		"X-Forwarded-For": {"203.0.113.1", "203.0.113.2"},
	})

	assert.Equal(t, "application/json", h.Get("Content-Type"))
	assert.Equal(t, []string{"203.0.113.1", "203.0.113.2"}, h.Values("X-Forwarded-For"))
}

func TestExtractConnectionOptions(t *testing.T) {
	h := NewHeaders()
	h.Add("Connection", "Keep-Alive, Upgrade")
	h.Add("Keep-Alive", "timeout=5, max=100")
	h.Add("Upgrade", "websocket")
	h.Add("Content-Type", "application/json")

	options := h.ExtractConnectionOptions()

	assert.Equal(t, "timeout=5, max=100", options["keep-alive"])
	assert.Equal(t, "websocket", options["upgrade"])

	// Named headers and Connection itself are gone; others stay.
	assert.False(t, h.Has("Keep-Alive"))
	assert.False(t, h.Has("Upgrade"))
	assert.False(t, h.Has("Connection"))
	assert.True(t, h.Has("Content-Type"))
}

func TestExtractConnectionOptionsImplicitMarkers(t *testing.T) {
	h := NewHeaders()
	h.Add("Connection", "close")

	options := h.ExtractConnectionOptions()

	// The marker is reported even though no "close" header exists.
	value, ok := options["close"]
	require.True(t, ok)
	assert.Empty(t, value)
	assert.False(t, h.Has("Connection"))
}

func TestExtractConnectionOptionsNone(t *testing.T) {
	h := NewHeaders()
	h.Add("Content-Type", "application/json")

	options := h.ExtractConnectionOptions()
	assert.Empty(t, options)
	assert.True(t, h.Has("Content-Type"))
}

func TestExtendVia(t *testing.T) {
	h := NewHeaders()

	h.ExtendVia("1.1", "searchwall", "")
	assert.Equal(t, []string{"1.1 searchwall"}, h.Values("Via"))

	h.ExtendVia("1.1", "edge", "(gateway)")
	assert.Equal(t, []string{"1.1 searchwall", "1.1 edge (gateway)"}, h.Values("Via"),
		"existing entries are kept")
}

func TestExtendViaMultipleExistingFields(t *testing.T) {
	h := NewHeaders()
	h.Add("Via", "1.0 alpha")
	h.Add("Via", "1.1 beta")

	h.ExtendVia("1.1", "searchwall", "")
	assert.Equal(t, []string{"1.0 alpha", "1.1 beta", "1.1 searchwall"}, h.Values("Via"))
}
