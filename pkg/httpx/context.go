package httpx

import (
	"strconv"
	"strings"
)

// Context pairs a request's headers with those of its response, if any.
type Context struct {
	Request  *Headers
	Response *Headers
}

// HasProperFraming reports whether the message's framing is valid per
// RFC 7230 section 3.3.3, articles 3 and 4. A message failing this
// check must not be forwarded, as ambiguous framing enables request
// smuggling. The response headers are checked when present, else the
// request headers.
func (c *Context) HasProperFraming() bool {
	headers := c.Request
	if c.Response != nil {
		headers = c.Response
	}

	contentLengthFound := false
	if headers.Has("Content-Length") {
		contentLengthFound = true

		contentLength, err := strconv.Atoi(headers.Get("Content-Length"))
		if err != nil || contentLength < 0 {
			return false
		}
		for _, v := range headers.Values("Content-Length") {
			n, err := strconv.Atoi(v)
			if err != nil || n != contentLength {
				return false
			}
		}
	}

	if headers.Has("Transfer-Encoding") {
		if contentLengthFound {
			return false
		}
		if c.Response == nil && strings.ToLower(strings.TrimSpace(headers.Get("Transfer-Encoding"))) != "chunked" {
			return false
		}
	}

	return true
}
