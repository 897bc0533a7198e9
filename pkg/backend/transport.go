// Package backend provides the transport to the search cluster behind
// the proxy. It exposes requests and responses at the wire level; the
// proxy forwards paths and bodies as-is instead of modeling the
// cluster's APIs.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request is one request to the cluster.
type Request struct {
	Method string
	Path   string
	Params url.Values
	Header http.Header
	Body   []byte
}

// Response is the cluster's answer to a Request.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// StatusError reports a non-success response status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %s", e.Status)
}

// Err returns a StatusError unless the response status is a success.
func (r *Response) Err() error {
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		return nil
	}

	return &StatusError{StatusCode: r.StatusCode, Status: r.Status}
}

// JSON decodes the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Transport processes requests against the cluster. A nil response with
// a nil error is legal and means the outcome is undetermined; callers
// must treat it as an absent result, not a success.
type Transport interface {
	Process(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport is the HTTP implementation of Transport. Timeouts are
// the embedded client's; no retries happen at this layer.
type HTTPTransport struct {
	base   *url.URL
	client *http.Client
}

// NewHTTPTransport returns a transport for the cluster at baseURL.
func NewHTTPTransport(baseURL string, client *http.Client) (*HTTPTransport, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPTransport{base: base, client: client}, nil
}

// Process sends the request to the cluster and returns its response.
func (t *HTTPTransport) Process(ctx context.Context, req *Request) (*Response, error) {
	target := *t.base
	target.Path = strings.TrimSuffix(target.Path, "/") + req.Path
	if req.Params != nil {
		target.RawQuery = req.Params.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	for name, values := range req.Header {
		httpReq.Header[name] = values
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Header:     httpResp.Header,
		Body:       respBody,
	}, nil
}
