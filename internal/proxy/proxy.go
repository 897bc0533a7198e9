// Package proxy wires authentication, inspection, and forwarding into
// the HTTP handler fronting the search cluster.
package proxy

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/searchwall/searchwall/pkg/auth"
	"github.com/searchwall/searchwall/pkg/backend"
	"github.com/searchwall/searchwall/pkg/httpx"
	"github.com/searchwall/searchwall/pkg/inspect"
)

// Handler authenticates, inspects, and forwards one request per call.
// All per-request state is local to the call; the handler itself is
// safe for concurrent use.
type Handler struct {
	auth      *auth.Manager
	registry  *inspect.Registry
	transport backend.Transport
	via       string
	log       *slog.Logger
}

// New returns a Handler. via names this proxy in Via header entries.
func New(manager *auth.Manager, registry *inspect.Registry, transport backend.Transport, via string) *Handler {
	return &Handler{
		auth:      manager,
		registry:  registry,
		transport: transport,
		via:       via,
		log:       slog.Default(),
	}
}

// Router mounts the handler behind the standard middleware stack plus a
// health endpoint. RealIP is deliberately absent: client addresses feed
// the address-based authentication and must not be spoofable through
// forwarding headers.
func Router(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/*", h)

	return r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	client, ok := h.clientFor(r)
	if !ok || !h.auth.Authenticate(r.Context(), client, true) {
		w.Header().Set("WWW-Authenticate", `Basic realm="searchwall"`)
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication failed")
		return
	}

	headers := httpx.FromHTTPHeader(r.Header)
	httpCtx := &httpx.Context{Request: headers}
	if !httpCtx.HasProperFraming() {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid message framing")
		return
	}

	req, endpoint, ok := h.registry.Resolve(r.Method, r.URL.Path)
	if !ok {
		// Unhandled endpoints are denied, never forwarded blindly.
		h.log.Warn("denying unhandled endpoint",
			"client", client.String(), "method", r.Method, "path", r.URL.Path)
		writeError(w, http.StatusForbidden, "forbidden", "unknown endpoint, access denied")
		return
	}

	if err := endpoint.Inspect(client, req); err != nil {
		h.writeInspectionError(w, client, endpoint, err)
		return
	}

	h.forward(w, r, client, headers, req)
}

// clientFor builds the per-connection client from the remote address
// and any Basic credentials on the request.
func (h *Handler) clientFor(r *http.Request) (*auth.Client, bool) {
	host, portStr, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return nil, false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, false
	}

	client := auth.NewClient(host, port)
	if username, password, ok := r.BasicAuth(); ok {
		client.Username = username
		client.Password = password
	}

	return client, true
}

func (h *Handler) writeInspectionError(w http.ResponseWriter, client *auth.Client, endpoint *inspect.Endpoint, err error) {
	var permErr *auth.PermissionError
	if errors.As(err, &permErr) {
		h.log.Info("denying request",
			"client", client.String(), "endpoint", endpoint.Name, "reason", permErr.Reason)
		writeError(w, http.StatusForbidden, "forbidden", permErr.Reason)
		return
	}

	var restrictionErr *auth.RestrictionError
	if errors.As(err, &restrictionErr) {
		h.log.Error("restriction failure during inspection",
			"client", client.String(), "endpoint", endpoint.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "invalid restriction configuration")
		return
	}

	h.log.Error("inspection failed",
		"client", client.String(), "endpoint", endpoint.Name, "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "request inspection failed")
}

// forward relays the inspected request to the backend and the backend's
// answer to the caller, stripping hop-by-hop state in both directions.
func (h *Handler) forward(w http.ResponseWriter, r *http.Request, client *auth.Client, headers *httpx.Headers, req *inspect.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "failed to read request body")
		return
	}

	headers.ExtractConnectionOptions()
	headers.ExtendVia(protocolVersion(r.Proto), h.via, "")

	resp, err := h.transport.Process(r.Context(), &backend.Request{
		Method: r.Method,
		Path:   req.Path,
		Params: r.URL.Query(),
		Header: headers.ToHTTPHeader(),
		Body:   body,
	})
	if err != nil {
		h.log.Error("backend request failed",
			"client", client.String(), "path", req.Path, "error", err)
		writeError(w, http.StatusBadGateway, "bad_gateway", "backend request failed")
		return
	}
	if resp == nil {
		writeError(w, http.StatusBadGateway, "bad_gateway", "no response from backend")
		return
	}

	respHeaders := httpx.FromHTTPHeader(resp.Header)
	respCtx := &httpx.Context{Request: headers, Response: respHeaders}
	if !respCtx.HasProperFraming() {
		h.log.Error("backend response with invalid framing", "path", req.Path)
		writeError(w, http.StatusBadGateway, "bad_gateway", "invalid backend response framing")
		return
	}

	respHeaders.ExtractConnectionOptions()
	respHeaders.ExtendVia(protocolVersion(r.Proto), h.via, "")

	out := w.Header()
	for name, values := range respHeaders.ToHTTPHeader() {
		out[name] = values
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

// protocolVersion strips the scheme from an HTTP protocol string, as
// Via entries carry "1.1" rather than "HTTP/1.1".
func protocolVersion(proto string) string {
	return strings.TrimPrefix(proto, "HTTP/")
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
