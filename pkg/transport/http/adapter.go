package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/rhuss/stockroom/pkg/api"
	"github.com/rhuss/stockroom/pkg/auth"
	"github.com/rhuss/stockroom/pkg/observability"
	"github.com/rhuss/stockroom/pkg/transport"
)

// Adapter serves the inventory API over HTTP. It decodes requests, derives
// the caller from the authenticated identity, and serializes results.
type Adapter struct {
	handler transport.InventoryHandler
	mux     *http.ServeMux
	config  Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64

	// Guard wraps every inventory route, typically with authentication.
	// Operational endpoints registered through Mux are not guarded.
	Guard func(http.Handler) http.Handler

	// TracerProvider receives the per-request server spans. Nil uses the
	// global provider.
	TracerProvider trace.TracerProvider
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 1 << 20, // 1 MB
	}
}

// NewAdapter creates an HTTP adapter for the given InventoryHandler.
// Middleware is applied to the handler in the given order.
func NewAdapter(handler transport.InventoryHandler, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		handler = transport.Chain(middlewares...)(handler)
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}

	a := &Adapter{
		handler: handler,
		mux:     http.NewServeMux(),
		config:  cfg,
	}

	a.route("GET /inventory", a.handleList)
	a.route("GET /inventory/stats", a.handleStats)
	a.route("GET /inventory/{id}", a.handleGet)
	a.route("POST /inventory", a.handleCreate)
	a.route("PUT /inventory/{id}", a.handleUpdate)
	a.route("DELETE /inventory/{id}", a.handleDelete)

	return a
}

func (a *Adapter) route(pattern string, fn http.HandlerFunc) {
	var h http.Handler = fn
	if a.config.Guard != nil {
		h = a.config.Guard(h)
	}
	a.mux.Handle(pattern, h)
}

// Mux exposes the route table so the server can register operational
// endpoints next to the inventory routes.
func (a *Adapter) Mux() *http.ServeMux {
	return a.mux
}

// Handler returns the http.Handler for this adapter, wrapped with request
// ID propagation, tracing, and request metrics. The metrics middleware sits
// directly on the mux so it can label requests by matched pattern.
func (a *Adapter) Handler() http.Handler {
	traced := observability.TracingMiddleware(a.config.TracerProvider, a.mux)
	return httpRequestIDMiddleware(traced(observability.MetricsMiddleware(a.mux)))
}

// httpRequestIDMiddleware puts the client's X-Request-ID, or a fresh one,
// into the request context and echoes it on the response.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = transport.NewRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(transport.ContextWithRequestID(r.Context(), id)))
	})
}

// caller derives the inventory caller from the identity the auth
// middleware stored. Without one the caller is empty and the inventory
// layer answers unauthenticated.
func caller(r *http.Request) api.Caller {
	c, _ := auth.CallerFromContext(r.Context())
	return c
}

// handleList handles GET /inventory.
func (a *Adapter) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := a.handler.List(r.Context(), caller(r))
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, items)
}

// handleStats handles GET /inventory/stats.
func (a *Adapter) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.handler.Stats(r.Context(), caller(r))
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, stats)
}

// handleGet handles GET /inventory/{id}.
func (a *Adapter) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := a.handler.Get(r.Context(), caller(r), r.PathValue("id"))
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, item)
}

// handleCreate handles POST /inventory.
func (a *Adapter) handleCreate(w http.ResponseWriter, r *http.Request) {
	var draft api.ItemDraft
	if !a.decodeBody(w, r, &draft) {
		return
	}

	item, err := a.handler.Create(r.Context(), caller(r), &draft)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusCreated, item)
}

// handleUpdate handles PUT /inventory/{id}.
func (a *Adapter) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch api.ItemPatch
	if !a.decodeBody(w, r, &patch) {
		return
	}

	item, err := a.handler.Update(r.Context(), caller(r), r.PathValue("id"), patch)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, item)
}

// handleDelete handles DELETE /inventory/{id}.
func (a *Adapter) handleDelete(w http.ResponseWriter, r *http.Request) {
	res, err := a.handler.Delete(r.Context(), caller(r), r.PathValue("id"))
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, res)
}

// decodeBody checks the content type, bounds the body, and decodes it
// into v. On failure it writes the error response and returns false.
func (a *Adapter) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return false
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return false
		}
		transport.WriteAPIError(w, api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()))
		return false
	}
	return true
}
