package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/rhuss/rsengine/pkg/api"
	"github.com/rhuss/rsengine/pkg/debug"
	"github.com/rhuss/rsengine/pkg/observability"
	"github.com/rhuss/rsengine/pkg/stream"
	"github.com/rhuss/rsengine/pkg/transport"
)

// Probe reports liveness and readiness data for the health endpoints.
type Probe interface {
	Uptime() time.Duration
	RouteCount() int
}

// Adapter serves the render front end over HTTP.
// It routes requests to the appropriate handler and writes HTML or JSON.
type Adapter struct {
	renderer transport.PageRenderer
	probe    Probe
	inflight *transport.InFlightRegistry
	mux      *http.ServeMux
	config   Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	// MetricsPath is where the Prometheus exposition is served. Empty
	// disables the endpoint.
	MetricsPath string

	// Metrics records request counts and latency. Nil disables metrics.
	Metrics *observability.Metrics

	// TracerProvider creates request spans. Nil disables tracing.
	TracerProvider trace.TracerProvider
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MetricsPath: "/metrics",
	}
}

// NewAdapter creates an HTTP adapter for renderer. Middleware is applied to
// the renderer in the given order.
func NewAdapter(renderer transport.PageRenderer, probe Probe, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		renderer = transport.Chain(middlewares...)(renderer)
	}

	a := &Adapter{
		renderer: renderer,
		probe:    probe,
		inflight: transport.NewInFlightRegistry(),
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.HandleFunc("GET /health", a.handleHealth)
	a.mux.HandleFunc("GET /ready", a.handleReady)
	a.mux.HandleFunc("GET /render/{route_id}", a.handleRender)
	a.mux.HandleFunc("GET /stream", a.handleStream)
	if cfg.Metrics != nil && cfg.MetricsPath != "" {
		a.mux.Handle("GET "+cfg.MetricsPath, cfg.Metrics.Handler())
	}
	a.mux.HandleFunc("/", a.handleNotFound)

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler builds
// the request context and records metrics and spans for every request.
func (a *Adapter) Handler() http.Handler {
	var h http.Handler = a.mux
	if a.config.TracerProvider != nil {
		h = observability.TracingMiddleware(a.config.TracerProvider, h)
	}
	if a.config.Metrics != nil {
		h = a.config.Metrics.Middleware(h)
	}
	return requestContextMiddleware(h)
}

// InFlight returns the registry of responses that are currently streaming.
func (a *Adapter) InFlight() *transport.InFlightRegistry {
	return a.inflight
}

// requestContextMiddleware builds the RequestContext from the inbound
// headers and stores it in the request context. The X-Request-ID response
// header is set before any handler runs, so it is present even when the
// handler writes nothing.
func requestContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := api.NewRequestContext(r.Method, r.URL.Path, r.Header)
		r = r.WithContext(api.ContextWithRequest(r.Context(), rc))
		debug.Log(debug.Transport, "request context built",
			"request_id", rc.Trace.RequestID.String(),
			"trace_id", rc.Trace.TraceID.String(),
			"path", rc.Path,
			"headers", len(rc.Headers),
			"cookies", len(rc.Cookies),
		)

		w.Header().Set(api.HeaderRequestID, rc.Trace.RequestID.String())
		next.ServeHTTP(w, r)
	})
}

type healthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds uint64 `json:"uptime_seconds"`
}

type readyResponse struct {
	Status       string `json:"status"`
	RoutesLoaded int    `json:"routes_loaded"`
}

// handleHealth handles GET /health.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{
		Status:        "ok",
		UptimeSeconds: uint64(a.probe.Uptime() / time.Second),
	})
}

// handleReady handles GET /ready.
func (a *Adapter) handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, readyResponse{
		Status:       "ready",
		RoutesLoaded: a.probe.RouteCount(),
	})
}

// handleRender handles GET /render/{route_id}.
func (a *Adapter) handleRender(w http.ResponseWriter, r *http.Request) {
	a.dispatch(w, r, &api.RenderRequest{
		RouteID: r.PathValue("route_id"),
		Context: api.RequestFromContext(r.Context()),
	})
}

// handleStream handles GET /stream.
func (a *Adapter) handleStream(w http.ResponseWriter, r *http.Request) {
	a.dispatch(w, r, &api.RenderRequest{
		Stream:  true,
		Context: api.RequestFromContext(r.Context()),
	})
}

func (a *Adapter) handleNotFound(w http.ResponseWriter, r *http.Request) {
	transport.WriteAppError(w, api.NewNotFound("resource not found"))
}

// dispatch runs the renderer. Once a response starts streaming it is
// registered as in flight, so shutdown can cancel it.
func (a *Adapter) dispatch(w http.ResponseWriter, r *http.Request, req *api.RenderRequest) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var token uint64
	rw := newHTMLResponseWriter(w, func() {
		requestID := ""
		if req.Context != nil {
			requestID = req.Context.Trace.RequestID.String()
		}
		token = a.inflight.Register(requestID, cancel)
	})

	err := a.renderer.RenderPage(ctx, req, rw)

	if token != 0 {
		a.inflight.Remove(token)
	}

	if err != nil {
		a.writeHandlerError(w, rw, err)
	}
}

// writeHandlerError writes an error response from the handler. Errors the
// renderer already delivered are dropped. If streaming has already started,
// an HTML error fragment is appended to the body. Otherwise a JSON error
// envelope with the mapped status is written.
func (a *Adapter) writeHandlerError(w http.ResponseWriter, rw *htmlResponseWriter, err error) {
	if transport.IsDelivered(err) {
		return
	}

	appErr := api.AsAppError(err)

	if rw.hasStartedStreaming() {
		rw.WriteChunk(context.Background(), stream.ErrorChunk(appErr))
		return
	}
	if rw.hasWritten() {
		return
	}

	transport.WriteAppError(w, appErr)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
