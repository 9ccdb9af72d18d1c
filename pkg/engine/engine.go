package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rhuss/rsengine/pkg/api"
	"github.com/rhuss/rsengine/pkg/debug"
	"github.com/rhuss/rsengine/pkg/observability"
	"github.com/rhuss/rsengine/pkg/render"
	"github.com/rhuss/rsengine/pkg/routes"
	"github.com/rhuss/rsengine/pkg/stream"
	"github.com/rhuss/rsengine/pkg/transport"
)

// Engine holds the read-only application state and renders pages. It
// implements transport.PageRenderer. All fields are set by New and never
// modified, so one Engine is shared by every request.
type Engine struct {
	backend   render.Backend
	routes    *routes.Registry
	metrics   *observability.Metrics
	startedAt time.Time
	cfg       Config
	logger    *slog.Logger
}

// Ensure Engine implements transport.PageRenderer at compile time.
var _ transport.PageRenderer = (*Engine)(nil)

// New creates a new Engine. The backend and registry must not be nil. The
// metrics handle can be nil to disable instrumentation.
func New(backend render.Backend, registry *routes.Registry, metrics *observability.Metrics, cfg Config) (*Engine, error) {
	if backend == nil {
		return nil, fmt.Errorf("engine: backend must not be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("engine: route registry must not be nil")
	}
	return &Engine{
		backend:   backend,
		routes:    registry,
		metrics:   metrics,
		startedAt: time.Now(),
		cfg:       cfg,
		logger:    cfg.logger(),
	}, nil
}

// StartedAt returns the time the engine was created.
func (e *Engine) StartedAt() time.Time { return e.startedAt }

// Uptime returns the time elapsed since the engine was created.
func (e *Engine) Uptime() time.Duration { return time.Since(e.startedAt) }

// RouteCount returns the number of registered routes.
func (e *Engine) RouteCount() int { return e.routes.Count() }

// RenderPage renders the request's route. A request without a route ID is
// a direct stream of the backend output. Routes are streamed when the
// request asks for it or when the route's render mode is streaming;
// otherwise the full document is rendered and written at once.
func (e *Engine) RenderPage(ctx context.Context, req *api.RenderRequest, w transport.ResponseWriter) error {
	rc := req.Context
	if rc == nil {
		rc = api.NewRequestContext("", "", nil)
	}

	if req.RouteID == "" {
		if !req.Stream {
			return api.NewBadRequest("route id must be provided")
		}
		return e.stream(ctx, rc, w)
	}

	route, ok := e.routes.Lookup(req.RouteID)
	if !ok {
		return api.NewNotFound(fmt.Sprintf("unknown route '%s'", req.RouteID))
	}

	e.logger.DebugContext(ctx, "render request received",
		slog.String("route_id", route.ID),
		slog.String("request_id", rc.Trace.RequestID.String()),
		slog.String("mode", string(route.Mode())),
	)

	if req.Stream || route.Mode() == api.RenderModeStreaming {
		return e.stream(ctx, rc, w)
	}

	doc, err := e.backend.Render(ctx, route, rc)
	if err != nil {
		e.recordFailure(err)
		return err
	}
	return w.WriteDocument(ctx, doc)
}

// stream runs the backend on a producer goroutine and forwards its chunks
// to w. A failure reported before any chunk is returned as is, so the
// transport can still send a proper error status. A failure after chunks
// were forwarded arrives as a final in-band error chunk and is returned
// wrapped with transport.Delivered.
func (e *Engine) stream(ctx context.Context, rc *api.RequestContext, w transport.ResponseWriter) error {
	if e.metrics != nil {
		e.metrics.StreamingConnections.Inc()
		defer e.metrics.StreamingConnections.Dec()
	}

	p := stream.Start(ctx, func(ctx context.Context, cw render.ChunkWriter) error {
		return e.backend.Stream(ctx, rc, cw)
	}, stream.WithCapacity(e.cfg.streamCapacity()), stream.WithLogger(e.logger))
	defer p.Wait()
	defer p.Abandon()

	written := 0
	for item := range p.Items() {
		if item.Err != nil {
			e.recordFailure(item.Err)
			if written == 0 {
				return item.Err
			}
		}

		if err := w.WriteChunk(ctx, item.Chunk); err != nil {
			e.logger.DebugContext(ctx, "stream client gone",
				slog.String("request_id", rc.Trace.RequestID.String()),
				slog.Int("chunks", written),
				slog.String("error", err.Error()),
			)
			return transport.Delivered(fmt.Errorf("%w: writing chunk %d: %w", transport.ErrClientGone, written, err))
		}
		written++
		debug.Log(debug.Stream, "chunk forwarded",
			"request_id", rc.Trace.RequestID.String(),
			"index", written,
			"bytes", len(item.Chunk),
			"preview", debug.Preview(item.Chunk, 64),
		)
		if e.metrics != nil {
			e.metrics.StreamChunksTotal.Inc()
		}

		if item.Err != nil {
			return transport.Delivered(item.Err)
		}
	}
	return nil
}

func (e *Engine) recordFailure(err error) {
	if e.metrics == nil {
		return
	}
	e.metrics.RenderFailuresTotal.WithLabelValues(string(api.AsAppError(err).Code)).Inc()
}
