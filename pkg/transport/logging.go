package transport

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rhuss/rsengine/pkg/api"
)

// Logging returns middleware that emits one structured log entry per render
// with the request and trace IDs, route, delivery mode and duration.
//
// The HTTP status is not known at this level; status and latency per
// response are recorded by the metrics middleware in the HTTP adapter.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next PageRenderer) PageRenderer {
		return PageRendererFunc(func(ctx context.Context, req *api.RenderRequest, w ResponseWriter) error {
			start := time.Now()

			err := next.RenderPage(ctx, req, w)

			attrs := []slog.Attr{slog.String("request_id", RequestIDFromContext(ctx))}
			if rc := req.Context; rc != nil {
				attrs = append(attrs, slog.String("trace_id", rc.Trace.TraceID.String()))
			}
			attrs = append(attrs,
				slog.String("route", req.RouteID),
				slog.Bool("stream", req.Stream),
				slog.Duration("duration", time.Since(start)),
			)

			switch {
			case errors.Is(err, ErrClientGone):
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelDebug, "render aborted by client", attrs...)
			case err != nil:
				appErr := api.AsAppError(err)
				attrs = append(attrs,
					slog.String("code", string(appErr.Code)),
					slog.String("error", err.Error()),
				)
				level := slog.LevelError
				if HTTPStatusFromError(appErr) < 500 {
					level = slog.LevelWarn
				}
				logger.LogAttrs(ctx, level, "render failed", attrs...)
			default:
				logger.LogAttrs(ctx, slog.LevelInfo, "render completed", attrs...)
			}

			return err
		})
	}
}
