package transport

import (
	"context"

	"github.com/rhuss/rsengine/pkg/api"
)

// Middleware wraps a PageRenderer to add cross-cutting behavior.
// Middleware is applied in order: the first middleware in the chain is
// the outermost wrapper (executes first on the way in, last on the way out).
type Middleware func(PageRenderer) PageRenderer

// Chain composes multiple middleware into a single middleware.
// Middleware are applied in order: Chain(a, b, c) produces a(b(c(handler))).
func Chain(middlewares ...Middleware) Middleware {
	return func(next PageRenderer) PageRenderer {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// RequestIDFromContext returns the request ID of the RequestContext stored
// in ctx, or an empty string if there is none.
func RequestIDFromContext(ctx context.Context) string {
	if rc := api.RequestFromContext(ctx); rc != nil {
		return rc.Trace.RequestID.String()
	}
	return ""
}
