package transport

import (
	"context"

	"github.com/rhuss/rsengine/pkg/api"
)

// RequestID returns middleware that guarantees every render request carries
// a RequestContext. The HTTP adapter normally builds it from the inbound
// headers; when neither the request nor the context has one, a context with
// freshly generated identifiers is created.
//
// The RequestContext is stored in the context and can be retrieved with
// api.RequestFromContext.
func RequestID() Middleware {
	return func(next PageRenderer) PageRenderer {
		return PageRendererFunc(func(ctx context.Context, req *api.RenderRequest, w ResponseWriter) error {
			if req.Context == nil {
				req.Context = api.RequestFromContext(ctx)
			}
			if req.Context == nil {
				req.Context = api.NewRequestContext("", "", nil)
			}
			if api.RequestFromContext(ctx) != req.Context {
				ctx = api.ContextWithRequest(ctx, req.Context)
			}
			return next.RenderPage(ctx, req, w)
		})
	}
}
