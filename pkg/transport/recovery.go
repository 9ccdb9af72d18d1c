package transport

import (
	"context"
	"fmt"

	"github.com/rhuss/rsengine/pkg/api"
)

// Recovery returns middleware that catches panics in the renderer and
// converts them to internal errors. The panic value is kept as the cause
// and never reaches the client. The server continues to accept new
// requests after a panic is recovered.
func Recovery() Middleware {
	return func(next PageRenderer) PageRenderer {
		return PageRendererFunc(func(ctx context.Context, req *api.RenderRequest, w ResponseWriter) (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					retErr = api.NewInternal("internal server error").WithCause(fmt.Errorf("panic: %v", r))
				}
			}()
			return next.RenderPage(ctx, req, w)
		})
	}
}
