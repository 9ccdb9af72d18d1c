package transport

import (
	"context"

	"github.com/rhuss/rsengine/pkg/api"
)

// PageRenderer handles the core render operation. The implementation
// resolves the request's route and writes either a complete document or a
// sequence of chunks to the ResponseWriter.
type PageRenderer interface {
	RenderPage(ctx context.Context, req *api.RenderRequest, w ResponseWriter) error
}

// PageRendererFunc is an adapter that allows using an ordinary function
// as a PageRenderer.
type PageRendererFunc func(ctx context.Context, req *api.RenderRequest, w ResponseWriter) error

// RenderPage calls f(ctx, req, w).
func (f PageRendererFunc) RenderPage(ctx context.Context, req *api.RenderRequest, w ResponseWriter) error {
	return f(ctx, req, w)
}

// ResponseWriter abstracts buffered and streamed HTML output for the
// renderer. The transport layer creates one for each request.
//
// WriteDocument and WriteChunk are mutually exclusive on a single writer
// instance. Calling one after the other returns an error, as does any
// write after WriteDocument.
type ResponseWriter interface {
	// WriteDocument sends a complete HTML document with status 200.
	WriteDocument(ctx context.Context, doc string) error

	// WriteChunk sends one chunk of a streamed document and flushes it.
	// The status line and headers are committed by the first call. Returns
	// an error if the client has disconnected.
	WriteChunk(ctx context.Context, chunk string) error
}
