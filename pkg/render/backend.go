// Package render defines the capability interface between the HTTP front
// end and a rendering backend, plus the bundle-backed implementation used by
// the server.
//
// A [Backend] renders in two modes. Render returns a complete HTML document
// for blocking routes. Stream writes an ordered sequence of HTML chunks to a
// [ChunkWriter] for streaming responses. Both modes receive the same
// immutable [api.RequestContext].
//
// Backends report failures as *api.AppError values so the transport can map
// them to HTTP status codes. Any message placed in an AppError must be safe
// to show to end users; diagnostics belong in the cause.
package render

import (
	"context"

	"github.com/rhuss/rsengine/pkg/api"
)

// Backend abstracts a server-side rendering engine.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Backend interface {
	// Validate checks that the bundle at bundlePath can be served by this
	// backend. It returns a bad_request AppError for unusable bundles and
	// an internal AppError for filesystem failures.
	Validate(ctx context.Context, bundlePath string) error

	// Render produces a complete HTML document for route.
	Render(ctx context.Context, route api.RouteConfig, rc *api.RequestContext) (string, error)

	// Stream writes the response as an ordered series of chunks. It must
	// stop and return as soon as w reports an error, since that means the
	// consumer is gone.
	Stream(ctx context.Context, rc *api.RequestContext, w ChunkWriter) error
}

// ChunkWriter receives HTML chunks from a streaming backend. WriteChunk
// blocks while the consumer is not ready and returns an error once the
// consumer has gone away.
type ChunkWriter interface {
	WriteChunk(ctx context.Context, chunk string) error
}

// ChunkWriterFunc is an adapter that allows using an ordinary function as a
// ChunkWriter.
type ChunkWriterFunc func(ctx context.Context, chunk string) error

// WriteChunk calls f(ctx, chunk).
func (f ChunkWriterFunc) WriteChunk(ctx context.Context, chunk string) error {
	return f(ctx, chunk)
}
