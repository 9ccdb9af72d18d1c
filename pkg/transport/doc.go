// Package transport defines the renderer interface and middleware chain for
// the rsengine HTTP front end.
//
// The transport layer bridges browsers and the render engine. It turns an
// incoming request into an api.RenderRequest, dispatches it to a
// PageRenderer, and writes the result back as a buffered HTML document or
// as a chunked HTML stream.
//
// # Renderer Interface
//
// PageRenderer is the single contract between the transport layer and the
// engine. The ResponseWriter interface abstracts buffered and streamed
// output, so the renderer can emit a whole document or a sequence of chunks
// without knowing the underlying protocol.
//
// # Errors
//
// Renderers return *api.AppError values. Before any output has been written
// the transport maps the error code to an HTTP status and writes the JSON
// envelope {"code", "message"}. Once streaming has begun the status line is
// already committed, so the failure is reported in-band as an HTML chunk
// instead. Renderers that have already reported a failure in-band wrap it
// with Delivered so the transport does not report it twice.
//
// # Middleware
//
// The middleware chain wraps PageRenderer with cross-cutting concerns.
// Built-in middleware provides panic recovery, RequestContext assignment
// and structured logging via log/slog.
package transport
