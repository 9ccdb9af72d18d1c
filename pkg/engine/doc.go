// Package engine implements the render orchestration for rsengine.
// The Engine struct is the application state shared by every request: the
// render backend, the route registry, the start time and the metrics
// handle. It implements transport.PageRenderer, resolving routes, choosing
// between buffered and streamed delivery, and bridging streamed output
// through the bounded pipeline in pkg/stream. The metrics handle is
// optional; a nil handle disables instrumentation.
package engine
