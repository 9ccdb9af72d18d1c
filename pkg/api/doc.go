// Package api defines the core types shared by every layer of the rsengine
// render front end.
//
// The package performs no I/O. It holds the per-request [RequestContext] and
// its [TraceContext], the declarative [RouteConfig] with its [RenderMode],
// the [RenderRequest] handed from the HTTP surface to the engine, and the
// [AppError] taxonomy with its client-facing [ErrorResponse] envelope.
//
// A RequestContext is built exactly once per request with
// [NewRequestContext] and is never mutated afterwards, so it can be shared
// by pointer with streaming producers running on other goroutines.
package api
