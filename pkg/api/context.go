package api

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Header names consulted when building a RequestContext.
const (
	HeaderRequestID   = "X-Request-ID"
	HeaderTraceID     = "X-Trace-ID"
	HeaderTraceparent = "Traceparent"
)

// TraceContext carries the identifiers used to correlate logs, spans and
// rendered output for one request.
type TraceContext struct {
	RequestID     uuid.UUID `json:"request_id"`
	TraceID       uuid.UUID `json:"trace_id"`
	ParentTraceID string    `json:"parent_trace_id,omitempty"`
}

// RequestContext is the normalized, immutable view of an inbound request
// that is handed to render backends.
type RequestContext struct {
	Trace   TraceContext      `json:"trace"`
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers"`
	Cookies map[string]string `json:"cookies"`
}

// NewRequestContext builds a RequestContext from HTTP primitives. It never
// fails: missing or malformed identifiers are replaced with fresh random
// UUIDs, and header values or cookie pairs that cannot be parsed are
// skipped.
func NewRequestContext(method, path string, header http.Header) *RequestContext {
	return &RequestContext{
		Trace: TraceContext{
			RequestID:     uuidFromHeader(header, HeaderRequestID),
			TraceID:       uuidFromHeader(header, HeaderTraceID),
			ParentTraceID: validHeaderValue(header, HeaderTraceparent),
		},
		Method:  method,
		Path:    path,
		Headers: snapshotHeaders(header),
		Cookies: parseCookies(header),
	}
}

// uuidFromHeader returns the UUID carried by the named header, or a new
// random one when the header is absent or does not parse.
func uuidFromHeader(header http.Header, name string) uuid.UUID {
	if v := validHeaderValue(header, name); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			return id
		}
	}
	return uuid.New()
}

// validHeaderValue returns the first value of the named header if it is
// valid UTF-8, otherwise the empty string.
func validHeaderValue(header http.Header, name string) string {
	v := header.Get(name)
	if !utf8.ValidString(v) {
		return ""
	}
	return v
}

// snapshotHeaders copies every header whose value is valid UTF-8, keyed by
// lower-cased name. For repeated headers the last valid value wins.
func snapshotHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for name, values := range header {
		key := strings.ToLower(name)
		for _, v := range values {
			if utf8.ValidString(v) {
				out[key] = v
			}
		}
	}
	return out
}

// parseCookies collects name/value pairs from every Cookie header. Each
// header is split on ';' and every trimmed segment is parsed on its own, so
// a malformed pair does not discard its neighbours. Later pairs overwrite
// earlier ones with the same name.
func parseCookies(header http.Header) map[string]string {
	out := make(map[string]string)
	for _, line := range header.Values("Cookie") {
		if !utf8.ValidString(line) {
			continue
		}
		for _, segment := range strings.Split(line, ";") {
			segment = strings.TrimSpace(segment)
			if segment == "" {
				continue
			}
			cookies, err := http.ParseCookie(segment)
			if err != nil {
				continue
			}
			for _, c := range cookies {
				out[c.Name] = c.Value
			}
		}
	}
	return out
}

// requestContextKeyType is the context key type for request contexts.
type requestContextKeyType struct{}

var requestContextKey = requestContextKeyType{}

// ContextWithRequest returns a new context carrying rc.
func ContextWithRequest(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// RequestFromContext returns the RequestContext stored in ctx, or nil.
func RequestFromContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(requestContextKey).(*RequestContext)
	return rc
}
