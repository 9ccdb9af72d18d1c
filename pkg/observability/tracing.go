package observability

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/rhuss/rsengine/pkg/api"
)

// Supported span exporters.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// TracingOptions configures InitTracing.
type TracingOptions struct {
	// Exporter is ExporterNone (spans are created but not exported) or
	// ExporterStdout.
	Exporter    string
	ServiceName string
	// Writer receives stdout spans. Defaults to os.Stdout.
	Writer io.Writer
}

var (
	tracerInstalled atomic.Pointer[sdktrace.TracerProvider]
	tracingMu       sync.Mutex
)

// InitTracing installs the process-wide tracer provider and W3C propagators
// on first use. Later calls return the provider installed first and ignore
// their options.
func InitTracing(opts TracingOptions) (*sdktrace.TracerProvider, error) {
	if tp := tracerInstalled.Load(); tp != nil {
		return tp, nil
	}

	tracingMu.Lock()
	defer tracingMu.Unlock()

	if tp := tracerInstalled.Load(); tp != nil {
		return tp, nil
	}

	tp, err := NewTracerProvider(opts)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	tracerInstalled.Store(tp)
	return tp, nil
}

// NewTracerProvider builds a tracer provider without installing it.
func NewTracerProvider(opts TracingOptions) (*sdktrace.TracerProvider, error) {
	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = ServiceLabel
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		)),
	}

	switch opts.Exporter {
	case ExporterNone, "":
	case ExporterStdout:
		w := opts.Writer
		if w == nil {
			w = os.Stdout
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("creating stdout exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	default:
		return nil, fmt.Errorf("unsupported tracing exporter %q (supported: none, stdout)", opts.Exporter)
	}

	return sdktrace.NewTracerProvider(tpOpts...), nil
}

// TracingMiddleware wraps next in a server span named after the method and
// path. When a RequestContext is present on the request, its request and
// trace identifiers are recorded as span attributes.
func TracingMiddleware(tp trace.TracerProvider, next http.Handler) http.Handler {
	annotate := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rc := api.RequestFromContext(r.Context()); rc != nil {
			span := trace.SpanFromContext(r.Context())
			span.SetAttributes(
				attribute.String("request.id", rc.Trace.RequestID.String()),
				attribute.String("trace.id", rc.Trace.TraceID.String()),
			)
			if rc.Trace.ParentTraceID != "" {
				span.SetAttributes(attribute.String("trace.parent", rc.Trace.ParentTraceID))
			}
		}
		next.ServeHTTP(w, r)
	})

	return otelhttp.NewHandler(annotate, "http_request",
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithPropagators(propagation.TraceContext{}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
