package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/rhuss/rsengine/pkg/api"
)

// recordingWriter is a minimal ResponseWriter for testing middleware.
type recordingWriter struct {
	chunks   []string
	document string
}

func (w *recordingWriter) WriteChunk(_ context.Context, chunk string) error {
	w.chunks = append(w.chunks, chunk)
	return nil
}

func (w *recordingWriter) WriteDocument(_ context.Context, doc string) error {
	w.document = doc
	return nil
}

func TestChainAppliesMiddlewareInOrder(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next PageRenderer) PageRenderer {
			return PageRendererFunc(func(ctx context.Context, req *api.RenderRequest, w ResponseWriter) error {
				order = append(order, name+":before")
				err := next.RenderPage(ctx, req, w)
				order = append(order, name+":after")
				return err
			})
		}
	}

	handler := PageRendererFunc(func(ctx context.Context, req *api.RenderRequest, w ResponseWriter) error {
		order = append(order, "handler")
		return nil
	})

	wrapped := Chain(mw("first"), mw("second"), mw("third"))(handler)
	wrapped.RenderPage(context.Background(), &api.RenderRequest{}, &recordingWriter{})

	expected := []string{
		"first:before", "second:before", "third:before",
		"handler",
		"third:after", "second:after", "first:after",
	}

	if len(order) != len(expected) {
		t.Fatalf("execution order length = %d, want %d: %v", len(order), len(expected), order)
	}
	for i, got := range order {
		if got != expected[i] {
			t.Errorf("order[%d] = %q, want %q", i, got, expected[i])
		}
	}
}

func TestRecoveryCatchesPanic(t *testing.T) {
	handler := PageRendererFunc(func(ctx context.Context, req *api.RenderRequest, w ResponseWriter) error {
		panic("test panic")
	})

	err := Recovery()(handler).RenderPage(context.Background(), &api.RenderRequest{}, &recordingWriter{})
	if err == nil {
		t.Fatal("expected error after panic, got nil")
	}

	var appErr *api.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *api.AppError, got %T: %v", err, err)
	}
	if appErr.Code != api.ErrorCodeInternal {
		t.Errorf("code = %q, want %q", appErr.Code, api.ErrorCodeInternal)
	}
	if strings.Contains(appErr.Message, "test panic") {
		t.Errorf("message %q leaks the panic value", appErr.Message)
	}
	if !strings.Contains(appErr.Error(), "test panic") {
		t.Errorf("cause %q should keep the panic value", appErr.Error())
	}
}

func TestRecoveryPassesThroughNormalExecution(t *testing.T) {
	handler := PageRendererFunc(func(ctx context.Context, req *api.RenderRequest, w ResponseWriter) error {
		return nil
	})

	if err := Recovery()(handler).RenderPage(context.Background(), &api.RenderRequest{}, &recordingWriter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequestIDGeneratesContext(t *testing.T) {
	var captured *api.RequestContext

	handler := PageRendererFunc(func(ctx context.Context, req *api.RenderRequest, w ResponseWriter) error {
		captured = api.RequestFromContext(ctx)
		if captured != req.Context {
			t.Error("context and request carry different RequestContexts")
		}
		return nil
	})

	RequestID()(handler).RenderPage(context.Background(), &api.RenderRequest{}, &recordingWriter{})

	if captured == nil {
		t.Fatal("expected a RequestContext to be generated")
	}
	if captured.Trace.RequestID == uuid.Nil {
		t.Error("generated request ID is nil")
	}
}

func TestRequestIDPreservesExisting(t *testing.T) {
	rc := api.NewRequestContext(http.MethodGet, "/stream", nil)
	ctx := api.ContextWithRequest(context.Background(), rc)

	var got string
	handler := PageRendererFunc(func(ctx context.Context, req *api.RenderRequest, w ResponseWriter) error {
		got = RequestIDFromContext(ctx)
		return nil
	})

	RequestID()(handler).RenderPage(ctx, &api.RenderRequest{}, &recordingWriter{})

	if got != rc.Trace.RequestID.String() {
		t.Errorf("request ID = %q, want %q", got, rc.Trace.RequestID)
	}
}

func TestRequestIDFromContextEmpty(t *testing.T) {
	if id := RequestIDFromContext(context.Background()); id != "" {
		t.Errorf("expected empty request ID, got %q", id)
	}
}

func TestLoggingMiddlewareLogsSuccess(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := PageRendererFunc(func(ctx context.Context, req *api.RenderRequest, w ResponseWriter) error {
		return nil
	})

	rc := api.NewRequestContext(http.MethodGet, "/render/home", nil)
	req := &api.RenderRequest{RouteID: "home", Context: rc}
	Chain(RequestID(), Logging(logger))(handler).RenderPage(context.Background(), req, &recordingWriter{})

	out := buf.String()
	for _, want := range []string{"render completed", `"route":"home"`, rc.Trace.RequestID.String(), rc.Trace.TraceID.String(), `"level":"INFO"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}

func TestLoggingMiddlewareLevels(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
		wantCode  string
	}{
		{"client error", api.NewNotFound("unknown route 'x'"), "WARN", "not_found"},
		{"server error", api.NewUpstreamFailure("backend failed"), "ERROR", "upstream_failure"},
		{"plain error", errors.New("boom"), "ERROR", "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			handler := PageRendererFunc(func(ctx context.Context, req *api.RenderRequest, w ResponseWriter) error {
				return tt.err
			})

			err := Logging(logger)(handler).RenderPage(context.Background(), &api.RenderRequest{RouteID: "x"}, &recordingWriter{})
			if err != tt.err {
				t.Errorf("middleware changed the error: %v", err)
			}

			out := buf.String()
			if !strings.Contains(out, `"level":"`+tt.wantLevel+`"`) {
				t.Errorf("log level missing %s: %s", tt.wantLevel, out)
			}
			if !strings.Contains(out, `"code":"`+tt.wantCode+`"`) {
				t.Errorf("log missing code %s: %s", tt.wantCode, out)
			}
		})
	}
}

func TestLoggingMiddlewareClientGoneIsDebug(t *testing.T) {
	handler := PageRendererFunc(func(ctx context.Context, req *api.RenderRequest, w ResponseWriter) error {
		return Delivered(fmt.Errorf("%w: writing chunk 3: %w", ErrClientGone, context.Canceled))
	})

	var info bytes.Buffer
	Logging(slog.New(slog.NewJSONHandler(&info, nil)))(handler).
		RenderPage(context.Background(), &api.RenderRequest{Stream: true}, &recordingWriter{})
	if info.Len() != 0 {
		t.Errorf("client disconnect logged above debug: %s", info.String())
	}

	var debug bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}))
	Logging(logger)(handler).RenderPage(context.Background(), &api.RenderRequest{Stream: true}, &recordingWriter{})

	out := debug.String()
	for _, want := range []string{`"level":"DEBUG"`, "render aborted by client", "writing chunk 3"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}
