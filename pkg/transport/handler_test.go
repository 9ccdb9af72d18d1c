package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/rhuss/rsengine/pkg/api"
)

func TestPageRendererFuncAdapter(t *testing.T) {
	called := false
	var receivedReq *api.RenderRequest

	fn := PageRendererFunc(func(ctx context.Context, req *api.RenderRequest, w ResponseWriter) error {
		called = true
		receivedReq = req
		return w.WriteDocument(ctx, "<html></html>")
	})

	var _ PageRenderer = fn

	w := &recordingWriter{}
	req := &api.RenderRequest{RouteID: "home"}
	if err := fn.RenderPage(context.Background(), req, w); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected function to be called")
	}
	if receivedReq.RouteID != "home" {
		t.Errorf("route = %q, want %q", receivedReq.RouteID, "home")
	}
	if w.document != "<html></html>" {
		t.Errorf("document = %q", w.document)
	}
}

func TestPageRendererFuncReturnsError(t *testing.T) {
	fn := PageRendererFunc(func(ctx context.Context, req *api.RenderRequest, w ResponseWriter) error {
		return api.NewUpstreamFailure("test error")
	})

	err := fn.RenderPage(context.Background(), &api.RenderRequest{}, nil)

	var appErr *api.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *api.AppError, got %T", err)
	}
	if appErr.Code != api.ErrorCodeUpstreamFailure {
		t.Errorf("code = %q, want %q", appErr.Code, api.ErrorCodeUpstreamFailure)
	}
}

func TestInterfaceSatisfaction(t *testing.T) {
	var _ PageRenderer = PageRendererFunc(nil)
	var _ ResponseWriter = (*recordingWriter)(nil)
}
