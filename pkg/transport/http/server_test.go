package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	gohttp "net/http"
	"strings"
	"testing"
	"time"

	"github.com/rhuss/rsengine/pkg/api"
	"github.com/rhuss/rsengine/pkg/observability"
	"github.com/rhuss/rsengine/pkg/transport"
)

func startServer(t *testing.T, srv *Server) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	time.Sleep(50 * time.Millisecond)

	return "http://" + ln.Addr().String(), cancel, done
}

func TestServerStartsAndAcceptsRequests(t *testing.T) {
	srv := NewServer(&mockRenderer{document: "<html>ok</html>"}, stubProbe{routes: 2}, WithAddr("127.0.0.1:0"))
	base, cancel, done := startServer(t, srv)
	defer func() {
		cancel()
		<-done
	}()

	resp, err := gohttp.Get(base + "/ready")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != gohttp.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, gohttp.StatusOK)
	}
	var got readyResponse
	json.NewDecoder(resp.Body).Decode(&got)
	if got.RoutesLoaded != 2 {
		t.Errorf("routes_loaded = %d, want 2", got.RoutesLoaded)
	}
}

func TestServerGracefulShutdown(t *testing.T) {
	slowRenderer := transport.PageRendererFunc(func(ctx context.Context, req *api.RenderRequest, w transport.ResponseWriter) error {
		select {
		case <-time.After(200 * time.Millisecond):
			return w.WriteDocument(ctx, "<html>slow</html>")
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	srv := NewServer(slowRenderer, stubProbe{},
		WithAddr("127.0.0.1:0"),
		WithShutdownTimeout(5*time.Second),
	)
	base, cancel, done := startServer(t, srv)

	responseCh := make(chan int, 1)
	go func() {
		resp, err := gohttp.Get(base + "/render/home")
		if err != nil {
			responseCh <- 0
			return
		}
		defer resp.Body.Close()
		responseCh <- resp.StatusCode
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	status := <-responseCh
	if status != gohttp.StatusOK {
		t.Errorf("slow request status = %d, want %d", status, gohttp.StatusOK)
	}
	if err := <-done; err != nil {
		t.Errorf("Serve returned %v", err)
	}
}

func TestServerShutdownCancelsStreams(t *testing.T) {
	started := make(chan struct{})
	streamer := transport.PageRendererFunc(func(ctx context.Context, req *api.RenderRequest, w transport.ResponseWriter) error {
		if err := w.WriteChunk(ctx, "<html>"); err != nil {
			return err
		}
		close(started)
		<-ctx.Done()
		return transport.Delivered(ctx.Err())
	})

	srv := NewServer(streamer, stubProbe{}, WithShutdownTimeout(5*time.Second))
	base, cancel, done := startServer(t, srv)

	bodyCh := make(chan string, 1)
	go func() {
		resp, err := gohttp.Get(base + "/stream")
		if err != nil {
			bodyCh <- ""
			return
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		bodyCh <- string(b)
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not start")
	}

	shutdownStart := time.Now()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("shutdown did not cancel the open stream")
	}
	if elapsed := time.Since(shutdownStart); elapsed > 2*time.Second {
		t.Errorf("shutdown took %v", elapsed)
	}
	if body := <-bodyCh; !strings.HasPrefix(body, "<html>") {
		t.Errorf("body = %q", body)
	}
}

func TestServerServeReturnsListenerErrors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	ln.Close()

	srv := NewServer(&mockRenderer{}, stubProbe{})
	err = srv.Serve(context.Background(), ln)
	if err == nil || errors.Is(err, gohttp.ErrServerClosed) {
		t.Errorf("Serve on closed listener = %v, want an error", err)
	}
}

func TestServerFunctionalOptions(t *testing.T) {
	m := observability.NewMetrics()
	srv := NewServer(&mockRenderer{}, stubProbe{},
		WithAddr(":9999"),
		WithShutdownTimeout(10*time.Second),
		WithMetrics(m, "/internal/metrics"),
	)

	if srv.config.Addr != ":9999" {
		t.Errorf("addr = %q, want %q", srv.config.Addr, ":9999")
	}
	if srv.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v, want %v", srv.config.ShutdownTimeout, 10*time.Second)
	}
	if srv.config.Metrics != m || srv.config.MetricsPath != "/internal/metrics" {
		t.Errorf("metrics = %p %q", srv.config.Metrics, srv.config.MetricsPath)
	}
}

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	if cfg.Addr != ":3000" {
		t.Errorf("addr = %q, want %q", cfg.Addr, ":3000")
	}
	if cfg.MetricsPath != "/metrics" {
		t.Errorf("metrics path = %q, want %q", cfg.MetricsPath, "/metrics")
	}
}
