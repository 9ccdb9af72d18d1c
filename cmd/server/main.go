// Command server runs the rsengine render front end.
//
// Configuration is read from a YAML file, the environment and flags, in
// increasing order of precedence:
//
//	--config, RSENGINE_CONFIG    - Config file path (optional)
//	--bundle, RSENGINE_BUNDLE    - Server bundle to serve (required)
//	--runtime-name               - Runtime name for logs and output (default: "rsengine")
//	--port, PORT                 - Listen port (default: 3000)
//
// See pkg/config for the remaining settings.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/rhuss/rsengine/pkg/config"
	"github.com/rhuss/rsengine/pkg/debug"
	"github.com/rhuss/rsengine/pkg/engine"
	"github.com/rhuss/rsengine/pkg/observability"
	"github.com/rhuss/rsengine/pkg/render"
	"github.com/rhuss/rsengine/pkg/routes"
	transporthttp "github.com/rhuss/rsengine/pkg/transport/http"
)

// Version is injected at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// options carries the command line flags into run.
type options struct {
	configPath  string
	bundle      string
	runtimeName string
	port        int
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "rsengine",
		Usage:   "serve server-rendered HTML from a server bundle",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file",
			},
			&cli.StringFlag{
				Name:  "bundle",
				Usage: "server bundle to serve",
			},
			&cli.StringFlag{
				Name:  "runtime-name",
				Usage: "runtime name used in logs and rendered output",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "listen port",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, options{
				configPath:  cmd.String("config"),
				bundle:      cmd.String("bundle"),
				runtimeName: cmd.String("runtime-name"),
				port:        cmd.Int("port"),
			})
		},
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath,
		config.WithBundle(opts.bundle),
		config.WithRuntimeName(opts.runtimeName),
		config.WithPort(opts.port),
	)
	if err != nil {
		return err
	}

	logger, logCloser, err := observability.NewLogger(cfg.Logging.LogOptions())
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logCloser.Close()
	logger = logger.With(slog.String("runtime", cfg.Render.RuntimeName))
	slog.SetDefault(logger)
	debug.Init(cfg.Logging.Debug)

	var metrics *observability.Metrics
	if cfg.Observability.Metrics.Enabled {
		metrics = observability.InitMetrics()
		metrics.RecordProcessStart(time.Now())
	}

	tp, err := observability.InitTracing(observability.TracingOptions{
		Exporter:    cfg.Observability.Tracing.Exporter,
		ServiceName: cfg.Render.RuntimeName,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", slog.String("error", err.Error()))
		}
	}()

	backend, err := render.NewBundleBackend(ctx, render.Config{
		BundlePath: cfg.Render.Bundle,
		Name:       cfg.Render.RuntimeName,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("loading bundle: %w", err)
	}

	registry, err := routes.New(cfg.Routes)
	if err != nil {
		return fmt.Errorf("loading routes: %w", err)
	}

	eng, err := engine.New(backend, registry, metrics, engine.Config{
		StreamCapacity: cfg.Render.StreamCapacity,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	srv := transporthttp.NewServer(eng, eng,
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithReadHeaderTimeout(cfg.Server.ReadHeaderTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithMetrics(metrics, cfg.Observability.Metrics.MetricsPath()),
		transporthttp.WithTracerProvider(tp),
		transporthttp.WithLogger(logger),
	)

	logger.Info("rsengine configured",
		slog.String("bundle", backend.BundlePath()),
		slog.Int("port", cfg.Server.Port),
		slog.Any("routes", registry.IDs()),
		slog.Int("stream_capacity", cfg.Render.StreamCapacity),
		slog.String("tracing", cfg.Observability.Tracing.Exporter),
		slog.Any("debug", debug.Categories()),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// The server and the signal watcher run as one group: whichever stops
	// first cancels the other.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		return waitForSignal(gctx, sigCh)
	})

	err = g.Wait()
	var sigErr *signalError
	if errors.As(err, &sigErr) {
		logger.Info("shutdown complete", slog.String("signal", sigErr.sig.String()))
		return nil
	}
	return err
}

// signalError reports the signal that stopped the server.
type signalError struct {
	sig os.Signal
}

func (e *signalError) Error() string { return "received signal " + e.sig.String() }

// waitForSignal returns a *signalError once a signal arrives on sigCh, or
// nil when ctx is done first.
func waitForSignal(ctx context.Context, sigCh <-chan os.Signal) error {
	select {
	case sig := <-sigCh:
		return &signalError{sig: sig}
	case <-ctx.Done():
		return nil
	}
}
