package render

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/rhuss/rsengine/pkg/api"
	"github.com/rhuss/rsengine/pkg/debug"
)

// DefaultName is the runtime name used when Config.Name is empty.
const DefaultName = "rsengine"

// linesPerChunk bounds how many bundle source lines go into one streamed
// chunk.
const linesPerChunk = 32

// streamExport matches the declarations through which a bundle exposes its
// stream entry point.
var streamExport = regexp.MustCompile(`(?m)` +
	`export\s+(?:async\s+)?function\s*\*?\s*stream\s*\(` +
	`|export\s+(?:const|let|var)\s+stream\b` +
	`|export\s*\{[^}]*\bstream\b[^}]*\}` +
	`|\bexports\.stream\s*=`)

// Config holds configuration for a BundleBackend.
type Config struct {
	// BundlePath is the server bundle to serve. Required.
	BundlePath string
	// Name identifies this runtime in logs and rendered output.
	Name string
	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// BundleBackend is a Backend that serves a single script bundle. It treats
// the bundle as opaque text: Render returns a placeholder document and
// Stream echoes the bundle source back as escaped HTML.
type BundleBackend struct {
	path   string
	name   string
	logger *slog.Logger
}

var _ Backend = (*BundleBackend)(nil)

// NewBundleBackend creates a BundleBackend and validates its bundle.
// Construction fails with the validation error if the bundle is unusable.
func NewBundleBackend(ctx context.Context, cfg Config) (*BundleBackend, error) {
	b := &BundleBackend{
		path:   cfg.BundlePath,
		name:   cfg.Name,
		logger: cfg.Logger,
	}
	if b.name == "" {
		b.name = DefaultName
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}

	if err := b.Validate(ctx, b.path); err != nil {
		return nil, err
	}
	return b, nil
}

// Name returns the runtime name.
func (b *BundleBackend) Name() string { return b.name }

// BundlePath returns the path of the served bundle.
func (b *BundleBackend) BundlePath() string { return b.path }

// Validate checks that bundlePath names a regular file that declares a
// stream entry point.
func (b *BundleBackend) Validate(ctx context.Context, bundlePath string) error {
	if bundlePath == "" {
		return api.NewBadRequest("bundle path must be provided")
	}

	info, err := os.Stat(bundlePath)
	if err != nil {
		return api.NewInternal("failed to inspect bundle").
			WithCause(errors.Wrapf(err, "stat bundle %s", bundlePath))
	}
	if !info.Mode().IsRegular() {
		return api.NewBadRequest(fmt.Sprintf("bundle %s is not a regular file", info.Name()))
	}

	src, err := readBundle(bundlePath)
	if err != nil {
		return err
	}
	if !streamExport.MatchString(src) {
		return api.NewBadRequest(fmt.Sprintf("bundle %s does not export a stream function", info.Name()))
	}

	b.logger.DebugContext(ctx, "bundle validated",
		slog.String("runtime", b.name),
		slog.String("bundle", bundlePath),
		slog.Int64("size", info.Size()),
	)
	return nil
}

// Render returns a placeholder document describing the route and request.
func (b *BundleBackend) Render(ctx context.Context, route api.RouteConfig, rc *api.RequestContext) (string, error) {
	if route.Pattern == "" {
		return "", api.NewBadRequest("route pattern must be provided")
	}

	b.logger.DebugContext(ctx, "render backend invoked",
		slog.String("request_id", rc.Trace.RequestID.String()),
		slog.String("route", route.Pattern),
		slog.String("runtime", b.name),
	)

	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8">`)
	fmt.Fprintf(&sb, `<meta name="generator" content="%s">`, html.EscapeString(b.name))
	sb.WriteString(`</head><body><h1>SSR placeholder</h1>`)
	fmt.Fprintf(&sb, `<p>Route: %s</p>`, html.EscapeString(route.Pattern))
	fmt.Fprintf(&sb, `<p>Request ID: %s</p>`, rc.Trace.RequestID)
	sb.WriteString(`</body></html>`)
	return sb.String(), nil
}

// Stream writes, in order: the document preamble, the escaped JSON snapshot
// of rc, the bundle source section and the document close. The bundle is
// re-read at stream time; a read failure yields an internal error and a
// bundle that no longer declares its stream entry point yields an
// upstream_failure.
func (b *BundleBackend) Stream(ctx context.Context, rc *api.RequestContext, w ChunkWriter) error {
	b.logger.DebugContext(ctx, "stream backend invoked",
		slog.String("request_id", rc.Trace.RequestID.String()),
		slog.String("path", rc.Path),
		slog.String("runtime", b.name),
	)

	if err := w.WriteChunk(ctx, b.preamble()); err != nil {
		return err
	}

	snapshot, err := contextSnapshot(rc)
	if err != nil {
		return err
	}
	if err := w.WriteChunk(ctx, snapshot); err != nil {
		return err
	}

	src, err := readBundle(b.path)
	if err != nil {
		return err
	}
	debug.Log(debug.Render, "bundle reread for stream",
		"request_id", rc.Trace.RequestID.String(),
		"path", b.path,
		"bytes", len(src),
	)
	if !streamExport.MatchString(src) {
		return api.NewUpstreamFailure("bundle no longer exports a stream function")
	}

	if err := w.WriteChunk(ctx, `<section id="bundle-source"><h2>Bundle Source</h2><pre><code>`); err != nil {
		return err
	}
	for _, block := range lineBlocks(src, linesPerChunk) {
		if err := w.WriteChunk(ctx, html.EscapeString(block)); err != nil {
			return err
		}
	}
	if err := w.WriteChunk(ctx, `</code></pre></section>`); err != nil {
		return err
	}

	return w.WriteChunk(ctx, `</body></html>`)
}

func (b *BundleBackend) preamble() string {
	name := html.EscapeString(b.name)
	return `<!DOCTYPE html><html><head><meta charset="utf-8">` +
		`<title>` + name + `</title></head><body>` +
		`<h1>Streaming SSR response</h1>`
}

// contextSnapshot renders rc as escaped, indented JSON inside a <pre>.
func contextSnapshot(rc *api.RequestContext) (string, error) {
	data, err := json.MarshalIndent(rc, "", "  ")
	if err != nil {
		return "", api.NewInternal("failed to serialize request context").
			WithCause(errors.Wrap(err, "marshal request context"))
	}
	return `<pre id="request-context">` + html.EscapeString(string(data)) + `</pre>`, nil
}

func readBundle(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", api.NewInternal("failed to read bundle").
			WithCause(errors.Wrapf(err, "read bundle %s", path))
	}
	return string(data), nil
}

// lineBlocks splits src into blocks of at most n lines, keeping line
// terminators so the blocks concatenate back to src.
func lineBlocks(src string, n int) []string {
	if src == "" {
		return nil
	}
	lines := strings.SplitAfter(src, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	blocks := make([]string, 0, (len(lines)+n-1)/n)
	for i := 0; i < len(lines); i += n {
		end := min(i+n, len(lines))
		blocks = append(blocks, strings.Join(lines[i:end], ""))
	}
	return blocks
}
