package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/rhuss/rsengine/pkg/transport"
)

const contentTypeHTML = "text/html; charset=utf-8"

// writerState tracks the state of an HTML ResponseWriter.
type writerState int

const (
	writerIdle      writerState = iota // Initial state, no writes yet
	writerStreaming                    // WriteChunk has been called at least once
	writerCompleted                    // WriteDocument has been called
)

// htmlResponseWriter implements transport.ResponseWriter for HTML
// responses. A response is either one complete document or a sequence of
// chunks flushed to the client as they arrive, never both.
type htmlResponseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state writerState

	// onStreamStart is called once, when the first chunk is written.
	onStreamStart func()
}

var _ transport.ResponseWriter = (*htmlResponseWriter)(nil)

// newHTMLResponseWriter creates a ResponseWriter wrapping w. The onStart
// callback may be nil.
func newHTMLResponseWriter(w http.ResponseWriter, onStart func()) *htmlResponseWriter {
	return &htmlResponseWriter{
		w:             w,
		rc:            http.NewResponseController(w),
		onStreamStart: onStart,
	}
}

// WriteChunk writes one HTML chunk and flushes it. The first chunk commits
// a 200 status and the streaming headers.
func (h *htmlResponseWriter) WriteChunk(ctx context.Context, chunk string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == writerCompleted {
		return errors.New("cannot write chunk: writer is completed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if h.state == writerIdle {
		h.w.Header().Set("Content-Type", contentTypeHTML)
		h.w.Header().Set("Cache-Control", "no-cache")
		h.w.Header().Set("X-Content-Type-Options", "nosniff")
		h.w.WriteHeader(http.StatusOK)
		h.state = writerStreaming

		if h.onStreamStart != nil {
			h.onStreamStart()
			h.onStreamStart = nil
		}
	}

	if _, err := io.WriteString(h.w, chunk); err != nil {
		return fmt.Errorf("failed to write chunk: %w", err)
	}
	if err := h.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return nil
}

// WriteDocument sends a complete HTML document. This is mutually exclusive
// with WriteChunk.
func (h *htmlResponseWriter) WriteDocument(ctx context.Context, doc string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == writerStreaming {
		return errors.New("cannot write document: streaming has already started")
	}
	if h.state == writerCompleted {
		return errors.New("cannot write document: writer is completed")
	}

	h.w.Header().Set("Content-Type", contentTypeHTML)
	h.state = writerCompleted

	if _, err := io.WriteString(h.w, doc); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// hasStartedStreaming returns true if at least one chunk has been written.
func (h *htmlResponseWriter) hasStartedStreaming() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == writerStreaming
}

// hasWritten returns true once any body has been committed.
func (h *htmlResponseWriter) hasWritten() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state != writerIdle
}
