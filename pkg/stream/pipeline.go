// Package stream bridges a render backend producing HTML chunks on its own
// goroutine to an HTTP response consumed on the request goroutine.
//
// # Flow control
//
// Chunks travel through a bounded channel (DefaultCapacity by default). The
// producer's WriteChunk blocks while the channel is full, so a slow client
// slows the backend down instead of growing memory.
//
// # Failure
//
// If the producer fails, the pipeline enqueues exactly one terminal [Item]
// whose Chunk is an escaped HTML error fragment and whose Err carries the
// *api.AppError, then closes the channel. Chunks already enqueued are
// delivered first.
//
// # Abandonment
//
// When the consumer goes away it calls Abandon (or cancels the parent
// context). The next WriteChunk returns [ErrAbandoned], the producer is
// expected to return, and no error item is produced.
package stream

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"

	"github.com/rhuss/rsengine/pkg/api"
	"github.com/rhuss/rsengine/pkg/render"
)

// DefaultCapacity is the number of chunks buffered between producer and
// consumer.
const DefaultCapacity = 16

// ErrAbandoned is returned by WriteChunk once the consumer has stopped
// reading.
var ErrAbandoned = errors.New("stream abandoned by consumer")

// Item is one element of the chunk sequence.
type Item struct {
	Chunk string
	// Err is set only on the terminal item produced for a failed stream.
	Err *api.AppError
}

// ProduceFunc writes chunks to w until done. A non-nil return is reported
// to the consumer as a terminal error item.
type ProduceFunc func(ctx context.Context, w render.ChunkWriter) error

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCapacity sets the channel capacity. Values below 1 select
// DefaultCapacity.
func WithCapacity(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.capacity = n
		}
	}
}

// WithLogger sets the logger used for producer failures.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pipeline runs one producer goroutine and exposes its chunks as a channel.
type Pipeline struct {
	capacity int
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	items  chan Item
	done   chan struct{}
}

// Start launches produce on a new goroutine and returns the pipeline that
// carries its output. Cancelling ctx has the same effect as Abandon.
func Start(ctx context.Context, produce ProduceFunc, opts ...Option) *Pipeline {
	p := &Pipeline{
		capacity: DefaultCapacity,
		logger:   slog.Default(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.items = make(chan Item, p.capacity)

	go p.run(produce)
	return p
}

// Items returns the chunk channel. It is closed after the last item.
func (p *Pipeline) Items() <-chan Item {
	return p.items
}

// Capacity returns the channel capacity.
func (p *Pipeline) Capacity() int {
	return p.capacity
}

// Abandon tells the producer that nobody is reading any more. It is safe to
// call more than once.
func (p *Pipeline) Abandon() {
	p.cancel()
}

// Wait blocks until the producer goroutine has exited.
func (p *Pipeline) Wait() {
	<-p.done
}

func (p *Pipeline) run(produce ProduceFunc) {
	defer close(p.done)
	defer close(p.items)

	err := p.produce(produce)
	if err == nil {
		return
	}
	if errors.Is(err, ErrAbandoned) || p.ctx.Err() != nil {
		p.logger.Debug("stream producer stopped", slog.String("reason", err.Error()))
		return
	}

	appErr := api.AsAppError(err)
	p.logger.Warn("stream producer failed",
		slog.String("code", string(appErr.Code)),
		slog.String("error", appErr.Error()),
	)

	select {
	case p.items <- Item{Chunk: ErrorChunk(appErr), Err: appErr}:
	case <-p.ctx.Done():
	}
}

// produce runs fn and converts a panic into an internal error.
func (p *Pipeline) produce(fn ProduceFunc) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = api.NewInternal("internal server error").WithCause(fmt.Errorf("stream producer panic: %v", r))
		}
	}()
	return fn(p.ctx, render.ChunkWriterFunc(p.enqueue))
}

// enqueue blocks until the chunk is queued or the consumer is gone.
func (p *Pipeline) enqueue(ctx context.Context, chunk string) error {
	if p.ctx.Err() != nil {
		return ErrAbandoned
	}
	select {
	case p.items <- Item{Chunk: chunk}:
		return nil
	case <-p.ctx.Done():
		return ErrAbandoned
	case <-ctx.Done():
		return ErrAbandoned
	}
}

// ErrorChunk renders the user-safe part of err as an HTML fragment.
func ErrorChunk(err *api.AppError) string {
	return fmt.Sprintf(`<div class="render-error" role="alert" data-code="%s">%s</div>`,
		html.EscapeString(string(err.Code)), html.EscapeString(err.Message))
}
