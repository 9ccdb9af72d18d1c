package engine

import (
	"log/slog"

	"github.com/rhuss/rsengine/pkg/stream"
)

// Config holds configuration for the render engine.
type Config struct {
	// StreamCapacity is the number of chunks buffered between a streaming
	// backend and the client. Zero or negative means stream.DefaultCapacity.
	StreamCapacity int

	// Logger receives engine diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// streamCapacity returns the effective capacity.
func (c Config) streamCapacity() int {
	if c.StreamCapacity <= 0 {
		return stream.DefaultCapacity
	}
	return c.StreamCapacity
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
