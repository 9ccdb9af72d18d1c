// Package debug provides category-based debug logging for rsengine.
//
// Categories select WHAT to debug and are set with RSENGINE_DEBUG or the
// logging.debug config key as a comma-separated list. The log level still
// decides whether anything is written: debug output is emitted at
// slog.LevelDebug through the default logger.
//
// Usage:
//
//	debug.Log(debug.Stream, "chunk forwarded", "request_id", id, "bytes", n)
//	if debug.Enabled(debug.Render) { /* expensive formatting */ }
//
// Categories: render, stream, transport, all.
package debug

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync/atomic"
)

// Debug categories.
const (
	Render    = "render"
	Stream    = "stream"
	Transport = "transport"
	All       = "all"
)

// EnvVar overrides the configured categories when set.
const EnvVar = "RSENGINE_DEBUG"

var categories atomic.Pointer[map[string]bool]

func init() {
	Init("")
}

// Init configures the enabled categories. RSENGINE_DEBUG takes precedence
// over configured.
func Init(configured string) {
	spec := os.Getenv(EnvVar)
	if spec == "" {
		spec = configured
	}
	m := parseCategories(spec)
	categories.Store(&m)
}

// Enabled reports whether debug output is active for the given category.
func Enabled(category string) bool {
	m := *categories.Load()
	return m[All] || m[category]
}

// Log emits a debug message for the given category.
// If the category is not enabled, this is a no-op.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Default().Log(context.Background(), slog.LevelDebug, msg, append([]any{"debug", category}, args...)...)
}

// Categories returns the enabled categories in sorted order.
func Categories() []string {
	m := *categories.Load()
	result := make([]string, 0, len(m))
	for k := range m {
		result = append(result, k)
	}
	slices.Sort(result)
	return result
}

// Preview returns s cut to at most maxLen bytes, with "..." appended if it
// was cut.
func Preview(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
