package transport

import (
	"context"
	"sync"
)

// InFlightRegistry tracks in-flight streaming responses so they can be
// cancelled explicitly. Server shutdown uses CancelAll to stop producers
// that would otherwise outlive the shutdown deadline.
//
// Entries are keyed by a token the registry hands out, not by request ID:
// request IDs come from the client and two concurrent streams may share
// one.
//
// All methods are safe for concurrent access.
type InFlightRegistry struct {
	mu      sync.Mutex
	next    uint64
	entries map[uint64]inFlightEntry
}

type inFlightEntry struct {
	requestID string
	cancel    context.CancelFunc
}

// NewInFlightRegistry creates a new empty registry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{
		entries: make(map[uint64]inFlightEntry),
	}
}

// Register adds an in-flight stream to the registry and returns the token
// that removes it again.
func (r *InFlightRegistry) Register(requestID string, cancel context.CancelFunc) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.entries[r.next] = inFlightEntry{requestID: requestID, cancel: cancel}
	return r.next
}

// Remove removes a stream from the registry without cancelling it.
// Called when a streaming response completes.
func (r *InFlightRegistry) Remove(token uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, token)
}

// CancelAll cancels every registered stream and empties the registry. It
// returns the request IDs of the cancelled streams.
func (r *InFlightRegistry) CancelAll() []string {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[uint64]inFlightEntry)
	r.mu.Unlock()

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		e.cancel()
		ids = append(ids, e.requestID)
	}
	return ids
}

// Len returns the number of registered streams.
func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
