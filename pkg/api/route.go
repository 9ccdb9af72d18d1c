package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// RenderMode controls how a route's HTML is delivered.
type RenderMode string

const (
	// RenderModeBlocking renders the full document before sending it.
	RenderModeBlocking RenderMode = "blocking"
	// RenderModeStreaming sends chunks as the backend produces them.
	RenderModeStreaming RenderMode = "streaming"
)

// ParseRenderMode parses s case-insensitively. The empty string yields
// RenderModeBlocking.
func ParseRenderMode(s string) (RenderMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(RenderModeBlocking):
		return RenderModeBlocking, nil
	case string(RenderModeStreaming):
		return RenderModeStreaming, nil
	default:
		return "", fmt.Errorf("unknown render mode %q (want \"blocking\" or \"streaming\")", s)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *RenderMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	mode, err := ParseRenderMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *RenderMode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	mode, err := ParseRenderMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// RouteConfig declares one renderable route.
type RouteConfig struct {
	// ID is the stable identifier used in /render/{route_id}.
	ID string `json:"id" yaml:"id"`
	// Pattern is the human-readable route pattern, e.g. "/product/:id".
	Pattern    string     `json:"pattern" yaml:"pattern"`
	RenderMode RenderMode `json:"render_mode,omitempty" yaml:"render_mode,omitempty"`
	// CacheTTLSeconds is carried for consumers; rendered output is not cached.
	CacheTTLSeconds *uint64 `json:"cache_ttl_seconds,omitempty" yaml:"cache_ttl_seconds,omitempty"`
}

// NewRouteConfig returns a blocking route with no cache TTL.
func NewRouteConfig(id, pattern string) RouteConfig {
	return RouteConfig{ID: id, Pattern: pattern, RenderMode: RenderModeBlocking}
}

// Mode returns the effective render mode, treating an unset mode as
// blocking.
func (r RouteConfig) Mode() RenderMode {
	if r.RenderMode == "" {
		return RenderModeBlocking
	}
	return r.RenderMode
}

// RenderRequest is what the HTTP surface hands to the render pipeline.
type RenderRequest struct {
	// RouteID selects a registered route. Empty for the /stream endpoint.
	RouteID string
	// Stream forces streamed delivery regardless of the route's mode.
	Stream bool
	// Context is the immutable snapshot of the inbound request.
	Context *RequestContext
}
