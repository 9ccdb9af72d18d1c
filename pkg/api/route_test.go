package api

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseRenderMode(t *testing.T) {
	tests := []struct {
		in      string
		want    RenderMode
		wantErr bool
	}{
		{"", RenderModeBlocking, false},
		{"blocking", RenderModeBlocking, false},
		{"Streaming", RenderModeStreaming, false},
		{" STREAMING ", RenderModeStreaming, false},
		{"chunked", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRenderMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRenderMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRenderMode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRouteConfigFromYAML(t *testing.T) {
	src := `
- id: home
  pattern: /
- id: feed
  pattern: /feed
  render_mode: streaming
  cache_ttl_seconds: 30
`
	var routes []RouteConfig
	if err := yaml.Unmarshal([]byte(src), &routes); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("len(routes) = %d, want 2", len(routes))
	}
	if routes[0].Mode() != RenderModeBlocking {
		t.Errorf("home mode = %q, want blocking", routes[0].Mode())
	}
	if routes[0].CacheTTLSeconds != nil {
		t.Errorf("home cache_ttl_seconds = %v, want nil", *routes[0].CacheTTLSeconds)
	}
	if routes[1].Mode() != RenderModeStreaming {
		t.Errorf("feed mode = %q, want streaming", routes[1].Mode())
	}
	if routes[1].CacheTTLSeconds == nil || *routes[1].CacheTTLSeconds != 30 {
		t.Errorf("feed cache_ttl_seconds = %v, want 30", routes[1].CacheTTLSeconds)
	}
}

func TestRouteConfigRejectsUnknownMode(t *testing.T) {
	var rc RouteConfig
	err := json.Unmarshal([]byte(`{"id":"x","pattern":"/x","render_mode":"lazy"}`), &rc)
	if err == nil {
		t.Fatal("expected error for unknown render_mode")
	}
}
