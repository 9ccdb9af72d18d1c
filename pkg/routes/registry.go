// Package routes holds the read-only registry of renderable routes.
package routes

import (
	"fmt"
	"sort"

	"github.com/rhuss/rsengine/pkg/api"
)

// Registry maps route identifiers to their configuration. It is built once
// and never modified, so it is safe for concurrent use without locking.
type Registry struct {
	routes map[string]api.RouteConfig
}

// New builds a registry from the given routes. Empty or duplicate
// identifiers are rejected.
func New(configs []api.RouteConfig) (*Registry, error) {
	r := &Registry{routes: make(map[string]api.RouteConfig, len(configs))}
	for i, rc := range configs {
		if rc.ID == "" {
			return nil, fmt.Errorf("route %d: id is required", i)
		}
		if _, dup := r.routes[rc.ID]; dup {
			return nil, fmt.Errorf("route %q: duplicate id", rc.ID)
		}
		if rc.RenderMode == "" {
			rc.RenderMode = api.RenderModeBlocking
		}
		r.routes[rc.ID] = rc
	}
	return r, nil
}

// Defaults returns the built-in routes used when no configuration is given.
func Defaults() []api.RouteConfig {
	return []api.RouteConfig{
		api.NewRouteConfig("home", "/"),
		api.NewRouteConfig("product", "/product/:id"),
	}
}

// Lookup returns the route registered under id.
func (r *Registry) Lookup(id string) (api.RouteConfig, bool) {
	rc, ok := r.routes[id]
	return rc, ok
}

// Count returns the number of registered routes.
func (r *Registry) Count() int {
	return len(r.routes)
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.routes))
	for id := range r.routes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
