package bugtracker

import (
	"net/http"
	"strings"
)

// Group registers routes under a shared prefix behind shared middleware.
// Group middleware runs before the middleware passed per route.
type Group struct {
	app        *App
	prefix     string
	middleware []Middleware
}

// Group creates a route group.
func (a *App) Group(prefix string, middleware ...Middleware) *Group {
	return &Group{app: a, prefix: cleanPrefix(prefix), middleware: middleware}
}

// Group creates a nested group inheriting the parent's middleware.
func (g *Group) Group(prefix string, middleware ...Middleware) *Group {
	combined := append([]Middleware{}, g.middleware...)
	combined = append(combined, middleware...)
	return &Group{app: g.app, prefix: joinPaths(g.prefix, prefix), middleware: combined}
}

// Path returns the full pattern a relative path is registered under.
func (g *Group) Path(path string) string {
	return joinPaths(g.prefix, path)
}

// GET registers a GET route in the group.
func (g *Group) GET(path string, handler Handler, middleware ...Middleware) {
	g.Handle(http.MethodGet, path, handler, middleware...)
}

// Handle registers a route for any method in the group.
func (g *Group) Handle(method, path string, handler Handler, middleware ...Middleware) {
	combined := append([]Middleware{}, g.middleware...)
	combined = append(combined, middleware...)
	g.app.handle(method, g.Path(path), handler, combined)
}

func joinPaths(base, path string) string {
	if base == "" {
		return cleanPrefix(path)
	}
	if path == "" || path == "/" {
		return cleanPrefix(base)
	}

	base = cleanPrefix(base)
	path = cleanPrefix(path)

	if base == "/" {
		return path
	}
	return strings.TrimRight(base, "/") + path
}

func cleanPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if len(prefix) > 1 {
		prefix = strings.TrimRight(prefix, "/")
	}
	return prefix
}
