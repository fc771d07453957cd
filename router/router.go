package router

import (
	"errors"
	"sort"
	"strings"
)

// RouteID identifies a registered route.
type RouteID int

// Params holds path parameters keyed by name.
type Params map[string]string

type segmentKind int

const (
	segmentStatic segmentKind = iota
	segmentParam
)

type segment struct {
	kind  segmentKind
	value string
}

type route struct {
	id       RouteID
	method   string
	pattern  string
	segments []segment
}

// Router matches request methods and paths against registered patterns.
// Patterns use ":name" for a single path parameter.
type Router struct {
	routes []route
	nextID RouteID
}

// New creates an empty Router.
func New() *Router {
	return &Router{}
}

// Add registers a route and returns its id.
func (r *Router) Add(method, pattern string) (RouteID, error) {
	if method == "" {
		return 0, errors.New("method required")
	}
	if pattern == "" || pattern[0] != '/' {
		return 0, errors.New("pattern must start with '/'")
	}

	segments, err := parsePattern(pattern)
	if err != nil {
		return 0, err
	}
	for _, existing := range r.routes {
		if existing.method == method && samePattern(existing.segments, segments) {
			return 0, errors.New("duplicate route " + method + " " + pattern)
		}
	}

	id := r.nextID
	r.nextID++
	r.routes = append(r.routes, route{id: id, method: method, pattern: pattern, segments: segments})
	return id, nil
}

// Match finds the route for method and path. A pattern with more static
// segments wins over one that captures the same position as a parameter.
func (r *Router) Match(method, path string) (RouteID, Params, bool) {
	parts := splitPath(path)

	best := -1
	bestScore := -1
	var bestParams Params
	for i, rt := range r.routes {
		if rt.method != method {
			continue
		}
		params, score, ok := matchSegments(rt.segments, parts)
		if ok && score > bestScore {
			best, bestScore, bestParams = i, score, params
		}
	}
	if best < 0 {
		return 0, nil, false
	}
	return r.routes[best].id, bestParams, true
}

// Allowed lists the methods registered for a path, sorted.
func (r *Router) Allowed(path string) []string {
	parts := splitPath(path)
	seen := map[string]struct{}{}
	for _, rt := range r.routes {
		if _, _, ok := matchSegments(rt.segments, parts); ok {
			seen[rt.method] = struct{}{}
		}
	}

	methods := make([]string, 0, len(seen))
	for method := range seen {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}

// Pattern returns the pattern a route was registered with.
func (r *Router) Pattern(id RouteID) string {
	for _, rt := range r.routes {
		if rt.id == id {
			return rt.pattern
		}
	}
	return ""
}

func parsePattern(pattern string) ([]segment, error) {
	parts := splitPath(pattern)
	segments := make([]segment, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, errors.New("empty path segment")
		}
		if strings.HasPrefix(part, ":") {
			name := strings.TrimPrefix(part, ":")
			if name == "" {
				return nil, errors.New("param name required")
			}
			segments = append(segments, segment{kind: segmentParam, value: name})
			continue
		}
		segments = append(segments, segment{kind: segmentStatic, value: part})
	}
	return segments, nil
}

func splitPath(path string) []string {
	clean := strings.Trim(path, "/")
	if clean == "" {
		return []string{}
	}
	return strings.Split(clean, "/")
}

func samePattern(a, b []segment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].kind != b[i].kind {
			return false
		}
		if a[i].kind == segmentStatic && a[i].value != b[i].value {
			return false
		}
	}
	return true
}

func matchSegments(pattern []segment, parts []string) (Params, int, bool) {
	if len(pattern) != len(parts) {
		return nil, 0, false
	}

	params := make(Params)
	score := 0
	for i, seg := range pattern {
		switch seg.kind {
		case segmentStatic:
			if parts[i] != seg.value {
				return nil, 0, false
			}
			score++
		case segmentParam:
			params[seg.value] = parts[i]
		}
	}
	return params, score, true
}
