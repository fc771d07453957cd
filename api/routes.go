package api

import (
	"net/http"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/middleware"
	"github.com/bigyanadk07/BugTracker/openapi"
)

// gate is the access rule of a route.
type gate int

const (
	public gate = iota
	throttled
	authenticated
	adminOnly
)

type route struct {
	method    string
	path      string
	handler   bugtracker.Handler
	gate      gate
	summary   string
	tag       string
	query     []string
	responses map[int]string
}

// section is a group of routes sharing a prefix. Its gate applies to the
// whole group; a route's own gate may only add to it.
type section struct {
	prefix string
	gate   gate
	routes []route
}

var listQuery = []string{"page", "limit", "sort", "fields"}

func (s *Server) sections() []section {
	system := section{prefix: "", gate: public, routes: []route{
		{http.MethodGet, "/", s.welcome, public, "Welcome message", "system", nil, nil},
		{http.MethodGet, "/health", s.live, public, "Liveness report", "system", nil, map[int]string{200: "Live"}},
		{http.MethodGet, "/ready", s.ready, public, "Readiness report", "system", nil, map[int]string{200: "Ready", 503: "A dependency is down"}},
	}}

	accounts := section{prefix: "/api/auth", gate: public, routes: []route{
		{http.MethodPost, "/register", s.register, throttled, "Register a User account", "auth", nil, map[int]string{201: "Account and token", 400: "Invalid payload or email taken", 429: "Rate limited"}},
		{http.MethodPost, "/login", s.login, throttled, "Exchange credentials for a token", "auth", nil, map[int]string{200: "Account and token", 401: "Invalid credentials", 429: "Rate limited"}},
		{http.MethodGet, "/profile", s.profile, authenticated, "Current account", "auth", nil, map[int]string{200: "Account", 401: "Not authenticated"}},
		{http.MethodPut, "/profile", s.updateProfile, authenticated, "Update name, email or password", "auth", nil, map[int]string{200: "Account and token", 400: "Invalid payload"}},
		{http.MethodPost, "/admin/register", s.adminRegister, adminOnly, "Register an account with any role", "auth", nil, map[int]string{201: "Account and token", 403: "Not an Admin"}},
	}}

	bugs := section{prefix: "/api/bugs", gate: authenticated, routes: []route{
		{http.MethodGet, "", s.listBugs, authenticated, "List bugs with filters, sort, projection and pagination", "bugs", listQuery, map[int]string{200: "Page of bugs", 500: "Invalid query"}},
		{http.MethodPost, "", s.createBug, authenticated, "Report a bug", "bugs", nil, map[int]string{201: "Bug", 400: "Invalid payload"}},
		{http.MethodGet, "/:id", s.getBug, authenticated, "Fetch a bug", "bugs", nil, map[int]string{200: "Bug", 404: "Not found"}},
		{http.MethodPut, "/:id", s.updateBug, authenticated, "Partially update a bug", "bugs", nil, map[int]string{200: "Bug", 403: "Not the owner", 404: "Not found"}},
		{http.MethodDelete, "/:id", s.deleteBug, adminOnly, "Delete a bug", "bugs", nil, map[int]string{200: "Removed", 403: "Not an Admin", 404: "Not found"}},
		{http.MethodPost, "/:id/comments", s.addComment, authenticated, "Comment on a bug", "comments", nil, map[int]string{201: "Comment", 404: "Bug not found"}},
		{http.MethodGet, "/:id/comments", s.listComments, authenticated, "List comments", "comments", nil, map[int]string{200: "Comments", 404: "Bug not found"}},
		{http.MethodDelete, "/:id/comments/:commentId", s.deleteComment, authenticated, "Delete a comment", "comments", nil, map[int]string{200: "Removed", 403: "Not allowed", 404: "Not found"}},
	}}

	out := []section{system, accounts, bugs}
	if s.metrics != nil {
		out = append(out, section{prefix: "/api/metrics", gate: adminOnly, routes: []route{
			{http.MethodGet, "", s.metricsReport, adminOnly, "Request and auth metrics", "system", []string{"format"}, map[int]string{200: "Metrics snapshot"}},
		}})
	}
	return out
}

// Mount registers every route on app and serves their description at
// /api/docs.
func (s *Server) Mount(app *bugtracker.App) {
	var authOptions []middleware.AuthOption
	var limitOptions []middleware.RateLimitOption
	if s.metrics != nil {
		authOptions = append(authOptions, middleware.AuthMetrics(s.metrics))
		limitOptions = append(limitOptions, middleware.RateLimitMetrics(s.metrics))
	}

	// adminOnly extends the authenticated chain, so a route can narrow
	// its section by taking the tail of its own chain.
	protect := middleware.RequireAuth(s.Authenticator(), authOptions...)
	chains := map[gate][]bugtracker.Middleware{
		authenticated: {protect},
		adminOnly:     {protect, middleware.RequireRoles(bugtracker.RoleAdmin)},
	}
	if s.limiter != nil {
		chains[throttled] = []bugtracker.Middleware{middleware.RateLimit(s.limiter, limitOptions...)}
	}

	docs := openapi.New(openapi.Info{
		Title:   "Bug Tracker API",
		Version: "1.0.0",
	})
	for _, sec := range s.sections() {
		group := app.Group(sec.prefix, chains[sec.gate]...)
		for _, r := range sec.routes {
			var extra []bugtracker.Middleware
			if r.gate != sec.gate {
				extra = chains[r.gate][len(chains[sec.gate]):]
			}
			group.Handle(r.method, r.path, r.handler, extra...)
			if err := docs.Add(openapi.Route{
				Method:    r.method,
				Path:      group.Path(r.path),
				Summary:   r.summary,
				Tag:       r.tag,
				Protected: r.gate == authenticated || r.gate == adminOnly,
				Query:     r.query,
				Responses: r.responses,
			}); err != nil {
				app.Log().Warn("route not documented", "path", group.Path(r.path), "error", err)
			}
		}
	}

	doc := docs.Document()
	app.Group("/api").GET("/docs", func(ctx *bugtracker.Context) error {
		openapi.Handler(doc).ServeHTTP(ctx.ResponseWriter, ctx.Request)
		return nil
	})
}
