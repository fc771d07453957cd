package bugtracker

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJoinPaths(t *testing.T) {
	cases := []struct {
		base string
		path string
		want string
	}{
		{"", "/", "/"},
		{"", "/health", "/health"},
		{"/api/bugs", "", "/api/bugs"},
		{"/api/bugs", "/:id/comments", "/api/bugs/:id/comments"},
		{"/api/", "auth", "/api/auth"},
		{"/", "/ready", "/ready"},
	}

	for _, tc := range cases {
		if got := joinPaths(tc.base, tc.path); got != tc.want {
			t.Fatalf("joinPaths(%q, %q) = %q, want %q", tc.base, tc.path, got, tc.want)
		}
	}
}

// trail appends name to the X-Trail header before calling next.
func trail(name string) Middleware {
	return func(next Handler) Handler {
		return func(ctx *Context) error {
			ctx.ResponseWriter.Header().Add("X-Trail", name)
			return next(ctx)
		}
	}
}

func TestGroupMiddlewareOrder(t *testing.T) {
	app := New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	bugs := app.Group("/api", trail("api")).Group("bugs", trail("bugs"))
	bugs.Handle(http.MethodDelete, "/:id", func(ctx *Context) error {
		return ctx.Text(http.StatusOK, ctx.Param("id"))
	}, trail("route"))

	if got := bugs.Path("/:id"); got != "/api/bugs/:id" {
		t.Fatalf("unexpected path %q", got)
	}

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/bugs/42", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "42" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
	if got := strings.Join(rec.Header().Values("X-Trail"), ","); got != "api,bugs,route" {
		t.Fatalf("unexpected middleware order %q", got)
	}
}
