package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/testutil"
)

func TestCORSPreflight(t *testing.T) {
	app := bugtracker.New()
	app.Use(CORS(CORSOptions{AllowedOrigins: []string{"https://app.example.com"}}))
	app.GET("/api/bugs", func(ctx *bugtracker.Context) error {
		return ctx.Text(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/bugs", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	rec := testutil.Do(t, app, req)
	testutil.MustStatus(t, rec, http.StatusNoContent)
	testutil.MustHeader(t, rec, "Access-Control-Allow-Origin", "https://app.example.com")
	testutil.MustHeader(t, rec, "Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")

	rec, err := testutil.RunMiddleware(t, []bugtracker.Middleware{CORS(CORSOptions{AllowedOrigins: []string{"https://app.example.com"}})}, nil, req)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	testutil.MustHeader(t, rec, "Access-Control-Allow-Origin", "")
}

func TestCORSWildcard(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")

	rec, _ := testutil.RunMiddleware(t, []bugtracker.Middleware{CORS(CORSOptions{})}, nil, req)
	testutil.MustHeader(t, rec, "Access-Control-Allow-Origin", "*")
}
