// Package testutil holds helpers shared by HTTP and middleware tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/router"
)

// Do executes a request against a handler.
func Do(t *testing.T, handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// JSONRequest builds a request with body encoded as JSON and, when token
// is set, a bearer Authorization header.
func JSONRequest(t *testing.T, method, path string, body any, token string) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// MustStatus asserts the response status code.
func MustStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
}

// MustHeader asserts a response header value.
func MustHeader(t *testing.T, rec *httptest.ResponseRecorder, key, value string) {
	t.Helper()
	if got := rec.Header().Get(key); got != value {
		t.Fatalf("expected header %s=%q, got %q", key, value, got)
	}
}

// DecodeJSON decodes a JSON response into dst.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(dst); err != nil {
		t.Fatalf("decode json: %v: %s", err, rec.Body.String())
	}
}

// Envelope decodes a response envelope into a generic map.
func Envelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	DecodeJSON(t, rec, &body)
	return body
}

// MustMessage asserts a failure envelope carrying message.
func MustMessage(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	MustStatus(t, rec, status)
	body := Envelope(t, rec)
	if body["success"] != false {
		t.Fatalf("expected success false: %v", body)
	}
	if body["message"] != message {
		t.Fatalf("expected message %q, got %v", message, body["message"])
	}
}

// MiddlewareCase describes a middleware test case.
type MiddlewareCase struct {
	Name       string
	Middleware []bugtracker.Middleware
	Handler    bugtracker.Handler
	Request    *http.Request
	Assert     func(t *testing.T, rec *httptest.ResponseRecorder, err error)
}

// RunMiddleware executes middleware with a handler and request, bypassing
// the app error handler so the returned error can be inspected.
func RunMiddleware(t *testing.T, middleware []bugtracker.Middleware, handler bugtracker.Handler, req *http.Request) (*httptest.ResponseRecorder, error) {
	t.Helper()
	if req == nil {
		req = httptest.NewRequest(http.MethodGet, "/", nil)
	}

	app := bugtracker.New()
	rec := httptest.NewRecorder()
	ctx := bugtracker.NewContext(rec, req, router.Params{}, app)

	h := handler
	if h == nil {
		h = func(*bugtracker.Context) error { return nil }
	}
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}

	err := h(ctx)
	return rec, err
}

// RunMiddlewareCases executes middleware test cases in a table-driven style.
func RunMiddlewareCases(t *testing.T, cases []MiddlewareCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			rec, err := RunMiddleware(t, tc.Middleware, tc.Handler, tc.Request)
			if tc.Assert != nil {
				tc.Assert(t, rec, err)
			}
		})
	}
}
