package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/apperr"
	"github.com/bigyanadk07/BugTracker/store"
)

type stubLookup struct {
	principals map[string]bugtracker.Principal
	err        error
}

func (s stubLookup) FindPrincipalByID(_ context.Context, id string) (*bugtracker.Principal, error) {
	if s.err != nil {
		return nil, s.err
	}
	principal, ok := s.principals[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &principal, nil
}

func requestContext(header string) *bugtracker.Context {
	req := httptest.NewRequest(http.MethodGet, "/api/bugs", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	return bugtracker.NewContext(httptest.NewRecorder(), req, nil, bugtracker.New())
}

func TestPrincipalResolver(t *testing.T) {
	codec := newCodec(t)
	token, _ := codec.Issue(bugtracker.Principal{ID: "u1", Role: bugtracker.RoleUser}, t0)
	ghost, _ := codec.Issue(bugtracker.Principal{ID: "ghost", Role: bugtracker.RoleAdmin}, t0)

	users := stubLookup{principals: map[string]bugtracker.Principal{
		"u1": {ID: "u1", Role: bugtracker.RoleAdmin},
	}}

	cases := []struct {
		name    string
		header  string
		now     time.Time
		users   PrincipalLookup
		status  int
		message string
	}{
		{name: "missing header", header: "", now: t0, users: users, status: http.StatusUnauthorized, message: MessageNoToken},
		{name: "other scheme", header: "Basic dTE6cHc=", now: t0, users: users, status: http.StatusUnauthorized, message: MessageNoToken},
		{name: "bad token", header: "Bearer nope", now: t0, users: users, status: http.StatusUnauthorized, message: MessageTokenFailed},
		{name: "expired", header: "Bearer " + token, now: t0.Add(2 * time.Hour), users: users, status: http.StatusUnauthorized, message: MessageTokenFailed},
		{name: "vanished user", header: "Bearer " + ghost, now: t0, users: users, status: http.StatusUnauthorized, message: MessageUserNotFound},
		{name: "store down", header: "Bearer " + token, now: t0, users: stubLookup{err: errors.New("db down")}, status: http.StatusInternalServerError, message: "Server Error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			now := tc.now
			resolver := PrincipalResolver{Codec: codec, Users: tc.users, Now: func() time.Time { return now }}
			_, err := resolver.Authenticate(requestContext(tc.header))
			appErr := apperr.As(err)
			if appErr == nil {
				t.Fatalf("expected app error, got %v", err)
			}
			if appErr.Status != tc.status || appErr.Message != tc.message {
				t.Fatalf("expected %d %q, got %d %q", tc.status, tc.message, appErr.Status, appErr.Message)
			}
		})
	}
}

func TestPrincipalResolverUsesLiveRole(t *testing.T) {
	codec := newCodec(t)
	token, _ := codec.Issue(bugtracker.Principal{ID: "u1", Role: bugtracker.RoleUser}, t0)
	resolver := PrincipalResolver{
		Codec: codec,
		Users: stubLookup{principals: map[string]bugtracker.Principal{"u1": {ID: "u1", Role: bugtracker.RoleAdmin}}},
		Now:   func() time.Time { return t0 },
	}

	principal, err := resolver.Authenticate(requestContext("bearer " + token))
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if principal.Role != bugtracker.RoleAdmin {
		t.Fatalf("expected role from store, got %s", principal.Role)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":    "abc",
		"bearer  abc ":  "abc",
		"BEARER abc":    "abc",
		"Bearer":        "",
		"Bearer ":       "",
		"Token abc":     "",
		"":              "",
		"Basic Ym9iOng": "",
	}
	for header, want := range cases {
		if got := BearerToken(header); got != want {
			t.Fatalf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
