package api

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/auth"
	"github.com/bigyanadk07/BugTracker/config"
	"github.com/bigyanadk07/BugTracker/metrics"
	"github.com/bigyanadk07/BugTracker/model"
	"github.com/bigyanadk07/BugTracker/store"
	"github.com/bigyanadk07/BugTracker/store/memstore"
	"github.com/bigyanadk07/BugTracker/testutil"
)

// spyBugs counts writes that reach the store.
type spyBugs struct {
	store.BugStore
	mu      sync.Mutex
	updates int
}

func (s *spyBugs) UpdateByID(ctx context.Context, id string, patch model.BugPatch) (*model.Bug, error) {
	s.mu.Lock()
	s.updates++
	s.mu.Unlock()
	return s.BugStore.UpdateByID(ctx, id, patch)
}

type fixture struct {
	app     *bugtracker.App
	codec   *auth.TokenCodec
	store   *memstore.Store
	bugs    *spyBugs
	metrics *metrics.Registry
	tokens  map[bugtracker.Role]string
	users   map[bugtracker.Role]*model.User
}

type tick struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tick) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newFixture(t *testing.T, options ...func(*Options)) *fixture {
	t.Helper()

	clock := &tick{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	mem := memstore.New(memstore.WithClock(clock.Now))
	codec, err := auth.NewTokenCodec([]byte("test-secret-0123456789"), time.Hour)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}

	f := &fixture{
		codec:   codec,
		store:   mem,
		bugs:    &spyBugs{BugStore: mem},
		metrics: metrics.New(),
		tokens:  map[bugtracker.Role]string{},
		users:   map[bugtracker.Role]*model.User{},
	}

	opts := Options{
		Bugs:         f.bugs,
		Users:        mem,
		Codec:        codec,
		Metrics:      f.metrics,
		PasswordCost: bcrypt.MinCost,
		Now:          time.Now,
	}
	for _, apply := range options {
		apply(&opts)
	}
	server, err := New(opts)
	if err != nil {
		t.Fatalf("server: %v", err)
	}

	cfg := config.Default()
	cfg.Env = config.EnvTest
	f.app = NewApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), server, nil)

	for _, role := range []bugtracker.Role{bugtracker.RoleUser, bugtracker.RoleTester, bugtracker.RoleAdmin} {
		hash, err := auth.HashPasswordCost("secret123", bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		user, err := mem.CreateUser(context.Background(), model.User{
			Name:         string(role),
			Email:        strings.ToLower(string(role)) + "@example.com",
			PasswordHash: hash,
			Role:         role,
		})
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		token, err := codec.Issue(user.Principal(), time.Now())
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		f.users[role] = user
		f.tokens[role] = token
	}
	return f
}

// addUser stores a user and returns a token for it.
func (f *fixture) addUser(t *testing.T, email string, role bugtracker.Role) string {
	t.Helper()
	user, err := f.store.CreateUser(context.Background(), model.User{Name: email, Email: email, Role: role})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := f.codec.Issue(user.Principal(), time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return token
}

func (f *fixture) do(t *testing.T, method, path string, body any, role bugtracker.Role) *httptest.ResponseRecorder {
	t.Helper()
	token := ""
	if role != "" {
		token = f.tokens[role]
	}
	return testutil.Do(t, f.app, testutil.JSONRequest(t, method, path, body, token))
}

func (f *fixture) createBug(t *testing.T, role bugtracker.Role, body map[string]any) map[string]any {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/bugs", body, role)
	testutil.MustStatus(t, rec, http.StatusCreated)
	return testutil.Envelope(t, rec)["data"].(map[string]any)
}

func TestListWithoutToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/bugs", nil, "")
	testutil.MustMessage(t, rec, http.StatusUnauthorized, auth.MessageNoToken)
}

func TestBadTokenRejected(t *testing.T) {
	f := newFixture(t)
	rec := testutil.Do(t, f.app, testutil.JSONRequest(t, http.MethodGet, "/api/bugs", nil, "not-a-token"))
	testutil.MustMessage(t, rec, http.StatusUnauthorized, auth.MessageTokenFailed)
}

func TestTesterCannotDelete(t *testing.T) {
	f := newFixture(t)
	bug := f.createBug(t, bugtracker.RoleTester, map[string]any{"title": "Crash on save"})

	rec := f.do(t, http.MethodDelete, "/api/bugs/"+bug["id"].(string), nil, bugtracker.RoleTester)
	testutil.MustMessage(t, rec, http.StatusForbidden, "Role Tester is not authorized to access this resource")

	if _, err := f.store.FindByID(context.Background(), bug["id"].(string)); err != nil {
		t.Fatalf("expected bug to survive: %v", err)
	}
}

func TestOwnerClosesOwnBug(t *testing.T) {
	f := newFixture(t)
	bug := f.createBug(t, bugtracker.RoleUser, map[string]any{"title": "Login loop", "priority": "High"})

	rec := f.do(t, http.MethodPut, "/api/bugs/"+bug["id"].(string), map[string]any{"status": "Closed"}, bugtracker.RoleUser)
	testutil.MustStatus(t, rec, http.StatusOK)

	data := testutil.Envelope(t, rec)["data"].(map[string]any)
	if data["status"] != "Closed" {
		t.Fatalf("expected Closed, got %v", data["status"])
	}
	if data["title"] != "Login loop" || data["priority"] != "High" {
		t.Fatalf("expected untouched fields preserved: %v", data)
	}
}

func TestNonOwnerUpdateForbidden(t *testing.T) {
	f := newFixture(t)
	bug := f.createBug(t, bugtracker.RoleUser, map[string]any{"title": "Typo"})

	rec := f.do(t, http.MethodPut, "/api/bugs/"+bug["id"].(string), map[string]any{"status": "Closed"}, bugtracker.RoleTester)
	testutil.MustMessage(t, rec, http.StatusForbidden, auth.MessageCannotUpdateBug)

	if f.bugs.updates != 0 {
		t.Fatalf("expected no store update, got %d", f.bugs.updates)
	}
}

func TestAdminUpdatesAndDeletes(t *testing.T) {
	f := newFixture(t)
	bug := f.createBug(t, bugtracker.RoleUser, map[string]any{"title": "Slow search"})
	path := "/api/bugs/" + bug["id"].(string)

	assignee := f.users[bugtracker.RoleTester].ID
	rec := f.do(t, http.MethodPut, path, map[string]any{"assignedTo": assignee}, bugtracker.RoleAdmin)
	testutil.MustStatus(t, rec, http.StatusOK)
	if got := testutil.Envelope(t, rec)["data"].(map[string]any)["assignedTo"]; got != assignee {
		t.Fatalf("expected assignee %s, got %v", assignee, got)
	}

	rec = f.do(t, http.MethodPut, path, map[string]any{"assignedTo": nil}, bugtracker.RoleAdmin)
	testutil.MustStatus(t, rec, http.StatusOK)
	if got := testutil.Envelope(t, rec)["data"].(map[string]any)["assignedTo"]; got != nil {
		t.Fatalf("expected cleared assignee, got %v", got)
	}

	rec = f.do(t, http.MethodDelete, path, nil, bugtracker.RoleAdmin)
	testutil.MustStatus(t, rec, http.StatusOK)
	body := testutil.Envelope(t, rec)
	if body["message"] != messageBugRemoved {
		t.Fatalf("unexpected body %v", body)
	}
	if data, ok := body["data"].(map[string]any); !ok || len(data) != 0 {
		t.Fatalf("expected empty data object, got %v", body["data"])
	}

	rec = f.do(t, http.MethodGet, path, nil, bugtracker.RoleAdmin)
	testutil.MustMessage(t, rec, http.StatusNotFound, messageBugNotFound)
}

func TestBugIdentifiers(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name    string
		path    string
		message string
	}{
		{"malformed", "/api/bugs/12345", messageBugBadID},
		{"unknown", "/api/bugs/7b0f6a2e-3c1d-4a52-9a55-5f3a2a0c9e11", messageBugNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tc.path, nil, bugtracker.RoleUser)
			testutil.MustMessage(t, rec, http.StatusNotFound, tc.message)
		})
	}
}

func TestCreateBugValidation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name    string
		body    map[string]any
		message string
		field   string
	}{
		{"missing title", map[string]any{"description": "x"}, "Bug title is required", "title"},
		{"long title", map[string]any{"title": strings.Repeat("a", 101)}, "Bug title cannot be more than 100 characters", "title"},
		{"bad priority", map[string]any{"title": "t", "priority": "Urgent"}, "Priority must be one of: Low, Medium, High", "priority"},
		{"bad assignee", map[string]any{"title": "t", "assignedTo": "bob"}, "Assignee must be a valid id", "assignedTo"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/bugs", tc.body, bugtracker.RoleUser)
			testutil.MustMessage(t, rec, http.StatusBadRequest, tc.message)
			errs := testutil.Envelope(t, rec)["errors"].([]any)
			if errs[0].(map[string]any)["field"] != tc.field {
				t.Fatalf("expected field %s, got %v", tc.field, errs)
			}
		})
	}

	rec := f.do(t, http.MethodPost, "/api/bugs", map[string]any{"title": "t", "createdBy": "someone"}, bugtracker.RoleUser)
	testutil.MustStatus(t, rec, http.StatusBadRequest)
}

func TestCreateBugDefaults(t *testing.T) {
	f := newFixture(t)
	bug := f.createBug(t, bugtracker.RoleUser, map[string]any{"title": "  Padded  "})

	if bug["title"] != "Padded" || bug["priority"] != "Medium" || bug["status"] != "Open" {
		t.Fatalf("unexpected defaults: %v", bug)
	}
	if bug["createdBy"] != f.users[bugtracker.RoleUser].ID {
		t.Fatalf("expected owner to be caller, got %v", bug["createdBy"])
	}
}

func TestListPaginatesAndFilters(t *testing.T) {
	f := newFixture(t)
	f.createBug(t, bugtracker.RoleUser, map[string]any{"title": "a", "priority": "High"})
	f.createBug(t, bugtracker.RoleUser, map[string]any{"title": "b", "priority": "Low"})
	f.createBug(t, bugtracker.RoleUser, map[string]any{"title": "c", "priority": "High"})

	rec := f.do(t, http.MethodGet, "/api/bugs?priority=High&limit=1&fields=title", nil, bugtracker.RoleUser)
	testutil.MustStatus(t, rec, http.StatusOK)
	body := testutil.Envelope(t, rec)

	if body["count"].(float64) != 1 || body["total"].(float64) != 2 {
		t.Fatalf("unexpected counters: %v", body)
	}
	pagination := body["pagination"].(map[string]any)
	if pagination["page"].(float64) != 1 || pagination["limit"].(float64) != 1 || pagination["totalPages"].(float64) != 2 {
		t.Fatalf("unexpected pagination: %v", pagination)
	}
	first := body["data"].([]any)[0].(map[string]any)
	if len(first) != 2 || first["title"] != "c" || first["id"] == nil {
		t.Fatalf("expected newest projected bug, got %v", first)
	}

	rec = f.do(t, http.MethodGet, "/api/bugs?title[in]=a,b&sort=title", nil, bugtracker.RoleUser)
	testutil.MustStatus(t, rec, http.StatusOK)
	data := testutil.Envelope(t, rec)["data"].([]any)
	if len(data) != 2 || data[0].(map[string]any)["title"] != "a" {
		t.Fatalf("unexpected in filter result: %v", data)
	}
}

func TestListRejectsUnknownFields(t *testing.T) {
	f := newFixture(t)
	cases := []string{
		"/api/bugs?severity=High",
		"/api/bugs?in=5",
		"/api/bugs?createdAt[gt]=yesterday",
	}
	for _, path := range cases {
		rec := f.do(t, http.MethodGet, path, nil, bugtracker.RoleUser)
		testutil.MustMessage(t, rec, http.StatusInternalServerError, messageListFailed)
	}
}

func TestComments(t *testing.T) {
	f := newFixture(t)
	bug := f.createBug(t, bugtracker.RoleUser, map[string]any{"title": "Broken link"})
	base := "/api/bugs/" + bug["id"].(string) + "/comments"

	rec := f.do(t, http.MethodPost, base, map[string]any{"text": "Seen on staging"}, bugtracker.RoleTester)
	testutil.MustStatus(t, rec, http.StatusCreated)
	comment := testutil.Envelope(t, rec)["data"].(map[string]any)

	rec = f.do(t, http.MethodPost, base, map[string]any{"text": ""}, bugtracker.RoleTester)
	testutil.MustMessage(t, rec, http.StatusBadRequest, "Comment text is required")

	rec = f.do(t, http.MethodGet, base, nil, bugtracker.RoleAdmin)
	testutil.MustStatus(t, rec, http.StatusOK)
	if testutil.Envelope(t, rec)["count"].(float64) != 1 {
		t.Fatalf("expected one comment")
	}

	outsider := f.addUser(t, "outsider@example.com", bugtracker.RoleTester)
	commentPath := base + "/" + comment["id"].(string)

	rec = testutil.Do(t, f.app, testutil.JSONRequest(t, http.MethodDelete, commentPath, nil, outsider))
	testutil.MustMessage(t, rec, http.StatusForbidden, auth.MessageCannotDeleteComment)

	rec = f.do(t, http.MethodDelete, base+"/7b0f6a2e-3c1d-4a52-9a55-5f3a2a0c9e11", nil, bugtracker.RoleUser)
	testutil.MustMessage(t, rec, http.StatusNotFound, messageCommentNotFound)

	rec = f.do(t, http.MethodDelete, base+"/nope", nil, bugtracker.RoleUser)
	testutil.MustMessage(t, rec, http.StatusNotFound, messageCommentBadID)

	// The bug owner may remove comments written by others.
	rec = f.do(t, http.MethodDelete, commentPath, nil, bugtracker.RoleUser)
	testutil.MustStatus(t, rec, http.StatusOK)
	if testutil.Envelope(t, rec)["message"] != messageCommentRemoved {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, base, nil, bugtracker.RoleUser)
	if testutil.Envelope(t, rec)["count"].(float64) != 0 {
		t.Fatalf("expected comment removed")
	}
}

func TestCommentOnMissingBug(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/bugs/7b0f6a2e-3c1d-4a52-9a55-5f3a2a0c9e11/comments", map[string]any{"text": "hi"}, bugtracker.RoleUser)
	testutil.MustMessage(t, rec, http.StatusNotFound, messageBugNotFound)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/nothing", nil, "")
	testutil.MustMessage(t, rec, http.StatusNotFound, "Route Not Found - /api/nothing")

	rec = f.do(t, http.MethodPatch, "/api/bugs", nil, bugtracker.RoleUser)
	testutil.MustStatus(t, rec, http.StatusMethodNotAllowed)
}

func TestWelcomeAndHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/", nil, "")
	testutil.MustStatus(t, rec, http.StatusOK)
	if testutil.Envelope(t, rec)["message"] != MessageWelcome {
		t.Fatalf("unexpected welcome %s", rec.Body.String())
	}

	for _, path := range []string{"/health", "/ready"} {
		rec = f.do(t, http.MethodGet, path, nil, "")
		testutil.MustStatus(t, rec, http.StatusOK)
		if testutil.Envelope(t, rec)["status"] != "ok" {
			t.Fatalf("unexpected report %s", rec.Body.String())
		}
	}
}

func TestSecurityHeadersOnEveryResponse(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/bugs", nil, "")
	testutil.MustHeader(t, rec, "X-Content-Type-Options", "nosniff")
	if rec.Header().Get(bugtracker.RequestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/api/bugs", nil, "")

	rec := f.do(t, http.MethodGet, "/api/metrics", nil, bugtracker.RoleUser)
	testutil.MustStatus(t, rec, http.StatusForbidden)

	rec = f.do(t, http.MethodGet, "/api/metrics", nil, bugtracker.RoleAdmin)
	testutil.MustStatus(t, rec, http.StatusOK)
	data := testutil.Envelope(t, rec)["data"].(map[string]any)
	if data["requests"].(float64) < 2 {
		t.Fatalf("expected requests counted, got %v", data["requests"])
	}

	rec = f.do(t, http.MethodGet, "/api/metrics?format=prometheus", nil, bugtracker.RoleAdmin)
	testutil.MustHeader(t, rec, "Content-Type", metrics.PrometheusContentType)
	if !strings.Contains(rec.Body.String(), `bugtracker_auth_decisions_total{outcome="unauthenticated"} 1`) {
		t.Fatalf("expected auth decision counter:\n%s", rec.Body.String())
	}
}

func TestDocsDescribeRoutes(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/docs", nil, "")
	testutil.MustStatus(t, rec, http.StatusOK)

	var doc struct {
		Paths map[string]map[string]any `json:"paths"`
	}
	testutil.DecodeJSON(t, rec, &doc)
	for _, path := range []string{"/api/bugs", "/api/bugs/{id}", "/api/bugs/{id}/comments/{commentId}", "/api/metrics"} {
		if _, ok := doc.Paths[path]; !ok {
			t.Fatalf("expected %s documented", path)
		}
	}
	if _, ok := doc.Paths["/api/bugs/{id}"]["delete"]; !ok {
		t.Fatalf("expected delete operation on bug")
	}
}

func TestSectionGatesOnlyNarrow(t *testing.T) {
	s := &Server{metrics: metrics.New()}
	for _, sec := range s.sections() {
		for _, r := range sec.routes {
			ok := r.gate == sec.gate || sec.gate == public || (sec.gate == authenticated && r.gate == adminOnly)
			if !ok {
				t.Fatalf("%s %s%s: gate %d widens section gate %d", r.method, sec.prefix, r.path, r.gate, sec.gate)
			}
		}
	}
}

func TestBugGroupRequiresToken(t *testing.T) {
	f := newFixture(t)
	bug := f.createBug(t, bugtracker.RoleUser, map[string]any{"title": "Crash"})["id"].(string)
	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/bugs/" + bug},
		{http.MethodGet, "/api/bugs/" + bug + "/comments"},
		{http.MethodPost, "/api/bugs/" + bug + "/comments"},
		{http.MethodDelete, "/api/bugs/" + bug + "/comments/" + bug},
	} {
		rec := f.do(t, tc.method, tc.path, nil, "")
		testutil.MustMessage(t, rec, http.StatusUnauthorized, auth.MessageNoToken)
	}
}

func TestAccessLogSampling(t *testing.T) {
	mem := memstore.New()
	codec, err := auth.NewTokenCodec([]byte("test-secret-0123456789"), time.Hour)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	server, err := New(Options{Bugs: mem, Users: mem, Codec: codec})
	if err != nil {
		t.Fatalf("server: %v", err)
	}

	var logs bytes.Buffer
	cfg := config.Default()
	cfg.Env = config.EnvTest
	cfg.LogSampleRate = 1e-12
	app := NewApp(cfg, slog.New(slog.NewTextHandler(&logs, nil)), server, nil)

	testutil.MustStatus(t, testutil.Do(t, app, httptest.NewRequest(http.MethodGet, "/", nil)), http.StatusOK)
	if strings.Contains(logs.String(), "request completed") {
		t.Fatalf("expected successful request sampled out: %s", logs.String())
	}

	testutil.MustStatus(t, testutil.Do(t, app, httptest.NewRequest(http.MethodGet, "/api/bugs", nil)), http.StatusUnauthorized)
	if !strings.Contains(logs.String(), "request completed") {
		t.Fatalf("expected failed request logged regardless of sampling")
	}
}

func TestBugResponsesNameUsers(t *testing.T) {
	f := newFixture(t)
	tester := f.users[bugtracker.RoleTester]
	bug := f.createBug(t, bugtracker.RoleUser, map[string]any{"title": "Crash", "assignedTo": tester.ID})
	path := "/api/bugs/" + bug["id"].(string)
	testutil.MustStatus(t, f.do(t, http.MethodPost, path+"/comments", map[string]any{"text": "seen it"}, bugtracker.RoleTester), http.StatusCreated)

	name := func(v any) any {
		p, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		return p["name"]
	}

	rec := f.do(t, http.MethodGet, path, nil, bugtracker.RoleAdmin)
	testutil.MustStatus(t, rec, http.StatusOK)
	data := testutil.Envelope(t, rec)["data"].(map[string]any)
	if data["createdBy"] != f.users[bugtracker.RoleUser].ID {
		t.Fatalf("expected raw owner id kept, got %v", data["createdBy"])
	}
	if name(data["creator"]) != "User" || name(data["assignee"]) != "Tester" {
		t.Fatalf("unexpected names %v %v", data["creator"], data["assignee"])
	}
	comments := data["comments"].([]any)
	if len(comments) != 1 || name(comments[0].(map[string]any)["author"]) != "Tester" {
		t.Fatalf("unexpected comments %v", comments)
	}

	rec = f.do(t, http.MethodGet, "/api/bugs?fields=creator", nil, bugtracker.RoleAdmin)
	testutil.MustStatus(t, rec, http.StatusOK)
	docs := testutil.Envelope(t, rec)["data"].([]any)
	if len(docs) != 1 || name(docs[0].(map[string]any)["creator"]) != "User" {
		t.Fatalf("expected projected creator, got %v", docs)
	}

	rec = f.do(t, http.MethodGet, path+"/comments", nil, bugtracker.RoleUser)
	testutil.MustStatus(t, rec, http.StatusOK)
	listed := testutil.Envelope(t, rec)["data"].([]any)
	if len(listed) != 1 || name(listed[0].(map[string]any)["author"]) != "Tester" {
		t.Fatalf("unexpected listed comments %v", listed)
	}
}
