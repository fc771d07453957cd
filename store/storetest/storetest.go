// Package storetest holds behaviour tests shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/model"
	"github.com/bigyanadk07/BugTracker/query"
	"github.com/bigyanadk07/BugTracker/store"
)

// Factory returns a fresh, empty store whose clock is driven by clock.
type Factory func(t *testing.T, clock *Clock) store.Store

// Clock is a manual time source. Every call to Now advances it by Step,
// one second by default, so insertion order is visible in timestamps.
type Clock struct {
	T    time.Time
	Step time.Duration
}

// NewClock starts a clock at a fixed instant.
func NewClock() *Clock {
	return &Clock{T: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), Step: time.Second}
}

// Now returns the current instant and advances the clock.
func (c *Clock) Now() time.Time {
	now := c.T
	c.T = c.T.Add(c.Step)
	return now
}

// Run exercises the full store contract.
func Run(t *testing.T, factory Factory) {
	t.Run("bug lifecycle", func(t *testing.T) { testBugLifecycle(t, factory) })
	t.Run("find many", func(t *testing.T) { testFindMany(t, factory) })
	t.Run("tie break", func(t *testing.T) { testTieBreak(t, factory) })
	t.Run("invalid plans", func(t *testing.T) { testInvalidPlans(t, factory) })
	t.Run("comments", func(t *testing.T) { testComments(t, factory) })
	t.Run("users", func(t *testing.T) { testUsers(t, factory) })
}

func seed(t *testing.T, s store.Store, bugs ...model.Bug) []model.Bug {
	t.Helper()
	out := make([]model.Bug, 0, len(bugs))
	for _, bug := range bugs {
		created, err := s.Insert(context.Background(), bug)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		out = append(out, *created)
	}
	return out
}

func testBugLifecycle(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := factory(t, NewClock())

	created := seed(t, s, model.Bug{Title: "Crash", Description: "on save", Priority: model.PriorityHigh, Status: model.StatusOpen, CreatedBy: "u1"})[0]
	if created.ID == "" || created.CreatedAt.IsZero() || !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("expected id and timestamps, got %+v", created)
	}

	found, err := s.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.Title != "Crash" || found.CreatedBy != "u1" || found.AssignedTo != nil || len(found.Comments) != 0 {
		t.Fatalf("unexpected bug %+v", found)
	}
	if !found.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("timestamp round trip: %v vs %v", found.CreatedAt, created.CreatedAt)
	}

	status := model.StatusClosed
	assignee := "u2"
	updated, err := s.UpdateByID(ctx, created.ID, model.BugPatch{Status: &status, AssignedTo: &assignee})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != model.StatusClosed || updated.Title != "Crash" || updated.AssignedTo == nil || *updated.AssignedTo != "u2" {
		t.Fatalf("unexpected update %+v", updated)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("expected updatedAt to advance")
	}

	updated, err = s.UpdateByID(ctx, created.ID, model.BugPatch{ClearAssignee: true})
	if err != nil || updated.AssignedTo != nil {
		t.Fatalf("expected assignee cleared, got %+v, %v", updated, err)
	}

	if err := s.DeleteByID(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.FindByID(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := s.DeleteByID(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := s.UpdateByID(ctx, created.ID, model.BugPatch{Status: &status}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}
}

func testFindMany(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := factory(t, NewClock())
	bugs := seed(t, s,
		model.Bug{Title: "A", Priority: model.PriorityLow, Status: model.StatusOpen, CreatedBy: "u1"},
		model.Bug{Title: "B", Priority: model.PriorityHigh, Status: model.StatusClosed, CreatedBy: "u1"},
		model.Bug{Title: "C", Priority: model.PriorityMedium, Status: model.StatusInProgress, CreatedBy: "u2"},
		model.Bug{Title: "D", Priority: model.PriorityHigh, Status: model.StatusOpen, CreatedBy: "u2"},
	)
	if _, err := s.AddComment(ctx, bugs[3].ID, model.Comment{Text: "seen", CreatedBy: "u1"}); err != nil {
		t.Fatalf("comment: %v", err)
	}

	cases := []struct {
		name  string
		query string
		want  []string
		total int
	}{
		{"default newest first", "", []string{"D", "C", "B", "A"}, 4},
		{"equality", "status=Open", []string{"D", "A"}, 2},
		{"any of", "status=Open&status=Closed&sort=title", []string{"A", "B", "D"}, 3},
		{"in", "priority[in]=Low,Medium&sort=title", []string{"A", "C"}, 2},
		{"time range", "createdAt[gte]=" + bugs[1].CreatedAt.Format(time.RFC3339Nano) + "&createdAt[lt]=" + bugs[3].CreatedAt.Format(time.RFC3339Nano) + "&sort=title", []string{"B", "C"}, 2},
		{"multi key sort", "sort=-priority,title", []string{"C", "A", "B", "D"}, 4},
		{"page two", "sort=title&limit=3&page=2", []string{"D"}, 4},
		{"page past end", "page=9", []string{}, 4},
		{"page far past end", "page=100000000000000000&limit=100", []string{}, 4},
		{"owner", "createdBy=u2&sort=createdAt", []string{"C", "D"}, 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			values, err := url.ParseQuery(tc.query)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			plan := query.Translate(values)
			got, err := s.FindMany(ctx, plan)
			if err != nil {
				t.Fatalf("find many: %v", err)
			}
			titles := make([]string, 0, len(got))
			for _, bug := range got {
				titles = append(titles, bug.Title)
			}
			if len(titles) != len(tc.want) {
				t.Fatalf("titles = %v, want %v", titles, tc.want)
			}
			for i := range titles {
				if titles[i] != tc.want[i] {
					t.Fatalf("titles = %v, want %v", titles, tc.want)
				}
			}
			total, err := s.Count(ctx, plan.Filter)
			if err != nil || total != tc.total {
				t.Fatalf("count = %d, %v; want %d", total, err, tc.total)
			}
		})
	}

	got, err := s.FindMany(ctx, query.Translate(url.Values{"title": {"D"}}))
	if err != nil || len(got) != 1 || len(got[0].Comments) != 1 || got[0].Comments[0].Text != "seen" {
		t.Fatalf("expected comments loaded with page, got %+v, %v", got, err)
	}
}

// Bugs sharing every sort key and their creation instant page by id.
func testTieBreak(t *testing.T, factory Factory) {
	ctx := context.Background()
	clock := NewClock()
	clock.Step = 0
	s := factory(t, clock)
	bugs := seed(t, s,
		model.Bug{Title: "A", Priority: model.PriorityHigh, Status: model.StatusOpen, CreatedBy: "u1"},
		model.Bug{Title: "B", Priority: model.PriorityHigh, Status: model.StatusOpen, CreatedBy: "u1"},
		model.Bug{Title: "C", Priority: model.PriorityHigh, Status: model.StatusOpen, CreatedBy: "u1"},
		model.Bug{Title: "D", Priority: model.PriorityHigh, Status: model.StatusOpen, CreatedBy: "u1"},
	)
	want := make([]string, 0, len(bugs))
	for _, bug := range bugs {
		want = append(want, bug.ID)
	}
	sort.Strings(want)

	for _, raw := range []string{"sort=priority", "sort=-createdAt"} {
		values, _ := url.ParseQuery(raw)
		var got []string
		for page := 1; page <= 2; page++ {
			values.Set("limit", "2")
			values.Set("page", strconv.Itoa(page))
			found, err := s.FindMany(ctx, query.Translate(values))
			if err != nil {
				t.Fatalf("%q page %d: %v", raw, page, err)
			}
			for _, bug := range found {
				got = append(got, bug.ID)
			}
		}
		if !slices.Equal(got, want) {
			t.Fatalf("%q: ids = %v, want %v", raw, got, want)
		}
	}
}

func testInvalidPlans(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := factory(t, NewClock())
	seed(t, s, model.Bug{Title: "A", Priority: model.PriorityLow, Status: model.StatusOpen, CreatedBy: "u1"})

	for _, raw := range []string{"in=5", "status[ne]=Open", "createdAt[gt]=soon", "sort=nope", "password=x"} {
		values, _ := url.ParseQuery(raw)
		plan := query.Translate(values)
		if _, err := s.FindMany(ctx, plan); !errors.Is(err, store.ErrInvalidQuery) {
			t.Fatalf("%q: expected invalid query from FindMany, got %v", raw, err)
		}
	}

	values, _ := url.ParseQuery("in=5")
	if _, err := s.Count(ctx, query.Translate(values).Filter); !errors.Is(err, store.ErrInvalidQuery) {
		t.Fatalf("expected invalid query from Count, got %v", err)
	}
}

func testComments(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := factory(t, NewClock())
	bug := seed(t, s, model.Bug{Title: "A", Priority: model.PriorityLow, Status: model.StatusOpen, CreatedBy: "u1"})[0]

	first, err := s.AddComment(ctx, bug.ID, model.Comment{Text: "first", CreatedBy: "u2"})
	if err != nil || first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("add comment: %+v, %v", first, err)
	}
	second, err := s.AddComment(ctx, bug.ID, model.Comment{Text: "second", CreatedBy: "u3"})
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}

	found, err := s.FindByID(ctx, bug.ID)
	if err != nil || len(found.Comments) != 2 || found.Comments[0].Text != "first" {
		t.Fatalf("expected two ordered comments, got %+v, %v", found, err)
	}

	if err := s.DeleteComment(ctx, bug.ID, first.ID); err != nil {
		t.Fatalf("delete comment: %v", err)
	}
	if err := s.DeleteComment(ctx, bug.ID, first.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	found, _ = s.FindByID(ctx, bug.ID)
	if len(found.Comments) != 1 || found.Comments[0].ID != second.ID {
		t.Fatalf("unexpected comments %+v", found.Comments)
	}

	if _, err := s.AddComment(ctx, "00000000-0000-0000-0000-000000000000", model.Comment{Text: "x", CreatedBy: "u1"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for missing bug, got %v", err)
	}
	if err := s.DeleteByID(ctx, bug.ID); err != nil {
		t.Fatalf("delete bug with comments: %v", err)
	}
}

func testUsers(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := factory(t, NewClock())

	user, err := s.CreateUser(ctx, model.User{Name: "Ada", Email: "Ada@Example.com", PasswordHash: "hash", Role: bugtracker.RoleTester})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.ID == "" || user.Email != "ada@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}
	if _, err := s.CreateUser(ctx, model.User{Name: "Other", Email: "ada@example.com", PasswordHash: "h", Role: bugtracker.RoleUser}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	byEmail, err := s.UserByEmail(ctx, "ADA@example.com")
	if err != nil || byEmail.ID != user.ID || byEmail.PasswordHash != "hash" {
		t.Fatalf("lookup by email: %+v, %v", byEmail, err)
	}

	principal, err := s.FindPrincipalByID(ctx, user.ID)
	if err != nil || principal.ID != user.ID || principal.Role != bugtracker.RoleTester {
		t.Fatalf("principal: %+v, %v", principal, err)
	}
	if _, err := s.FindPrincipalByID(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	name := "Ada L."
	email := "ada.l@example.com"
	updated, err := s.UpdateUser(ctx, user.ID, model.UserPatch{Name: &name, Email: &email})
	if err != nil || updated.Name != name || updated.Email != email {
		t.Fatalf("update: %+v, %v", updated, err)
	}
	if _, err := s.UserByEmail(ctx, "ada@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected old email released, got %v", err)
	}

	other, err := s.CreateUser(ctx, model.User{Name: "Bob", Email: "bob@example.com", PasswordHash: "h", Role: bugtracker.RoleUser})
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}
	if _, err := s.UpdateUser(ctx, other.ID, model.UserPatch{Email: &email}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict on taken email, got %v", err)
	}

	promoted := bugtracker.RoleAdmin
	if _, err := s.UpdateUser(ctx, other.ID, model.UserPatch{Role: &promoted}); err != nil {
		t.Fatalf("promote: %v", err)
	}
	principal, err = s.FindPrincipalByID(ctx, other.ID)
	if err != nil || principal.Role != bugtracker.RoleAdmin {
		t.Fatalf("expected live role Admin, got %+v, %v", principal, err)
	}
}
