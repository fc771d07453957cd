// Package memstore is an in-process store.Store. It evaluates query plans
// itself and applies the same field and operator rules as the SQL store.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/model"
	"github.com/bigyanadk07/BugTracker/query"
	"github.com/bigyanadk07/BugTracker/store"
)

// Store keeps records in maps guarded by one RWMutex.
type Store struct {
	mu     sync.RWMutex
	bugs   map[string]model.Bug
	order  []string
	users  map[string]model.User
	emails map[string]string
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

// Option customizes the store.
type Option func(*Store)

// WithClock sets the time source for created and updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store.
func New(options ...Option) *Store {
	s := &Store{
		bugs:   make(map[string]model.Bug),
		users:  make(map[string]model.User),
		emails: make(map[string]string),
		now:    time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// Ping implements store.Store.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	return nil
}

// FindMany implements store.BugStore.
func (s *Store) FindMany(ctx context.Context, plan query.Plan) ([]model.Bug, error) {
	match, err := compile(plan.Filter)
	if err != nil {
		return nil, err
	}
	less, err := ordering(plan.Sort)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	var out []model.Bug
	for _, id := range s.order {
		bug := s.bugs[id]
		if match(bug) {
			out = append(out, cloneBug(bug))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })

	if plan.Skip < 0 || plan.Skip >= len(out) {
		return []model.Bug{}, nil
	}
	out = out[plan.Skip:]
	if plan.Limit > 0 && len(out) > plan.Limit {
		out = out[:plan.Limit]
	}
	return out, nil
}

// Count implements store.BugStore.
func (s *Store) Count(ctx context.Context, filter query.Filter) (int, error) {
	match, err := compile(filter)
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, bug := range s.bugs {
		if match(bug) {
			total++
		}
	}
	return total, nil
}

// FindByID implements store.BugStore.
func (s *Store) FindByID(ctx context.Context, id string) (*model.Bug, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bug, ok := s.bugs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneBug(bug)
	return &out, nil
}

// Insert implements store.BugStore.
func (s *Store) Insert(ctx context.Context, bug model.Bug) (*model.Bug, error) {
	now := s.timestamp()
	bug.ID = uuid.NewString()
	bug.CreatedAt = now
	bug.UpdatedAt = now
	bug.Comments = []model.Comment{}

	s.mu.Lock()
	s.bugs[bug.ID] = bug
	s.order = append(s.order, bug.ID)
	s.mu.Unlock()

	out := cloneBug(bug)
	return &out, nil
}

// UpdateByID implements store.BugStore.
func (s *Store) UpdateByID(ctx context.Context, id string, patch model.BugPatch) (*model.Bug, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bug, ok := s.bugs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	bug = patch.Apply(bug)
	bug.UpdatedAt = s.timestamp()
	s.bugs[id] = bug

	out := cloneBug(bug)
	return &out, nil
}

// DeleteByID implements store.BugStore.
func (s *Store) DeleteByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bugs[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.bugs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// AddComment implements store.BugStore.
func (s *Store) AddComment(ctx context.Context, bugID string, comment model.Comment) (*model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bug, ok := s.bugs[bugID]
	if !ok {
		return nil, store.ErrNotFound
	}

	now := s.timestamp()
	comment.ID = uuid.NewString()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	bug.Comments = append(append([]model.Comment{}, bug.Comments...), comment)
	s.bugs[bugID] = bug
	return &comment, nil
}

// DeleteComment implements store.BugStore.
func (s *Store) DeleteComment(ctx context.Context, bugID, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bug, ok := s.bugs[bugID]
	if !ok {
		return store.ErrNotFound
	}
	kept := make([]model.Comment, 0, len(bug.Comments))
	found := false
	for _, comment := range bug.Comments {
		if comment.ID == commentID {
			found = true
			continue
		}
		kept = append(kept, comment)
	}
	if !found {
		return store.ErrNotFound
	}
	bug.Comments = kept
	s.bugs[bugID] = bug
	return nil
}

// FindPrincipalByID implements store.UserStore.
func (s *Store) FindPrincipalByID(ctx context.Context, id string) (*bugtracker.Principal, error) {
	user, err := s.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	principal := user.Principal()
	return &principal, nil
}

// UserByID implements store.UserStore.
func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

// UserByEmail implements store.UserStore.
func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[normalizeEmail(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	user := s.users[id]
	return &user, nil
}

// CreateUser implements store.UserStore.
func (s *Store) CreateUser(ctx context.Context, user model.User) (*model.User, error) {
	key := normalizeEmail(user.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.emails[key]; taken {
		return nil, store.ErrConflict
	}

	now := s.timestamp()
	user.ID = uuid.NewString()
	user.Email = key
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = user
	s.emails[key] = user.ID
	return &user, nil
}

// UpdateUser implements store.UserStore.
func (s *Store) UpdateUser(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	oldKey := user.Email
	user = patch.Apply(user)
	user.Email = normalizeEmail(user.Email)
	if user.Email != oldKey {
		if _, taken := s.emails[user.Email]; taken {
			return nil, store.ErrConflict
		}
		delete(s.emails, oldKey)
		s.emails[user.Email] = id
	}
	user.UpdatedAt = s.timestamp()
	s.users[id] = user
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneBug(bug model.Bug) model.Bug {
	if bug.AssignedTo != nil {
		assignee := *bug.AssignedTo
		bug.AssignedTo = &assignee
	}
	comments := make([]model.Comment, len(bug.Comments))
	copy(comments, bug.Comments)
	bug.Comments = comments
	return bug
}
