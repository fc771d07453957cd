// Package store defines the persistence contract behind the HTTP API.
package store

import (
	"context"
	"errors"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/model"
	"github.com/bigyanadk07/BugTracker/query"
)

var (
	// ErrNotFound indicates an absent record.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation, such as a reused email.
	ErrConflict = errors.New("conflict")
	// ErrInvalidQuery indicates a plan naming an unknown field or operator,
	// or carrying a value the field cannot be compared with.
	ErrInvalidQuery = errors.New("invalid query")
)

// BugStore persists bugs and their comments.
type BugStore interface {
	// FindMany returns one page of bugs matching plan, comments included.
	FindMany(ctx context.Context, plan query.Plan) ([]model.Bug, error)
	// Count returns how many bugs match filter.
	Count(ctx context.Context, filter query.Filter) (int, error)
	FindByID(ctx context.Context, id string) (*model.Bug, error)
	// Insert assigns id and timestamps and stores bug.
	Insert(ctx context.Context, bug model.Bug) (*model.Bug, error)
	UpdateByID(ctx context.Context, id string, patch model.BugPatch) (*model.Bug, error)
	DeleteByID(ctx context.Context, id string) error
	// AddComment assigns id and timestamps and appends comment to the bug.
	AddComment(ctx context.Context, bugID string, comment model.Comment) (*model.Comment, error)
	DeleteComment(ctx context.Context, bugID, commentID string) error
}

// UserStore persists identity records.
type UserStore interface {
	FindPrincipalByID(ctx context.Context, id string) (*bugtracker.Principal, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
	// UserByEmail matches case-insensitively.
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	// CreateUser returns ErrConflict when the email is taken.
	CreateUser(ctx context.Context, user model.User) (*model.User, error)
	UpdateUser(ctx context.Context, id string, patch model.UserPatch) (*model.User, error)
}

// Store is a complete backend.
type Store interface {
	BugStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}
