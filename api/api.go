// Package api serves the bug tracker HTTP surface: accounts, bugs and
// their comments, plus health and metrics endpoints.
package api

import (
	"errors"
	"time"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/auth"
	"github.com/bigyanadk07/BugTracker/health"
	"github.com/bigyanadk07/BugTracker/metrics"
	"github.com/bigyanadk07/BugTracker/middleware"
	"github.com/bigyanadk07/BugTracker/store"
)

var (
	errNoBugStore  = errors.New("api: bug store is required")
	errNoUserStore = errors.New("api: user store is required")
	errNoCodec     = errors.New("api: token codec is required")
)

// Options wires the collaborators behind the handlers.
type Options struct {
	Bugs  store.BugStore
	Users store.UserStore
	Codec *auth.TokenCodec

	// Metrics, when set, backs /api/metrics and counts auth decisions.
	Metrics *metrics.Registry
	// Health backs /health and /ready; a registry with no checks is used
	// when nil.
	Health *health.Registry
	// Limiter throttles the credential endpoints; nil disables limiting.
	Limiter middleware.Allower

	// PasswordCost overrides the bcrypt cost; zero uses the default.
	PasswordCost int
	Now          func() time.Time
}

// Server holds the handlers.
type Server struct {
	bugs    store.BugStore
	users   store.UserStore
	codec   *auth.TokenCodec
	metrics *metrics.Registry
	health  *health.Registry
	limiter middleware.Allower
	cost    int
	now     func() time.Time
}

// New validates options and returns a Server.
func New(options Options) (*Server, error) {
	switch {
	case options.Bugs == nil:
		return nil, errNoBugStore
	case options.Users == nil:
		return nil, errNoUserStore
	case options.Codec == nil:
		return nil, errNoCodec
	}

	s := &Server{
		bugs:    options.Bugs,
		users:   options.Users,
		codec:   options.Codec,
		metrics: options.Metrics,
		health:  options.Health,
		limiter: options.Limiter,
		cost:    options.PasswordCost,
		now:     options.Now,
	}
	if s.health == nil {
		s.health = health.New()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Authenticator resolves bearer tokens against the user store.
func (s *Server) Authenticator() bugtracker.Authenticator {
	return auth.PrincipalResolver{Codec: s.codec, Users: s.users, Now: s.now}
}

func (s *Server) hashPassword(password string) (string, error) {
	if s.cost > 0 {
		return auth.HashPasswordCost(password, s.cost)
	}
	return auth.HashPassword(password)
}

func (s *Server) issue(principal bugtracker.Principal) (string, error) {
	return s.codec.Issue(principal, s.now())
}

func principal(ctx *bugtracker.Context) *bugtracker.Principal {
	p, _ := bugtracker.PrincipalFromContext(ctx)
	return p
}
