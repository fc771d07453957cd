package middleware

import (
	"net/http"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/apperr"
	"github.com/bigyanadk07/BugTracker/auth"
	"github.com/bigyanadk07/BugTracker/metrics"
)

type authConfig struct {
	registry *metrics.Registry
}

// AuthOption customizes auth middleware behavior.
type AuthOption func(*authConfig)

// AuthMetrics counts every decision in registry.
func AuthMetrics(registry *metrics.Registry) AuthOption {
	return func(cfg *authConfig) {
		cfg.registry = registry
	}
}

// RequireAuth resolves the principal and stores it on the context. Errors
// from the authenticator reach the error handler unchanged.
func RequireAuth(authenticator bugtracker.Authenticator, options ...AuthOption) bugtracker.Middleware {
	return RequireAuthorization(authenticator, nil, options...)
}

// RequireAuthorization resolves the principal and then asks authorizer.
func RequireAuthorization(authenticator bugtracker.Authenticator, authorizer bugtracker.Authorizer, options ...AuthOption) bugtracker.Middleware {
	cfg := authConfig{}
	for _, opt := range options {
		opt(&cfg)
	}

	return func(next bugtracker.Handler) bugtracker.Handler {
		return func(ctx *bugtracker.Context) error {
			if authenticator == nil {
				return apperr.Internal("Server Error", errNoAuthenticator)
			}

			principal, err := authenticator.Authenticate(ctx)
			if err == nil && principal == nil {
				err = apperr.Unauthenticated(auth.MessageUserNotFound, nil)
			}
			if err != nil {
				cfg.record(err)
				return err
			}
			bugtracker.SetPrincipal(ctx, principal)

			if authorizer != nil {
				if err := authorizer.Authorize(ctx, principal); err != nil {
					cfg.record(err)
					return err
				}
			}

			cfg.record(nil)
			return next(ctx)
		}
	}
}

// RequireRoles admits an already authenticated principal holding one of
// roles. Mount it after RequireAuth.
func RequireRoles(roles ...bugtracker.Role) bugtracker.Middleware {
	gate := auth.RoleGate{Allowed: roles}
	return func(next bugtracker.Handler) bugtracker.Handler {
		return func(ctx *bugtracker.Context) error {
			principal, _ := bugtracker.PrincipalFromContext(ctx)
			if err := gate.Authorize(ctx, principal); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

func (c authConfig) record(err error) {
	if c.registry == nil {
		return
	}
	if err == nil {
		c.registry.AuthDecision(metrics.AuthAllowed)
		return
	}
	appErr := apperr.As(err)
	switch {
	case appErr == nil:
		return
	case appErr.Status == http.StatusUnauthorized:
		c.registry.AuthDecision(metrics.AuthUnauthenticated)
	case appErr.Status == http.StatusForbidden:
		c.registry.AuthDecision(metrics.AuthForbidden)
	}
}
