package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/apperr"
	"github.com/bigyanadk07/BugTracker/store"
)

// Client-facing messages for each resolution failure.
const (
	MessageNoToken      = "Not authorized, no token"
	MessageTokenFailed  = "Not authorized, token failed"
	MessageUserNotFound = "Not authorized, user not found"
)

// PrincipalLookup loads the live identity for a token subject.
type PrincipalLookup interface {
	FindPrincipalByID(ctx context.Context, id string) (*bugtracker.Principal, error)
}

// PrincipalResolver turns a bearer token into the live principal.
// It implements bugtracker.Authenticator.
type PrincipalResolver struct {
	Codec *TokenCodec
	Users PrincipalLookup
	Now   func() time.Time
}

// Authenticate reads the Authorization header, verifies the token and
// reloads the principal so the role reflects the identity store.
func (r PrincipalResolver) Authenticate(ctx *bugtracker.Context) (*bugtracker.Principal, error) {
	token := BearerToken(ctx.Request.Header.Get("Authorization"))
	if token == "" {
		return nil, apperr.Unauthenticated(MessageNoToken, nil)
	}

	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	claims, err := r.Codec.Verify(token, now)
	if err != nil {
		return nil, apperr.Unauthenticated(MessageTokenFailed, err)
	}

	principal, err := r.Users.FindPrincipalByID(ctx.Request.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Unauthenticated(MessageUserNotFound, err)
		}
		return nil, apperr.Unexpected("Server Error", err)
	}
	if principal == nil {
		return nil, apperr.Unauthenticated(MessageUserNotFound, nil)
	}
	return principal, nil
}

// BearerToken extracts the token from an Authorization header value. Any
// scheme other than Bearer yields "".
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
