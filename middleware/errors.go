package middleware

import "errors"

var (
	errNoAuthenticator = errors.New("authenticator not configured")
	errNoLimiter       = errors.New("rate limiter not configured")
)
