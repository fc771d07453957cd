package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bigyanadk07/BugTracker"
)

// CORSOptions configures CORS behavior.
type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// CORS enables cross-origin requests and answers preflights with 204.
func CORS(options CORSOptions) bugtracker.Middleware {
	opts := normalizeCORS(options)
	return func(next bugtracker.Handler) bugtracker.Handler {
		return func(ctx *bugtracker.Context) error {
			header := ctx.ResponseWriter.Header()
			origin := ctx.Request.Header.Get("Origin")
			if origin != "" {
				if allowedOrigin, ok := matchOrigin(opts.AllowedOrigins, origin, opts.AllowCredentials); ok {
					header.Set("Access-Control-Allow-Origin", allowedOrigin)
					header.Add("Vary", "Origin")
					if opts.AllowCredentials {
						header.Set("Access-Control-Allow-Credentials", "true")
					}
					if len(opts.ExposedHeaders) > 0 {
						header.Set("Access-Control-Expose-Headers", strings.Join(opts.ExposedHeaders, ", "))
					}
				}
			}

			if ctx.Request.Method == http.MethodOptions && ctx.Request.Header.Get("Access-Control-Request-Method") != "" {
				header.Set("Access-Control-Allow-Methods", strings.Join(opts.AllowedMethods, ", "))
				header.Set("Access-Control-Allow-Headers", strings.Join(opts.AllowedHeaders, ", "))
				if opts.MaxAge > 0 {
					header.Set("Access-Control-Max-Age", strconv.Itoa(int(opts.MaxAge.Seconds())))
				}
				ctx.ResponseWriter.WriteHeader(http.StatusNoContent)
				return nil
			}

			return next(ctx)
		}
	}
}

func normalizeCORS(options CORSOptions) CORSOptions {
	if len(options.AllowedOrigins) == 0 {
		options.AllowedOrigins = []string{"*"}
	}
	if len(options.AllowedMethods) == 0 {
		options.AllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	}
	if len(options.AllowedHeaders) == 0 {
		options.AllowedHeaders = []string{"Content-Type", "Authorization", bugtracker.RequestIDHeader}
	}
	if len(options.ExposedHeaders) == 0 {
		options.ExposedHeaders = []string{bugtracker.RequestIDHeader}
	}
	return options
}

func matchOrigin(allowed []string, origin string, allowCredentials bool) (string, bool) {
	for _, entry := range allowed {
		if entry == "*" {
			if allowCredentials {
				return origin, true
			}
			return "*", true
		}
		if strings.EqualFold(entry, origin) {
			return origin, true
		}
	}
	return "", false
}
