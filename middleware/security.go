package middleware

import "github.com/bigyanadk07/BugTracker"

// SecurityHeadersOptions configures security response headers. Empty
// fields are omitted.
type SecurityHeadersOptions struct {
	ContentTypeNosniff        bool
	FrameOptions              string
	ReferrerPolicy            string
	ContentSecurityPolicy     string
	StrictTransportSecurity   string
	DNSPrefetchControl        string
	CrossOriginOpenerPolicy   string
	CrossOriginResourcePolicy string
}

// DefaultSecurityHeaders returns the header set applied to every API
// response.
func DefaultSecurityHeaders() SecurityHeadersOptions {
	return SecurityHeadersOptions{
		ContentTypeNosniff:        true,
		FrameOptions:              "SAMEORIGIN",
		ReferrerPolicy:            "no-referrer",
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none'",
		StrictTransportSecurity:   "max-age=15552000; includeSubDomains",
		DNSPrefetchControl:        "off",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-origin",
	}
}

// SecurityHeaders sets the configured headers before the handler runs so
// error responses carry them too.
func SecurityHeaders(options SecurityHeadersOptions) bugtracker.Middleware {
	headers := make([][2]string, 0, 8)
	add := func(name, value string) {
		if value != "" {
			headers = append(headers, [2]string{name, value})
		}
	}
	if options.ContentTypeNosniff {
		add("X-Content-Type-Options", "nosniff")
	}
	add("X-Frame-Options", options.FrameOptions)
	add("Referrer-Policy", options.ReferrerPolicy)
	add("Content-Security-Policy", options.ContentSecurityPolicy)
	add("Strict-Transport-Security", options.StrictTransportSecurity)
	add("X-DNS-Prefetch-Control", options.DNSPrefetchControl)
	add("Cross-Origin-Opener-Policy", options.CrossOriginOpenerPolicy)
	add("Cross-Origin-Resource-Policy", options.CrossOriginResourcePolicy)

	return func(next bugtracker.Handler) bugtracker.Handler {
		return func(ctx *bugtracker.Context) error {
			h := ctx.ResponseWriter.Header()
			for _, header := range headers {
				h.Set(header[0], header[1])
			}
			return next(ctx)
		}
	}
}
