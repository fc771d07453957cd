package middleware

import (
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/bigyanadk07/BugTracker"
)

// LogField builds a structured log attribute.
type LogField func(*bugtracker.Context, *responseRecorder, time.Duration) slog.Attr

// DefaultLogFields returns the standard access log fields.
func DefaultLogFields() []LogField {
	return []LogField{
		LogMethod(),
		LogPath(),
		LogRoute(),
		LogStatus(),
		LogDuration(),
		LogBytes(),
		LogRemoteAddr(),
	}
}

// LogMethod logs the HTTP method.
func LogMethod() LogField {
	return func(ctx *bugtracker.Context, _ *responseRecorder, _ time.Duration) slog.Attr {
		return slog.String("method", ctx.Request.Method)
	}
}

// LogPath logs the request path. The query string is left out since it
// may carry filter values.
func LogPath() LogField {
	return func(ctx *bugtracker.Context, _ *responseRecorder, _ time.Duration) slog.Attr {
		return slog.String("path", ctx.Request.URL.Path)
	}
}

// LogRoute logs the matched route pattern.
func LogRoute() LogField {
	return func(ctx *bugtracker.Context, _ *responseRecorder, _ time.Duration) slog.Attr {
		return slog.String("route", ctx.Route())
	}
}

// LogStatus logs the response status.
func LogStatus() LogField {
	return func(_ *bugtracker.Context, recorder *responseRecorder, _ time.Duration) slog.Attr {
		return slog.Int("status", recorder.Status())
	}
}

// LogDuration logs request latency.
func LogDuration() LogField {
	return func(_ *bugtracker.Context, _ *responseRecorder, duration time.Duration) slog.Attr {
		return slog.Duration("duration", duration)
	}
}

// LogBytes logs response size in bytes.
func LogBytes() LogField {
	return func(_ *bugtracker.Context, recorder *responseRecorder, _ time.Duration) slog.Attr {
		return slog.Int("bytes", recorder.Bytes())
	}
}

// LogRemoteAddr logs the client IP.
func LogRemoteAddr() LogField {
	return func(ctx *bugtracker.Context, _ *responseRecorder, _ time.Duration) slog.Attr {
		host, _, err := net.SplitHostPort(ctx.Request.RemoteAddr)
		if err == nil {
			return slog.String("remote_addr", host)
		}
		return slog.String("remote_addr", ctx.Request.RemoteAddr)
	}
}

// LogUserAgent logs the user agent.
func LogUserAgent() LogField {
	return func(ctx *bugtracker.Context, _ *responseRecorder, _ time.Duration) slog.Attr {
		return slog.String("user_agent", ctx.Request.UserAgent())
	}
}

// LogTraceID logs the id of the active span, if any.
func LogTraceID() LogField {
	return func(ctx *bugtracker.Context, _ *responseRecorder, _ time.Duration) slog.Attr {
		spanCtx := trace.SpanContextFromContext(ctx.Request.Context())
		if !spanCtx.HasTraceID() {
			return slog.String("trace_id", "")
		}
		return slog.String("trace_id", spanCtx.TraceID().String())
	}
}
