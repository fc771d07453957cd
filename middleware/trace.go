package middleware

import (
	"context"

	"github.com/bigyanadk07/BugTracker"
)

// Tracer starts spans for incoming requests.
type Tracer interface {
	Start(*bugtracker.Context) (context.Context, func(status int, err error))
}

// TraceOptions configures tracing middleware.
type TraceOptions struct {
	Tracer    Tracer
	SkipPaths []string
}

// Trace records one span per request.
func Trace(tracer Tracer) bugtracker.Middleware {
	return TraceWithOptions(TraceOptions{Tracer: tracer, SkipPaths: []string{"/health", "/ready"}})
}

// TraceWithOptions records request spans with options.
func TraceWithOptions(options TraceOptions) bugtracker.Middleware {
	return func(next bugtracker.Handler) bugtracker.Handler {
		return func(ctx *bugtracker.Context) error {
			if options.Tracer == nil || shouldSkipPath(ctx.Request.URL.Path, options.SkipPaths) {
				return next(ctx)
			}

			recorder := newResponseRecorder(ctx.ResponseWriter)
			ctx.ResponseWriter = recorder

			traceCtx, finish := options.Tracer.Start(ctx)
			if traceCtx != nil {
				ctx.Request = ctx.Request.WithContext(traceCtx)
			}

			err := next(ctx)
			if finish != nil {
				finish(statusOf(recorder, err), err)
			}
			return err
		}
	}
}
