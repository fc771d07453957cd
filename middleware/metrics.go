package middleware

import (
	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/metrics"
)

// MetricsOptions configures request metrics.
type MetricsOptions struct {
	Registry  *metrics.Registry
	SkipPaths []string
}

// Metrics records request metrics into the registry.
func Metrics(registry *metrics.Registry) bugtracker.Middleware {
	return MetricsWithOptions(MetricsOptions{Registry: registry})
}

// MetricsWithOptions records request metrics with options.
func MetricsWithOptions(options MetricsOptions) bugtracker.Middleware {
	return func(next bugtracker.Handler) bugtracker.Handler {
		return func(ctx *bugtracker.Context) error {
			if options.Registry == nil || shouldSkipPath(ctx.Request.URL.Path, options.SkipPaths) {
				return next(ctx)
			}

			start := options.Registry.Start()
			recorder := newResponseRecorder(ctx.ResponseWriter)
			ctx.ResponseWriter = recorder

			err := next(ctx)

			options.Registry.End(start, ctx.Route(), statusOf(recorder, err), err)
			return err
		}
	}
}
