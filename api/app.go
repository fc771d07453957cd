package api

import (
	"log/slog"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/config"
	"github.com/bigyanadk07/BugTracker/middleware"
)

// NewApp builds the HTTP app with the global middleware stack and every
// route of s mounted. tracer may be nil.
func NewApp(cfg config.Config, logger *slog.Logger, s *Server, tracer middleware.Tracer) *bugtracker.App {
	app := bugtracker.New(
		bugtracker.WithConfig(cfg),
		bugtracker.WithLogger(logger),
	)

	app.Use(middleware.RequestID())
	if tracer != nil {
		app.Use(middleware.Trace(tracer))
	}
	access := middleware.DefaultLoggerOptions()
	access.SampleRate = cfg.LogSampleRate
	app.Use(middleware.LoggerWithOptions(access))
	if s.metrics != nil {
		app.Use(middleware.MetricsWithOptions(middleware.MetricsOptions{
			Registry:  s.metrics,
			SkipPaths: []string{"/health", "/ready"},
		}))
	}
	app.Use(
		middleware.Recover(),
		middleware.SecurityHeaders(middleware.DefaultSecurityHeaders()),
		middleware.CORS(middleware.CORSOptions{AllowedOrigins: cfg.CORSOrigins}),
	)

	s.Mount(app)
	return app
}
