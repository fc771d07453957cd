package api

import (
	"net/http"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/health"
	"github.com/bigyanadk07/BugTracker/metrics"
	"github.com/bigyanadk07/BugTracker/render"
)

// MessageWelcome is served at the root path.
const MessageWelcome = "Welcome to Bug Tracker API"

func (s *Server) welcome(ctx *bugtracker.Context) error {
	return ctx.JSON(http.StatusOK, render.Envelope{Success: true, Message: MessageWelcome})
}

func (s *Server) live(ctx *bugtracker.Context) error {
	report, status := s.health.Live(ctx.Request.Context())
	health.Write(ctx.ResponseWriter, report, status)
	return nil
}

func (s *Server) ready(ctx *bugtracker.Context) error {
	report, status := s.health.Ready(ctx.Request.Context())
	health.Write(ctx.ResponseWriter, report, status)
	return nil
}

// metricsReport serves the registry snapshot as an envelope, or in the
// Prometheus text format with ?format=prometheus.
func (s *Server) metricsReport(ctx *bugtracker.Context) error {
	snap := s.metrics.Snapshot()
	if ctx.Query("format") == "prometheus" {
		ctx.ResponseWriter.Header().Set("Content-Type", metrics.PrometheusContentType)
		ctx.ResponseWriter.WriteHeader(http.StatusOK)
		return metrics.WritePrometheus(ctx.ResponseWriter, snap)
	}
	return ctx.JSON(http.StatusOK, render.OK(snap))
}
