package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/apperr"
)

type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (c *captureHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (c *captureHandler) Handle(_ context.Context, record slog.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, record)
	return nil
}

func (c *captureHandler) WithAttrs([]slog.Attr) slog.Handler {
	return c
}

func (c *captureHandler) WithGroup(string) slog.Handler {
	return c
}

func (c *captureHandler) find(message string) (slog.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, record := range c.records {
		if record.Message == message {
			return record, true
		}
	}
	return slog.Record{}, false
}

func attrValue(record slog.Record, key string) (slog.Value, bool) {
	var found slog.Value
	ok := false
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			found = attr.Value
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

func newLoggedApp(handler *captureHandler) *bugtracker.App {
	return bugtracker.New(
		bugtracker.WithLogger(slog.New(handler)),
		bugtracker.WithErrorHandler(func(*bugtracker.Context, error) {}),
	)
}

func TestLoggerErrorLevelForServerErrors(t *testing.T) {
	handler := &captureHandler{}
	app := newLoggedApp(handler)
	app.Use(Logger())
	app.GET("/boom", func(ctx *bugtracker.Context) error {
		return apperr.Internal("boom", nil)
	})

	app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	record, ok := handler.find("request completed")
	if !ok {
		t.Fatalf("expected access log entry")
	}
	if record.Level != slog.LevelError {
		t.Fatalf("expected error level, got %v", record.Level)
	}
	if status, _ := attrValue(record, "status"); status.Int64() != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %v", status)
	}
	if route, _ := attrValue(record, "route"); route.String() != "GET /boom" {
		t.Fatalf("expected route attribute, got %v", route)
	}
}

func TestLoggerSkipsHealthChecks(t *testing.T) {
	handler := &captureHandler{}
	app := newLoggedApp(handler)
	app.Use(Logger())
	app.GET("/health", func(ctx *bugtracker.Context) error {
		return ctx.Text(http.StatusOK, "ok")
	})

	app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	if _, ok := handler.find("request completed"); ok {
		t.Fatalf("expected no logs for skipped path")
	}
}

func TestLoggerLogsFailuresEvenWhenNotSampled(t *testing.T) {
	handler := &captureHandler{}
	app := newLoggedApp(handler)
	app.Use(LoggerWithOptions(LoggerOptions{Sampler: func(*bugtracker.Context) bool { return false }}))
	app.GET("/ok", func(ctx *bugtracker.Context) error {
		return ctx.Text(http.StatusOK, "ok")
	})
	app.GET("/denied", func(ctx *bugtracker.Context) error {
		return apperr.Forbidden("no", nil)
	})

	app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	if _, ok := handler.find("request completed"); ok {
		t.Fatalf("expected unsampled success to be dropped")
	}

	app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/denied", nil))
	record, ok := handler.find("request completed")
	if !ok || record.Level != slog.LevelInfo {
		t.Fatalf("expected failed request to be logged at info, got %v %v", ok, record.Level)
	}
}
