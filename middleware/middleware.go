// Package middleware holds the request pipeline stages shared by every
// route: request ids, panic recovery, access logs, authentication gates,
// CORS, security headers, rate limiting, tracing and metrics.
package middleware

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/apperr"
)

// RequestID makes sure every request carries an id and echoes it back.
func RequestID() bugtracker.Middleware {
	return func(next bugtracker.Handler) bugtracker.Handler {
		return func(ctx *bugtracker.Context) error {
			requestID := ctx.RequestID()
			if requestID == "" {
				requestID = bugtracker.NewRequestID()
				ctx.Request.Header.Set(bugtracker.RequestIDHeader, requestID)
			}
			ctx.ResponseWriter.Header().Set(bugtracker.RequestIDHeader, requestID)
			return next(ctx)
		}
	}
}

// Recover converts panics into a generic server error.
func Recover() bugtracker.Middleware {
	return func(next bugtracker.Handler) bugtracker.Handler {
		return func(ctx *bugtracker.Context) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					ctx.Logger().Error("panic recovered",
						slog.Any("panic", rec),
						slog.String("stack", string(debug.Stack())),
					)
					err = apperr.Unexpected("Server Error", fmt.Errorf("panic: %v", rec))
				}
			}()
			return next(ctx)
		}
	}
}

// Logger logs request/response details.
func Logger() bugtracker.Middleware {
	return LoggerWithOptions(DefaultLoggerOptions())
}

// LoggerOptions configures access logging.
type LoggerOptions struct {
	Fields     []LogField
	Message    string
	SkipPaths  []string
	ErrorLevel bool
	Sampler    Sampler
	SampleRate float64
}

// DefaultLoggerOptions returns default logging options.
func DefaultLoggerOptions() LoggerOptions {
	return LoggerOptions{
		Fields:     DefaultLogFields(),
		Message:    "request completed",
		SkipPaths:  []string{"/health", "/ready"},
		ErrorLevel: true,
		SampleRate: 1,
	}
}

// LoggerWithOptions logs requests using the provided options. Failed
// requests are always logged regardless of sampling.
func LoggerWithOptions(options LoggerOptions) bugtracker.Middleware {
	options = normalizeLoggerOptions(options)

	return func(next bugtracker.Handler) bugtracker.Handler {
		return func(ctx *bugtracker.Context) error {
			if shouldSkipPath(ctx.Request.URL.Path, options.SkipPaths) {
				return next(ctx)
			}

			start := time.Now()
			recorder := newResponseRecorder(ctx.ResponseWriter)
			ctx.ResponseWriter = recorder

			err := next(ctx)

			status := statusOf(recorder, err)
			if recorder.status == 0 {
				recorder.status = status
			}

			duration := time.Since(start)
			attrs := make([]slog.Attr, 0, len(options.Fields))
			for _, field := range options.Fields {
				attrs = append(attrs, field(ctx, recorder, duration))
			}

			failed := err != nil || status >= http.StatusInternalServerError
			if !failed && !options.Sampler(ctx) {
				return err
			}
			if failed && options.ErrorLevel && status >= http.StatusInternalServerError {
				ctx.Logger().Error(options.Message, attrs...)
				return err
			}
			ctx.Logger().Info(options.Message, attrs...)
			return err
		}
	}
}

func normalizeLoggerOptions(options LoggerOptions) LoggerOptions {
	if len(options.Fields) == 0 {
		options.Fields = DefaultLogFields()
	}
	if options.Message == "" {
		options.Message = "request completed"
	}
	if options.Sampler == nil {
		if options.SampleRate == 0 {
			options.SampleRate = 1
		}
		options.Sampler = SampleRate(options.SampleRate)
	}
	return options
}

// statusOf is the status the client will see once the error handler has
// run.
func statusOf(recorder *responseRecorder, err error) int {
	if err == nil {
		return recorder.Status()
	}
	if appErr := apperr.As(err); appErr != nil {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// responseRecorder captures status and response size.
type responseRecorder struct {
	writer http.ResponseWriter
	status int
	bytes  int
}

func newResponseRecorder(w http.ResponseWriter) *responseRecorder {
	if existing, ok := w.(*responseRecorder); ok {
		return existing
	}
	return &responseRecorder{writer: w}
}

func (r *responseRecorder) Header() http.Header {
	return r.writer.Header()
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.writer.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.writer.Write(p)
	r.bytes += n
	return n, err
}

func (r *responseRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *responseRecorder) Bytes() int {
	return r.bytes
}

func (r *responseRecorder) Flush() {
	if flusher, ok := r.writer.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.writer.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hijacker.Hijack()
}

func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.writer
}
