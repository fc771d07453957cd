package bugtracker

import "log/slog"

// Logger wraps slog.Logger with the request id and acting principal.
type Logger struct {
	logger    *slog.Logger
	requestID string
	actorID   string
}

// Info logs an info message.
func (l Logger) Info(msg string, attrs ...slog.Attr) {
	l.logger.Info(msg, l.withRequest(attrs)...)
}

// Warn logs a warning message.
func (l Logger) Warn(msg string, attrs ...slog.Attr) {
	l.logger.Warn(msg, l.withRequest(attrs)...)
}

// Error logs an error message.
func (l Logger) Error(msg string, attrs ...slog.Attr) {
	l.logger.Error(msg, l.withRequest(attrs)...)
}

// Debug logs a debug message.
func (l Logger) Debug(msg string, attrs ...slog.Attr) {
	l.logger.Debug(msg, l.withRequest(attrs)...)
}

func (l Logger) withRequest(attrs []slog.Attr) []any {
	out := make([]any, 0, len(attrs)+2)
	for _, attr := range attrs {
		out = append(out, attr)
	}
	if l.requestID != "" {
		out = append(out, slog.String("request_id", l.requestID))
	}
	if l.actorID != "" {
		out = append(out, slog.String("actor_id", l.actorID))
	}
	return out
}
