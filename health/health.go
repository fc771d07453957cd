// Package health runs liveness and readiness checks and reports them as JSON.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Check statuses.
const (
	StatusOK   = "ok"
	StatusFail = "fail"
)

// CheckFunc runs a health or readiness check.
type CheckFunc func(context.Context) error

// Pinger is any backend that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck adapts a Pinger to a CheckFunc.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// CheckResult reports a single check.
type CheckResult struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"durationMs"`
}

// Report is the body served by the health endpoints.
type Report struct {
	Status     string        `json:"status"`
	Checks     []CheckResult `json:"checks"`
	DurationMS int64         `json:"durationMs"`
	CheckedAt  time.Time     `json:"checkedAt"`
}

// Option configures a Registry.
type Option func(*Registry)

// WithTimeout bounds each check.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Registry) {
		r.timeout = timeout
	}
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// Registry stores liveness and readiness checks.
type Registry struct {
	mu      sync.RWMutex
	live    map[string]CheckFunc
	ready   map[string]CheckFunc
	timeout time.Duration
	now     func() time.Time
}

// New creates a Registry.
func New(options ...Option) *Registry {
	registry := &Registry{
		live:  make(map[string]CheckFunc),
		ready: make(map[string]CheckFunc),
		now:   time.Now,
	}
	for _, opt := range options {
		opt(registry)
	}
	return registry
}

// Add registers a liveness check.
func (r *Registry) Add(name string, check CheckFunc) {
	r.mu.Lock()
	r.live[name] = check
	r.mu.Unlock()
}

// AddReady registers a readiness check.
func (r *Registry) AddReady(name string, check CheckFunc) {
	r.mu.Lock()
	r.ready[name] = check
	r.mu.Unlock()
}

// Live runs the liveness checks.
func (r *Registry) Live(ctx context.Context) (Report, int) {
	return r.run(ctx, r.snapshot(r.live))
}

// Ready runs the readiness checks.
func (r *Registry) Ready(ctx context.Context) (Report, int) {
	return r.run(ctx, r.snapshot(r.ready))
}

// Handler serves liveness reports.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		report, status := r.Live(req.Context())
		Write(w, report, status)
	})
}

// ReadyHandler serves readiness reports.
func (r *Registry) ReadyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		report, status := r.Ready(req.Context())
		Write(w, report, status)
	})
}

func (r *Registry) run(ctx context.Context, checks map[string]CheckFunc) (Report, int) {
	start := r.now()

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make([]CheckResult, 0, len(names))
	for _, name := range names {
		result := r.runCheck(ctx, checks[name])
		result.Name = name
		results = append(results, result)
		if result.Status != StatusOK {
			status = http.StatusServiceUnavailable
		}
	}

	label := StatusOK
	if status != http.StatusOK {
		label = StatusFail
	}
	return Report{
		Status:     label,
		Checks:     results,
		DurationMS: r.now().Sub(start).Milliseconds(),
		CheckedAt:  r.now().UTC(),
	}, status
}

func (r *Registry) runCheck(ctx context.Context, check CheckFunc) CheckResult {
	if check == nil {
		return CheckResult{Status: StatusOK}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := r.now()
	err := check(ctx)
	result := CheckResult{Status: StatusOK, DurationMS: r.now().Sub(start).Milliseconds()}
	if err != nil {
		result.Status = StatusFail
		result.Error = err.Error()
	}
	return result
}

func (r *Registry) snapshot(source map[string]CheckFunc) map[string]CheckFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]CheckFunc, len(source))
	for key, value := range source {
		out[key] = value
	}
	return out
}

// Write encodes report with status.
func Write(w http.ResponseWriter, report Report, status int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(report)
}
