// Package metrics keeps in-process request and authorization counters.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Authorization outcomes recorded by AuthDecision.
const (
	AuthAllowed         = "allowed"
	AuthUnauthenticated = "unauthenticated"
	AuthForbidden       = "forbidden"
	AuthRateLimited     = "rate_limited"
)

// DefaultBuckets are the latency histogram upper bounds.
var DefaultBuckets = []time.Duration{
	5 * time.Millisecond,
	25 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
	2 * time.Second,
}

// Snapshot captures current metrics values.
type Snapshot struct {
	Requests int64            `json:"requests"`
	Errors   int64            `json:"errors"`
	InFlight int64            `json:"inFlight"`
	Latency  LatencySnapshot  `json:"latency"`
	Statuses map[int]int64    `json:"statuses"`
	Routes   map[string]int64 `json:"routes"`
	Auth     map[string]int64 `json:"auth"`
}

// LatencySnapshot captures latency statistics.
type LatencySnapshot struct {
	Count   int64         `json:"count"`
	Total   time.Duration `json:"total"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
	Buckets []Bucket      `json:"buckets"`
}

// Bucket counts requests at or under UpperBound and above the previous bound.
type Bucket struct {
	UpperBound time.Duration `json:"le"`
	Count      int64         `json:"count"`
}

// Registry tracks request metrics.
type Registry struct {
	mu       sync.Mutex
	requests int64
	errors   int64
	inFlight int64
	latency  LatencySnapshot
	statuses map[int]int64
	routes   map[string]int64
	auth     map[string]int64
	now      func() time.Time
}

// New creates a registry with DefaultBuckets.
func New() *Registry {
	return NewWithBuckets(DefaultBuckets)
}

// NewWithBuckets creates a registry with custom latency bounds.
func NewWithBuckets(bounds []time.Duration) *Registry {
	sorted := append([]time.Duration(nil), bounds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	buckets := make([]Bucket, len(sorted))
	for i, bound := range sorted {
		buckets[i] = Bucket{UpperBound: bound}
	}
	return &Registry{
		latency:  LatencySnapshot{Buckets: buckets},
		statuses: make(map[int]int64),
		routes:   make(map[string]int64),
		auth:     make(map[string]int64),
		now:      time.Now,
	}
}

// Start marks the start of a request.
func (r *Registry) Start() time.Time {
	r.mu.Lock()
	r.inFlight++
	r.mu.Unlock()
	return r.now()
}

// End records a completed request. route is the matched pattern, empty for
// unmatched requests.
func (r *Registry) End(start time.Time, route string, status int, err error) {
	duration := r.now().Sub(start)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.inFlight--
	r.requests++
	if err != nil || status >= 500 {
		r.errors++
	}

	r.latency.Count++
	r.latency.Total += duration
	if r.latency.Min == 0 || duration < r.latency.Min {
		r.latency.Min = duration
	}
	if duration > r.latency.Max {
		r.latency.Max = duration
	}
	for i := range r.latency.Buckets {
		if duration <= r.latency.Buckets[i].UpperBound {
			r.latency.Buckets[i].Count++
			break
		}
	}

	if status != 0 {
		r.statuses[status]++
	}
	if route != "" {
		r.routes[route]++
	}
}

// AuthDecision counts one authorization outcome.
func (r *Registry) AuthDecision(outcome string) {
	r.mu.Lock()
	r.auth[outcome]++
	r.mu.Unlock()
}

// Snapshot returns a copy of metrics data.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	latency := r.latency
	latency.Buckets = append([]Bucket(nil), r.latency.Buckets...)

	return Snapshot{
		Requests: r.requests,
		Errors:   r.errors,
		InFlight: r.inFlight,
		Latency:  latency,
		Statuses: copyMap(r.statuses),
		Routes:   copyMap(r.routes),
		Auth:     copyMap(r.auth),
	}
}

func copyMap[K comparable](src map[K]int64) map[K]int64 {
	out := make(map[K]int64, len(src))
	for key, value := range src {
		out[key] = value
	}
	return out
}
