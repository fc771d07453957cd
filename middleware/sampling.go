package middleware

import (
	"math/rand"
	"sync"
	"time"

	"github.com/bigyanadk07/BugTracker"
)

// Sampler decides whether a successful request is logged.
type Sampler func(*bugtracker.Context) bool

// SampleRate returns a sampler keeping roughly rate of requests.
func SampleRate(rate float64) Sampler {
	if rate >= 1 {
		return func(*bugtracker.Context) bool { return true }
	}
	if rate <= 0 {
		return func(*bugtracker.Context) bool { return false }
	}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	var mu sync.Mutex
	return func(*bugtracker.Context) bool {
		mu.Lock()
		value := rnd.Float64()
		mu.Unlock()
		return value < rate
	}
}
