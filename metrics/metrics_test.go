package metrics

import (
	"errors"
	"testing"
	"time"
)

func TestRegistryRecordsRequests(t *testing.T) {
	reg := NewWithBuckets([]time.Duration{50 * time.Millisecond, 10 * time.Millisecond})
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	start := reg.Start()
	if reg.Snapshot().InFlight != 1 {
		t.Fatalf("expected one in-flight request")
	}
	now = now.Add(20 * time.Millisecond)
	reg.End(start, "GET /api/bugs", 200, nil)

	start = reg.Start()
	now = now.Add(time.Second)
	reg.End(start, "", 500, errors.New("boom"))

	snap := reg.Snapshot()
	if snap.Requests != 2 || snap.Errors != 1 || snap.InFlight != 0 {
		t.Fatalf("unexpected counters %+v", snap)
	}
	if snap.Latency.Buckets[0].UpperBound != 10*time.Millisecond {
		t.Fatalf("expected sorted buckets, got %+v", snap.Latency.Buckets)
	}
	if snap.Latency.Buckets[0].Count != 0 || snap.Latency.Buckets[1].Count != 1 {
		t.Fatalf("unexpected bucket counts %+v", snap.Latency.Buckets)
	}
	if snap.Latency.Min != 20*time.Millisecond || snap.Latency.Max != time.Second {
		t.Fatalf("unexpected latency %+v", snap.Latency)
	}
	if snap.Routes["GET /api/bugs"] != 1 || len(snap.Routes) != 1 {
		t.Fatalf("unexpected routes %v", snap.Routes)
	}
	if snap.Statuses[200] != 1 || snap.Statuses[500] != 1 {
		t.Fatalf("unexpected statuses %v", snap.Statuses)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	reg := New()
	reg.AuthDecision(AuthForbidden)

	snap := reg.Snapshot()
	snap.Auth[AuthForbidden] = 99
	if reg.Snapshot().Auth[AuthForbidden] != 1 {
		t.Fatalf("snapshot mutation leaked into registry")
	}
}
