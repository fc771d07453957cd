package metrics

import (
	"bufio"
	"fmt"
	"io"
	"sort"
)

// PrometheusContentType is the text exposition format media type.
const PrometheusContentType = "text/plain; version=0.0.4; charset=utf-8"

// WritePrometheus renders snap in the Prometheus text format.
func WritePrometheus(w io.Writer, snap Snapshot) error {
	out := bufio.NewWriter(w)

	counter(out, "bugtracker_requests_total", "Total HTTP requests", snap.Requests)
	counter(out, "bugtracker_errors_total", "HTTP requests that failed with a server error", snap.Errors)

	fmt.Fprintf(out, "# HELP bugtracker_in_flight In-flight HTTP requests\n")
	fmt.Fprintf(out, "# TYPE bugtracker_in_flight gauge\n")
	fmt.Fprintf(out, "bugtracker_in_flight %d\n", snap.InFlight)

	fmt.Fprintf(out, "# HELP bugtracker_latency_seconds Request latency\n")
	fmt.Fprintf(out, "# TYPE bugtracker_latency_seconds histogram\n")
	cumulative := int64(0)
	for _, bucket := range snap.Latency.Buckets {
		cumulative += bucket.Count
		fmt.Fprintf(out, "bugtracker_latency_seconds_bucket{le=\"%g\"} %d\n", bucket.UpperBound.Seconds(), cumulative)
	}
	fmt.Fprintf(out, "bugtracker_latency_seconds_bucket{le=\"+Inf\"} %d\n", snap.Latency.Count)
	fmt.Fprintf(out, "bugtracker_latency_seconds_sum %g\n", snap.Latency.Total.Seconds())
	fmt.Fprintf(out, "bugtracker_latency_seconds_count %d\n", snap.Latency.Count)

	if len(snap.Statuses) > 0 {
		fmt.Fprintf(out, "# HELP bugtracker_responses_total HTTP responses by status\n")
		fmt.Fprintf(out, "# TYPE bugtracker_responses_total counter\n")
		codes := make([]int, 0, len(snap.Statuses))
		for code := range snap.Statuses {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			fmt.Fprintf(out, "bugtracker_responses_total{code=\"%d\"} %d\n", code, snap.Statuses[code])
		}
	}

	labelled(out, "bugtracker_route_requests_total", "HTTP requests by route", "route", snap.Routes)
	labelled(out, "bugtracker_auth_decisions_total", "Authorization decisions by outcome", "outcome", snap.Auth)

	return out.Flush()
}

func counter(w io.Writer, name, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n", name, value)
}

func labelled(w io.Writer, name, help, label string, values map[string]int64) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(w, "%s{%s=%q} %d\n", name, label, key, values[key])
	}
}
