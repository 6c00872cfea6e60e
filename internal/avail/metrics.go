package avail

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes are exposed for Prometheus scraping via the web server's
// /metrics endpoint.
var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookcal_caldav_fetch_total",
		Help: "Total busy-interval fetches against the CalDAV server, by outcome.",
	}, []string{"outcome"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bookcal_caldav_fetch_duration_seconds",
		Help:    "Duration of busy-interval fetches, including the access check.",
		Buckets: prometheus.DefBuckets,
	})
)

const (
	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomeFailOpen = "fail_open"
)
