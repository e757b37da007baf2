package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ranking modes used as the mode label
const (
	ModeSimilarity = "similarity"
	ModeColors     = "colors"
)

var (
	// Throughput
	RankRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shoefinder_rank_requests_total",
		Help: "Total number of ranking requests, by mode",
	}, []string{"mode"})

	CandidatesScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shoefinder_candidates_scanned_total",
		Help: "Catalog items scored successfully, by mode",
	}, []string{"mode"})

	// CandidateProblems counts per-candidate errors by kind
	// (dimension mismatch, degenerate histogram, invalid color set)
	CandidateProblems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shoefinder_candidate_problems_total",
		Help: "Per-candidate ranking problems, by kind",
	}, []string{"kind"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shoefinder_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})

	// Latency
	RankDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shoefinder_rank_duration_seconds",
		Help:    "Time taken to rank the catalog, by mode",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	// State
	CatalogItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shoefinder_catalog_items",
		Help: "Current number of items in the catalog",
	})
)

// ObserveRank records one finished ranking call
func ObserveRank(mode string, start time.Time, scanned int, problemKinds []string) {
	RankRequests.WithLabelValues(mode).Inc()
	RankDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	CandidatesScanned.WithLabelValues(mode).Add(float64(scanned))
	for _, kind := range problemKinds {
		CandidateProblems.WithLabelValues(kind).Inc()
	}
}
