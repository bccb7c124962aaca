// Package metrics defines Prometheus metrics for the consign gateway.
//
// All metrics are registered with the default Prometheus registry and served
// by the Metrics router.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SourceMemory        = "memory"
	SourcePersisted     = "persisted"
	SourceAuthoritative = "authoritative"
	SourceFallback      = "fallback"
)

var (
	// AdminResolutionsTotal counts admin status decisions by the tier that produced them.
	AdminResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consign_admin_resolutions_total",
			Help: "Total admin status resolutions by source.",
		},
		[]string{"source"},
	)

	// AdminLookupsTotal counts authoritative lookups by outcome.
	AdminLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consign_admin_lookups_total",
			Help: "Total authoritative admin lookups by outcome.",
		},
		[]string{"outcome"},
	)

	AdminLookupDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "consign_admin_lookup_duration_seconds",
			Help:    "Duration of settled authoritative admin lookups in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 1.5},
		},
	)

	AuthEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consign_auth_events_total",
			Help: "Total auth state change events handled.",
		},
		[]string{"event"},
	)

	// StorageErrorsTotal counts swallowed persisted-tier failures by operation.
	StorageErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consign_storage_errors_total",
			Help: "Total persisted admin cache failures.",
		},
		[]string{"operation"},
	)

	ActiveAuthorizers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "consign_active_authorizers",
			Help: "Number of browser sessions with a live authorizer.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		AdminResolutionsTotal,
		AdminLookupsTotal,
		AdminLookupDurationSeconds,
		AuthEventsTotal,
		StorageErrorsTotal,
		ActiveAuthorizers,
	)
}

func RecordResolution(source string) {
	AdminResolutionsTotal.WithLabelValues(source).Inc()
}

func RecordLookup(outcome string, duration time.Duration) {
	AdminLookupsTotal.WithLabelValues(outcome).Inc()
	AdminLookupDurationSeconds.Observe(duration.Seconds())
}

func RecordAuthEvent(event string) {
	AuthEventsTotal.WithLabelValues(event).Inc()
}

func RecordStorageError(operation string) {
	StorageErrorsTotal.WithLabelValues(operation).Inc()
}
