// Package metrics exposes the Hub's Prometheus instrumentation,
// grounded on internal/metrics/metrics.go's package-level promauto
// variable style, generalized from log-shipping counters to sample
// and entry-tree counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SamplesPushedTotal counts samples accepted by the Hub, by kind.
	SamplesPushedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "datahub",
		Name:      "samples_pushed_total",
		Help:      "Total samples pushed into the hub, by sample kind.",
	}, []string{"kind"})

	// SamplePushErrorsTotal counts failed push attempts, by result code.
	SamplePushErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "datahub",
		Name:      "sample_push_errors_total",
		Help:      "Total push attempts that returned an error, by result code.",
	}, []string{"code"})

	// DestinationSendDuration observes how long a destination's Send
	// took, by destination name.
	DestinationSendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "datahub",
		Name:      "destination_send_duration_seconds",
		Help:      "Time spent in a destination's Send call.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"destination"})

	// DestinationQueueDepth reports a destination's current queue
	// occupancy.
	DestinationQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "datahub",
		Name:      "destination_queue_depth",
		Help:      "Current number of records queued for a destination.",
	}, []string{"destination"})

	// EntryCount reports the live entry-tree population, by type.
	EntryCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "datahub",
		Name:      "entry_count",
		Help:      "Current number of live tree entries, by entry type.",
	}, []string{"type"})

	// PoolInUse reports a sample pool's current allocation, by pool
	// class (non_string, string_small, string_medium, string_large).
	PoolInUse = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "datahub",
		Name:      "pool_in_use",
		Help:      "Current number of blocks in use in a sample pool class.",
	}, []string{"class"})

	// PoolDeniedTotal counts pool exhaustion events, by pool class.
	PoolDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "datahub",
		Name:      "pool_denied_total",
		Help:      "Total allocation requests denied because a pool class was exhausted.",
	}, []string{"class"})

	// SnapshotDuration observes how long a full Scan/Commit/Flush cycle
	// took.
	SnapshotDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "datahub",
		Name:      "snapshot_duration_seconds",
		Help:      "Time spent running a full snapshot cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	// SnapshotEntriesTotal counts entries written by the most recent
	// snapshot.
	SnapshotEntriesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "datahub",
		Name:      "snapshot_entries",
		Help:      "Number of entries included in the most recent snapshot.",
	})

	// ObservationArchivedTotal counts points shipped to an archive
	// destination on buffer overflow.
	ObservationArchivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "datahub",
		Name:      "observation_archived_total",
		Help:      "Total observation points archived on buffer overflow, by path.",
	}, []string{"path"})
)

// ObservePoolStats sets PoolInUse for a pool class and adds
// deniedSinceLastPoll to PoolDeniedTotal. Callers polling
// pkg/pool.Stats on an interval must pass the delta since their last
// poll, not the cumulative Denied field, since PoolDeniedTotal is a
// monotonic counter.
func ObservePoolStats(class string, inUse int64, deniedSinceLastPoll int64) {
	PoolInUse.WithLabelValues(class).Set(float64(inUse))
	if deniedSinceLastPoll > 0 {
		PoolDeniedTotal.WithLabelValues(class).Add(float64(deniedSinceLastPoll))
	}
}
