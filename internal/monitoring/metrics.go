package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scanOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hallpass_scan_outcomes_total",
			Help: "Scan results by action and rejection reason",
		},
		[]string{"action", "reason"},
	)

	displayClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hallpass_display_clients",
			Help: "Connected display websockets per tenant",
		},
		[]string{"tenant_id"},
	)

	applyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hallpass_apply_duration_seconds",
			Help:    "Time spent inside the tenant lock per scan",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	sweepChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hallpass_sweep_changes_total",
			Help: "Sessions auto-ended and students auto-banned by the sweep",
		},
		[]string{"kind"},
	)
)

func TrackScan(action, reason string) {
	scanOutcomes.WithLabelValues(action, reason).Inc()
}

func SetDisplayClients(tenantID int64, n int) {
	displayClients.WithLabelValues(strconv.FormatInt(tenantID, 10)).Set(float64(n))
}

func ObserveApply(d time.Duration) {
	applyDuration.Observe(d.Seconds())
}

func TrackSweep(ended, banned int) {
	if ended > 0 {
		sweepChanges.WithLabelValues("auto_end").Add(float64(ended))
	}
	if banned > 0 {
		sweepChanges.WithLabelValues("auto_ban").Add(float64(banned))
	}
}
