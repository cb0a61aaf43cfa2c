// Package observability holds cross-cutting watermark gauges.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	lastTickGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "productivy",
		Subsystem: "scheduler",
		Name:      "last_tick_timestamp_seconds",
		Help:      "Unix timestamp of the most recent completed heartbeat tick.",
	})
	lastWorkingMinuteGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "productivy",
		Subsystem: "tracking",
		Name:      "last_working_minute_timestamp_seconds",
		Help:      "Unix timestamp of the most recent productive minute recorded.",
	})
	lastTimelineCachedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "productivy",
		Subsystem: "summaries",
		Name:      "last_timeline_cached_day_seconds",
		Help:      "Unix timestamp (midnight) of the most recent day whose timeline was cached.",
	})
)

func init() {
	prometheus.MustRegister(lastTickGauge, lastWorkingMinuteGauge, lastTimelineCachedGauge)
}

// RecordTick updates the scheduler watermark gauge.
func RecordTick(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastTickGauge.Set(float64(ts.Unix()))
}

// RecordWorkingMinute updates the productive-minute watermark gauge.
func RecordWorkingMinute(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastWorkingMinuteGauge.Set(float64(ts.Unix()))
}

// RecordTimelineCached updates the summary-cache watermark gauge.
func RecordTimelineCached(day time.Time) {
	if day.IsZero() {
		return
	}
	lastTimelineCachedGauge.Set(float64(day.Unix()))
}
