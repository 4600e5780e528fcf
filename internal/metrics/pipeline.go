// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Business metrics
	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cuanbot_cycles_total",
		Help: "Content production cycles by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	cycleFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cuanbot_cycle_failures_total",
		Help: "Production cycle failures by stage",
	}, []string{"stage"}) // stage=trends|caption|tts|video|engagement|analytics|notify

	cycleDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cuanbot_cycle_duration_seconds",
		Help:    "End-to-end duration of a content production cycle",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
	})

	stageDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cuanbot_stage_duration_seconds",
		Help:    "Duration of individual pipeline stages",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	trendsCollected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cuanbot_trends_collected",
		Help: "Number of trend topics collected in the last fetch",
	})

	trendsFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cuanbot_trends_fallback_total",
		Help: "Times the hardcoded fallback topics were used",
	})

	videosOnDisk = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cuanbot_videos_on_disk",
		Help: "Number of finished videos currently stored",
	})

	videosBytesOnDisk = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cuanbot_videos_bytes_on_disk",
		Help: "Total size of stored videos in bytes",
	})

	quotaEvictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cuanbot_quota_evictions_total",
		Help: "Files removed by storage quota enforcement",
	}, []string{"kind"}) // kind=video|log

	engagementViews = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cuanbot_last_engagement_views",
		Help: "View count scraped for the most recent video",
	})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cuanbot_notifications_total",
		Help: "Telegram notifications by outcome",
	}, []string{"outcome"}) // outcome=sent|failed

	schedulesArmed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cuanbot_schedules_armed",
		Help: "Number of upload slots currently scheduled",
	})
)

func IncCycle(outcome string)        { cyclesTotal.WithLabelValues(outcome).Inc() }
func IncCycleFailure(stage string)   { cycleFailuresTotal.WithLabelValues(stage).Inc() }
func ObserveCycleDuration(s float64) { cycleDurationSeconds.Observe(s) }

func ObserveStageDuration(stage string, s float64) {
	stageDurationSeconds.WithLabelValues(stage).Observe(s)
}

func RecordTrendsCollected(n int) { trendsCollected.Set(float64(n)) }
func IncTrendsFallback()          { trendsFallbackTotal.Inc() }

func RecordVideosOnDisk(count int, bytes int64) {
	videosOnDisk.Set(float64(count))
	videosBytesOnDisk.Set(float64(bytes))
}

func IncQuotaEviction(kind string)   { quotaEvictionsTotal.WithLabelValues(kind).Inc() }
func RecordEngagementViews(n int64)  { engagementViews.Set(float64(n)) }
func IncNotification(outcome string) { notificationsTotal.WithLabelValues(outcome).Inc() }
func RecordSchedulesArmed(n int)     { schedulesArmed.Set(float64(n)) }
