package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors shared by the pipeline, collector,
// scheduler and HTTP server.
type Metrics struct {
	RankDuration       prometheus.Histogram
	CreatorsRanked     prometheus.Gauge
	CorporateExcluded  prometheus.Counter
	CorrelationSkipped prometheus.Counter
	CollectorRequests  *prometheus.CounterVec
	ChannelsCollected  prometheus.Counter
	AlertsSent         *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
}

// New builds the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RankDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "playaura_rank_duration_seconds",
				Help:    "Duration of a full ranking pipeline run.",
				Buckets: prometheus.DefBuckets,
			},
		),
		CreatorsRanked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "playaura_creators_ranked",
				Help: "Creators left after the corporate filter in the last run.",
			},
		),
		CorporateExcluded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "playaura_corporate_excluded_total",
				Help: "Channels dropped by the corporate filter.",
			},
		),
		CorrelationSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "playaura_correlation_skipped_total",
				Help: "Correlation passes skipped by the size guard.",
			},
		),
		CollectorRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playaura_collector_requests_total",
				Help: "YouTube sync attempts, by region, category and outcome.",
			},
			[]string{"region", "category", "status"},
		),
		ChannelsCollected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "playaura_channels_collected_total",
				Help: "Channels persisted by the collector.",
			},
		),
		AlertsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playaura_alerts_sent_total",
				Help: "Creator alerts broadcast, by outcome.",
			},
			[]string{"status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playaura_api_request_duration_seconds",
				Help:    "HTTP request duration in seconds, by endpoint and method.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "method", "status"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.RankDuration,
			m.CreatorsRanked,
			m.CorporateExcluded,
			m.CorrelationSkipped,
			m.CollectorRequests,
			m.ChannelsCollected,
			m.AlertsSent,
			m.RequestDuration,
		)
	}
	return m
}

// ObserveSince records the time elapsed since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
