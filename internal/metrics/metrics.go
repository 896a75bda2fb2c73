package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  prometheus.Histogram
	RequestsInFlight prometheus.Gauge

	StageTotal    *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec

	CandidatesSkippedTotal *prometheus.CounterVec

	UploadBytes prometheus.Histogram

	RateLimitHitsTotal prometheus.Counter
}

// New регистрирует метрики в reg. nil - DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imgrelay_requests_total",
				Help: "Total number of image requests processed",
			},
			[]string{"status"},
		),
		RequestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "imgrelay_request_duration_seconds",
				Help:    "End-to-end pipeline duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "imgrelay_requests_in_flight",
				Help: "Number of image requests currently being processed",
			},
		),

		StageTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imgrelay_stage_total",
				Help: "Pipeline stage executions by outcome",
			},
			[]string{"stage", "status"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "imgrelay_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"stage"},
		),

		CandidatesSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imgrelay_candidates_skipped_total",
				Help: "Search candidates rejected before selection",
			},
			[]string{"reason"},
		),

		UploadBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "imgrelay_upload_bytes",
				Help:    "Size of downloaded images handed to the publisher",
				Buckets: prometheus.ExponentialBuckets(16<<10, 4, 7),
			},
		),

		RateLimitHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "imgrelay_rate_limit_hits_total",
				Help: "Total number of rejected requests due to rate limiting",
			},
		),
	}

	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor - хендлер для кастомного registry (тесты, отдельный listener).
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRequest(status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(status).Inc()
	m.RequestDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordStage(stage, status string, duration time.Duration) {
	m.StageTotal.WithLabelValues(stage, status).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (m *Metrics) RecordCandidateSkipped(reason string) {
	m.CandidatesSkippedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordUploadSize(n int) {
	m.UploadBytes.Observe(float64(n))
}

func (m *Metrics) RecordRateLimitHit() {
	m.RateLimitHitsTotal.Inc()
}

func (m *Metrics) IncRequestsInFlight() {
	m.RequestsInFlight.Inc()
}

func (m *Metrics) DecRequestsInFlight() {
	m.RequestsInFlight.Dec()
}
