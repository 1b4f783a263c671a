package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Traffic: подачи предложений с разбивкой по исходу
	SubmitTotal *prometheus.CounterVec

	// Latency: полное время обработки Submit
	SubmitDuration *prometheus.HistogramVec

	// Errors: сорванные транзакции материализации
	MaterializeFailures prometheus.Counter

	// Saturation: заполненность буфера аудита (backpressure)
	AuditBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern — без регистра метрики копятся в локальный,
	// никуда не подключенный реестр (удобно в тестах)
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		SubmitTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dominion_proposal_submits_total",
			Help: "Total number of proposal submissions by outcome.",
		}, []string{"agent_id", "outcome"}),

		SubmitDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dominion_submit_duration_seconds",
			Help:    "Histogram of submit processing latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"outcome"}),

		MaterializeFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dominion_materialize_failures_total",
			Help: "Total number of rolled back materialization transactions.",
		}),

		AuditBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "dominion_audit_buffer_utilization",
			Help: "Current number of events in the audit buffer.",
		}),
	}
}
