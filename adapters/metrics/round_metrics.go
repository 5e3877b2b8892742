// Package metrics exports collection progress as Prometheus metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"surveygen/ports"
)

const (
	outcomeCommitted = "committed"
	outcomeDiscarded = "discarded"
)

// RoundMetrics implements ports.RoundObserver on top of Prometheus collectors
type RoundMetrics struct {
	rounds        *prometheus.CounterVec
	answers       *prometheus.HistogramVec
	measuredAlpha prometheus.Gauge
}

// NewRoundMetrics registers the collectors on reg. A nil reg uses the
// default registerer
func NewRoundMetrics(reg prometheus.Registerer) *RoundMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &RoundMetrics{
		// rounds counts respondent rounds by outcome
		rounds: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "surveygen_rounds_total",
			Help: "Respondent rounds by outcome",
		}, []string{"outcome"}),

		// answers tracks buffered answers per round
		answers: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "surveygen_round_answers",
			Help:    "Answers buffered per respondent round",
			Buckets: []float64{1, 5, 10, 20, 50, 100},
		}, []string{"outcome"}),

		measuredAlpha: factory.NewGauge(prometheus.GaugeOpts{
			Name: "surveygen_measured_alpha",
			Help: "Cronbach's alpha measured over the last completed run",
		}),
	}
}

// RoundCommitted implements ports.RoundObserver
func (m *RoundMetrics) RoundCommitted(actions int) {
	m.rounds.WithLabelValues(outcomeCommitted).Inc()
	m.answers.WithLabelValues(outcomeCommitted).Observe(float64(actions))
}

// RoundDiscarded implements ports.RoundObserver
func (m *RoundMetrics) RoundDiscarded(actions int) {
	m.rounds.WithLabelValues(outcomeDiscarded).Inc()
	m.answers.WithLabelValues(outcomeDiscarded).Observe(float64(actions))
}

// SetMeasuredAlpha publishes the alpha of a finished run
func (m *RoundMetrics) SetMeasuredAlpha(alpha float64) {
	m.measuredAlpha.Set(alpha)
}

var _ ports.RoundObserver = (*RoundMetrics)(nil)
