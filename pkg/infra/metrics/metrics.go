package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mkurata/docship/pkg/domain/model"
)

// Metrics holds the Prometheus instruments for pipeline runs
type Metrics struct {
	runsTotal    *prometheus.CounterVec
	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	runsInflight prometheus.Gauge
}

// New registers the pipeline metrics on the given registerer
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docship",
			Name:      "runs_total",
			Help:      "Completed pipeline runs by outcome",
		}, []string{"outcome"}),
		stepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docship",
			Name:      "steps_total",
			Help:      "Executed pipeline steps by step and outcome",
		}, []string{"step", "outcome"}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docship",
			Name:      "step_duration_seconds",
			Help:      "Wall clock duration of pipeline steps",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
		}, []string{"step"}),
		runsInflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "docship",
			Name:      "runs_inflight",
			Help:      "Pipeline runs currently executing",
		}),
	}
}

// RunStarted marks a run as in flight
func (m *Metrics) RunStarted() {
	m.runsInflight.Inc()
}

// RunFinished records the terminal state of a run
func (m *Metrics) RunFinished(state model.RunState) {
	m.runsInflight.Dec()
	m.runsTotal.WithLabelValues(string(state)).Inc()
}

// StepObserved records one step execution
func (m *Metrics) StepObserved(step model.StepName, outcome model.StepOutcome, d time.Duration) {
	m.stepsTotal.WithLabelValues(string(step), string(outcome)).Inc()
	m.stepDuration.WithLabelValues(string(step)).Observe(d.Seconds())
}
