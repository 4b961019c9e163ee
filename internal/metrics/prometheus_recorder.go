package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	renderDuration prom.Histogram
	renderOutcomes *prom.CounterVec
	compilePasses  prom.Histogram
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.renderDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "texmcp",
			Name:      "render_duration_seconds",
			Help:      "End-to-end duration of render operations",
			Buckets:   prom.DefBuckets,
		})
		pr.renderOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "texmcp",
			Name:      "render_outcomes_total",
			Help:      "Render outcomes by terminal status",
		}, []string{"outcome"})
		pr.compilePasses = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "texmcp",
			Name:      "compile_passes",
			Help:      "Compiler passes requested per successful render",
			Buckets:   []float64{1, 2, 3, 4, 5, 10},
		})
		reg.MustRegister(pr.renderDuration, pr.renderOutcomes, pr.compilePasses)
	})
	return pr
}

func (pr *PrometheusRecorder) ObserveRenderDuration(d time.Duration) {
	pr.renderDuration.Observe(d.Seconds())
}

func (pr *PrometheusRecorder) IncRenderOutcome(outcome string) {
	pr.renderOutcomes.WithLabelValues(outcome).Inc()
}

func (pr *PrometheusRecorder) ObserveCompilePasses(n int) {
	pr.compilePasses.Observe(float64(n))
}
