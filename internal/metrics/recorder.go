// Package metrics defines observability hooks for the render pipeline with
// Noop and Prometheus implementations.
package metrics

import "time"

// Outcome labels for render counters.
const (
	OutcomeSuccess         = "success"
	OutcomeSourceOnly      = "source_only"
	OutcomeCompileFailed   = "compile_failed"
	OutcomeMissingCompiler = "missing_compiler"
	OutcomeArtifactMissing = "artifact_missing"
	OutcomeTemplateMissing = "template_not_found"
	OutcomeError           = "error"
)

// Recorder defines observability hooks for render operations. Implementations
// may forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	ObserveRenderDuration(d time.Duration)
	IncRenderOutcome(outcome string)
	ObserveCompilePasses(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRenderDuration(time.Duration) {}
func (NoopRecorder) IncRenderOutcome(string)             {}
func (NoopRecorder) ObserveCompilePasses(int)            {}
