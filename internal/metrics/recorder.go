// Package metrics records pipeline observability data.
package metrics

import "time"

// Outcome labels a counted event.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// Recorder defines observability hooks for a pipeline run. NoopRecorder is
// the default when metrics are not configured.
type Recorder interface {
	ObserveStage(stage string, d time.Duration)
	IncRun(target string, outcome Outcome)
	IncInline(outcome Outcome)
	IncCSSFetchFailure(section string)
	IncPublish(target string, outcome Outcome)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStage(string, time.Duration) {}
func (NoopRecorder) IncRun(string, Outcome)             {}
func (NoopRecorder) IncInline(Outcome)                  {}
func (NoopRecorder) IncCSSFetchFailure(string)          {}
func (NoopRecorder) IncPublish(string, Outcome)         {}

// OutcomeOf maps an error to an Outcome.
func OutcomeOf(err error) Outcome {
	if err != nil {
		return OutcomeFailed
	}
	return OutcomeSuccess
}

var _ Recorder = NoopRecorder{}
