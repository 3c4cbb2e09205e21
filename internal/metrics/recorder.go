package metrics

import "time"

// ResultLabel enumerates result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultSkipped ResultLabel = "skipped"
)

// Recorder defines observability hooks for directive and build metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe for nil receivers when using the NoopRecorder (allowing
// optional injection).
type Recorder interface {
	ObserveGenerateDuration(module string, d time.Duration, success bool)
	IncDirectiveResult(result ResultLabel)
	IncCacheLookup(hit bool)
	IncPageResult(result ResultLabel)
	ObserveBuildDuration(d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveGenerateDuration(string, time.Duration, bool) {}
func (NoopRecorder) IncDirectiveResult(ResultLabel)                      {}
func (NoopRecorder) IncCacheLookup(bool)                                 {}
func (NoopRecorder) IncPageResult(ResultLabel)                           {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)                  {}
