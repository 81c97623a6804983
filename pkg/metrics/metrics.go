// Package metrics is the engine's obligation to observability: per invocation
// it reports the function, wall-clock time and success flag. Aggregation is
// someone else's job.
package metrics

import (
	"time"

	"go.uber.org/zap"
)

// Recorder receives one call per completed invocation, successful or not.
type Recorder interface {
	RecordInvocation(functionID string, elapsed time.Duration, success bool)
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordInvocation(string, time.Duration, bool) {}

// LogRecorder emits each invocation as a structured log line.
type LogRecorder struct {
	Log *zap.SugaredLogger
}

func (r LogRecorder) RecordInvocation(functionID string, elapsed time.Duration, success bool) {
	r.Log.Infow("invocation completed",
		"function", functionID,
		"elapsed_ms", elapsed.Milliseconds(),
		"success", success,
	)
}
