package invoke

import (
	"time"

	"go.uber.org/zap"

	"github.com/autodeployr/engine/pkg/metrics"
)

type Option func(*Launcher)

// WithExecTimeout bounds how long a function container may run before the
// invocation is failed and torn down.
func WithExecTimeout(d time.Duration) Option {
	return func(l *Launcher) {
		if d > 0 {
			l.execTimeout = d
		}
	}
}

// WithLogsTimeout bounds the log fetch that follows every wait, including
// the timed-out ones.
func WithLogsTimeout(d time.Duration) Option {
	return func(l *Launcher) {
		if d > 0 {
			l.logsTimeout = d
		}
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(l *Launcher) {
		if r != nil {
			l.metrics = r
		}
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(l *Launcher) {
		if log != nil {
			l.log = log
		}
	}
}

// WithShmSize sets /dev/shm for every launched container, in bytes.
func WithShmSize(bytes int64) Option {
	return func(l *Launcher) {
		if bytes > 0 {
			l.shmSize = bytes
		}
	}
}
