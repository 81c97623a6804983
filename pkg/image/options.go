package image

import (
	"time"

	"go.uber.org/zap"

	"github.com/autodeployr/engine/pkg/envstore"
	"github.com/autodeployr/engine/pkg/imagetag"
	"github.com/autodeployr/engine/pkg/logging"
)

// DefaultSweepWindow bounds how far back the post-build layer sweep reaches.
const DefaultSweepWindow = 2 * time.Minute

// settings is shared by Builder, Resolver and Reclaimer so one option set
// configures all three.
type settings struct {
	prefix      string
	env         envstore.Store
	log         *zap.SugaredLogger
	sweepWindow time.Duration
}

func defaultSettings() settings {
	return settings{
		prefix:      imagetag.DefaultPrefix,
		log:         logging.Nop(),
		sweepWindow: DefaultSweepWindow,
	}
}

// Option configures an image service. Options a service has no use for are
// ignored.
type Option func(*settings)

// WithTagPrefix replaces the tag prefix that marks images as engine-owned.
func WithTagPrefix(prefix string) Option {
	return func(s *settings) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithEnvStore persists build-time env vars for injection at invocation.
func WithEnvStore(store envstore.Store) Option {
	return func(s *settings) {
		s.env = store
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *settings) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSweepWindow changes how recent a dangling layer must be for the
// post-build sweep to take it.
func WithSweepWindow(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.sweepWindow = d
		}
	}
}
