package stage

import (
	"log/slog"

	"ecbatch/internal/logging"
	"ecbatch/internal/toolexec"
)

// Option configures optional stage dependencies.
type Option func(*base)

// WithExecutor injects a custom tool executor (primarily for tests).
func WithExecutor(exec toolexec.Executor) Option {
	return func(b *base) {
		if exec != nil {
			b.executor = exec
		}
	}
}

// WithLogger sets the stage logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *base) {
		b.SetLogger(logger)
	}
}

type base struct {
	component string
	logger    *slog.Logger
	executor  toolexec.Executor
}

func newBase(component string, stderrLimit int, opts []Option) base {
	b := base{
		component: component,
		logger:    logging.NewComponentLogger(logging.NewNop(), component),
		executor:  toolexec.NewCommandExecutor(stderrLimit),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// SetLogger implements LoggerAware.
func (b *base) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	b.logger = logging.NewComponentLogger(logger, b.component)
}
