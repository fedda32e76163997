package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"ecbatch/internal/config"
	"ecbatch/internal/dispatch"
	"ecbatch/internal/ledger"
	"ecbatch/internal/logging"
	"ecbatch/internal/preflight"
	"ecbatch/internal/runlog"
	"ecbatch/internal/services"
	"ecbatch/internal/stage"
	"ecbatch/internal/stageexec"
)

// ErrLocked reports that another ecbatch run holds the output lock.
var ErrLocked = errors.New("another ecbatch run is in progress")

// Option configures a Runner.
type Option func(*Runner)

// WithStageOptions passes options to every stage the runner constructs.
func WithStageOptions(opts ...stage.Option) Option {
	return func(r *Runner) {
		r.stageOpts = append(r.stageOpts, opts...)
	}
}

// WithStopToken shares a stop token with the caller.
func WithStopToken(token *dispatch.StopToken) Option {
	return func(r *Runner) {
		if token != nil {
			r.stop = token
		}
	}
}

// WithoutPreflight skips environment checks before dispatch.
func WithoutPreflight() Option {
	return func(r *Runner) {
		r.skipPreflight = true
	}
}

// Runner executes stages under the output lock.
type Runner struct {
	cfg           *config.Config
	logger        *slog.Logger
	stageOpts     []stage.Option
	stop          *dispatch.StopToken
	skipPreflight bool
	lockPath      string
}

// Outcome aggregates the reports of every stage that ran.
type Outcome struct {
	RunID       string
	Reports     []stageexec.Report
	Total       dispatch.Summary
	Interrupted bool
	Duration    time.Duration
}

// OK reports whether every stage ran without category failures.
func (o Outcome) OK() bool {
	return o.Total.OK() && !o.Interrupted
}

// New constructs a Runner.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("batch runner requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{
		cfg:      cfg,
		logger:   logger,
		stop:     dispatch.NewStopToken(),
		lockPath: filepath.Join(cfg.Paths.LogDir, "ecbatch.lock"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// LockPath returns the lock file guarding the output directories.
func (r *Runner) LockPath() string { return r.lockPath }

// Run executes the named stages in order. The returned error is non-nil only
// when the run could not start or a stage could not be planned; category
// failures are reported in the outcome.
func (r *Runner) Run(ctx context.Context, names ...string) (Outcome, error) {
	outcome := Outcome{RunID: uuid.NewString()}
	start := time.Now()

	if len(names) == 0 {
		return outcome, services.Wrap(services.ErrConfiguration, "batch", "run", "no stages requested", nil)
	}
	handlers := make([]stage.Handler, 0, len(names))
	for _, name := range names {
		handler, err := NewHandler(r.cfg, name, r.stageOpts...)
		if err != nil {
			return outcome, services.Wrap(services.ErrConfiguration, "batch", "construct stage", name, err)
		}
		handlers = append(handlers, handler)
	}

	if err := r.cfg.EnsureDirectories(); err != nil {
		return outcome, services.Wrap(services.ErrConfiguration, "batch", "prepare directories", "", err)
	}
	lock := flock.New(r.lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return outcome, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return outcome, fmt.Errorf("%w (lock %s)", ErrLocked, r.lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	runCtx := services.WithRunID(ctx, outcome.RunID)
	logger := logging.WithContext(runCtx, r.logger)

	if !r.skipPreflight {
		if err := preflight.Require(runCtx, r.cfg, ScopeFor(names...)); err != nil {
			logging.ErrorWithContext(logger, "preflight failed", "preflight_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run ecbatch status for details"),
			)
			return outcome, err
		}
	}

	detach := r.stop.StopOnDone(ctx)
	defer detach()

	store, err := ledger.Open(r.cfg)
	if err != nil {
		logging.WarnWithContext(logger, "run ledger unavailable", "ledger_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on "+r.cfg.LedgerPath()),
			logging.String(logging.FieldImpact, "history is not recorded for this run"),
		)
	} else {
		defer store.Close()
	}

	logDependencySnapshot(runCtx, logger, r.cfg, ScopeFor(names...))
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Any("stages", names),
	)

	for _, handler := range handlers {
		if r.stop.Stopped() {
			outcome.Interrupted = true
			break
		}
		report, err := r.runStage(runCtx, logger, handler, store, outcome.RunID)
		if err != nil {
			return outcome, err
		}
		outcome.Reports = append(outcome.Reports, report)
		outcome.Total.Add(report.Summary)
	}
	if r.stop.Stopped() {
		outcome.Interrupted = true
	}
	outcome.Duration = time.Since(start)

	logger.Info("batch completed",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("stages", len(outcome.Reports)),
		logging.Int("failed", outcome.Total.Failed),
		logging.Int("not_started", outcome.Total.NotStarted),
		logging.Bool("interrupted", outcome.Interrupted),
	)
	return outcome, nil
}

func (r *Runner) runStage(ctx context.Context, logger *slog.Logger, handler stage.Handler, store *ledger.Store, runID string) (stageexec.Report, error) {
	path := ResultLogPath(r.cfg, handler.Name())
	log, err := runlog.Open(path)
	if err != nil {
		return stageexec.Report{Stage: handler.Name()}, services.Wrap(services.ErrConfiguration, handler.Name(), "open result log", path, err)
	}
	defer func() {
		if err := log.Close(); err != nil {
			logger.Warn("failed to close result log", logging.Path(path), logging.Error(err))
		}
	}()

	opts := stageexec.Options{
		Logger:      logger,
		Handler:     handler,
		Recorder:    log,
		RunID:       runID,
		Concurrency: r.cfg.Workers.Concurrency,
		Stop:        r.stop,
		Ledger:      store,
	}
	return stageexec.Run(ctx, opts)
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config, scope preflight.Scope) {
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, status := range preflight.CheckSystemDeps(ctx, cfg, scope) {
		attrs = append(attrs,
			logging.Bool(status.Name+"_available", status.Available),
			logging.String(status.Name+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
