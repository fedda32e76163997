// Package stageexec runs one stage.Handler through the dispatch pool and
// records its results in the result log and the run ledger.
package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ecbatch/internal/dispatch"
	"ecbatch/internal/ledger"
	"ecbatch/internal/logging"
	"ecbatch/internal/services"
	"ecbatch/internal/stage"
)

// Options controls stage execution and result persistence.
type Options struct {
	Logger      *slog.Logger
	Handler     stage.Handler
	Recorder    dispatch.Recorder
	Ledger      *ledger.Store
	RunID       string
	Concurrency int
	Stop        *dispatch.StopToken
}

// Report is the outcome of one stage.
type Report struct {
	Stage    string
	Label    string
	Summary  dispatch.Summary
	Results  []dispatch.Result
	Duration time.Duration
}

// Run plans the stage, dispatches its jobs, and returns the aggregated report.
// Only errors that prevent dispatch are returned; per-category failures live
// in the report.
func Run(ctx context.Context, opts Options) (Report, error) {
	if opts.Handler == nil {
		return Report{}, fmt.Errorf("stage handler is required")
	}
	name := opts.Handler.Name()
	report := Report{Stage: name, Label: StageLabel(name)}
	start := time.Now()

	stageCtx := services.WithStage(ctx, name)
	if opts.RunID != "" {
		stageCtx = services.WithRunID(stageCtx, opts.RunID)
	}
	stageLogger := logging.WithContext(stageCtx, opts.Logger)
	if aware, ok := opts.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Int("concurrency", opts.Concurrency),
	)

	plan, err := opts.Handler.Plan(stageCtx)
	if err != nil {
		logging.ErrorWithContext(stageLogger, "stage planning failed", "stage_failure",
			logging.Error(err),
			logging.String("error_kind", services.Kind(err)),
			logging.String(logging.FieldErrorHint, "fix the configuration and rerun"),
		)
		return report, err
	}

	recorder := opts.Recorder
	ledgerActive := false
	if opts.Ledger != nil && opts.RunID != "" {
		if err := opts.Ledger.BeginRun(stageCtx, opts.RunID, name, plan.Submitted()); err != nil {
			logging.WarnWithContext(stageLogger, "run ledger unavailable", "ledger_begin_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the ledger database in log_dir"),
				logging.String(logging.FieldImpact, "results are written to the result log only"),
			)
		} else {
			recorder = dispatch.MultiRecorder{opts.Recorder, opts.Ledger.Recorder(opts.RunID)}
			ledgerActive = true
		}
	}

	for _, failed := range plan.Failed {
		if recorder != nil {
			if err := recorder.Record(stageCtx, failed.Job.Category, failed); err != nil {
				stageLogger.Warn("failed to record planning failure", logging.Error(err))
			}
		}
	}

	pool := &dispatch.Pool{
		Concurrency: opts.Concurrency,
		Execute:     opts.Handler.Execute,
		Checker:     opts.Handler.Checker(),
		Recorder:    recorder,
		Logger:      stageLogger,
		Stop:        opts.Stop,
	}
	results := pool.Run(stageCtx, plan.Jobs)

	if finalizer, ok := opts.Handler.(stage.Finalizer); ok {
		if err := finalizer.Finalize(context.WithoutCancel(stageCtx), results); err != nil {
			logging.WarnWithContext(stageLogger, "stage finalization failed", "stage_finalize_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "per-category outputs are intact; rerun to retry"),
				logging.String(logging.FieldImpact, "combined output not updated"),
			)
		}
	}

	report.Results = append(append([]dispatch.Result(nil), plan.Failed...), results...)
	report.Summary = dispatch.Summarize(plan.Submitted(), report.Results)
	report.Duration = time.Since(start)

	if ledgerActive {
		if err := opts.Ledger.FinishRun(context.WithoutCancel(stageCtx), opts.RunID, name, report.Summary); err != nil {
			stageLogger.Warn("failed to finish ledger run", logging.Error(err))
		}
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("submitted", report.Summary.Submitted),
		logging.Int("succeeded", report.Summary.Succeeded),
		logging.Int("skipped", report.Summary.Skipped),
		logging.Int("failed", report.Summary.Failed),
		logging.Int("not_started", report.Summary.NotStarted),
		logging.Int("dropped", report.Summary.Dropped),
		logging.Duration("duration", report.Duration),
	)
	return report, nil
}

// StageLabel renders a stage name for tables, e.g. "createdb" becomes "Createdb".
func StageLabel(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	if name == "" {
		return ""
	}
	return cases.Title(language.English).String(name)
}
