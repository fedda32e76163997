package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ecbatch/internal/logging"
	"ecbatch/internal/services"
)

// Pool executes jobs with a fixed number of workers.
type Pool struct {
	Concurrency int
	Execute     ExecuteFunc
	Checker     Checker
	Recorder    Recorder
	Logger      *slog.Logger
	// Stop is optional; Run creates a token when nil. Either way the token is
	// set when the context passed to Run is cancelled.
	Stop *StopToken
}

// Run dispatches jobs and blocks until every worker has drained. Results are
// returned in submission order and include only jobs that ran; jobs never
// started because of a stop are omitted.
//
// Executions receive a context that keeps ctx's values but not its
// cancellation, so an interrupt never kills work already in flight.
func (p *Pool) Run(ctx context.Context, jobs []Job) []Result {
	logger := p.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "dispatch")
	token := p.Stop
	if token == nil {
		token = NewStopToken()
	}
	detach := token.StopOnDone(ctx)
	defer detach()

	workers := p.Concurrency
	if workers <= 0 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	execCtx := context.WithoutCancel(ctx)

	slots := make([]*Result, len(jobs))
	queue := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for i := range queue {
				if token.Stopped() {
					continue
				}
				result := p.runJob(execCtx, logger, jobs[i])
				slots[i] = &result
			}
		}()
	}

feed:
	for i := range jobs {
		select {
		case <-token.Done():
			break feed
		case queue <- i:
		}
	}
	close(queue)
	wg.Wait()

	results := make([]Result, 0, len(jobs))
	for _, slot := range slots {
		if slot != nil {
			results = append(results, *slot)
		}
	}
	if token.Stopped() && len(results) < len(jobs) {
		logging.WarnWithContext(logger, "dispatch stopped before all jobs started", "dispatch_stopped",
			logging.Int("submitted", len(jobs)),
			logging.Int("ran", len(results)),
			logging.String(logging.FieldErrorHint, "rerun the command to resume; completed work is skipped"),
			logging.String(logging.FieldImpact, "remaining categories were not started"),
		)
	}
	return results
}

func (p *Pool) runJob(ctx context.Context, logger *slog.Logger, job Job) Result {
	ctx = services.WithCategory(ctx, job.Category)
	if job.Stage != "" {
		ctx = services.WithStage(ctx, job.Stage)
	}
	jobLogger := logging.WithContext(ctx, logger)
	start := time.Now()

	result := Result{Job: job, Dropped: job.Dropped}
	if p.Checker != nil && p.Checker.Complete(job) {
		result.Status = StatusSkipped
		result.Detail = fmt.Sprintf("output already present at %s", job.Target)
		jobLogger.Info("job skipped",
			logging.String(logging.FieldEventType, "job_skipped"),
			logging.String("target", job.Target),
		)
	} else {
		jobLogger.Debug("job started",
			logging.String(logging.FieldEventType, "job_start"),
			logging.Int("inputs", len(job.Inputs)),
		)
		detail, err := p.execute(ctx, job)
		result.Detail = detail
		result.Err = err
		if err != nil {
			result.Status = StatusFailure
			logging.ErrorWithContext(jobLogger, "job failed", "job_failed",
				logging.Error(err),
				logging.String("error_kind", services.Kind(err)),
				logging.String(logging.FieldErrorHint, "see the result log entry for diagnostics"),
			)
		} else {
			result.Status = StatusSuccess
			jobLogger.Info("job finished",
				logging.String(logging.FieldEventType, "job_success"),
				logging.Int("dropped", job.Dropped),
			)
		}
	}
	result.Duration = time.Since(start)

	if p.Recorder != nil {
		if err := p.Recorder.Record(ctx, job.Category, result); err != nil {
			logging.WarnWithContext(jobLogger, "failed to record job result", "record_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check log directory permissions"),
				logging.String(logging.FieldImpact, "result missing from the result log"),
			)
		}
	}
	return result
}

func (p *Pool) execute(ctx context.Context, job Job) (detail string, err error) {
	if p.Execute == nil {
		return "", services.Wrap(services.ErrConfiguration, job.Stage, "execute", "no execute function configured", nil)
	}
	defer func() {
		if r := recover(); r != nil {
			detail = ""
			err = services.Wrap(services.ErrTransient, job.Stage, "execute", fmt.Sprintf("panic: %v", r), nil)
		}
	}()
	return p.Execute(ctx, job)
}
