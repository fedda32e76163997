package stage

import (
	"context"
	"log/slog"

	"ecbatch/internal/dispatch"
)

// Stage names.
const (
	NameMaterialize = "materialize"
	NameCreateDB    = "createdb"
	NameSearch      = "search"
	NameDiamond     = "diamond"
)

// Handler describes the contract the stage runner needs from each stage.
type Handler interface {
	Name() string
	Plan(ctx context.Context) (Plan, error)
	Execute(ctx context.Context, job dispatch.Job) (string, error)
	Checker() dispatch.Checker
	HealthCheck(ctx context.Context) Health
}

// Finalizer is implemented by stages that post-process the pool's results.
type Finalizer interface {
	Finalize(ctx context.Context, results []dispatch.Result) error
}

// LoggerAware is implemented by stages that accept a run-scoped logger.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}

// Plan is the work a stage will submit.
type Plan struct {
	Jobs []dispatch.Job
	// Failed holds categories that could not be planned. They count as
	// submitted failures and are recorded without dispatch.
	Failed []dispatch.Result
}

// Submitted returns the number of categories the plan accounts for.
func (p Plan) Submitted() int {
	return len(p.Jobs) + len(p.Failed)
}
