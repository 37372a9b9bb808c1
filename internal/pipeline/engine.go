package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"gapipe/internal/logging"
	"gapipe/internal/repo"
	"gapipe/internal/services"
)

// Options configures an Engine.
type Options struct {
	Logger *slog.Logger
	Trace  Trace
	// FailFast makes the engine return the first exception instead of
	// containing it. Off in production runs; meant for interactive
	// debugging sessions.
	FailFast bool
}

// Engine runs a pipeline's step tree. One engine may execute several runs;
// the exception log is cleared after each.
type Engine struct {
	logger     *slog.Logger
	trace      Trace
	failFast   bool
	exceptions ExceptionLog
}

// Run names one execution: the pipeline, its configuration, the repository
// handed to workers, and the optional append-mode exception log file.
type Run struct {
	Pipeline      Pipeline
	Config        any
	Repo          *repo.Repository
	ExceptionFile string
}

// Summary reports the outcome of one execution.
type Summary struct {
	RunID    string
	Success  bool
	StepsRun int
	Failures []ExceptionRecord
	Elapsed  time.Duration
}

func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	trace := opts.Trace
	if trace == nil {
		trace = NopTrace{}
	}
	return &Engine{
		logger:   logger.With(logging.FieldComponent, "engine"),
		trace:    trace,
		failFast: opts.FailFast,
	}
}

// Execute runs the pipeline's step tree once. Failures are contained at the
// engine boundary: a run that hits failures still returns a Summary with
// Success=false and a populated failure list, and nil error. The error return
// is reserved for fail-fast mode (the first exception) and for trouble
// persisting the exception log.
func (e *Engine) Execute(ctx context.Context, run Run) (Summary, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, e.logger)

	logger.Info("run started", "pipeline", run.Pipeline.Name())
	e.trace.RunStarted(ctx, run.Pipeline.Name())
	start := time.Now()

	steps := run.Pipeline.Steps()
	pc := &Context{
		Pipeline: run.Pipeline,
		Config:   run.Config,
		State:    run.Pipeline.NewState(),
		Trace:    e.trace,
		Logger:   logger,
		Repo:     run.Repo,
	}

	summary := Summary{RunID: runID}
	success, _, execErr := e.executeSteps(ctx, steps, nil, pc, &summary)
	pc.State = nil

	summary.Success = success && execErr == nil
	summary.Elapsed = time.Since(start)
	summary.Failures = e.exceptions.Records()

	e.trace.RunFinished(ctx, summary.Success, summary.Elapsed)
	logger.Info("run finished",
		"pipeline", run.Pipeline.Name(),
		"success", summary.Success,
		"steps", summary.StepsRun,
		"failures", len(summary.Failures),
		"elapsed", summary.Elapsed.Round(time.Millisecond))

	var saveErr error
	if run.ExceptionFile != "" {
		saveErr = e.exceptions.SaveTo(run.ExceptionFile)
	}
	e.exceptions.Reset()

	if execErr != nil {
		return summary, execErr
	}
	return summary, saveErr
}

// executeSteps iterates one sibling list. For top-level steps (inst == nil) a
// fresh instance is constructed and threaded through the step's substeps,
// then discarded. SkipRemaining stops this list only; a skip signaled inside
// a substep list does not propagate past its own level.
func (e *Engine) executeSteps(ctx context.Context, steps []Step, inst Instance, pc *Context, summary *Summary) (success, skipped bool, err error) {
	success = true
	for i := range steps {
		step := &steps[i]
		cur := inst
		if inst == nil && step.New != nil {
			cur = step.New()
		}

		res, err := e.executeStep(ctx, step, cur, pc, summary)
		if err != nil {
			return false, true, err
		}
		success = success && res.Success

		if res.SkipRemaining {
			// The step's own substeps are skipped as well.
			return success, true, nil
		}
		if !res.SkipSubsteps && len(step.Substeps) > 0 {
			subSuccess, _, err := e.executeSteps(ctx, step.Substeps, cur, pc, summary)
			if err != nil {
				return false, true, err
			}
			success = success && subSuccess
		}
	}
	return success, false, nil
}

// executeStep runs one worker with timing, logging, and exception
// containment. A worker error, a panic, a missing worker, and a critical
// step returning failure all converge on the same exception path: record the
// error with its stack, log it with elapsed time, and synthesize a result
// that aborts the current sibling list.
func (e *Engine) executeStep(ctx context.Context, step *Step, inst Instance, pc *Context, summary *Summary) (Result, error) {
	ctx = services.WithStep(ctx, step.Name)
	logger := logging.WithContext(ctx, pc.Logger)

	logger.Info("step started")
	e.trace.StepStarted(ctx, step.Name)
	start := time.Now()
	summary.StepsRun++

	res, workErr := e.runWorker(ctx, step, inst, pc)
	elapsed := time.Since(start)

	if workErr == nil && !res.Success && step.Critical {
		workErr = services.Wrap(services.ErrValidation, step.Name, "execute",
			"critical step failed", nil)
	}

	if workErr != nil {
		e.exceptions.Record(step.Name, workErr, time.Now())
		logger.Error("step failed",
			logging.Error(workErr),
			"elapsed", elapsed.Round(time.Millisecond))
		e.trace.StepFailed(ctx, step.Name, workErr, elapsed)
		if e.failFast {
			return Result{}, workErr
		}
		return Result{Success: false, SkipRemaining: true, SkipSubsteps: true}, nil
	}

	if res.Success {
		logger.Info("step completed", "elapsed", elapsed.Round(time.Millisecond))
	} else {
		logger.Warn("step failed, continuing", "elapsed", elapsed.Round(time.Millisecond))
	}
	e.trace.StepCompleted(ctx, step.Name, res.Success, elapsed)
	return res, nil
}

// runWorker invokes the worker, converting a missing worker and a panic into
// errors for the exception path.
func (e *Engine) runWorker(ctx context.Context, step *Step, inst Instance, pc *Context) (res Result, err error) {
	if step.Work == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, step.Name, "execute",
			"step has no worker", nil)
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("step %s panicked: %v", step.Name, r)
		}
	}()
	res, err = step.Work(ctx, inst, pc)
	if err != nil {
		err = fmt.Errorf("step %s: %w", step.Name, err)
	}
	return res, err
}
