package runstore

import (
	"context"
	"log/slog"
	"time"

	"gapipe/internal/logging"
	"gapipe/internal/services"
)

// Recorder bridges the step engine's trace interface to the ledger. Ledger
// trouble is logged, never allowed to fail the run.
type Recorder struct {
	store  *Store
	logger *slog.Logger
}

func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Recorder{store: store, logger: logger.With(logging.FieldComponent, "runstore")}
}

func (r *Recorder) RunStarted(ctx context.Context, pipeline string) {
	runID, _ := services.RunIDFromContext(ctx)
	object, _ := services.ObjectFromContext(ctx)
	if err := r.store.BeginRun(ctx, runID, pipeline, object); err != nil {
		r.logger.Warn("failed to record run start", logging.Error(err))
	}
}

func (r *Recorder) StepStarted(ctx context.Context, step string) {}

func (r *Recorder) StepCompleted(ctx context.Context, step string, success bool, elapsed time.Duration) {
	runID, _ := services.RunIDFromContext(ctx)
	outcome := OutcomeSucceeded
	if !success {
		outcome = OutcomeFailed
	}
	if err := r.store.RecordStep(ctx, runID, step, outcome, "", elapsed); err != nil {
		r.logger.Warn("failed to record step", logging.Error(err))
	}
}

func (r *Recorder) StepFailed(ctx context.Context, step string, stepErr error, elapsed time.Duration) {
	runID, _ := services.RunIDFromContext(ctx)
	if err := r.store.RecordStep(ctx, runID, step, OutcomeError, stepErr.Error(), elapsed); err != nil {
		r.logger.Warn("failed to record step failure", logging.Error(err))
	}
}

func (r *Recorder) RunFinished(ctx context.Context, success bool, elapsed time.Duration) {
	runID, _ := services.RunIDFromContext(ctx)
	if err := r.store.FinishRun(ctx, runID, success); err != nil {
		r.logger.Warn("failed to record run finish", logging.Error(err))
	}
}
