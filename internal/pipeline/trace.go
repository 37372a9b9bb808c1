package pipeline

import (
	"context"
	"time"
)

// Trace is an injected telemetry sink for run and step events. The run
// ledger implements it; steps may also report intermediate results through
// the one carried in the Context.
type Trace interface {
	RunStarted(ctx context.Context, pipeline string)
	StepStarted(ctx context.Context, step string)
	StepCompleted(ctx context.Context, step string, success bool, elapsed time.Duration)
	StepFailed(ctx context.Context, step string, err error, elapsed time.Duration)
	RunFinished(ctx context.Context, success bool, elapsed time.Duration)
}

// NopTrace discards every event.
type NopTrace struct{}

func (NopTrace) RunStarted(context.Context, string)                         {}
func (NopTrace) StepStarted(context.Context, string)                        {}
func (NopTrace) StepCompleted(context.Context, string, bool, time.Duration) {}
func (NopTrace) StepFailed(context.Context, string, error, time.Duration)   {}
func (NopTrace) RunFinished(context.Context, bool, time.Duration)           {}
