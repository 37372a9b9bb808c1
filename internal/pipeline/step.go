package pipeline

import (
	"context"
	"log/slog"

	"gapipe/internal/repo"
)

// Instance is the per-top-level-step object shared by a step and all of its
// substeps within one execution. Step types use it for instance-local state
// such as loaded products or intermediate fit results.
type Instance any

// Worker is the sole extension point step implementations must honor. It
// returns a well-formed Result, or an error for the exception path; it must
// never do both.
type Worker func(ctx context.Context, inst Instance, pc *Context) (Result, error)

// Step is a stateless unit-of-work declaration. For top-level steps, New
// constructs the instance threaded through the step and its substeps; it is
// ignored on substeps, which receive their parent's instance.
type Step struct {
	Name     string
	Critical bool
	New      func() Instance
	Work     Worker
	Substeps []Step
}

// Result is the engine's control-flow signal, produced by every worker.
type Result struct {
	// Success is false on failure; on a critical step this aborts the
	// current sibling list.
	Success bool
	// SkipRemaining stops the sibling list at this nesting level. The
	// step's own substeps are skipped as well.
	SkipRemaining bool
	// SkipSubsteps skips the step's own substep list only.
	SkipSubsteps bool
}

// Pipeline supplies the step tree and a fresh state object per execution.
type Pipeline interface {
	Name() string
	Steps() []Step
	NewState() any
}

// Context is the mutable shared object passed to every worker of one
// execution. It is owned by the engine for the duration of the run and
// discarded after.
type Context struct {
	Pipeline Pipeline
	Config   any
	State    any
	Trace    Trace
	Logger   *slog.Logger
	Repo     *repo.Repository
}
