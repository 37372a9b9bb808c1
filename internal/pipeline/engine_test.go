package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gapipe/internal/pipeline"
)

type fakePipeline struct {
	name  string
	steps []pipeline.Step
}

func (p *fakePipeline) Name() string           { return p.name }
func (p *fakePipeline) Steps() []pipeline.Step { return p.steps }
func (p *fakePipeline) NewState() any          { return &struct{}{} }

func ok() pipeline.Result {
	return pipeline.Result{Success: true}
}

// recorder appends step names in invocation order.
type recorder struct {
	calls []string
}

func (r *recorder) step(name string, res pipeline.Result, err error) pipeline.Step {
	return pipeline.Step{
		Name: name,
		Work: func(ctx context.Context, inst pipeline.Instance, pc *pipeline.Context) (pipeline.Result, error) {
			r.calls = append(r.calls, name)
			return res, err
		},
	}
}

func execute(t *testing.T, steps []pipeline.Step, opts pipeline.Options) pipeline.Summary {
	t.Helper()
	engine := pipeline.New(opts)
	summary, err := engine.Execute(context.Background(), pipeline.Run{
		Pipeline: &fakePipeline{name: "test", steps: steps},
	})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	return summary
}

func TestCriticalFailureAbortsSiblingList(t *testing.T) {
	rec := &recorder{}
	a := rec.step("a", pipeline.Result{Success: false}, nil)
	a.Critical = true
	steps := []pipeline.Step{a, rec.step("b", ok(), nil), rec.step("c", ok(), nil)}

	summary := execute(t, steps, pipeline.Options{})
	if summary.Success {
		t.Fatal("run must not be successful")
	}
	if len(rec.calls) != 1 || rec.calls[0] != "a" {
		t.Fatalf("b and c must never be invoked, got %v", rec.calls)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].Step != "a" {
		t.Fatalf("critical failure must be recorded, got %+v", summary.Failures)
	}
}

func TestNonCriticalFailureContinues(t *testing.T) {
	rec := &recorder{}
	steps := []pipeline.Step{
		rec.step("a", pipeline.Result{Success: false}, nil),
		rec.step("b", ok(), nil),
		rec.step("c", ok(), nil),
	}

	summary := execute(t, steps, pipeline.Options{})
	if summary.Success {
		t.Fatal("run with a failed step must not be successful")
	}
	if len(rec.calls) != 3 {
		t.Fatalf("all siblings must run, got %v", rec.calls)
	}
	if len(summary.Failures) != 0 {
		t.Fatalf("non-critical failure must not enter the exception log, got %+v", summary.Failures)
	}
}

func TestWorkerErrorIsContained(t *testing.T) {
	rec := &recorder{}
	init := rec.step("init", ok(), nil)
	init.Critical = true
	load := rec.step("load", pipeline.Result{}, errors.New("disk on fire"))
	load.Critical = true
	save := rec.step("save", ok(), nil)

	summary := execute(t, []pipeline.Step{init, load, save}, pipeline.Options{})
	if summary.Success {
		t.Fatal("run must not be successful")
	}
	if strings.Join(rec.calls, ",") != "init,load" {
		t.Fatalf("save must never run, got %v", rec.calls)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].Step != "load" {
		t.Fatalf("load must be recorded, got %+v", summary.Failures)
	}
	if !strings.Contains(summary.Failures[0].Err.Error(), "disk on fire") {
		t.Fatalf("original error must be preserved: %v", summary.Failures[0].Err)
	}
	if summary.Failures[0].Stack == "" {
		t.Fatal("failure must carry formatted stack frames")
	}
}

func TestSkipSubstepsRunsNextSibling(t *testing.T) {
	rec := &recorder{}
	x := rec.step("x", pipeline.Result{Success: true, SkipSubsteps: true}, nil)
	x.Substeps = []pipeline.Step{rec.step("y", ok(), nil), rec.step("z", ok(), nil)}
	steps := []pipeline.Step{x, rec.step("w", ok(), nil)}

	summary := execute(t, steps, pipeline.Options{})
	if !summary.Success {
		t.Fatal("run should succeed")
	}
	if strings.Join(rec.calls, ",") != "x,w" {
		t.Fatalf("substeps must be skipped but the sibling must run, got %v", rec.calls)
	}
}

func TestSkipRemainingIsScopedToItsList(t *testing.T) {
	rec := &recorder{}
	sub1 := rec.step("sub1", pipeline.Result{Success: true, SkipRemaining: true}, nil)
	sub2 := rec.step("sub2", ok(), nil)
	parent := rec.step("parent", ok(), nil)
	parent.Substeps = []pipeline.Step{sub1, sub2}
	steps := []pipeline.Step{parent, rec.step("next", ok(), nil)}

	summary := execute(t, steps, pipeline.Options{})
	if !summary.Success {
		t.Fatal("run should succeed")
	}
	if strings.Join(rec.calls, ",") != "parent,sub1,next" {
		t.Fatalf("skip must stop the substep list only, got %v", rec.calls)
	}
}

func TestSkipRemainingSkipsOwnSubsteps(t *testing.T) {
	rec := &recorder{}
	x := rec.step("x", pipeline.Result{Success: true, SkipRemaining: true}, nil)
	x.Substeps = []pipeline.Step{rec.step("y", ok(), nil)}
	steps := []pipeline.Step{x, rec.step("w", ok(), nil)}

	execute(t, steps, pipeline.Options{})
	if strings.Join(rec.calls, ",") != "x" {
		t.Fatalf("skip-remaining must skip substeps and siblings, got %v", rec.calls)
	}
}

func TestSubtreeSuccessIsANDOfOwnAndSubstepResults(t *testing.T) {
	rec := &recorder{}
	parent := rec.step("parent", ok(), nil)
	parent.Substeps = []pipeline.Step{rec.step("sub", pipeline.Result{Success: false}, nil)}

	summary := execute(t, []pipeline.Step{parent}, pipeline.Options{})
	if summary.Success {
		t.Fatal("failed substep must fail the subtree")
	}
}

func TestInstanceSharedAcrossSubstepsAndDiscarded(t *testing.T) {
	type scratch struct{ touched int }
	var seen []*scratch

	work := func(ctx context.Context, inst pipeline.Instance, pc *pipeline.Context) (pipeline.Result, error) {
		s := inst.(*scratch)
		s.touched++
		seen = append(seen, s)
		return ok(), nil
	}
	newStep := func(name string) pipeline.Step {
		return pipeline.Step{
			Name: name,
			New:  func() pipeline.Instance { return &scratch{} },
			Work: work,
			Substeps: []pipeline.Step{
				{Name: name + "_sub", Work: work},
			},
		}
	}

	summary := execute(t, []pipeline.Step{newStep("a"), newStep("b")}, pipeline.Options{})
	if !summary.Success {
		t.Fatal("run should succeed")
	}
	if len(seen) != 4 {
		t.Fatalf("expected four invocations, got %d", len(seen))
	}
	if seen[0] != seen[1] {
		t.Fatal("substep must share its top-level step's instance")
	}
	if seen[1] == seen[2] {
		t.Fatal("next top-level step must get a fresh instance")
	}
	if seen[0].touched != 2 || seen[2].touched != 2 {
		t.Fatalf("instance-local state must accumulate within one subtree: %v %v", seen[0], seen[2])
	}
}

func TestNilWorkerIsReportedNotRaised(t *testing.T) {
	rec := &recorder{}
	steps := []pipeline.Step{{Name: "ghost"}, rec.step("after", ok(), nil)}

	summary := execute(t, steps, pipeline.Options{})
	if summary.Success {
		t.Fatal("run must not be successful")
	}
	if len(summary.Failures) != 1 || summary.Failures[0].Step != "ghost" {
		t.Fatalf("missing worker must be recorded, got %+v", summary.Failures)
	}
}

func TestPanicIsContained(t *testing.T) {
	steps := []pipeline.Step{{
		Name: "boom",
		Work: func(ctx context.Context, inst pipeline.Instance, pc *pipeline.Context) (pipeline.Result, error) {
			panic("unexpected nil")
		},
	}}

	summary := execute(t, steps, pipeline.Options{})
	if summary.Success {
		t.Fatal("run must not be successful")
	}
	if len(summary.Failures) != 1 || !strings.Contains(summary.Failures[0].Err.Error(), "unexpected nil") {
		t.Fatalf("panic must be recorded, got %+v", summary.Failures)
	}
}

func TestFailFastReturnsFirstException(t *testing.T) {
	rec := &recorder{}
	steps := []pipeline.Step{
		rec.step("a", pipeline.Result{}, errors.New("first")),
		rec.step("b", ok(), nil),
	}

	engine := pipeline.New(pipeline.Options{FailFast: true})
	_, err := engine.Execute(context.Background(), pipeline.Run{
		Pipeline: &fakePipeline{name: "test", steps: steps},
	})
	if err == nil || !strings.Contains(err.Error(), "first") {
		t.Fatalf("fail-fast must return the first exception, got %v", err)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("no further step may run, got %v", rec.calls)
	}
}

func TestExceptionLogPersistedAndCleared(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log.traceback")
	failing := []pipeline.Step{{
		Name: "load",
		Work: func(ctx context.Context, inst pipeline.Instance, pc *pipeline.Context) (pipeline.Result, error) {
			return pipeline.Result{}, errors.New("bad visit list")
		},
	}}

	engine := pipeline.New(pipeline.Options{})
	run := pipeline.Run{
		Pipeline:      &fakePipeline{name: "test", steps: failing},
		ExceptionFile: path,
	}

	first, err := engine.Execute(context.Background(), run)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(first.Failures) != 1 {
		t.Fatalf("expected one failure, got %d", len(first.Failures))
	}

	second, err := engine.Execute(context.Background(), run)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(second.Failures) != 1 {
		t.Fatalf("second run must start with a clean log, got %d failures", len(second.Failures))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exception log: %v", err)
	}
	if got := strings.Count(string(data), "bad visit list"); got != 2 {
		t.Fatalf("append-mode log must hold both runs, found %d records", got)
	}
	if !strings.Contains(string(data), "step=load") {
		t.Fatalf("record must name the failing step:\n%s", data)
	}
}

func TestExceptionLogSkippedWhenDirectoryMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workdir", "run.log.traceback")
	failing := []pipeline.Step{{
		Name: "validate",
		Work: func(ctx context.Context, inst pipeline.Instance, pc *pipeline.Context) (pipeline.Result, error) {
			return pipeline.Result{}, errors.New("data directory missing")
		},
	}}

	engine := pipeline.New(pipeline.Options{})
	summary, err := engine.Execute(context.Background(), pipeline.Run{
		Pipeline:      &fakePipeline{name: "test", steps: failing},
		ExceptionFile: path,
	})
	if err != nil {
		t.Fatalf("a missing log directory must not fail the run: %v", err)
	}
	if summary.Success {
		t.Fatal("run must not be successful")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatal("no traceback file may be created when its directory does not exist")
	}
}

func TestStateIsFreshPerExecution(t *testing.T) {
	p := &statefulPipeline{}
	engine := pipeline.New(pipeline.Options{})
	for i := 0; i < 2; i++ {
		summary, err := engine.Execute(context.Background(), pipeline.Run{Pipeline: p})
		if err != nil {
			t.Fatalf("Execute returned error: %v", err)
		}
		if !summary.Success {
			t.Fatal("run should succeed")
		}
	}
	if len(p.states) != 2 || p.states[0] == p.states[1] {
		t.Fatalf("each execution must get a fresh state, got %v", p.states)
	}
}

type statefulPipeline struct {
	states []any
}

func (p *statefulPipeline) Name() string { return "stateful" }
func (p *statefulPipeline) NewState() any {
	s := &struct{ n int }{}
	p.states = append(p.states, s)
	return s
}
func (p *statefulPipeline) Steps() []pipeline.Step {
	return []pipeline.Step{{
		Name: "noop",
		Work: func(ctx context.Context, inst pipeline.Instance, pc *pipeline.Context) (pipeline.Result, error) {
			return pipeline.Result{Success: true}, nil
		},
	}}
}
