package gapipe_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gapipe/internal/config"
	"gapipe/internal/gapipe"
	"gapipe/internal/pipeline"
	"gapipe/internal/repo"
	"gapipe/internal/testsupport"
)

type fakeFitter struct {
	arms       []string
	fitCalls   int
	coaddCalls int
	chemCalls  int
}

func (f *fakeFitter) Arms(ctx context.Context, spectra []string) ([]string, error) {
	return f.arms, nil
}

func (f *fakeFitter) Fit(ctx context.Context, req gapipe.FitRequest) (*gapipe.StellarParams, error) {
	f.fitCalls++
	if len(req.Spectra) == 0 {
		return nil, fmt.Errorf("no spectra in request")
	}
	return &gapipe.StellarParams{RV: -42.5, RVErr: 0.8, TEff: 5777, LogG: 4.4, MH: -0.3}, nil
}

func (f *fakeFitter) Coadd(ctx context.Context, req gapipe.CoaddRequest) (*gapipe.CoaddResult, error) {
	f.coaddCalls++
	if err := os.WriteFile(req.OutputPath, []byte("coadded spectrum"), 0o644); err != nil {
		return nil, err
	}
	return &gapipe.CoaddResult{SpectrumPath: req.OutputPath}, nil
}

func (f *fakeFitter) FitAbundances(ctx context.Context, req gapipe.AbundanceRequest) (*gapipe.AbundanceResult, error) {
	f.chemCalls++
	return &gapipe.AbundanceResult{Abundances: map[string]float64{"Fe": -0.31}}, nil
}

type testRun struct {
	cfg    *config.Config
	obj    *gapipe.ObjectConfig
	repo   *repo.Repository
	fitter *fakeFitter
}

func setupRun(t *testing.T, visits []int64) *testRun {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithRerun("run21"))

	obj := gapipe.DefaultObjectConfig()
	obj.Object = gapipe.TargetConfig{
		CatID:  10092,
		Tract:  1,
		Patch:  "1,1",
		ObjID:  0x2a,
		Visits: visits,
	}
	obj.RVFit.Arms = []string{"b", "r"}
	obj.Coadd.Arms = []string{"b", "r"}

	// Lay out the input spectra the way the survey data tree does.
	specDir := filepath.Join(cfg.Paths.DataDir, "rerun", "run21", "pfsSingle", "10092", "00001", "1,1")
	for _, visit := range visits {
		name := fmt.Sprintf("pfsSingle-10092-00001-1,1-%016x-%06d.fits", 0x2a, visit)
		testsupport.WriteSpectrum(t, filepath.Join(specDir, name), 64)
	}

	registry, err := gapipe.NewRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return &testRun{
		cfg:    cfg,
		obj:    obj,
		repo:   repo.NewRepository(registry, cfg.Variables(), nil),
		fitter: &fakeFitter{arms: []string{"b", "r", "n"}},
	}
}

func executeRun(t *testing.T, tr *testRun) (pipeline.Summary, *gapipe.GAPipeline) {
	t.Helper()
	fitters := gapipe.Fitters{Template: tr.fitter, Coadder: tr.fitter, Abundance: tr.fitter}
	p, err := gapipe.New(tr.cfg, tr.obj, tr.repo, fitters, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })

	engine := pipeline.New(pipeline.Options{})
	summary, err := engine.Execute(context.Background(), pipeline.Run{
		Pipeline:      p,
		Config:        tr.obj,
		Repo:          tr.repo,
		ExceptionFile: p.Workdir().TracebackFile(),
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	return summary, p
}

func TestPipelineEndToEnd(t *testing.T) {
	tr := setupRun(t, []int64{1001, 1002})
	summary, p := executeRun(t, tr)

	if !summary.Success {
		t.Fatalf("run failed: %+v", summary.Failures)
	}
	if tr.fitter.fitCalls != 1 || tr.fitter.coaddCalls != 1 {
		t.Fatalf("fitter must be called once per stage: fit=%d coadd=%d", tr.fitter.fitCalls, tr.fitter.coaddCalls)
	}
	if tr.fitter.chemCalls != 0 {
		t.Fatal("chemfit is disabled by default")
	}

	// Output product at its canonical location, with the params sidecar.
	outPath, err := tr.repo.ProductPath(gapipe.ProductPfsGAObject, p.Identity().ToRepo())
	if err != nil {
		t.Fatalf("product path: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("output product missing: %v", err)
	}
	if string(data) != "coadded spectrum" {
		t.Fatalf("unexpected output content: %q", data)
	}
	sidecar := strings.TrimSuffix(outPath, ".fits") + ".params.yaml"
	params, err := os.ReadFile(sidecar)
	if err != nil {
		t.Fatalf("params sidecar missing: %v", err)
	}
	if !strings.Contains(string(params), "rv: -42.5") {
		t.Fatalf("sidecar must carry the fitted parameters:\n%s", params)
	}

	// Configuration snapshot in the working directory.
	if _, err := os.Stat(p.Workdir().SnapshotFile); err != nil {
		t.Fatalf("config snapshot missing: %v", err)
	}

	// Intermediate co-add removed by cleanup.
	if _, err := os.Stat(filepath.Join(p.Workdir().Dir, "coadd.fits")); !os.IsNotExist(err) {
		t.Fatal("intermediate co-add must be removed")
	}
}

func TestPipelineMissingVisitFailsEarly(t *testing.T) {
	tr := setupRun(t, []int64{1001})
	tr.obj.Object.Visits = []int64{1001, 1002} // 1002 has no file on disk

	summary, _ := executeRun(t, tr)
	if summary.Success {
		t.Fatal("run must fail when an input is missing")
	}
	if len(summary.Failures) != 1 || summary.Failures[0].Step != "load" {
		t.Fatalf("load must be the recorded failure: %+v", summary.Failures)
	}
	if tr.fitter.fitCalls != 0 {
		t.Fatal("fitting must never start without inputs")
	}
}

func TestPipelineChemfitEnabled(t *testing.T) {
	tr := setupRun(t, []int64{1001, 1002})
	tr.obj.ChemFit.Enabled = true
	tr.obj.ChemFit.Elements = []string{"Fe", "Mg"}

	summary, p := executeRun(t, tr)
	if !summary.Success {
		t.Fatalf("run failed: %+v", summary.Failures)
	}
	if tr.fitter.chemCalls != 1 {
		t.Fatalf("chemfit must run once, got %d", tr.fitter.chemCalls)
	}

	outPath, err := tr.repo.ProductPath(gapipe.ProductPfsGAObject, p.Identity().ToRepo())
	if err != nil {
		t.Fatalf("product path: %v", err)
	}
	sidecar := strings.TrimSuffix(outPath, ".fits") + ".params.yaml"
	params, err := os.ReadFile(sidecar)
	if err != nil {
		t.Fatalf("params sidecar missing: %v", err)
	}
	if !strings.Contains(string(params), "Fe:") {
		t.Fatalf("abundances must be saved:\n%s", params)
	}
}

func TestPipelineRVFitDisabledSkipsSubsteps(t *testing.T) {
	tr := setupRun(t, []int64{1001})
	tr.obj.RVFit.Enabled = false

	summary, _ := executeRun(t, tr)
	// Save fails without fit results, but non-critically: the run completes.
	if summary.Success {
		t.Fatal("run without results cannot fully succeed")
	}
	if tr.fitter.fitCalls != 0 || tr.fitter.coaddCalls != 0 {
		t.Fatal("disabled rvfit must not touch the fitter")
	}
}

func TestPipelineMissingRequiredArmFails(t *testing.T) {
	tr := setupRun(t, []int64{1001})
	tr.fitter.arms = []string{"b"}
	tr.obj.RVFit.RequireAllArms = true

	summary, _ := executeRun(t, tr)
	if summary.Success {
		t.Fatal("run must fail when a required arm is missing")
	}
	found := false
	for _, rec := range summary.Failures {
		if rec.Step == "rvfit" {
			found = true
		}
	}
	if !found {
		t.Fatalf("rvfit must be the recorded failure: %+v", summary.Failures)
	}
	if tr.fitter.fitCalls != 0 {
		t.Fatal("fit must never start with a missing required arm")
	}
}

func TestPipelineValidationFailureCreatesNoWorkdir(t *testing.T) {
	tr := setupRun(t, []int64{1001})
	tr.cfg.Paths.DataDir = filepath.Join(tr.cfg.Paths.DataDir, "nonexistent")

	summary, p := executeRun(t, tr)
	if summary.Success {
		t.Fatal("run must fail when the data directory is missing")
	}
	if len(summary.Failures) != 1 || summary.Failures[0].Step != "validate" {
		t.Fatalf("validate must be the recorded failure: %+v", summary.Failures)
	}
	if _, err := os.Stat(p.Workdir().Dir); !os.IsNotExist(err) {
		t.Fatal("failed validation must not create the working directory")
	}
	if _, err := os.Stat(p.Workdir().TracebackFile()); !os.IsNotExist(err) {
		t.Fatal("failed validation must not leave a traceback file")
	}
}

func TestPipelineTracebackFileWritten(t *testing.T) {
	tr := setupRun(t, []int64{1001})
	tr.obj.Object.Visits = []int64{1001, 4242}

	_, p := executeRun(t, tr)
	data, err := os.ReadFile(p.Workdir().TracebackFile())
	if err != nil {
		t.Fatalf("traceback file missing: %v", err)
	}
	if !strings.Contains(string(data), "step=load") {
		t.Fatalf("traceback must record the failing step:\n%s", data)
	}
}
