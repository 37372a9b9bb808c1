package gapipe

import (
	"log/slog"

	"gapipe/internal/config"
	"gapipe/internal/logging"
	"gapipe/internal/pipeline"
	"gapipe/internal/repo"
)

// PipelineName is the ledger and log identifier of this pipeline.
const PipelineName = "gapipe"

// GAPipeline processes all exposures of a single object and produces a
// pfsGAObject: measured stellar parameters plus a co-added spectrum.
type GAPipeline struct {
	cfg      *config.Config
	obj      *ObjectConfig
	repo     *repo.Repository
	fitters  Fitters
	workdir  *Workdir
	identity Identity
	logger   *slog.Logger
}

func New(cfg *config.Config, obj *ObjectConfig, repository *repo.Repository, fitters Fitters, logger *slog.Logger) (*GAPipeline, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	identity := obj.Identity()
	workdir, err := NewWorkdir(repository, identity)
	if err != nil {
		return nil, err
	}
	return &GAPipeline{
		cfg:      cfg,
		obj:      obj,
		repo:     repository,
		fitters:  fitters,
		workdir:  workdir,
		identity: identity,
		logger:   logger.With(logging.FieldComponent, "gapipe", logging.FieldObject, identity.String()),
	}, nil
}

func (p *GAPipeline) Name() string { return PipelineName }

func (p *GAPipeline) Identity() Identity { return p.identity }

func (p *GAPipeline) Workdir() *Workdir { return p.workdir }

func (p *GAPipeline) NewState() any {
	return &State{Spectra: make(map[int64]*Spectrum)}
}

// Close releases run resources that survive the engine's state teardown,
// most importantly the working directory lock when a failed run skipped the
// cleanup step.
func (p *GAPipeline) Close() error {
	return p.workdir.Unlock()
}

// Steps declares the step tree. Criticality mirrors the processing
// dependencies: nothing works without validation, initialization, and input
// loading; the fitting stages degrade gracefully so one bad object still
// yields a postmortem trail.
func (p *GAPipeline) Steps() []pipeline.Step {
	return []pipeline.Step{
		{Name: "validate", Critical: true, Work: p.stepValidate},
		{Name: "init", Critical: true, Work: p.stepInit},
		{
			Name: "load", Critical: true, Work: p.stepLoad,
			Substeps: []pipeline.Step{
				{Name: "load_validate", Critical: true, Work: p.stepLoadValidate},
			},
		},
		{
			Name: "rvfit", Critical: false, Work: p.stepRVFitValidate,
			New: func() pipeline.Instance { return &rvfitScratch{} },
			Substeps: []pipeline.Step{
				{Name: "rvfit_load", Critical: true, Work: p.stepRVFitLoad},
				{Name: "rvfit_preprocess", Critical: true, Work: p.stepRVFitPreprocess},
				{Name: "rvfit_fit", Critical: true, Work: p.stepRVFitFit},
				{Name: "rvfit_coadd", Critical: false, Work: p.stepRVFitCoadd},
				{Name: "rvfit_cleanup", Critical: true, Work: p.stepRVFitCleanup},
			},
		},
		{Name: "chemfit", Critical: false, Work: p.stepChemFit},
		{Name: "save", Critical: false, Work: p.stepSave},
		{Name: "cleanup", Critical: false, Work: p.stepCleanup},
	}
}

// stateOf recovers the typed state from the engine context.
func stateOf(pc *pipeline.Context) *State {
	return pc.State.(*State)
}

func succeed() (pipeline.Result, error) {
	return pipeline.Result{Success: true}, nil
}
