package gapipe

import (
	"context"
	"os"
	"path/filepath"

	"gapipe/internal/pipeline"
	"gapipe/internal/services"
)

// stepChemFit measures chemical abundances at the fitted stellar parameters.
func (p *GAPipeline) stepChemFit(ctx context.Context, inst pipeline.Instance, pc *pipeline.Context) (pipeline.Result, error) {
	if !p.obj.ChemFit.Enabled {
		pc.Logger.Info("abundance fitting is disabled, skipping")
		return pipeline.Result{Success: true, SkipSubsteps: true}, nil
	}
	st := stateOf(pc)
	if st.RVFitParams == nil {
		return pipeline.Result{}, services.Wrap(services.ErrValidation, "chemfit", "",
			"no stellar parameters available for abundance fitting", nil)
	}

	result, err := p.fitters.Abundance.FitAbundances(ctx, AbundanceRequest{
		Object:   p.identity,
		Spectra:  st.spectrumPaths(p.obj.Object.Visits),
		Params:   *st.RVFitParams,
		Elements: p.obj.ChemFit.Elements,
	})
	if err != nil {
		return pipeline.Result{}, err
	}
	st.Abundances = result
	return succeed()
}

// stepSave assembles the output product and writes it to its canonical
// location through the repository.
func (p *GAPipeline) stepSave(ctx context.Context, inst pipeline.Instance, pc *pipeline.Context) (pipeline.Result, error) {
	st := stateOf(pc)
	if st.RVFitParams == nil || st.Coadd == nil {
		return pipeline.Result{}, services.Wrap(services.ErrValidation, "save", "",
			"fit results are incomplete, nothing to save", nil)
	}

	st.Output = &GAObject{
		Identity:     p.identity,
		Params:       *st.RVFitParams,
		SpectrumPath: st.Coadd.SpectrumPath,
	}
	if st.Abundances != nil {
		st.Output.Abundances = st.Abundances.Abundances
	}

	path, err := p.repo.Save(ctx, ProductPfsGAObject, p.identity.ToRepo(), st.Output)
	if err != nil {
		return pipeline.Result{}, err
	}
	st.OutputPath = path
	pc.Logger.Info("output product saved", "path", path)
	return succeed()
}

// stepCleanup removes intermediate files and releases the workdir lock.
func (p *GAPipeline) stepCleanup(ctx context.Context, inst pipeline.Instance, pc *pipeline.Context) (pipeline.Result, error) {
	st := stateOf(pc)
	if st.Coadd != nil && st.OutputPath != "" && st.Coadd.SpectrumPath != st.OutputPath {
		if filepath.Dir(st.Coadd.SpectrumPath) == p.workdir.Dir {
			if err := os.Remove(st.Coadd.SpectrumPath); err != nil && !os.IsNotExist(err) {
				pc.Logger.Warn("failed to remove intermediate spectrum", "path", st.Coadd.SpectrumPath)
			}
		}
	}
	if err := p.workdir.Unlock(); err != nil {
		return pipeline.Result{}, err
	}
	return succeed()
}
