package gapipe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gapipe/internal/pipeline"
	"gapipe/internal/services"
)

// rvfitScratch is shared by the rvfit step and its substeps within one run.
type rvfitScratch struct {
	arms    []string
	spectra []string
	request FitRequest
}

// stepRVFitValidate decides whether and with which arms the fit runs. A
// disabled fit skips the whole substep list; a missing required arm fails the
// subtree.
func (p *GAPipeline) stepRVFitValidate(ctx context.Context, inst pipeline.Instance, pc *pipeline.Context) (pipeline.Result, error) {
	if !p.obj.RVFit.Enabled {
		pc.Logger.Info("radial velocity fitting is disabled, skipping")
		return pipeline.Result{Success: true, SkipSubsteps: true}, nil
	}
	scratch := inst.(*rvfitScratch)
	st := stateOf(pc)

	avail, err := p.fitters.Template.Arms(ctx, st.spectrumPaths(p.obj.Object.Visits))
	if err != nil {
		return pipeline.Result{}, err
	}
	observed := make(map[string]struct{}, len(avail))
	for _, arm := range avail {
		observed[arm] = struct{}{}
	}

	scratch.arms = scratch.arms[:0]
	for _, arm := range p.obj.RVFit.Arms {
		if _, ok := observed[arm]; !ok {
			if p.obj.RVFit.RequireAllArms {
				return pipeline.Result{}, services.Wrap(services.ErrValidation, "rvfit", "",
					fmt.Sprintf("required arm %q is not observed", arm), nil)
			}
			pc.Logger.Warn("configured arm is not observed", "arm", arm)
			continue
		}
		scratch.arms = append(scratch.arms, arm)
	}
	if len(scratch.arms) == 0 {
		return pipeline.Result{}, services.Wrap(services.ErrValidation, "rvfit", "",
			"none of the configured arms are observed", nil)
	}
	return succeed()
}

func (p *GAPipeline) stepRVFitLoad(ctx context.Context, inst pipeline.Instance, pc *pipeline.Context) (pipeline.Result, error) {
	scratch := inst.(*rvfitScratch)
	st := stateOf(pc)

	scratch.spectra = st.spectrumPaths(p.obj.Object.Visits)
	if len(scratch.spectra) == 0 {
		return pipeline.Result{}, services.Wrap(services.ErrValidation, "rvfit_load", "",
			"no spectra available for fitting", nil)
	}
	return succeed()
}

// stepRVFitPreprocess assembles the fit request. The heavy preprocessing
// (resampling, masking, SNR weighting) happens inside the fitting tool; this
// side only guarantees the inputs are real files.
func (p *GAPipeline) stepRVFitPreprocess(ctx context.Context, inst pipeline.Instance, pc *pipeline.Context) (pipeline.Result, error) {
	scratch := inst.(*rvfitScratch)
	for _, path := range scratch.spectra {
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			return pipeline.Result{}, services.Wrap(services.ErrValidation, "rvfit_preprocess", "",
				fmt.Sprintf("spectrum file %s is missing or empty", path), err)
		}
	}
	scratch.request = FitRequest{
		Object:          p.identity,
		Spectra:         scratch.spectra,
		Arms:            scratch.arms,
		CorrectionModel: p.obj.RVFit.CorrectionModel,
	}
	return succeed()
}

func (p *GAPipeline) stepRVFitFit(ctx context.Context, inst pipeline.Instance, pc *pipeline.Context) (pipeline.Result, error) {
	scratch := inst.(*rvfitScratch)
	st := stateOf(pc)

	params, err := p.fitters.Template.Fit(ctx, scratch.request)
	if err != nil {
		return pipeline.Result{}, err
	}
	st.RVFitParams = params
	pc.Logger.Info("radial velocity fit completed",
		"rv", params.RV, "rv_err", params.RVErr, "t_eff", params.TEff)
	return succeed()
}

// stepRVFitCoadd stacks the spectra at the fitted velocity. Non-critical: a
// failed co-add still leaves usable stellar parameters.
func (p *GAPipeline) stepRVFitCoadd(ctx context.Context, inst pipeline.Instance, pc *pipeline.Context) (pipeline.Result, error) {
	if !p.obj.Coadd.Enabled {
		pc.Logger.Info("co-addition is disabled, skipping")
		return succeed()
	}
	scratch := inst.(*rvfitScratch)
	st := stateOf(pc)
	if st.RVFitParams == nil {
		return pipeline.Result{}, services.Wrap(services.ErrValidation, "rvfit_coadd", "",
			"no fitted velocity available", nil)
	}

	result, err := p.fitters.Coadder.Coadd(ctx, CoaddRequest{
		Object:     p.identity,
		Spectra:    scratch.spectra,
		Arms:       p.obj.Coadd.Arms,
		RV:         st.RVFitParams.RV,
		OutputPath: filepath.Join(p.workdir.Dir, "coadd.fits"),
	})
	if err != nil {
		return pipeline.Result{}, err
	}
	st.Coadd = result
	return succeed()
}

func (p *GAPipeline) stepRVFitCleanup(ctx context.Context, inst pipeline.Instance, pc *pipeline.Context) (pipeline.Result, error) {
	scratch := inst.(*rvfitScratch)
	scratch.spectra = nil
	scratch.request = FitRequest{}
	return succeed()
}
