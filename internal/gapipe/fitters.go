package gapipe

import (
	"context"
	"os"

	"gopkg.in/yaml.v3"
)

// FitRequest describes one radial velocity fit: the object, the spectrum
// files to fit, and the fit settings.
type FitRequest struct {
	Object          Identity `json:"object"`
	Spectra         []string `json:"spectra"`
	Arms            []string `json:"arms"`
	CorrectionModel string   `json:"correction_model,omitempty"`
}

// StellarParams are the measured parameters of one fit.
type StellarParams struct {
	RV    float64  `json:"rv" yaml:"rv"`
	RVErr float64  `json:"rv_err" yaml:"rv_err"`
	TEff  float64  `json:"t_eff" yaml:"t_eff"`
	LogG  float64  `json:"log_g" yaml:"log_g"`
	MH    float64  `json:"m_h" yaml:"m_h"`
	Flags []string `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// CoaddRequest describes one co-addition: the spectra to stack, the arms to
// use, and where to write the stacked spectrum.
type CoaddRequest struct {
	Object     Identity `json:"object"`
	Spectra    []string `json:"spectra"`
	Arms       []string `json:"arms"`
	RV         float64  `json:"rv"`
	OutputPath string   `json:"output_path"`
}

// CoaddResult reports the stacked spectrum location.
type CoaddResult struct {
	SpectrumPath string `json:"spectrum_path"`
}

// AbundanceRequest describes one chemical abundance fit.
type AbundanceRequest struct {
	Object   Identity      `json:"object"`
	Spectra  []string      `json:"spectra"`
	Params   StellarParams `json:"params"`
	Elements []string      `json:"elements,omitempty"`
}

// AbundanceResult maps element symbols to measured abundances.
type AbundanceResult struct {
	Abundances map[string]float64 `json:"abundances"`
}

// TemplateFitter estimates the line-of-sight velocity and stellar parameters
// by maximum-likelihood template fitting. Calls block for the duration of the
// fit.
type TemplateFitter interface {
	// Arms reports which spectrograph arms the given spectrum files cover.
	Arms(ctx context.Context, spectra []string) ([]string, error)
	Fit(ctx context.Context, req FitRequest) (*StellarParams, error)
}

// Coadder stacks per-visit spectra into one co-added spectrum.
type Coadder interface {
	Coadd(ctx context.Context, req CoaddRequest) (*CoaddResult, error)
}

// AbundanceFitter measures chemical abundances given stellar parameters.
type AbundanceFitter interface {
	FitAbundances(ctx context.Context, req AbundanceRequest) (*AbundanceResult, error)
}

// Fitters bundles the external collaborators one run needs.
type Fitters struct {
	Template  TemplateFitter
	Coadder   Coadder
	Abundance AbundanceFitter
}

// GAObject is the assembled output product: identity, measured parameters,
// abundances, and the co-added spectrum to place at the canonical location.
type GAObject struct {
	Identity     Identity           `yaml:"identity"`
	Params       StellarParams      `yaml:"params"`
	Abundances   map[string]float64 `yaml:"abundances,omitempty"`
	SpectrumPath string             `yaml:"-"`
}

func (o *GAObject) saveParams(path string) error {
	data, err := yaml.Marshal(o)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
