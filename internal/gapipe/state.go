package gapipe

// State is the pipeline-owned scratch space for one run. It is created fresh
// per execution and discarded afterwards; only the steps touch it.
type State struct {
	// Spectra holds the loaded per-visit spectra keyed by visit number.
	Spectra map[int64]*Spectrum

	// Radial velocity fitting results.
	RVFitParams *StellarParams

	// Co-addition results.
	Coadd *CoaddResult

	// Chemical abundance results.
	Abundances *AbundanceResult

	// Output assembly.
	Output     *GAObject
	OutputPath string
}

// spectrumPaths returns the loaded spectrum file locations in visit order.
func (s *State) spectrumPaths(visits []int64) []string {
	paths := make([]string, 0, len(s.Spectra))
	for _, visit := range visits {
		if spec, ok := s.Spectra[visit]; ok {
			paths = append(paths, spec.Path)
		}
	}
	return paths
}
