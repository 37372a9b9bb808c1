package gapipe

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gapipe/internal/config"
	"gapipe/internal/services"
)

// TargetConfig names the object being processed and its visits.
type TargetConfig struct {
	CatID  int64   `yaml:"cat_id"`
	Tract  int64   `yaml:"tract"`
	Patch  string  `yaml:"patch"`
	ObjID  uint64  `yaml:"obj_id"`
	Visits []int64 `yaml:"visits"`
}

// RVFitConfig controls the radial velocity fitting stage.
type RVFitConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Arms            []string `yaml:"arms"`
	RequireAllArms  bool     `yaml:"require_all_arms"`
	CorrectionModel string   `yaml:"correction_model"`
}

// CoaddConfig controls spectrum co-addition.
type CoaddConfig struct {
	Enabled bool     `yaml:"enabled"`
	Arms    []string `yaml:"arms"`
}

// ChemFitConfig controls chemical abundance fitting.
type ChemFitConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Elements []string `yaml:"elements"`
}

// ObjectConfig is the per-object pipeline configuration, assembled by
// deep-merging one or more source files (YAML, JSON with comments, or TOML,
// chosen by extension).
type ObjectConfig struct {
	Object   TargetConfig  `yaml:"object"`
	RerunDir string        `yaml:"rerundir,omitempty"`
	RVFit    RVFitConfig   `yaml:"rvfit"`
	Coadd    CoaddConfig   `yaml:"coadd"`
	ChemFit  ChemFitConfig `yaml:"chemfit"`
}

// DefaultObjectConfig returns the baseline the source files override.
func DefaultObjectConfig() *ObjectConfig {
	return &ObjectConfig{
		RVFit: RVFitConfig{
			Enabled:         true,
			Arms:            []string{"b", "r", "n"},
			RequireAllArms:  false,
			CorrectionModel: "fluxcorr",
		},
		Coadd: CoaddConfig{
			Enabled: true,
			Arms:    []string{"b", "r", "n"},
		},
		ChemFit: ChemFitConfig{Enabled: false},
	}
}

// LoadObjectConfig deep-merges the source files over the defaults and
// decodes the result strictly: unknown keys are rejected here, at the single
// validation boundary, rather than scattered through the steps.
func LoadObjectConfig(paths []string, allowCollisions bool) (*ObjectConfig, error) {
	if len(paths) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "objectconfig", "load",
			"no configuration source given", nil)
	}
	merged, err := config.LoadSources(paths, allowCollisions)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "objectconfig", "load", "", err)
	}

	cfg := DefaultObjectConfig()
	data, err := yaml.Marshal(merged)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "objectconfig", "load", "re-encode merged tree", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "objectconfig", "load", "decode merged tree", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the steps rely on.
func (c *ObjectConfig) Validate() error {
	if len(c.Object.Visits) == 0 {
		return services.Wrap(services.ErrValidation, "objectconfig", "validate",
			"object declares no visits", nil)
	}
	seen := make(map[int64]struct{}, len(c.Object.Visits))
	for _, v := range c.Object.Visits {
		if v <= 0 {
			return services.Wrap(services.ErrValidation, "objectconfig", "validate",
				fmt.Sprintf("visit %d is not a valid visit number", v), nil)
		}
		if _, dup := seen[v]; dup {
			return services.Wrap(services.ErrValidation, "objectconfig", "validate",
				fmt.Sprintf("visit %d listed twice", v), nil)
		}
		seen[v] = struct{}{}
	}
	if c.Object.Patch == "" {
		return services.Wrap(services.ErrValidation, "objectconfig", "validate",
			"object patch is empty", nil)
	}
	if c.RVFit.Enabled && len(c.RVFit.Arms) == 0 {
		return services.Wrap(services.ErrValidation, "objectconfig", "validate",
			"rvfit is enabled but no arms are configured", nil)
	}
	if c.Coadd.Enabled && len(c.Coadd.Arms) == 0 {
		return services.Wrap(services.ErrValidation, "objectconfig", "validate",
			"coadd is enabled but no arms are configured", nil)
	}
	return nil
}

// Identity derives the object's canonical identity. The visit count and hash
// are computed from the visit list.
func (c *ObjectConfig) Identity() Identity {
	return Identity{
		CatID:     c.Object.CatID,
		Tract:     c.Object.Tract,
		Patch:     c.Object.Patch,
		ObjID:     c.Object.ObjID,
		NVisit:    WraparoundNVisit(len(c.Object.Visits)),
		VisitHash: CalculateVisitHash(c.Object.Visits),
	}
}

// Save writes the configuration as YAML, used for the run snapshot.
func (c *ObjectConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "objectconfig", "save", "encode", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "objectconfig", "save", path, err)
	}
	return nil
}
