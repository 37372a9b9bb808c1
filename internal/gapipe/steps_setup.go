package gapipe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gapipe/internal/pipeline"
	"gapipe/internal/repo"
	"gapipe/internal/services"
)

// stepValidate checks the object configuration and the input directories
// before anything is created on disk. Output directories may be missing at
// this point; the data directories must not be.
func (p *GAPipeline) stepValidate(ctx context.Context, inst pipeline.Instance, pc *pipeline.Context) (pipeline.Result, error) {
	if err := p.obj.Validate(); err != nil {
		return pipeline.Result{}, err
	}
	dataDir := p.cfg.Paths.DataDir
	if err := requireDir("data", dataDir); err != nil {
		return pipeline.Result{}, err
	}
	if err := requireDir("rerun", filepath.Join(dataDir, "rerun", p.cfg.Paths.RerunDir)); err != nil {
		return pipeline.Result{}, err
	}
	return succeed()
}

// stepInit creates the working directory, takes its lock, and writes the
// configuration snapshot so a postmortem can reproduce the run.
func (p *GAPipeline) stepInit(ctx context.Context, inst pipeline.Instance, pc *pipeline.Context) (pipeline.Result, error) {
	if err := p.workdir.Create(); err != nil {
		return pipeline.Result{}, err
	}
	if err := p.workdir.Lock(); err != nil {
		return pipeline.Result{}, err
	}
	if err := os.MkdirAll(p.cfg.Paths.OutDir, 0o755); err != nil {
		return pipeline.Result{}, services.Wrap(services.ErrTransient, "init", "create output dir", p.cfg.Paths.OutDir, err)
	}
	if _, err := p.repo.Save(ctx, ProductGAObjectConfig, p.identity.ToRepo(), p.obj); err != nil {
		return pipeline.Result{}, err
	}
	return succeed()
}

// stepLoad locates and loads the per-visit input spectra. Every configured
// visit must resolve to exactly one file.
func (p *GAPipeline) stepLoad(ctx context.Context, inst pipeline.Instance, pc *pipeline.Context) (pipeline.Result, error) {
	st := stateOf(pc)
	for _, visit := range p.obj.Object.Visits {
		rid := repo.Identity{
			"catId": p.obj.Object.CatID,
			"tract": p.obj.Object.Tract,
			"patch": p.obj.Object.Patch,
			"objId": p.obj.Object.ObjID,
			"visit": visit,
		}
		data, _, path, err := p.repo.Load(ctx, ProductPfsSingle, "", rid)
		if err != nil {
			return pipeline.Result{}, err
		}
		spec := data.(*Spectrum)
		spec.Visit = visit
		st.Spectra[visit] = spec
		pc.Logger.Debug("input spectrum loaded", "visit", visit, "path", path)
	}
	return succeed()
}

// stepLoadValidate cross-checks every loaded spectrum against the object
// configuration. A mismatch means the repository resolved the wrong file.
func (p *GAPipeline) stepLoadValidate(ctx context.Context, inst pipeline.Instance, pc *pipeline.Context) (pipeline.Result, error) {
	st := stateOf(pc)
	for _, visit := range p.obj.Object.Visits {
		spec, ok := st.Spectra[visit]
		if !ok {
			return pipeline.Result{}, services.Wrap(services.ErrValidation, "load_validate", "",
				fmt.Sprintf("visit %d was not loaded", visit), nil)
		}
		if spec.Size == 0 {
			return pipeline.Result{}, services.Wrap(services.ErrValidation, "load_validate", "",
				fmt.Sprintf("spectrum file %s is empty", spec.Path), nil)
		}
		if catID, ok := spec.Identity.Int("catId"); ok && catID != p.obj.Object.CatID {
			return pipeline.Result{}, services.Wrap(services.ErrValidation, "load_validate", "",
				fmt.Sprintf("catId %d in %s does not match configured %d", catID, spec.Path, p.obj.Object.CatID), nil)
		}
		if objID, ok := spec.Identity.Hex("objId"); ok && objID != p.obj.Object.ObjID {
			return pipeline.Result{}, services.Wrap(services.ErrValidation, "load_validate", "",
				fmt.Sprintf("objId %016x in %s does not match configured %016x", objID, spec.Path, p.obj.Object.ObjID), nil)
		}
		if v, ok := spec.Identity.Int("visit"); ok && v != visit {
			return pipeline.Result{}, services.Wrap(services.ErrValidation, "load_validate", "",
				fmt.Sprintf("visit %d in %s does not match configured %d", v, spec.Path, visit), nil)
		}
	}
	return succeed()
}

func requireDir(label, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "validate", "",
			fmt.Sprintf("%s directory %s is not accessible", label, path), err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrValidation, "validate", "",
			fmt.Sprintf("%s path %s is not a directory", label, path), nil)
	}
	return nil
}
