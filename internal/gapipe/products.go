package gapipe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gapipe/internal/fileutil"
	"gapipe/internal/filter"
	"gapipe/internal/repo"
	"gapipe/internal/services"
)

// Product names known to the GA repository.
const (
	ProductPfsSingle      = "pfsSingle"
	ProductPfsConfig      = "pfsConfig"
	ProductPfsGAObject    = "pfsGAObject"
	ProductGAObjectConfig = "gaObjectConfig"
)

func intParam(name, format string) repo.ParamSpec {
	return repo.ParamSpec{Name: name, New: func() filter.Filter { return filter.NewInt(name, format) }}
}

func hexParam(name string) repo.ParamSpec {
	return repo.ParamSpec{Name: name, New: func() filter.Filter { return filter.NewHex(name, "%016x") }}
}

func stringParam(name string) repo.ParamSpec {
	return repo.ParamSpec{Name: name, New: func() filter.Filter { return filter.NewString(name) }}
}

func dateParam(name string) repo.ParamSpec {
	return repo.ParamSpec{Name: name, New: func() filter.Filter { return filter.NewDate(name) }}
}

// Spectrum is a located per-visit single-object spectrum file. The pixel data
// stays in the file; the fitting tool reads it directly.
type Spectrum struct {
	Identity repo.Identity
	Path     string
	Visit    int64
	Size     int64
}

// NewRegistry registers the GA product descriptors.
func NewRegistry() (*repo.Registry, error) {
	registry := repo.NewRegistry()

	descriptors := []*repo.Descriptor{
		{
			Product: ProductPfsSingle,
			Params: []repo.ParamSpec{
				intParam("catId", "%05d"),
				intParam("tract", "%05d"),
				stringParam("patch"),
				hexParam("objId"),
				intParam("visit", "%06d"),
			},
			PathRegexps: []*regexp.Regexp{
				regexp.MustCompile(`pfsSingle-(?P<catId>\d{5})-(?P<tract>\d{5})-(?P<patch>[^-]+)-(?P<objId>[0-9a-f]{16})-(?P<visit>\d{6})\.fits$`),
			},
			DirFormat:      "$datadir/rerun/$rerundir/pfsSingle/{catId}/{tract}/{patch}",
			FilenameFormat: "pfsSingle-{catId}-{tract}-{patch}-{objId}-{visit}.fits",
			Load:           loadSpectrum,
		},
		{
			// Calibration metadata lives in date-stamped directories; the
			// dated pattern must come first so the date is captured when
			// present.
			Product: ProductPfsConfig,
			Params: []repo.ParamSpec{
				hexParam("pfsDesignId"),
				intParam("visit", "%06d"),
				dateParam("date"),
			},
			PathRegexps: []*regexp.Regexp{
				regexp.MustCompile(`(?P<date>\d{4}-\d{2}-\d{2})/pfsConfig-0x(?P<pfsDesignId>[0-9a-f]{16})-(?P<visit>\d{6})\.fits$`),
				regexp.MustCompile(`pfsConfig-0x(?P<pfsDesignId>[0-9a-f]{16})-(?P<visit>\d{6})\.fits$`),
			},
			DirFormat:      "$datadir/pfsConfig/{date}",
			FilenameFormat: "pfsConfig-0x{pfsDesignId}-{visit}.fits",
			Load:           loadSpectrum,
		},
		{
			Product: ProductPfsGAObject,
			Params: []repo.ParamSpec{
				intParam("catId", "%05d"),
				intParam("tract", "%05d"),
				stringParam("patch"),
				hexParam("objId"),
				intParam("nVisit", "%03d"),
				hexParam("pfsVisitHash"),
			},
			PathRegexps: []*regexp.Regexp{
				regexp.MustCompile(`pfsGAObject-(?P<catId>\d{5})-(?P<tract>\d{5})-(?P<patch>[^-]+)-(?P<objId>[0-9a-f]{16})-(?P<nVisit>\d{3})-0x(?P<pfsVisitHash>[0-9a-f]{16})\.fits$`),
			},
			DirFormat:      "$outdir/$rerundir/pfsGAObject/{catId}/{objId}-{nVisit}-0x{pfsVisitHash}",
			FilenameFormat: "pfsGAObject-{catId}-{tract}-{patch}-{objId}-{nVisit}-0x{pfsVisitHash}.fits",
			Load:           loadSpectrum,
			Save:           saveGAObject,
		},
		{
			// The per-object run configuration snapshot, named like the
			// output product but stored as YAML in the working directory.
			Product: ProductGAObjectConfig,
			Params: []repo.ParamSpec{
				intParam("catId", "%05d"),
				intParam("tract", "%05d"),
				stringParam("patch"),
				hexParam("objId"),
				intParam("nVisit", "%03d"),
				hexParam("pfsVisitHash"),
			},
			PathRegexps: []*regexp.Regexp{
				regexp.MustCompile(`pfsGAObject-(?P<catId>\d{5})-(?P<tract>\d{5})-(?P<patch>[^-]+)-(?P<objId>[0-9a-f]{16})-(?P<nVisit>\d{3})-0x(?P<pfsVisitHash>[0-9a-f]{16})\.yaml$`),
			},
			DirFormat:      "$workdir/$rerundir/pfsGAObject/{catId}/{objId}-{nVisit}-0x{pfsVisitHash}",
			FilenameFormat: "pfsGAObject-{catId}-{tract}-{patch}-{objId}-{nVisit}-0x{pfsVisitHash}.yaml",
			Load:           loadObjectConfigProduct,
			Save:           saveObjectConfigProduct,
		},
	}
	for _, d := range descriptors {
		if err := registry.Register(d); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func loadSpectrum(ctx context.Context, identity repo.Identity, filename, dir string) (any, error) {
	path := filepath.Join(dir, filename)
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	spec := &Spectrum{Identity: identity, Path: path, Size: info.Size()}
	if v, ok := identity.Int("visit"); ok {
		spec.Visit = v
	}
	return spec, nil
}

func loadObjectConfigProduct(ctx context.Context, identity repo.Identity, filename, dir string) (any, error) {
	return LoadObjectConfig([]string{filepath.Join(dir, filename)}, false)
}

func saveObjectConfigProduct(ctx context.Context, identity repo.Identity, data any, filename, dir string) error {
	cfg, ok := data.(*ObjectConfig)
	if !ok {
		return services.Wrap(services.ErrValidation, "repo", "save",
			fmt.Sprintf("expected object configuration, got %T", data), nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return cfg.Save(filepath.Join(dir, filename))
}

// saveGAObject places the co-added spectrum at its canonical location and
// writes the measured parameters as a YAML sidecar next to it. Assembling a
// full FITS product is the fitting tool's job.
func saveGAObject(ctx context.Context, identity repo.Identity, data any, filename, dir string) error {
	obj, ok := data.(*GAObject)
	if !ok {
		return services.Wrap(services.ErrValidation, "repo", "save",
			fmt.Sprintf("expected GA object, got %T", data), nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, filename)
	if err := fileutil.CopyFileVerified(obj.SpectrumPath, path); err != nil {
		return err
	}
	return obj.saveParams(sidecarPath(path))
}

func sidecarPath(path string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)] + ".params.yaml"
}
