package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"gapipe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The rerun directory under the data root is created so validation passes.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.OutDir = filepath.Join(base, "out")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.RerunDir = "testrun"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	rerun := filepath.Join(builder.cfg.Paths.DataDir, "rerun", builder.cfg.Paths.RerunDir)
	if err := os.MkdirAll(rerun, 0o755); err != nil {
		t.Fatalf("mkdir rerun dir: %v", err)
	}

	return builder.cfg
}

// WithRerun overrides the rerun directory name on the test config.
func WithRerun(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.RerunDir = name
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
