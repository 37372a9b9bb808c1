package config

import (
	"os"
	"strings"
)

const (
	defaultDataDir              = "~/data/pfs"
	defaultWorkDir              = "~/.local/share/gapipe/work"
	defaultOutDir               = "~/.local/share/gapipe/out"
	defaultLogDir               = "~/.local/share/gapipe/logs"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultFitterBinary         = "pfsfit"
	defaultFitterTimeoutSeconds = 3600
)

// Environment overrides honored by Default. These mirror the variable table
// used in product templates.
const (
	EnvDataDir  = "GAPIPE_DATADIR"
	EnvWorkDir  = "GAPIPE_WORKDIR"
	EnvOutDir   = "GAPIPE_OUTDIR"
	EnvRerunDir = "GAPIPE_RERUNDIR"
)

// Default returns the built-in configuration, with directory roots taken
// from the GAPIPE_* environment variables when set.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  envOr(EnvDataDir, defaultDataDir),
			WorkDir:  envOr(EnvWorkDir, defaultWorkDir),
			OutDir:   envOr(EnvOutDir, defaultOutDir),
			RerunDir: envOr(EnvRerunDir, ""),
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Pipeline: Pipeline{
			FailFast:     false,
			TraceEnabled: true,
		},
		Ledger: Ledger{
			Enabled: true,
		},
		Fitter: Fitter{
			Binary:         defaultFitterBinary,
			TimeoutSeconds: defaultFitterTimeoutSeconds,
		},
	}
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
