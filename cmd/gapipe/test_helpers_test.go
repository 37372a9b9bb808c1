package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	dataDir    string
	fitterPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		dataDir:    filepath.Join(base, "data"),
		fitterPath: writeFakeFitter(t, base),
	}
	writeTestConfig(t, env)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
work_dir = %q
out_dir = %q
rerun_dir = "run21"
log_dir = %q

[logging]
format = "console"
level = "warn"

[fitter]
binary = %q
timeout_seconds = 60
`,
		env.dataDir,
		filepath.Join(env.baseDir, "work"),
		filepath.Join(env.baseDir, "out"),
		filepath.Join(env.baseDir, "logs"),
		env.fitterPath,
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// writeFakeFitter installs a shell stand-in for the fitting tool. The coadd
// branch creates the requested output file so the save step has something to
// place at the canonical location.
func writeFakeFitter(t *testing.T, dir string) string {
	t.Helper()
	script := `#!/bin/sh
case "$1" in
arms)
  cat > /dev/null
  echo '{"arms": ["b", "r", "n"]}'
  ;;
rvfit)
  cat > /dev/null
  echo '{"rv": -17.25, "rv_err": 0.4, "t_eff": 5200, "log_g": 4.1, "m_h": -0.8}'
  ;;
coadd)
  in=$(cat)
  out=$(printf '%s' "$in" | sed -n 's/.*"output_path":"\([^"]*\)".*/\1/p')
  printf 'stacked' > "$out"
  echo '{}'
  ;;
*)
  cat > /dev/null
  echo '{}'
  ;;
esac
`
	path := filepath.Join(dir, "pfsfit")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake fitter: %v", err)
	}
	return path
}

// seedSpectra lays out per-visit input files in the survey data tree.
func seedSpectra(t *testing.T, env *cliTestEnv, visits ...int) {
	t.Helper()
	dir := filepath.Join(env.dataDir, "rerun", "run21", "pfsSingle", "10092", "00001", "1,1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir spectra dir: %v", err)
	}
	for _, visit := range visits {
		name := fmt.Sprintf("pfsSingle-10092-00001-1,1-%016x-%06d.fits", 0x2a, visit)
		if err := os.WriteFile(filepath.Join(dir, name), []byte("spectrum"), 0o644); err != nil {
			t.Fatalf("write spectrum: %v", err)
		}
	}
}

func writeObjectConfig(t *testing.T, env *cliTestEnv, visits ...int) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("object:\n")
	sb.WriteString("  cat_id: 10092\n")
	sb.WriteString("  tract: 1\n")
	sb.WriteString("  patch: \"1,1\"\n")
	sb.WriteString("  obj_id: 0x2a\n")
	sb.WriteString("  visits: [")
	for i, visit := range visits {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d", visit)
	}
	sb.WriteString("]\n")
	sb.WriteString("rvfit:\n  arms: [b, r]\n")
	sb.WriteString("coadd:\n  arms: [b, r]\n")

	path := filepath.Join(env.baseDir, "object.yaml")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatalf("write object config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
