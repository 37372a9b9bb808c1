package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"gapipe/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDecodeFileFormats(t *testing.T) {
	dir := t.TempDir()

	yamlPath := writeFile(t, dir, "object.yaml", "object:\n  cat_id: 1\n")
	jsonPath := writeFile(t, dir, "object.json", "{\n  // comment\n  \"rvfit\": {\"enabled\": true},\n}\n")
	tomlPath := writeFile(t, dir, "object.toml", "[coadd]\nenabled = false\n")

	for _, path := range []string{yamlPath, jsonPath, tomlPath} {
		decoded, err := config.DecodeFile(path)
		if err != nil {
			t.Fatalf("DecodeFile(%s): %v", filepath.Base(path), err)
		}
		if len(decoded) != 1 {
			t.Fatalf("unexpected decode result for %s: %#v", filepath.Base(path), decoded)
		}
	}

	if _, err := config.DecodeFile(writeFile(t, dir, "object.ini", "x=1")); err == nil {
		t.Fatal("unknown extension must be rejected")
	}
}

func TestLoadSourcesDeepMerges(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", "object:\n  cat_id: 1\nrvfit:\n  enabled: true\n")
	site := writeFile(t, dir, "site.json", "{\"object\": {\"obj_id\": \"0xbad\"}}\n")

	merged, err := config.LoadSources([]string{base, site}, false)
	if err != nil {
		t.Fatalf("LoadSources returned error: %v", err)
	}
	object, ok := merged["object"].(map[string]any)
	if !ok {
		t.Fatalf("object section missing: %#v", merged)
	}
	if object["cat_id"] == nil || object["obj_id"] == nil {
		t.Fatalf("expected both object keys, got %#v", object)
	}
}

func TestLoadSourcesCollisionControl(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "first.yaml", "rvfit:\n  enabled: true\n")
	second := writeFile(t, dir, "second.yaml", "rvfit:\n  enabled: false\n")

	if _, err := config.LoadSources([]string{first, second}, false); err == nil {
		t.Fatal("expected collision error")
	}

	merged, err := config.LoadSources([]string{first, second}, true)
	if err != nil {
		t.Fatalf("LoadSources returned error: %v", err)
	}
	rvfit := merged["rvfit"].(map[string]any)
	if rvfit["enabled"] != false {
		t.Fatalf("later source must win, got %#v", rvfit)
	}
}
