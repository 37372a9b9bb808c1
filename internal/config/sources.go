package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// DecodeFile parses a configuration source into a generic map. The format is
// chosen by extension: .toml, .yaml/.yml, or .json/.jsonc (JSON with comment
// and trailing-comma support).
func DecodeFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config source: %w", err)
	}

	result := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	case ".json", ".jsonc":
		standardized, err := hujson.Standardize(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		if err := json.Unmarshal(standardized, &result); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return normalizeTree(result), nil
}

// LoadSources decodes each source file and folds them into one map with
// MergeMaps, in argument order.
func LoadSources(paths []string, allowCollisions bool) (map[string]any, error) {
	merged := map[string]any{}
	for _, path := range paths {
		source, err := DecodeFile(path)
		if err != nil {
			return nil, err
		}
		merged, err = MergeMaps(merged, source, allowCollisions)
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", filepath.Base(path), err)
		}
	}
	return merged, nil
}

// normalizeTree rewrites nested containers so every mapping is a
// map[string]any regardless of the decoder that produced it.
func normalizeTree(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
	return m
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return normalizeTree(val)
	case map[any]any:
		converted := make(map[string]any, len(val))
		for k, inner := range val {
			converted[fmt.Sprint(k)] = normalizeValue(inner)
		}
		return converted
	case []any:
		for i, item := range val {
			val[i] = normalizeValue(item)
		}
		return val
	default:
		return v
	}
}
