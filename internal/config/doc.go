// Package config owns application configuration: the TOML config file with
// its defaults, normalization, and validation, plus the multi-source loader
// used for per-object pipeline configurations (TOML, YAML, and JSON with
// comments) with recursive deep-merge semantics.
package config
