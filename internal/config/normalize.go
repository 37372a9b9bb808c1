package config

import "strings"

// normalize expands and absolutizes all path fields.
func (c *Config) normalize() error {
	fields := []*string{
		&c.Paths.DataDir,
		&c.Paths.WorkDir,
		&c.Paths.OutDir,
		&c.Paths.LogDir,
	}
	for _, field := range fields {
		if strings.TrimSpace(*field) == "" {
			continue
		}
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	if strings.TrimSpace(c.Ledger.Path) != "" {
		expanded, err := expandPath(c.Ledger.Path)
		if err != nil {
			return err
		}
		c.Ledger.Path = expanded
	}
	c.Paths.RerunDir = strings.Trim(strings.TrimSpace(c.Paths.RerunDir), "/")
	return nil
}
