package repo

import (
	"fmt"
	"os"
	"regexp"

	"gapipe/internal/services"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandTemplate substitutes {param} placeholders from the fragment table,
// then resolves $variable references against the variable table and finally
// the environment. An unknown placeholder is a configuration error since the
// descriptor and its parameter list disagree.
func expandTemplate(template string, fragments map[string]string, variables map[string]string) (string, error) {
	var missing string
	expanded := placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := token[1 : len(token)-1]
		fragment, ok := fragments[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return token
		}
		return fragment
	})
	if missing != "" {
		return "", services.Wrap(services.ErrConfiguration, "repo", "expand template",
			fmt.Sprintf("template references unknown parameter %q", missing), nil)
	}
	return os.Expand(expanded, func(name string) string {
		if v, ok := variables[name]; ok {
			return v
		}
		return os.Getenv(name)
	}), nil
}
