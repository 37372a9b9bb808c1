package filter

import (
	"fmt"
	"strings"
)

// StringFilter matches free-form identity parameters such as sky patch names.
type StringFilter struct {
	core[string]
}

// NewString creates a string filter. Ranges compare lexicographically.
func NewString(name string) *StringFilter {
	f := &StringFilter{}
	f.core = core[string]{
		name:     name,
		wildcard: "*",
		parse: func(s string) (string, error) {
			return s, nil
		},
		render: func(v string) string { return v },
		cmp:    strings.Compare,
	}
	return f
}

func (f *StringFilter) Name() string { return f.name }

func (f *StringFilter) Empty() bool { return f.empty() }

func (f *StringFilter) Parse(tokens []string) error {
	return f.parseTokens(tokens, f.parseToken)
}

func (f *StringFilter) ParseValue(token string) (any, error) {
	return token, nil
}

func (f *StringFilter) Match(value any) bool {
	v, ok := value.(string)
	return ok && f.match(v)
}

func (f *StringFilter) MatchString(token string) (bool, error) {
	return f.match(token), nil
}

func (f *StringFilter) Set(values ...any) error {
	f.reset()
	for _, value := range values {
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("filter %s: unsupported value %v (%T)", f.name, value, value)
		}
		f.addScalar(v)
	}
	return nil
}

func (f *StringFilter) GlobPattern() string { return f.globPattern() }

func (f *StringFilter) FormatValue(value any) string {
	if v, ok := value.(string); ok {
		return v
	}
	return fmt.Sprint(value)
}

func (f *StringFilter) String() string { return f.str() }
