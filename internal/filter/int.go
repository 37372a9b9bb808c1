package filter

import (
	"cmp"
	"fmt"
	"strconv"
)

// IntFilter matches decimal integer identity parameters such as catalog IDs,
// tract numbers, and visit numbers.
type IntFilter struct {
	core[int64]
}

// NewInt creates an integer filter. The format is a fmt verb used for
// lossless rendering, typically zero-padded like "%05d".
func NewInt(name, format string) *IntFilter {
	if format == "" {
		format = "%d"
	}
	f := &IntFilter{}
	f.core = core[int64]{
		name:     name,
		wildcard: "*",
		parse: func(s string) (int64, error) {
			return strconv.ParseInt(s, 10, 64)
		},
		render: func(v int64) string {
			return fmt.Sprintf(format, v)
		},
		cmp: cmp.Compare[int64],
	}
	return f
}

func (f *IntFilter) Name() string { return f.name }

func (f *IntFilter) Empty() bool { return f.empty() }

func (f *IntFilter) Parse(tokens []string) error {
	return f.parseTokens(tokens, f.parseToken)
}

func (f *IntFilter) ParseValue(token string) (any, error) {
	v, err := f.parse(token)
	if err != nil {
		return nil, fmt.Errorf("filter %s: parse %q: %w", f.name, token, err)
	}
	return v, nil
}

func (f *IntFilter) Match(value any) bool {
	v, ok := asInt64(value)
	return ok && f.match(v)
}

func (f *IntFilter) MatchString(token string) (bool, error) {
	return f.matchString(token)
}

func (f *IntFilter) Set(values ...any) error {
	f.reset()
	for _, value := range values {
		v, ok := asInt64(value)
		if !ok {
			return fmt.Errorf("filter %s: unsupported value %v (%T)", f.name, value, value)
		}
		f.addScalar(v)
	}
	return nil
}

// SetRange replaces the constraints with a single closed interval.
func (f *IntFilter) SetRange(lo, hi int64) {
	f.reset()
	f.addInterval(lo, hi)
}

func (f *IntFilter) GlobPattern() string { return f.globPattern() }

func (f *IntFilter) FormatValue(value any) string {
	if v, ok := asInt64(value); ok {
		return f.render(v)
	}
	return fmt.Sprint(value)
}

func (f *IntFilter) String() string { return f.str() }

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	default:
		return 0, false
	}
}
