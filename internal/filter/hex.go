package filter

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// HexFilter matches hexadecimal identity parameters such as object IDs and
// visit hashes.
type HexFilter struct {
	core[uint64]
}

// NewHex creates a hex filter. The format is a fmt verb used for lossless
// rendering, typically fixed width like "%016x". Tokens may carry an
// optional "0x" prefix.
func NewHex(name, format string) *HexFilter {
	if format == "" {
		format = "%x"
	}
	f := &HexFilter{}
	f.core = core[uint64]{
		name:     name,
		wildcard: "*",
		parse: func(s string) (uint64, error) {
			s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
			return strconv.ParseUint(s, 16, 64)
		},
		render: func(v uint64) string {
			return fmt.Sprintf(format, v)
		},
		cmp: cmp.Compare[uint64],
	}
	return f
}

func (f *HexFilter) Name() string { return f.name }

func (f *HexFilter) Empty() bool { return f.empty() }

func (f *HexFilter) Parse(tokens []string) error {
	return f.parseTokens(tokens, f.parseToken)
}

func (f *HexFilter) ParseValue(token string) (any, error) {
	v, err := f.parse(token)
	if err != nil {
		return nil, fmt.Errorf("filter %s: parse %q: %w", f.name, token, err)
	}
	return v, nil
}

func (f *HexFilter) Match(value any) bool {
	v, ok := asUint64(value)
	return ok && f.match(v)
}

func (f *HexFilter) MatchString(token string) (bool, error) {
	return f.matchString(token)
}

func (f *HexFilter) Set(values ...any) error {
	f.reset()
	for _, value := range values {
		v, ok := asUint64(value)
		if !ok {
			return fmt.Errorf("filter %s: unsupported value %v (%T)", f.name, value, value)
		}
		f.addScalar(v)
	}
	return nil
}

// SetRange replaces the constraints with a single closed interval.
func (f *HexFilter) SetRange(lo, hi uint64) {
	f.reset()
	f.addInterval(lo, hi)
}

func (f *HexFilter) GlobPattern() string { return f.globPattern() }

func (f *HexFilter) FormatValue(value any) string {
	if v, ok := asUint64(value); ok {
		return f.render(v)
	}
	return fmt.Sprint(value)
}

func (f *HexFilter) String() string { return f.str() }

func asUint64(value any) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
