package filter

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// DateFilter matches ISO calendar dates embedded in observation directory
// names. Dates themselves contain the range separator, so a token is only
// treated as a range when it contains exactly five dashes (two 3-part ISO
// dates joined by a dash); any other dash count parses as one date.
type DateFilter struct {
	core[time.Time]
}

// NewDate creates a date filter. Values are UTC midnights.
func NewDate(name string) *DateFilter {
	f := &DateFilter{}
	f.core = core[time.Time]{
		name:     name,
		wildcard: "????-??-??",
		parse: func(s string) (time.Time, error) {
			return time.ParseInLocation(dateLayout, s, time.UTC)
		},
		render: func(v time.Time) string {
			return v.Format(dateLayout)
		},
		cmp: func(a, b time.Time) int { return a.Compare(b) },
	}
	return f
}

func (f *DateFilter) Name() string { return f.name }

func (f *DateFilter) Empty() bool { return f.empty() }

func (f *DateFilter) Parse(tokens []string) error {
	return f.parseTokens(tokens, f.parseDateToken)
}

func (f *DateFilter) parseDateToken(token string) (term[time.Time], error) {
	if strings.Count(token, "-") == 5 {
		parts := strings.Split(token, "-")
		loStr := strings.Join(parts[:3], "-")
		hiStr := strings.Join(parts[3:], "-")
		lo, err := f.parse(loStr)
		if err != nil {
			return term[time.Time]{}, fmt.Errorf("filter %s: parse %q: %w", f.name, token, err)
		}
		hi, err := f.parse(hiStr)
		if err != nil {
			return term[time.Time]{}, fmt.Errorf("filter %s: parse %q: %w", f.name, token, err)
		}
		return term[time.Time]{lo: lo, hi: hi, interval: true}, nil
	}
	v, err := f.parse(token)
	if err != nil {
		return term[time.Time]{}, fmt.Errorf("filter %s: parse %q: %w", f.name, token, err)
	}
	return term[time.Time]{lo: v, hi: v}, nil
}

func (f *DateFilter) ParseValue(token string) (any, error) {
	v, err := f.parse(token)
	if err != nil {
		return nil, fmt.Errorf("filter %s: parse %q: %w", f.name, token, err)
	}
	return v, nil
}

func (f *DateFilter) Match(value any) bool {
	v, ok := value.(time.Time)
	return ok && f.match(v)
}

func (f *DateFilter) MatchString(token string) (bool, error) {
	return f.matchString(token)
}

func (f *DateFilter) Set(values ...any) error {
	f.reset()
	for _, value := range values {
		v, ok := value.(time.Time)
		if !ok {
			return fmt.Errorf("filter %s: unsupported value %v (%T)", f.name, value, value)
		}
		f.addScalar(v)
	}
	return nil
}

// SetRange replaces the constraints with a single closed interval.
func (f *DateFilter) SetRange(lo, hi time.Time) {
	f.reset()
	f.addInterval(lo, hi)
}

func (f *DateFilter) GlobPattern() string { return f.globPattern() }

func (f *DateFilter) FormatValue(value any) string {
	if v, ok := value.(time.Time); ok {
		return f.render(v)
	}
	return fmt.Sprint(value)
}

func (f *DateFilter) String() string { return f.str() }
