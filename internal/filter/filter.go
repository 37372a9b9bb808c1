package filter

// Filter is the contract shared by all identity-parameter matchers. The
// repository uses it to render glob fragments, parse captured file-name
// fields, and test parsed values against the active constraints.
type Filter interface {
	// Name returns the identity parameter this filter constrains.
	Name() string
	// Empty reports whether the filter holds no constraints (wildcard).
	Empty() bool
	// Parse replaces the constraints with the parsed tokens. Each token is
	// either a scalar or a "LOW-HIGH" range.
	Parse(tokens []string) error
	// ParseValue parses a scalar token into the filter's value domain.
	ParseValue(token string) (any, error)
	// Match reports whether a value of the filter's value type is accepted.
	// Values of any other type are rejected.
	Match(value any) bool
	// MatchString parses the token through the scalar parser first.
	MatchString(token string) (bool, error)
	// Set replaces the constraints with the given scalar values.
	Set(values ...any) error
	// GlobPattern returns the formatted literal when exactly one scalar is
	// held, otherwise a wildcard token.
	GlobPattern() string
	// FormatValue renders a value of the filter's value type losslessly.
	FormatValue(value any) string
	// String renders all constraints, ranges as "LOW-HIGH".
	String() string
}
