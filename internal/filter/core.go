package filter

import (
	"fmt"
	"strings"
)

// term is a single constraint: either a scalar or a closed interval.
type term[T any] struct {
	lo       T
	hi       T
	interval bool
}

// core implements the constraint bookkeeping shared by all filter types.
// Concrete filters supply the scalar parser, the lossless renderer, the
// ordering, and the wildcard token.
type core[T any] struct {
	name     string
	wildcard string
	parse    func(string) (T, error)
	render   func(T) string
	cmp      func(a, b T) int
	terms    []term[T]
}

func (c *core[T]) empty() bool {
	return len(c.terms) == 0
}

func (c *core[T]) reset() {
	c.terms = nil
}

func (c *core[T]) addScalar(v T) {
	c.terms = append(c.terms, term[T]{lo: v, hi: v})
}

func (c *core[T]) addInterval(lo, hi T) {
	c.terms = append(c.terms, term[T]{lo: lo, hi: hi, interval: true})
}

// parseToken splits a token into a scalar or a two-sided range. Filters with
// separator-bearing value syntax (dates) override this.
func (c *core[T]) parseToken(token string) (term[T], error) {
	parts := strings.Split(token, "-")
	switch len(parts) {
	case 1:
		v, err := c.parse(parts[0])
		if err != nil {
			return term[T]{}, fmt.Errorf("filter %s: parse %q: %w", c.name, token, err)
		}
		return term[T]{lo: v, hi: v}, nil
	case 2:
		lo, err := c.parse(parts[0])
		if err != nil {
			return term[T]{}, fmt.Errorf("filter %s: parse %q: %w", c.name, token, err)
		}
		hi, err := c.parse(parts[1])
		if err != nil {
			return term[T]{}, fmt.Errorf("filter %s: parse %q: %w", c.name, token, err)
		}
		return term[T]{lo: lo, hi: hi, interval: true}, nil
	default:
		return term[T]{}, fmt.Errorf("filter %s: malformed range token %q", c.name, token)
	}
}

func (c *core[T]) parseTokens(tokens []string, parseToken func(string) (term[T], error)) error {
	terms := make([]term[T], 0, len(tokens))
	for _, token := range tokens {
		t, err := parseToken(strings.TrimSpace(token))
		if err != nil {
			return err
		}
		terms = append(terms, t)
	}
	c.terms = terms
	return nil
}

// match reports acceptance: an empty constraint list matches everything,
// otherwise the value must equal a scalar or fall inside a closed interval.
func (c *core[T]) match(v T) bool {
	if len(c.terms) == 0 {
		return true
	}
	for _, t := range c.terms {
		if t.interval {
			if c.cmp(v, t.lo) >= 0 && c.cmp(v, t.hi) <= 0 {
				return true
			}
		} else if c.cmp(v, t.lo) == 0 {
			return true
		}
	}
	return false
}

func (c *core[T]) matchString(token string) (bool, error) {
	v, err := c.parse(token)
	if err != nil {
		return false, fmt.Errorf("filter %s: parse %q: %w", c.name, token, err)
	}
	return c.match(v), nil
}

// globPattern returns the formatted literal for a single scalar constraint,
// otherwise the filter's wildcard token.
func (c *core[T]) globPattern() string {
	if len(c.terms) == 1 && !c.terms[0].interval {
		return c.render(c.terms[0].lo)
	}
	return c.wildcard
}

func (c *core[T]) str() string {
	var sb strings.Builder
	for i, t := range c.terms {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if t.interval {
			sb.WriteString(c.render(t.lo))
			sb.WriteByte('-')
			sb.WriteString(c.render(t.hi))
		} else {
			sb.WriteString(c.render(t.lo))
		}
	}
	return sb.String()
}
