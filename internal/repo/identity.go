package repo

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Identity addresses one instance of a product. Keys are the product's
// identity parameter names; values live in the value domain of the matching
// filter (int64, uint64, string, or time.Time).
type Identity map[string]any

// Int returns the named field as an int64.
func (id Identity) Int(name string) (int64, bool) {
	v, ok := id[name].(int64)
	return v, ok
}

// Hex returns the named field as a uint64.
func (id Identity) Hex(name string) (uint64, bool) {
	v, ok := id[name].(uint64)
	return v, ok
}

// Str returns the named field as a string.
func (id Identity) Str(name string) (string, bool) {
	v, ok := id[name].(string)
	return v, ok
}

// Date returns the named field as a time.Time.
func (id Identity) Date(name string) (time.Time, bool) {
	v, ok := id[name].(time.Time)
	return v, ok
}

// String renders the identity as sorted key=value pairs for log and error
// messages. Formatting per parameter belongs to the descriptor's filters.
func (id Identity) String() string {
	keys := make([]string, 0, len(id))
	for k := range id {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, id[k]))
	}
	return strings.Join(parts, " ")
}
