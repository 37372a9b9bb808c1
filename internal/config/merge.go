package config

import (
	"fmt"
	"sort"
)

// MergeMaps deep-merges b into a and returns a new map; neither input is
// modified. Keys present in only one map are copied through. When a key is
// present in both and both values are maps, the merge recurses. Any other
// collision is an error unless allowCollisions is set, in which case the
// later source (b) wins.
func MergeMaps(a, b map[string]any, allowCollisions bool) (map[string]any, error) {
	keys := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
		seen[k] = struct{}{}
	}
	for k := range b {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	result := make(map[string]any, len(keys))
	for _, k := range keys {
		av, inA := a[k]
		bv, inB := b[k]
		switch {
		case inA && inB:
			am, aIsMap := av.(map[string]any)
			bm, bIsMap := bv.(map[string]any)
			if aIsMap && bIsMap {
				merged, err := MergeMaps(am, bm, allowCollisions)
				if err != nil {
					return nil, err
				}
				result[k] = merged
			} else if allowCollisions {
				result[k] = bv
			} else {
				return nil, fmt.Errorf("collision detected for key %q", k)
			}
		case inA:
			result[k] = av
		default:
			result[k] = bv
		}
	}
	return result, nil
}
