package cache

import (
	"sort"
	"strings"
)

// Key builds a deterministic cache key from ordered parts and named
// attributes. Attributes are joined as name=value pairs sorted by name, so
// two calls with the same map produce the same key regardless of iteration
// order.
func Key(parts []string, attrs map[string]string) string {
	segs := make([]string, 0, len(parts)+len(attrs))
	segs = append(segs, parts...)

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		segs = append(segs, name+"="+attrs[name])
	}
	return strings.Join(segs, ":")
}
