package domain

import (
	"fmt"
	"sort"

	"github.com/yasu-a/manaba-clone/internal/hashid"
)

// StructHash computes a structural hash over a map of named fields, used
// by the Course duplicate collapse to recognize the same course
// reappearing across crawl jobs. Fields are hashed in sorted-key order so
// the result does not depend on map iteration order; scalars are hashed
// via hashid.Of on their string representation, slices and nested maps
// recurse.
//
// The accumulation is 17/*31 mod 2^63. This is not the same function as
// hashid.Of, which keys Lookup and PageContent rows and must never
// change.
func StructHash(fields map[string]any) uint64 {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	total := uint64(17)
	for _, k := range keys {
		entry := uint64(17)
		entry = (entry*31 + hashid.Of(k)) % (1 << 63)
		entry = (entry*31 + hashAny(fields[k])) % (1 << 63)
		total = (total*31 + entry) % (1 << 63)
	}
	return total
}

func hashAny(v any) uint64 {
	switch value := v.(type) {
	case []any:
		return hashOrderedSet(value)
	case []string:
		items := make([]any, len(value))
		for i, s := range value {
			items[i] = s
		}
		return hashOrderedSet(items)
	case map[string]any:
		return StructHash(value)
	case nil:
		return hashid.OfNull()
	default:
		return hashid.Of(fmt.Sprint(value))
	}
}

func hashOrderedSet(items []any) uint64 {
	total := uint64(17)
	for _, item := range items {
		total = (total*31 + hashAny(item)) % (1 << 63)
	}
	return total
}

// CourseFieldMap converts a CourseField into the named-field map
// StructHash expects.
func CourseFieldMap(f CourseField) map[string]any {
	return map[string]any{
		"key":         f.Key,
		"name":        f.Name,
		"year":        f.Year,
		"schedules":   f.Schedules,
		"instructors": f.Instructors,
	}
}
