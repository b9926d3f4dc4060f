package eval

import (
	"sort"
	"strings"
)

// StructureSet is a normalized set of "Color,x,y,z" block descriptors.
// Comparison ignores entry order, duplicates, and color casing.
type StructureSet map[string]struct{}

// NormalizeStructure normalizes a raw ";"-separated structure string.
func NormalizeStructure(s string) StructureSet {
	return NormalizeBlocks(strings.Split(s, ";"))
}

// NormalizeBlocks canonicalizes block descriptors: colors are folded to a
// leading capital, fields are trimmed, and entries without exactly four
// fields are dropped. Idempotent.
func NormalizeBlocks(items []string) StructureSet {
	set := make(StructureSet)
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ",")
		if len(parts) != 4 {
			continue
		}
		fields := make([]string, 4)
		fields[0] = canonColor(parts[0])
		for i := 1; i < 4; i++ {
			fields[i] = strings.TrimSpace(parts[i])
		}
		set[strings.Join(fields, ",")] = struct{}{}
	}
	return set
}

func canonColor(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (s StructureSet) Equal(other StructureSet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}

// String renders the set as a sorted ";"-joined structure string, suitable
// for feedback messages and renormalization.
func (s StructureSet) String() string {
	blocks := make([]string, 0, len(s))
	for k := range s {
		blocks = append(blocks, k)
	}
	sort.Strings(blocks)
	return strings.Join(blocks, ";")
}
