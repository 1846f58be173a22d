package fonts

import (
	"sort"
	"unicode"

	"github.com/bits-and-blooms/bitset"
)

// Usage accumulates, per font reference, the set of characters drawn with
// that font. Each page builds its own Usage during the pre-scan; the
// page results are merged into one document-wide table before any font
// is embedded. A Usage is not safe for concurrent mutation.
type Usage struct {
	sets map[string]*bitset.BitSet
}

func NewUsage() *Usage {
	return &Usage{sets: make(map[string]*bitset.BitSet)}
}

// Add records every drawable rune of text under ref. Control characters
// are never drawn and are skipped.
func (u *Usage) Add(ref, text string) {
	set := u.sets[ref]
	if set == nil {
		set = bitset.New(128)
		u.sets[ref] = set
	}
	for _, r := range text {
		if unicode.IsControl(r) || r < 0 {
			continue
		}
		set.Set(uint(r))
	}
}

// Merge folds other into u.
func (u *Usage) Merge(other *Usage) {
	if other == nil {
		return
	}
	for ref, set := range other.sets {
		if mine, ok := u.sets[ref]; ok {
			mine.InPlaceUnion(set)
			continue
		}
		u.sets[ref] = set.Clone()
	}
}

// Refs lists the font references in ascending order.
func (u *Usage) Refs() []string {
	refs := make([]string, 0, len(u.sets))
	for ref := range u.sets {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Runes returns the characters recorded for ref in ascending order.
func (u *Usage) Runes(ref string) []rune {
	set := u.sets[ref]
	if set == nil {
		return nil
	}
	out := make([]rune, 0, set.Count())
	for i, ok := set.NextSet(0); ok; i, ok = set.NextSet(i + 1) {
		out = append(out, rune(i))
	}
	return out
}

// Freeze returns the recorded characters as plain data, detached from
// the accumulator.
func (u *Usage) Freeze() map[string][]rune {
	out := make(map[string][]rune, len(u.sets))
	for ref := range u.sets {
		out[ref] = u.Runes(ref)
	}
	return out
}
