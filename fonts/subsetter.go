package fonts

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"unicode"

	"github.com/wudi/pdfrender/pdferr"
)

// Embedded is a font subset frozen for one render. CIDs equal the glyph
// indices of Program, so the PDF uses an Identity CIDToGIDMap.
type Embedded struct {
	Font    *Font
	Program []byte
	// Tag is the six-letter subset prefix of BaseFont.
	Tag string
	// SourceGIDs[cid] is the glyph index in the original font.
	SourceGIDs []uint16
	// Widths[cid] is the advance in 1/1000 em.
	Widths []int
	// ToUnicode maps each character-bearing CID back to its character.
	ToUnicode map[uint16]rune

	cids map[rune]uint16
}

// BaseFont is the subset-tagged PostScript name.
func (e *Embedded) BaseFont() string { return e.Tag + "+" + e.Font.PostScriptName }

// NumGlyphs is the glyph count of the subset program, .notdef included.
func (e *Embedded) NumGlyphs() int { return len(e.SourceGIDs) }

// CID returns the subset identifier for r.
func (e *Embedded) CID(r rune) (uint16, bool) {
	cid, ok := e.cids[r]
	return cid, ok
}

// Chars lists the embedded characters in ascending order.
func (e *Embedded) Chars() []rune {
	out := make([]rune, 0, len(e.cids))
	for r := range e.cids {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Encode converts text to big-endian two-byte CIDs for Identity-H. Control
// characters are dropped; characters outside the subset are an
// UnsupportedCharacter error since the subset is frozen.
func (e *Embedded) Encode(text string) ([]byte, error) {
	out := make([]byte, 0, len(text)*2)
	for _, r := range text {
		if unicode.IsControl(r) {
			continue
		}
		cid, ok := e.cids[r]
		if !ok {
			return nil, pdferr.Unsupported(e.Font.Ref, r)
		}
		out = binary.BigEndian.AppendUint16(out, cid)
	}
	return out, nil
}

// Embed subsets f down to the glyphs needed for used. Characters are
// resolved through the font's cmap, deduplicated, sorted by source glyph
// index and renumbered from 1 (0 is .notdef). The same inputs always
// produce the same program and CID assignment.
func Embed(f *Font, used []rune) (*Embedded, error) {
	runeGIDs := make(map[rune]uint16, len(used))
	seen := make(map[uint16]bool, len(used))
	gids := make([]uint16, 0, len(used))
	for _, r := range used {
		if unicode.IsControl(r) {
			continue
		}
		gid, ok := f.GlyphIndex(r)
		if !ok {
			return nil, pdferr.Unsupported(f.Ref, r)
		}
		runeGIDs[r] = gid
		if !seen[gid] {
			seen[gid] = true
			gids = append(gids, gid)
		}
	}
	sort.Slice(gids, func(i, j int) bool { return gids[i] < gids[j] })

	sub, err := subsetTrueType(f.Data, gids, runeGIDs)
	if err != nil {
		return nil, pdferr.BadFormat(f.Ref, fmt.Errorf("subset font: %w", err))
	}

	e := &Embedded{
		Font:       f,
		Program:    sub.Program,
		SourceGIDs: sub.OldGIDs,
		Widths:     make([]int, len(sub.OldGIDs)),
		ToUnicode:  make(map[uint16]rune, len(runeGIDs)),
		cids:       make(map[rune]uint16, len(runeGIDs)),
	}
	for cid, gid := range sub.OldGIDs {
		e.Widths[cid] = f.Thousandths(f.Advance(gid))
	}
	chars := make([]rune, 0, len(runeGIDs))
	for r := range runeGIDs {
		chars = append(chars, r)
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })
	for _, r := range chars {
		cid := sub.NewGID[runeGIDs[r]]
		e.cids[r] = cid
		// Several characters may share a glyph; the lowest wins.
		if _, exists := e.ToUnicode[cid]; !exists {
			e.ToUnicode[cid] = r
		}
	}
	e.Tag = subsetTag(f.PostScriptName, sub.OldGIDs)
	return e, nil
}

// subsetTag derives six uppercase letters from the kept glyph set.
func subsetTag(name string, gids []uint16) string {
	h := sha256.New()
	h.Write([]byte(name))
	var b [2]byte
	for _, gid := range gids {
		binary.BigEndian.PutUint16(b[:], gid)
		h.Write(b[:])
	}
	sum := h.Sum(nil)
	tag := make([]byte, 6)
	for i := range tag {
		tag[i] = 'A' + sum[i]%26
	}
	return string(tag)
}
