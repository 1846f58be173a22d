package fonts

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// simpleGlyph is a one-contour outline whose bytes differ per seed. The
// record is padded to four bytes so it survives rebuild unchanged.
func simpleGlyph(seed byte) []byte {
	g := make([]byte, 20)
	binary.BigEndian.PutUint16(g[0:], 1)
	binary.BigEndian.PutUint16(g[6:], uint16(seed)*10)
	binary.BigEndian.PutUint16(g[8:], uint16(seed)*10)
	binary.BigEndian.PutUint16(g[10:], 2) // endPtsOfContours
	g[14], g[15], g[16] = 0x37, seed, seed
	g[17], g[18] = seed+1, seed+2
	return g
}

// compositeGlyph references each component with byte offsets.
func compositeGlyph(parts ...uint16) []byte {
	g := make([]byte, glyfHeaderBytes, glyfHeaderBytes+6*len(parts)+2)
	binary.BigEndian.PutUint16(g[0:], 0xFFFF)
	for i, gid := range parts {
		flags := uint16(0x0002)
		if i < len(parts)-1 {
			flags |= moreComponents
		}
		g = binary.BigEndian.AppendUint16(g, flags)
		g = binary.BigEndian.AppendUint16(g, gid)
		g = append(g, byte(i*5), 0)
	}
	for len(g)%4 != 0 {
		g = append(g, 0)
	}
	return g
}

// compositeFont assembles a minimal sfnt: glyph 2 is built from glyphs 5
// and 3, which are simple; 1 and 4 are never referenced.
func compositeFont() ([]byte, [][]byte) {
	glyphs := [][]byte{
		simpleGlyph(1),
		simpleGlyph(2),
		compositeGlyph(5, 3),
		simpleGlyph(4),
		simpleGlyph(5),
		simpleGlyph(6),
	}
	var glyf, loca []byte
	for _, g := range glyphs {
		loca = binary.BigEndian.AppendUint16(loca, uint16(len(glyf)/2))
		glyf = append(glyf, g...)
	}
	loca = binary.BigEndian.AppendUint16(loca, uint16(len(glyf)/2))

	var hmtx []byte
	for gid := range glyphs {
		hmtx = binary.BigEndian.AppendUint16(hmtx, uint16(500+100*gid))
		hmtx = binary.BigEndian.AppendUint16(hmtx, uint16(gid))
	}

	head := make([]byte, 54)
	binary.BigEndian.PutUint32(head[0:], 0x00010000)
	binary.BigEndian.PutUint32(head[12:], 0x5F0F3CF5)
	binary.BigEndian.PutUint16(head[18:], 1000)
	hhea := make([]byte, 36)
	binary.BigEndian.PutUint32(hhea[0:], 0x00010000)
	binary.BigEndian.PutUint16(hhea[34:], uint16(len(glyphs)))
	maxp := make([]byte, 6)
	binary.BigEndian.PutUint32(maxp[0:], 0x00005000)
	binary.BigEndian.PutUint16(maxp[4:], uint16(len(glyphs)))

	w := &ttWriter{}
	w.AddTable("head", head)
	w.AddTable("hhea", hhea)
	w.AddTable("maxp", maxp)
	w.AddTable("hmtx", hmtx)
	w.AddTable("loca", loca)
	w.AddTable("glyf", glyf)
	return w.Bytes(), glyphs
}

func subsetGlyphs(t *testing.T, program []byte) (*glyphTable, []byte) {
	t.Helper()
	p, err := newTTReader(program)
	require.NoError(t, err)
	head, err := p.ReadTable("head")
	require.NoError(t, err)
	maxp, err := p.ReadTable("maxp")
	require.NoError(t, err)
	g, err := p.glyphTable(int16(binary.BigEndian.Uint16(head[50:])), int(binary.BigEndian.Uint16(maxp[4:])))
	require.NoError(t, err)
	hmtx, err := p.ReadTable("hmtx")
	require.NoError(t, err)
	return g, hmtx
}

func TestSubsetKeepsCompositeComponents(t *testing.T) {
	font, src := compositeFont()
	sub, err := subsetTrueType(font, []uint16{2}, map[rune]uint16{'A': 2})
	require.NoError(t, err)

	require.Equal(t, []uint16{0, 2, 3, 5}, sub.OldGIDs)
	require.Equal(t, map[uint16]uint16{0: 0, 2: 1, 3: 2, 5: 3}, sub.NewGID)

	glyphs, hmtx := subsetGlyphs(t, sub.Program)
	require.Len(t, glyphs.offsets, len(sub.OldGIDs)+1)

	// Each kept glyph keeps its advance.
	for newGID, oldGID := range sub.OldGIDs {
		require.Equal(t, uint16(500+100*int(oldGID)), binary.BigEndian.Uint16(hmtx[newGID*4:]))
	}

	composite := glyphs.data(sub.NewGID[2])
	var refs []uint16
	components(composite, func(off int) {
		refs = append(refs, binary.BigEndian.Uint16(composite[off:]))
	})
	require.Equal(t, []uint16{sub.NewGID[5], sub.NewGID[3]}, refs)

	// Patched references resolve to the outlines the source referenced.
	require.Equal(t, src[5], glyphs.data(refs[0]))
	require.Equal(t, src[3], glyphs.data(refs[1]))
	require.Equal(t, src[0], glyphs.data(0))
}

func TestComponentsFollowsNestedReferences(t *testing.T) {
	g := &glyphTable{}
	records := [][]byte{simpleGlyph(1), compositeGlyph(2), compositeGlyph(3, 4), simpleGlyph(4), simpleGlyph(5)}
	for _, r := range records {
		g.offsets = append(g.offsets, uint32(len(g.glyf)))
		g.glyf = append(g.glyf, r...)
	}
	g.offsets = append(g.offsets, uint32(len(g.glyf)))

	closure := map[uint16]bool{0: true, 1: true}
	g.addComponents(closure)
	require.Equal(t, map[uint16]bool{0: true, 1: true, 2: true, 3: true, 4: true}, closure)
}
