package fonts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/pdfrender/pdferr"
)

func loadGoRegular(t *testing.T) *Font {
	t.Helper()
	f, err := LoadTrueType("main", goregular.TTF)
	require.NoError(t, err)
	return f
}

func TestLoadTrueTypeMetrics(t *testing.T) {
	f := loadGoRegular(t)
	require.Equal(t, "main", f.Ref)
	require.Equal(t, 2048, f.UnitsPerEm)
	require.Greater(t, f.Ascender, 0)
	require.Less(t, f.Descender, 0)
	require.Greater(t, f.CapHeight, 0)
	require.Less(t, f.CapHeight, f.Ascender)
	require.NotEmpty(t, f.PostScriptName)
	require.Less(t, f.BBox[1], 0)
	require.Greater(t, f.BBox[3], 0)
}

func TestLoadRejectsGarbage(t *testing.T) {
	_, err := LoadTrueType("broken", []byte("not a font at all"))
	require.Error(t, err)
	require.True(t, errors.Is(err, pdferr.ErrUnsupportedResourceFormat))

	_, err = LoadTrueType("empty", nil)
	require.True(t, errors.Is(err, pdferr.ErrUnsupportedResourceFormat))
}

func TestTextWidthSumsAdvances(t *testing.T) {
	f := loadGoRegular(t)
	var total int
	for _, r := range "Hello" {
		gid, ok := f.GlyphIndex(r)
		require.True(t, ok)
		total += f.Advance(gid)
	}
	got, err := f.TextWidth("Hello", 24)
	require.NoError(t, err)
	require.InDelta(t, float64(total)*24/2048, got, 1e-9)

	tabbed, err := f.TextWidth("Hel\tlo", 24)
	require.NoError(t, err)
	require.InDelta(t, got, tabbed, 1e-9, "control characters must not add width")

	_, err = f.TextWidth("中", 12)
	require.True(t, errors.Is(err, pdferr.ErrUnsupportedCharacter))
}

func TestUsageMergeAndOrder(t *testing.T) {
	a := NewUsage()
	a.Add("main", "olleH")
	b := NewUsage()
	b.Add("main", "Hi\n")
	b.Add("mono", "123")
	a.Merge(b)

	require.Equal(t, []string{"main", "mono"}, a.Refs())
	require.Equal(t, []rune("Heilo"), a.Runes("main"))
	require.Equal(t, []rune("123"), a.Freeze()["mono"])
	require.Nil(t, a.Runes("absent"))
}

func TestEmbedHello(t *testing.T) {
	f := loadGoRegular(t)
	e, err := Embed(f, []rune("Hello"))
	require.NoError(t, err)

	// H, e, l, o plus .notdef.
	require.Equal(t, 5, e.NumGlyphs())
	require.Len(t, e.Chars(), 4)
	require.Len(t, e.ToUnicode, 4)
	require.Equal(t, uint16(0), e.SourceGIDs[0])

	parsed, err := sfnt.Parse(e.Program)
	require.NoError(t, err)
	require.Equal(t, 5, parsed.NumGlyphs())

	var buf sfnt.Buffer
	ppem := fixed.Int26_6(f.UnitsPerEm << 6)
	for _, r := range "Helo" {
		cid, ok := e.CID(r)
		require.True(t, ok)
		require.NotZero(t, cid)

		// The subset cmap resolves to the CID, so CID == GID holds.
		gid, err := parsed.GlyphIndex(&buf, r)
		require.NoError(t, err)
		require.Equal(t, sfnt.GlyphIndex(cid), gid)

		segs, err := parsed.LoadGlyph(&buf, gid, ppem, nil)
		require.NoError(t, err)
		require.NotEmpty(t, segs, "glyph for %q has no outline", r)

		adv, err := parsed.GlyphAdvance(&buf, gid, ppem, xfont.HintingNone)
		require.NoError(t, err)
		src, _ := f.GlyphIndex(r)
		require.Equal(t, f.Advance(src), units(adv))
		require.Equal(t, f.Thousandths(f.Advance(src)), e.Widths[cid])
	}
	require.Equal(t, "+"+f.PostScriptName, e.BaseFont()[6:])
}

func TestEmbedIsDeterministic(t *testing.T) {
	f := loadGoRegular(t)
	a, err := Embed(f, []rune("The quick brown fox"))
	require.NoError(t, err)
	b, err := Embed(f, []rune("xof nworb kciuq ehT"))
	require.NoError(t, err)
	require.Equal(t, a.Program, b.Program)
	require.Equal(t, a.Tag, b.Tag)
	require.Equal(t, a.SourceGIDs, b.SourceGIDs)
}

func TestEmbedGlyphCountBound(t *testing.T) {
	f := loadGoRegular(t)
	text := "Ünïcödé àççénts"
	used := NewUsage()
	used.Add("main", text)
	runes := used.Runes("main")
	e, err := Embed(f, runes)
	require.NoError(t, err)

	src, err := newTTReader(f.Data)
	require.NoError(t, err)
	head, _ := src.ReadTable("head")
	maxp, _ := src.ReadTable("maxp")
	gt, err := src.glyphTable(int16(head[50])<<8|int16(head[51]), int(maxp[4])<<8|int(maxp[5]))
	require.NoError(t, err)
	reach := map[uint16]bool{0: true}
	for _, r := range runes {
		gid, _ := f.GlyphIndex(r)
		reach[gid] = true
	}
	gt.addComponents(reach)
	require.LessOrEqual(t, e.NumGlyphs(), len(reach))

	parsed, err := sfnt.Parse(e.Program)
	require.NoError(t, err)
	require.Equal(t, e.NumGlyphs(), parsed.NumGlyphs())

	enc, err := e.Encode(text)
	require.NoError(t, err)
	require.Len(t, enc, 2*len([]rune(text)))
}

func TestEmbedMissingGlyph(t *testing.T) {
	f := loadGoRegular(t)
	_, err := Embed(f, []rune("A中"))
	var pe *pdferr.Error
	require.True(t, errors.As(err, &pe))
	require.Equal(t, pdferr.UnsupportedCharacter, pe.Kind)
	require.Equal(t, '中', pe.Char)
	require.Equal(t, "main", pe.Ref)
}

func TestEncodeRejectsCharOutsideSubset(t *testing.T) {
	f := loadGoRegular(t)
	e, err := Embed(f, []rune("ab"))
	require.NoError(t, err)
	enc, err := e.Encode("ba\n")
	require.NoError(t, err)
	require.Len(t, enc, 4)
	_, err = e.Encode("abc")
	require.True(t, errors.Is(err, pdferr.ErrUnsupportedCharacter))
}
