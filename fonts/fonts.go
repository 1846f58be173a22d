package fonts

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/go-text/typesetting/font/opentype"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/pdfrender/pdferr"
)

// Font is a parsed TrueType font ready for measuring and embedding. All
// metrics are in font units; it is safe for concurrent use.
type Font struct {
	// Ref is the reference name the document uses for this font.
	Ref string
	// PostScriptName is the font's name table entry, or a sanitized Ref.
	PostScriptName string
	Data           []byte

	UnitsPerEm  int
	Ascender    int
	Descender   int // negative below the baseline
	CapHeight   int
	ItalicAngle float64
	FixedPitch  bool
	// BBox is [llx lly urx ury] in font units, y up.
	BBox [4]int

	advances []int
	sfnt     *sfnt.Font
	bufs     sync.Pool
}

// LoadTrueType parses a TrueType font program. Fonts without glyf
// outlines (CFF flavored OpenType) are rejected since they cannot be
// subset into a CIDFontType2 program.
func LoadTrueType(ref string, data []byte) (*Font, error) {
	if len(data) == 0 {
		return nil, pdferr.BadFormat(ref, fmt.Errorf("truetype font data is empty"))
	}
	loader, err := opentype.NewLoader(bytes.NewReader(data))
	if err != nil {
		return nil, pdferr.BadFormat(ref, fmt.Errorf("read font tables: %w", err))
	}
	if !loader.HasTable(opentype.NewTag('g', 'l', 'y', 'f')) {
		return nil, pdferr.BadFormat(ref, fmt.Errorf("font has no glyf table"))
	}
	parsed, err := sfnt.Parse(data)
	if err != nil {
		return nil, pdferr.BadFormat(ref, fmt.Errorf("parse truetype: %w", err))
	}
	unitsPerEm := parsed.UnitsPerEm()
	if unitsPerEm == 0 {
		return nil, pdferr.BadFormat(ref, fmt.Errorf("invalid unitsPerEm"))
	}

	f := &Font{
		Ref:        ref,
		Data:       data,
		UnitsPerEm: int(unitsPerEm),
		sfnt:       parsed,
	}
	f.bufs.New = func() any { return &sfnt.Buffer{} }
	buf := f.buffer()
	defer f.release(buf)

	// At ppem == unitsPerEm every 26.6 value is font units * 64.
	ppem := fixed.Int26_6(unitsPerEm << 6)

	f.PostScriptName = strings.TrimSpace(ref)
	if ps, _ := parsed.Name(buf, sfnt.NameIDPostScript); len(ps) > 0 {
		f.PostScriptName = ps
	}
	f.PostScriptName = sanitizeName(f.PostScriptName)

	f.advances = glyphAdvances(parsed, buf, ppem)

	metrics, err := parsed.Metrics(buf, ppem, xfont.HintingNone)
	if err != nil {
		return nil, pdferr.BadFormat(ref, fmt.Errorf("read metrics: %w", err))
	}
	f.Ascender = units(metrics.Ascent)
	f.Descender = -units(metrics.Descent)
	f.CapHeight = units(metrics.CapHeight)
	if f.CapHeight <= 0 {
		f.CapHeight = capHeightFromGlyph(parsed, buf, ppem, f.Ascender)
	}

	if bounds, err := parsed.Bounds(buf, ppem, xfont.HintingNone); err == nil {
		// sfnt bounds are y-down.
		f.BBox = [4]int{units(bounds.Min.X), -units(bounds.Max.Y), units(bounds.Max.X), -units(bounds.Min.Y)}
	}
	if post := parsed.PostTable(); post != nil {
		f.ItalicAngle = post.ItalicAngle
		f.FixedPitch = post.IsFixedPitch
	}
	return f, nil
}

func (f *Font) buffer() *sfnt.Buffer { return f.bufs.Get().(*sfnt.Buffer) }

func (f *Font) release(b *sfnt.Buffer) { f.bufs.Put(b) }

// NumGlyphs reports the glyph count of the full font.
func (f *Font) NumGlyphs() int { return len(f.advances) }

// GlyphIndex resolves r through the font's cmap. ok is false when the font
// has no glyph for r.
func (f *Font) GlyphIndex(r rune) (gid uint16, ok bool) {
	buf := f.buffer()
	defer f.release(buf)
	idx, err := f.sfnt.GlyphIndex(buf, r)
	if err != nil || idx == 0 {
		return 0, false
	}
	return uint16(idx), true
}

// HasGlyph reports whether r can be drawn with this font.
func (f *Font) HasGlyph(r rune) bool {
	_, ok := f.GlyphIndex(r)
	return ok
}

// Advance returns the advance width of gid in font units.
func (f *Font) Advance(gid uint16) int {
	if int(gid) >= len(f.advances) {
		return 0
	}
	return f.advances[gid]
}

// Scale converts font units to points at the given size.
func (f *Font) Scale(v, size float64) float64 {
	return v * size / float64(f.UnitsPerEm)
}

// AscenderAt, DescenderAt and CapHeightAt return the metric in points.
// DescenderAt is negative.
func (f *Font) AscenderAt(size float64) float64  { return f.Scale(float64(f.Ascender), size) }
func (f *Font) DescenderAt(size float64) float64 { return f.Scale(float64(f.Descender), size) }
func (f *Font) CapHeightAt(size float64) float64 { return f.Scale(float64(f.CapHeight), size) }

// TextWidth sums the advances of text at size points. Control characters
// contribute nothing; runes without a glyph report an UnsupportedCharacter
// error.
func (f *Font) TextWidth(text string, size float64) (float64, error) {
	total := 0
	for _, r := range text {
		if unicode.IsControl(r) {
			continue
		}
		gid, ok := f.GlyphIndex(r)
		if !ok {
			return 0, pdferr.Unsupported(f.Ref, r)
		}
		total += f.Advance(gid)
	}
	return f.Scale(float64(total), size), nil
}

// Width is TextWidth for callers that have already checked glyph
// coverage; missing glyphs count as zero.
func (f *Font) Width(text string, size float64) float64 {
	total := 0
	for _, r := range text {
		if gid, ok := f.GlyphIndex(r); ok {
			total += f.Advance(gid)
		}
	}
	return f.Scale(float64(total), size)
}

// Thousandths converts a font-unit value to the 1/1000 em PDF width units.
func (f *Font) Thousandths(v int) int {
	return int(math.Round(float64(v) * 1000 / float64(f.UnitsPerEm)))
}

func glyphAdvances(font *sfnt.Font, buf *sfnt.Buffer, ppem fixed.Int26_6) []int {
	n := font.NumGlyphs()
	adv := make([]int, n)
	for i := 0; i < n; i++ {
		a, err := font.GlyphAdvance(buf, sfnt.GlyphIndex(i), ppem, xfont.HintingNone)
		if err != nil {
			continue
		}
		adv[i] = units(a)
	}
	return adv
}

// capHeightFromGlyph measures the top of 'H' when OS/2 carries no cap
// height, falling back to 70% of the ascender.
func capHeightFromGlyph(font *sfnt.Font, buf *sfnt.Buffer, ppem fixed.Int26_6, ascender int) int {
	if gid, err := font.GlyphIndex(buf, 'H'); err == nil && gid != 0 {
		if bounds, _, err := font.GlyphBounds(buf, gid, ppem, xfont.HintingNone); err == nil {
			if top := -units(bounds.Min.Y); top > 0 {
				return top
			}
		}
	}
	return int(math.Round(float64(ascender) * 0.7))
}

func units(v fixed.Int26_6) int {
	return int(math.Round(float64(v) / 64))
}

// sanitizeName keeps a PDF-name-safe subset of s.
func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "CustomTT"
	}
	return b.String()
}
