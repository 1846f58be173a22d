// Package layout positions text. Everything here works in the authored
// page space: origin top-left, y growing downward, units in points.
// Baselines are y coordinates in that space.
package layout

import (
	"strings"

	"github.com/wudi/pdfrender/document"
)

// Metrics is the font information layout needs, already scaled to a
// point size. fonts.Font satisfies it.
type Metrics interface {
	Width(text string, size float64) float64
	AscenderAt(size float64) float64
	DescenderAt(size float64) float64
	CapHeightAt(size float64) float64
}

// Run is one positioned line of text.
type Run struct {
	Text     string
	X        float64
	Baseline float64
	Width    float64
}

// AlignOffset shifts a start position for a line of the given width.
func AlignOffset(align document.Align, width float64) float64 {
	switch align {
	case document.AlignCenter:
		return -width / 2
	case document.AlignRight:
		return -width
	default:
		return 0
	}
}

// AnchorOffset is the distance from the anchor line down to the baseline.
func AnchorOffset(m Metrics, anchor document.VerticalAnchor, size float64) float64 {
	switch anchor {
	case document.AnchorCapline:
		return m.CapHeightAt(size)
	case document.AnchorCenter:
		return m.CapHeightAt(size) / 2
	default:
		return 0
	}
}

// PlaceText lays out a single-line Text element.
func PlaceText(m Metrics, t *document.Text) Run {
	width := m.Width(t.Text, t.Size)
	return Run{
		Text:     t.Text,
		X:        t.X + AlignOffset(t.Align, width),
		Baseline: t.Y + AnchorOffset(m, t.Anchor, t.Size),
		Width:    width,
	}
}

// Box is a rectangle in authored space; (X, Y) is its top-left corner.
type Box struct {
	X, Y, W, H float64
}

// BoxOrigin resolves the top-left corner of a w x h box whose anchor
// (x, y) names the edge or centre selected by ax and ay.
func BoxOrigin(x, y, w, h float64, ax document.Align, ay document.BoxAlignY) Box {
	b := Box{X: x, Y: y, W: w, H: h}
	switch ax {
	case document.AlignCenter:
		b.X = x - w/2
	case document.AlignRight:
		b.X = x - w
	}
	switch ay {
	case document.BoxMiddle:
		b.Y = y - h/2
	case document.BoxBottom:
		b.Y = y - h
	}
	return b
}

// Line is one wrapped line and its measured width.
type Line struct {
	Text  string
	Width float64
}

// Wrap breaks text into lines no wider than maxWidth. Explicit newlines
// start new paragraphs and an empty paragraph yields an empty line. Words
// split on whitespace only; a word wider than maxWidth sits alone on its
// line rather than being broken.
func Wrap(m Metrics, text string, size, maxWidth float64) []Line {
	space := m.Width(" ", size)
	var lines []Line
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, Line{})
			continue
		}
		cur := Line{Text: words[0], Width: m.Width(words[0], size)}
		for _, word := range words[1:] {
			w := m.Width(word, size)
			if cur.Width+space+w <= maxWidth {
				cur.Text += " " + word
				cur.Width += space + w
				continue
			}
			lines = append(lines, cur)
			cur = Line{Text: word, Width: w}
		}
		lines = append(lines, cur)
	}
	return lines
}

// Block is a laid out TextBox.
type Block struct {
	Box   Box
	Lines []Run
}

// FirstBaseline returns the baseline of the first of n lines measured
// from the box top.
func FirstBaseline(m Metrics, align document.TextAlignY, n int, size, leading, boxHeight float64) float64 {
	span := float64(n-1) * leading
	switch align {
	case document.TextTop:
		return m.AscenderAt(size)
	case document.TextCapline:
		return m.CapHeightAt(size)
	case document.TextCenter:
		capHeight := m.CapHeightAt(size)
		return (boxHeight-(span+capHeight))/2 + capHeight
	case document.TextBottom:
		return boxHeight - span + m.DescenderAt(size)
	default:
		return boxHeight - span
	}
}

// LayoutBox places the box, wraps the text to its width, then aligns the
// block vertically and each line horizontally. Lines may extend past the
// box; callers clip to Block.Box.
func LayoutBox(m Metrics, tb *document.TextBox) Block {
	box := BoxOrigin(tb.X, tb.Y, tb.W, tb.H, tb.BoxAlignX, tb.BoxAlignY)
	return Block{Box: box, Lines: AlignLines(m, box, Wrap(m, tb.Text, tb.Size, box.W), tb)}
}

// AlignLines positions already wrapped lines inside box.
func AlignLines(m Metrics, box Box, lines []Line, tb *document.TextBox) []Run {
	if len(lines) == 0 {
		return nil
	}
	leading := tb.Leading()
	first := box.Y + FirstBaseline(m, tb.TextAlignY, len(lines), tb.Size, leading, box.H)

	var anchor float64
	switch tb.TextAlignX {
	case document.AlignCenter:
		anchor = box.X + box.W/2
	case document.AlignRight:
		anchor = box.X + box.W
	default:
		anchor = box.X
	}
	runs := make([]Run, len(lines))
	for i, l := range lines {
		runs[i] = Run{
			Text:     l.Text,
			X:        anchor + AlignOffset(tb.TextAlignX, l.Width),
			Baseline: first + float64(i)*leading,
			Width:    l.Width,
		}
	}
	return runs
}
