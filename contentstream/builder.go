package contentstream

import "github.com/wudi/pdfrender/coords"

// Builder accumulates operations for one content stream. Methods that
// emit a single operator return the builder so calls can be chained.
type Builder struct {
	ops   []Operation
	depth int
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder { return &Builder{} }

// Op appends a raw operator.
func (b *Builder) Op(operator string, operands ...Operand) *Builder {
	b.ops = append(b.ops, Operation{Operator: operator, Operands: operands})
	return b
}

// Operations returns the accumulated operations.
func (b *Builder) Operations() []Operation { return b.ops }

// Len reports the number of operations.
func (b *Builder) Len() int { return len(b.ops) }

// Depth is the current q nesting level.
func (b *Builder) Depth() int { return b.depth }

// Bytes serializes the stream.
func (b *Builder) Bytes() []byte { return Serialize(b.ops) }

// Save pushes the graphics state (q).
func (b *Builder) Save() *Builder {
	b.depth++
	return b.Op("q")
}

// Restore pops the graphics state (Q).
func (b *Builder) Restore() *Builder {
	if b.depth > 0 {
		b.depth--
	}
	return b.Op("Q")
}

// Scoped runs fn between q and Q. The restore is written even when fn
// fails, so the stream never leaves a state pushed.
func (b *Builder) Scoped(fn func() error) error {
	b.Save()
	defer b.Restore()
	return fn()
}

// Concat appends a cm operator unless m is the identity.
func (b *Builder) Concat(m coords.Matrix) *Builder {
	if m.IsIdentity() {
		return b
	}
	return b.Op("cm", numbers(m[:]...)...)
}

// FillRGB sets the non-stroking color (rg). Channels are 0..1.
func (b *Builder) FillRGB(r, g, bl float64) *Builder {
	return b.Op("rg", numbers(r, g, bl)...)
}

// StrokeRGB sets the stroking color (RG).
func (b *Builder) StrokeRGB(r, g, bl float64) *Builder {
	return b.Op("RG", numbers(r, g, bl)...)
}

// LineWidth sets the line width (w).
func (b *Builder) LineWidth(w float64) *Builder { return b.Op("w", Number(w)) }

// LineCap sets the cap style (J).
func (b *Builder) LineCap(c LineCap) *Builder { return b.Op("J", Number(c)) }

// LineJoin sets the join style (j).
func (b *Builder) LineJoin(j LineJoin) *Builder { return b.Op("j", Number(j)) }

// MiterLimit sets the miter limit (M).
func (b *Builder) MiterLimit(m float64) *Builder { return b.Op("M", Number(m)) }

// ExtGState selects a named graphics state dictionary (gs).
func (b *Builder) ExtGState(name string) *Builder { return b.Op("gs", Name(name)) }

// Rect appends a rectangle subpath (re).
func (b *Builder) Rect(x, y, w, h float64) *Builder {
	return b.Op("re", numbers(x, y, w, h)...)
}

func (b *Builder) MoveTo(x, y float64) *Builder { return b.Op("m", numbers(x, y)...) }
func (b *Builder) LineTo(x, y float64) *Builder { return b.Op("l", numbers(x, y)...) }
func (b *Builder) CurveTo(x1, y1, x2, y2, x3, y3 float64) *Builder {
	return b.Op("c", numbers(x1, y1, x2, y2, x3, y3)...)
}
func (b *Builder) ClosePath() *Builder { return b.Op("h") }

// AppendPath writes the construction operators for p mapped through m.
func (b *Builder) AppendPath(p *Path, m coords.Matrix) *Builder {
	if p == nil {
		return b
	}
	for _, sp := range p.Subpaths {
		for _, pt := range sp.Points {
			switch pt.Type {
			case PathMoveTo:
				x, y := m.Apply(pt.X, pt.Y)
				b.MoveTo(x, y)
			case PathLineTo:
				x, y := m.Apply(pt.X, pt.Y)
				b.LineTo(x, y)
			case PathCurveTo:
				x1, y1 := m.Apply(pt.Control1X, pt.Control1Y)
				x2, y2 := m.Apply(pt.Control2X, pt.Control2Y)
				x3, y3 := m.Apply(pt.X, pt.Y)
				b.CurveTo(x1, y1, x2, y2, x3, y3)
			case PathClose:
				b.ClosePath()
			}
		}
		if sp.Closed {
			b.ClosePath()
		}
	}
	return b
}

// Paint ends the current path with f, S or B. With neither fill nor
// stroke the path is discarded (n).
func (b *Builder) Paint(fill, stroke bool) *Builder {
	return b.Op(PaintOperator(fill, stroke))
}

// PaintOperator picks the path-painting operator.
func PaintOperator(fill, stroke bool) string {
	switch {
	case fill && stroke:
		return "B"
	case fill:
		return "f"
	case stroke:
		return "S"
	default:
		return "n"
	}
}

// Clip intersects the clip with the current path and ends it (W n).
func (b *Builder) Clip() *Builder {
	b.Op("W")
	return b.Op("n")
}

// XObject paints a named external object (Do).
func (b *Builder) XObject(name string) *Builder { return b.Op("Do", Name(name)) }

// BeginText opens a text object (BT).
func (b *Builder) BeginText() *Builder { return b.Op("BT") }

// EndText closes a text object (ET).
func (b *Builder) EndText() *Builder { return b.Op("ET") }

// Font selects a font resource and size (Tf).
func (b *Builder) Font(name string, size float64) *Builder {
	return b.Op("Tf", Name(name), Number(size))
}

// TextPosition moves to the start of the next line (Td).
func (b *Builder) TextPosition(x, y float64) *Builder { return b.Op("Td", numbers(x, y)...) }

// ShowHex shows an already encoded glyph string (Tj).
func (b *Builder) ShowHex(encoded []byte) *Builder { return b.Op("Tj", HexString(encoded)) }

func numbers(vals ...float64) []Operand {
	out := make([]Operand, len(vals))
	for i, v := range vals {
		out[i] = Number(v)
	}
	return out
}
