package svg

import (
	"github.com/wudi/pdfrender/contentstream"
	"github.com/wudi/pdfrender/coords"
	"github.com/wudi/pdfrender/document"
)

// Fit maps src onto dst. Unless stretch is set the scale is uniform and
// the result is centred in dst.
func Fit(src, dst Rect, stretch bool) coords.Matrix {
	if src.W <= 0 || src.H <= 0 {
		return coords.Translate(dst.X, dst.Y)
	}
	sx, sy := dst.W/src.W, dst.H/src.H
	if !stretch {
		s := min(sx, sy)
		sx, sy = s, s
	}
	tx := dst.X + (dst.W-src.W*sx)/2 - src.X*sx
	ty := dst.Y + (dst.H-src.H*sy)/2 - src.Y*sy
	return coords.Matrix{sx, 0, 0, sy, tx, ty}
}

// Placement returns the box the SVG's viewport occupies inside dst when
// scaled uniformly and centred.
func (img *Image) Placement(dst Rect) Rect {
	m := Fit(Rect{W: img.Width, H: img.Height}, dst, false)
	return Rect{X: m[4], Y: m[5], W: img.Width * m[0], H: img.Height * m[3]}
}

// ViewportMatrix maps user space onto the viewport [0,W]x[0,H], still y-down.
func (img *Image) ViewportMatrix() coords.Matrix {
	return Fit(img.ViewBox, Rect{W: img.Width, H: img.Height}, img.Stretch)
}

// FormMatrix maps user space onto a y-up form space with BBox [0 0 W H].
func (img *Image) FormMatrix() coords.Matrix {
	return img.ViewportMatrix().Multiply(coords.FlipY(img.Height))
}

// AlphaFunc names the graphics state selecting an alpha value.
type AlphaFunc func(alpha uint8) string

// Emit writes every shape through m, each inside its own q/Q pair. alpha
// may be nil, in which case colors are painted opaque.
func (img *Image) Emit(b *contentstream.Builder, m coords.Matrix, alpha AlphaFunc) {
	scale := m.MeanScale()
	for _, s := range img.Shapes {
		sameAlpha := s.Fill == nil || s.Stroke == nil || s.Fill.A == s.Stroke.A
		if sameAlpha {
			paintShape(b, s, m, scale, alpha, s.Fill, s.Stroke)
			continue
		}
		paintShape(b, s, m, scale, alpha, s.Fill, nil)
		paintShape(b, s, m, scale, alpha, nil, s.Stroke)
	}
}

func paintShape(b *contentstream.Builder, s Shape, m coords.Matrix, scale float64, alpha AlphaFunc, fill, stroke *document.Color) {
	_ = b.Scoped(func() error {
		var a uint8 = 255
		if fill != nil {
			b.FillRGB(fill.Floats())
			a = fill.A
		}
		if stroke != nil {
			b.StrokeRGB(stroke.Floats())
			b.LineWidth(s.StrokeWidth * scale)
			if s.LineCap != contentstream.LineCapButt {
				b.LineCap(s.LineCap)
			}
			if s.LineJoin != contentstream.LineJoinMiter {
				b.LineJoin(s.LineJoin)
			}
			if s.MiterLimit > 0 {
				b.MiterLimit(s.MiterLimit)
			}
			a = stroke.A
		}
		if a < 255 && alpha != nil {
			b.ExtGState(alpha(a))
		}
		b.AppendPath(s.Path, m)
		op := contentstream.PaintOperator(fill != nil, stroke != nil)
		if s.EvenOdd && fill != nil {
			op += "*"
		}
		b.Op(op)
		return nil
	})
}

// Translucent reports whether any shape paints with alpha below 255.
func (img *Image) Translucent() bool {
	for _, s := range img.Shapes {
		if (s.Fill != nil && s.Fill.A < 255) || (s.Stroke != nil && s.Stroke.A < 255) {
			return true
		}
	}
	return false
}
