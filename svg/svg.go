// Package svg converts a subset of SVG into device-space vector paths.
//
// Shapes are parsed into cubic Bézier paths with all group transforms
// applied, so emitting them only needs the viewport mapping. Features
// outside the subset (gradients, text, embedded images, filters) are
// reported through the logger and skipped.
package svg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wudi/pdfrender/contentstream"
	"github.com/wudi/pdfrender/coords"
	"github.com/wudi/pdfrender/document"
	"github.com/wudi/pdfrender/observability"
)

// Rect is an axis-aligned box in SVG user units.
type Rect struct {
	X, Y, W, H float64
}

// Shape is one painted leaf. Nil Fill or Stroke means that paint is not
// applied; a zero MiterLimit means unset.
type Shape struct {
	Path        *contentstream.Path
	Fill        *document.Color
	Stroke      *document.Color
	StrokeWidth float64
	EvenOdd     bool
	LineCap     contentstream.LineCap
	LineJoin    contentstream.LineJoin
	MiterLimit  float64
}

// Image is a parsed SVG document.
type Image struct {
	Width, Height float64
	ViewBox       Rect
	Stretch       bool
	Shapes        []Shape
	Warnings      []string
}

type frame struct {
	style style
	ctm   coords.Matrix
	skip  bool
}

// silent elements carry no drawing of their own.
var silent = map[string]bool{
	"defs": true, "title": true, "desc": true, "metadata": true, "style": true,
	"symbol": true, "linearGradient": true, "radialGradient": true,
	"pattern": true, "clipPath": true, "mask": true, "filter": true, "marker": true,
}

var containers = map[string]bool{"svg": true, "g": true, "a": true, "switch": true}

// Sniff reports whether data looks like an SVG document.
func Sniff(data []byte) bool {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), " \t\r\n")
	for _, prefix := range []string{"<?xml", "<svg", "<!DOCTYPE svg"} {
		if bytes.HasPrefix(trimmed, []byte(prefix)) {
			return true
		}
	}
	return false
}

// Parse reads an SVG document. A nil logger discards warnings.
func Parse(data []byte, logger observability.Logger) (*Image, error) {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	img := &Image{}
	seen := map[string]bool{}
	warn := func(feature string) {
		if seen[feature] {
			return
		}
		seen[feature] = true
		img.Warnings = append(img.Warnings, feature)
		logger.Warn("svg feature not supported", observability.String("feature", feature))
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	var stack []frame
	rootSeen := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("svg: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if len(stack) > 0 && stack[len(stack)-1].skip {
				stack = append(stack, frame{skip: true})
				continue
			}
			attrs := attrMap(t.Attr)
			if !rootSeen {
				if name != "svg" {
					return nil, fmt.Errorf("svg: root element is <%s>", name)
				}
				rootSeen = true
				img.readViewport(attrs)
				root := frame{style: defaultStyle().inherit(properties(attrs), warn), ctm: coords.Identity()}
				if v, ok := attrs["transform"]; ok {
					if m, err := parseTransform(v); err == nil {
						root.ctm = m
					}
				}
				stack = append(stack, root)
				continue
			}
			parent := stack[len(stack)-1]
			props := properties(attrs)
			for _, a := range []string{"clip-path", "mask", "filter"} {
				if v, ok := props[a]; ok && v != "none" {
					warn(a)
				}
			}
			st := parent.style.inherit(props, warn)
			ctm := parent.ctm
			if v, ok := attrs["transform"]; ok {
				local, err := parseTransform(v)
				if err != nil {
					warn("transform " + v)
				} else {
					ctm = local.Multiply(ctm)
				}
			}
			if name == "svg" {
				x, _ := parseLength(attrs["x"])
				y, _ := parseLength(attrs["y"])
				ctm = coords.Translate(x, y).Multiply(ctm)
			}
			f := frame{style: st, ctm: ctm}
			switch {
			case containers[name]:
			case silent[name]:
				f.skip = true
			default:
				f.skip = true
				if !st.display {
					break
				}
				p, err := shapePath(name, attrs)
				if err != nil {
					warn(err.Error())
					break
				}
				if p == nil {
					warn("element <" + name + ">")
					break
				}
				if shape, ok := makeShape(name, p, st, ctm); ok {
					img.Shapes = append(img.Shapes, shape)
				}
			}
			if !st.display {
				f.skip = true
			}
			stack = append(stack, f)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if !rootSeen {
		return nil, errors.New("svg: no <svg> element")
	}
	img.resolveSize()
	if img.Width <= 0 || img.Height <= 0 {
		return nil, errors.New("svg: document has no intrinsic size")
	}
	return img, nil
}

func attrMap(attrs []xml.Attr) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		out[a.Name.Local] = a.Value
	}
	return out
}

func (img *Image) readViewport(attrs map[string]string) {
	if w, err := parseLength(attrs["width"]); err == nil {
		img.Width = w
	}
	if h, err := parseLength(attrs["height"]); err == nil {
		img.Height = h
	}
	if vb, err := parseNumbers(attrs["viewBox"]); err == nil && len(vb) == 4 && vb[2] > 0 && vb[3] > 0 {
		img.ViewBox = Rect{X: vb[0], Y: vb[1], W: vb[2], H: vb[3]}
	}
	img.Stretch = strings.HasPrefix(strings.TrimSpace(attrs["preserveAspectRatio"]), "none")
}

// resolveSize fills the viewport and viewBox from each other, falling back
// to the bounds of the drawn shapes.
func (img *Image) resolveSize() {
	if img.ViewBox.W <= 0 || img.ViewBox.H <= 0 {
		switch {
		case img.Width > 0 && img.Height > 0:
			img.ViewBox = Rect{W: img.Width, H: img.Height}
		default:
			img.ViewBox = img.Bounds()
		}
	}
	switch {
	case img.Width <= 0 && img.Height <= 0:
		img.Width, img.Height = img.ViewBox.W, img.ViewBox.H
	case img.Width <= 0 && img.ViewBox.H > 0:
		img.Width = img.Height * img.ViewBox.W / img.ViewBox.H
	case img.Height <= 0 && img.ViewBox.W > 0:
		img.Height = img.Width * img.ViewBox.H / img.ViewBox.W
	}
}

// Bounds is the union of all shape control boxes.
func (img *Image) Bounds() Rect {
	var r Rect
	first := true
	for _, s := range img.Shapes {
		x0, y0, x1, y1, ok := s.Path.Bounds()
		if !ok {
			continue
		}
		if first {
			r = Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
			first = false
			continue
		}
		nx0, ny0 := min(r.X, x0), min(r.Y, y0)
		nx1, ny1 := max(r.X+r.W, x1), max(r.Y+r.H, y1)
		r = Rect{X: nx0, Y: ny0, W: nx1 - nx0, H: ny1 - ny0}
	}
	return r
}

// shapePath builds the untransformed outline of a basic shape. It returns
// nil for unknown elements.
func shapePath(name string, attrs map[string]string) (*contentstream.Path, error) {
	num := func(key string) float64 {
		v, err := parseLength(attrs[key])
		if err != nil {
			return 0
		}
		return v
	}
	switch name {
	case "path":
		p, err := parsePathData(attrs["d"])
		if err != nil {
			return nil, fmt.Errorf("path data: %w", err)
		}
		return p, nil
	case "rect":
		w, h := num("width"), num("height")
		rx, rxSet := attrs["rx"]
		ry, rySet := attrs["ry"]
		var rxv, ryv float64
		if rxSet {
			rxv, _ = parseLength(rx)
		}
		if rySet {
			ryv, _ = parseLength(ry)
		}
		switch {
		case rxSet && !rySet:
			ryv = rxv
		case rySet && !rxSet:
			rxv = ryv
		}
		rxv = min(max(rxv, 0), w/2)
		ryv = min(max(ryv, 0), h/2)
		return contentstream.RoundedRect(num("x"), num("y"), w, h, rxv, ryv), nil
	case "circle":
		r := num("r")
		return contentstream.Ellipse(num("cx"), num("cy"), r, r), nil
	case "ellipse":
		return contentstream.Ellipse(num("cx"), num("cy"), num("rx"), num("ry")), nil
	case "line":
		return polyPath([]float64{num("x1"), num("y1"), num("x2"), num("y2")}, false), nil
	case "polyline", "polygon":
		pts, err := parseNumbers(attrs["points"])
		if err != nil {
			return nil, fmt.Errorf("%s points: %w", name, err)
		}
		return polyPath(pts, name == "polygon"), nil
	}
	return nil, nil
}

// makeShape applies the transform and resolves paint. Degenerate or fully
// transparent shapes report false. A line is never filled.
func makeShape(name string, p *contentstream.Path, st style, ctm coords.Matrix) (Shape, bool) {
	if p.Empty() {
		return Shape{}, false
	}
	dev := p.Transform(ctm)
	shape := Shape{Path: dev, EvenOdd: st.evenOdd}
	x0, y0, x1, y1, _ := dev.Bounds()
	if st.fill != nil && name != "line" && x1 > x0 && y1 > y0 {
		if c, ok := withAlpha(st.fill.color, st.fillOpacity*st.opacity); ok {
			shape.Fill = &c
		}
	}
	width := st.strokeWidth * ctm.MeanScale()
	if st.stroke != nil && width > 0 {
		if c, ok := withAlpha(st.stroke.color, st.strokeOpacity*st.opacity); ok {
			shape.Stroke = &c
			shape.StrokeWidth = width
			shape.LineCap = st.lineCap
			shape.LineJoin = st.lineJoin
			shape.MiterLimit = st.miterLimit
		}
	}
	if shape.Fill == nil && shape.Stroke == nil {
		return Shape{}, false
	}
	return shape, true
}

func withAlpha(c document.Color, opacity float64) (document.Color, bool) {
	a := float64(c.A) * opacity
	if a < 0.5 {
		return document.Color{}, false
	}
	c.A = uint8(a + 0.5)
	return c, true
}
