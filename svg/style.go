package svg

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/wudi/pdfrender/contentstream"
	"github.com/wudi/pdfrender/coords"
	"github.com/wudi/pdfrender/document"
)

// paint is a resolved fill or stroke. A nil *paint means none.
type paint struct {
	color document.Color
}

// style is the inherited presentation state of a node. A zero miterLimit
// leaves the PDF default in place.
type style struct {
	fill          *paint
	stroke        *paint
	strokeWidth   float64
	fillOpacity   float64
	strokeOpacity float64
	opacity       float64
	evenOdd       bool
	lineCap       contentstream.LineCap
	lineJoin      contentstream.LineJoin
	miterLimit    float64
	current       document.Color
	display       bool
}

func defaultStyle() style {
	return style{
		fill:          &paint{color: document.Black},
		strokeWidth:   1,
		fillOpacity:   1,
		strokeOpacity: 1,
		opacity:       1,
		current:       document.Black,
		display:       true,
	}
}

// properties merges presentation attributes with the style attribute;
// declarations in style win.
func properties(attrs map[string]string) map[string]string {
	props := make(map[string]string, len(attrs))
	for k, v := range attrs {
		props[k] = strings.TrimSpace(v)
	}
	if css, ok := attrs["style"]; ok {
		for _, decl := range strings.Split(css, ";") {
			k, v, ok := strings.Cut(decl, ":")
			if !ok {
				continue
			}
			props[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return props
}

// inherit derives a child style from the parent and the node's properties.
// Unsupported paint servers are reported through warn.
func (s style) inherit(props map[string]string, warn func(string)) style {
	out := s
	if v, ok := props["color"]; ok {
		if c, ok := parseColor(v, s.current); ok {
			out.current = c
		}
	}
	if v, ok := props["fill"]; ok {
		out.fill = resolvePaint(v, out.current, s.fill, warn, "fill")
	}
	if v, ok := props["stroke"]; ok {
		out.stroke = resolvePaint(v, out.current, s.stroke, warn, "stroke")
	}
	if v, ok := props["stroke-width"]; ok {
		if w, err := parseLength(v); err == nil && w >= 0 {
			out.strokeWidth = w
		}
	}
	if v, ok := props["stroke-linecap"]; ok {
		switch v {
		case "butt":
			out.lineCap = contentstream.LineCapButt
		case "round":
			out.lineCap = contentstream.LineCapRound
		case "square":
			out.lineCap = contentstream.LineCapSquare
		}
	}
	if v, ok := props["stroke-linejoin"]; ok {
		switch v {
		case "miter", "miter-clip":
			out.lineJoin = contentstream.LineJoinMiter
		case "round":
			out.lineJoin = contentstream.LineJoinRound
		case "bevel":
			out.lineJoin = contentstream.LineJoinBevel
		case "arcs":
			warn("stroke-linejoin arcs")
			out.lineJoin = contentstream.LineJoinMiter
		}
	}
	if v, ok := props["stroke-miterlimit"]; ok {
		if m, err := strconv.ParseFloat(v, 64); err == nil && m >= 1 {
			out.miterLimit = m
		}
	}
	if v, ok := props["fill-opacity"]; ok {
		out.fillOpacity = parseOpacity(v, s.fillOpacity)
	}
	if v, ok := props["stroke-opacity"]; ok {
		out.strokeOpacity = parseOpacity(v, s.strokeOpacity)
	}
	if v, ok := props["opacity"]; ok {
		out.opacity = s.opacity * parseOpacity(v, 1)
	}
	if v, ok := props["fill-rule"]; ok {
		out.evenOdd = v == "evenodd"
	}
	if v, ok := props["display"]; ok && v == "none" {
		out.display = false
	}
	if v, ok := props["visibility"]; ok && (v == "hidden" || v == "collapse") {
		out.display = false
	}
	return out
}

func resolvePaint(v string, current document.Color, parent *paint, warn func(string), what string) *paint {
	switch {
	case v == "none" || v == "transparent":
		return nil
	case v == "inherit":
		return parent
	case strings.HasPrefix(v, "url("):
		warn("paint server " + what)
		return nil
	}
	c, ok := parseColor(v, current)
	if !ok {
		warn(fmt.Sprintf("%s color %q", what, v))
		return parent
	}
	return &paint{color: c}
}

func parseOpacity(v string, fallback float64) float64 {
	v = strings.TrimSpace(v)
	pct := strings.HasSuffix(v, "%")
	f, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
	if err != nil {
		return fallback
	}
	if pct {
		f /= 100
	}
	return math.Max(0, math.Min(1, f))
}

// parseColor understands #rgb, #rgba, #rrggbb, #rrggbbaa, rgb(), rgba(),
// currentColor and the CSS named colors.
func parseColor(v string, current document.Color) (document.Color, bool) {
	v = strings.TrimSpace(v)
	lower := strings.ToLower(v)
	switch {
	case lower == "currentcolor":
		return current, true
	case strings.HasPrefix(v, "#"):
		return parseHexColor(v[1:])
	case strings.HasPrefix(lower, "rgb"):
		return parseRGBFunc(lower)
	}
	if c, ok := colornames.Map[lower]; ok {
		return document.RGBA(c.R, c.G, c.B, 255), true
	}
	return document.Color{}, false
}

func parseHexColor(h string) (document.Color, bool) {
	nibble := func(i int) (uint8, bool) {
		n, err := strconv.ParseUint(h[i:i+1], 16, 8)
		return uint8(n) * 17, err == nil
	}
	pair := func(i int) (uint8, bool) {
		n, err := strconv.ParseUint(h[i:i+2], 16, 8)
		return uint8(n), err == nil
	}
	var ch [4]uint8
	ch[3] = 255
	switch len(h) {
	case 3, 4:
		for i := range len(h) {
			v, ok := nibble(i)
			if !ok {
				return document.Color{}, false
			}
			ch[i] = v
		}
	case 6, 8:
		for i := 0; i < len(h)/2; i++ {
			v, ok := pair(2 * i)
			if !ok {
				return document.Color{}, false
			}
			ch[i] = v
		}
	default:
		return document.Color{}, false
	}
	return document.RGBA(ch[0], ch[1], ch[2], ch[3]), true
}

func parseRGBFunc(v string) (document.Color, bool) {
	open := strings.IndexByte(v, '(')
	closing := strings.LastIndexByte(v, ')')
	if open < 0 || closing < open {
		return document.Color{}, false
	}
	parts := strings.FieldsFunc(v[open+1:closing], func(r rune) bool {
		return r == ',' || r == ' ' || r == '/'
	})
	if len(parts) != 3 && len(parts) != 4 {
		return document.Color{}, false
	}
	var ch [4]uint8
	ch[3] = 255
	for i, p := range parts {
		pct := strings.HasSuffix(p, "%")
		f, err := strconv.ParseFloat(strings.TrimSuffix(p, "%"), 64)
		if err != nil {
			return document.Color{}, false
		}
		switch {
		case i == 3 && !pct:
			f *= 255
		case pct:
			f = f * 255 / 100
		}
		ch[i] = uint8(math.Round(math.Max(0, math.Min(255, f))))
	}
	return document.RGBA(ch[0], ch[1], ch[2], ch[3]), true
}

// parseLength converts an SVG length to user units (px). Percentages are
// not resolved and yield an error.
func parseLength(v string) (float64, error) {
	v = strings.TrimSpace(v)
	units := []struct {
		suffix string
		scale  float64
	}{
		{"px", 1}, {"pt", 96.0 / 72}, {"pc", 16}, {"mm", 96 / 25.4},
		{"cm", 96 / 2.54}, {"in", 96},
	}
	scale := 1.0
	for _, u := range units {
		if strings.HasSuffix(v, u.suffix) {
			v = strings.TrimSuffix(v, u.suffix)
			scale = u.scale
			break
		}
	}
	if strings.HasSuffix(v, "%") {
		return 0, fmt.Errorf("relative length %q", v)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("length %q: %w", v, err)
	}
	return f * scale, nil
}

// parseTransform evaluates a transform list. The first listed transform is
// the outermost one.
func parseTransform(v string) (coords.Matrix, error) {
	m := coords.Identity()
	rest := strings.TrimSpace(v)
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		closing := strings.IndexByte(rest, ')')
		if open < 0 || closing < open {
			return coords.Identity(), fmt.Errorf("transform %q: unbalanced parentheses", v)
		}
		name := strings.TrimSpace(strings.Trim(rest[:open], ", \t\n"))
		args, err := parseNumbers(rest[open+1 : closing])
		if err != nil {
			return coords.Identity(), fmt.Errorf("transform %q: %w", v, err)
		}
		t, err := transformOf(name, args)
		if err != nil {
			return coords.Identity(), err
		}
		m = t.Multiply(m)
		rest = strings.TrimSpace(rest[closing+1:])
	}
	return m, nil
}

func transformOf(name string, a []float64) (coords.Matrix, error) {
	arity := func(ns ...int) error {
		for _, n := range ns {
			if len(a) == n {
				return nil
			}
		}
		return fmt.Errorf("transform %s: %d arguments", name, len(a))
	}
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	switch name {
	case "matrix":
		if err := arity(6); err != nil {
			return coords.Identity(), err
		}
		return coords.Matrix{a[0], a[1], a[2], a[3], a[4], a[5]}, nil
	case "translate":
		if err := arity(1, 2); err != nil {
			return coords.Identity(), err
		}
		if len(a) == 1 {
			return coords.Translate(a[0], 0), nil
		}
		return coords.Translate(a[0], a[1]), nil
	case "scale":
		if err := arity(1, 2); err != nil {
			return coords.Identity(), err
		}
		if len(a) == 1 {
			return coords.Scale(a[0], a[0]), nil
		}
		return coords.Scale(a[0], a[1]), nil
	case "rotate":
		if err := arity(1, 3); err != nil {
			return coords.Identity(), err
		}
		r := coords.Rotate(rad(a[0]))
		if len(a) == 3 {
			return coords.Translate(-a[1], -a[2]).Multiply(r).Multiply(coords.Translate(a[1], a[2])), nil
		}
		return r, nil
	case "skewX":
		if err := arity(1); err != nil {
			return coords.Identity(), err
		}
		return coords.SkewX(rad(a[0])), nil
	case "skewY":
		if err := arity(1); err != nil {
			return coords.Identity(), err
		}
		return coords.SkewY(rad(a[0])), nil
	}
	return coords.Identity(), fmt.Errorf("unknown transform %q", name)
}
