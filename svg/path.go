package svg

import (
	"fmt"
	"math"
	"strconv"

	"github.com/wudi/pdfrender/contentstream"
)

type scanner struct {
	s string
	i int
}

func (sc *scanner) skipSeparators() {
	for sc.i < len(sc.s) {
		switch sc.s[sc.i] {
		case ' ', '\t', '\n', '\r', ',':
			sc.i++
		default:
			return
		}
	}
}

func (sc *scanner) done() bool {
	sc.skipSeparators()
	return sc.i >= len(sc.s)
}

// atNumber reports whether the next token starts a number.
func (sc *scanner) atNumber() bool {
	sc.skipSeparators()
	if sc.i >= len(sc.s) {
		return false
	}
	c := sc.s[sc.i]
	return c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9')
}

func (sc *scanner) number() (float64, error) {
	sc.skipSeparators()
	start := sc.i
	if sc.i < len(sc.s) && (sc.s[sc.i] == '-' || sc.s[sc.i] == '+') {
		sc.i++
	}
	digits := func() int {
		n := 0
		for sc.i < len(sc.s) && sc.s[sc.i] >= '0' && sc.s[sc.i] <= '9' {
			sc.i++
			n++
		}
		return n
	}
	n := digits()
	if sc.i < len(sc.s) && sc.s[sc.i] == '.' {
		sc.i++
		n += digits()
	}
	if n == 0 {
		return 0, fmt.Errorf("expected number at offset %d", start)
	}
	if sc.i < len(sc.s) && (sc.s[sc.i] == 'e' || sc.s[sc.i] == 'E') {
		mark := sc.i
		sc.i++
		if sc.i < len(sc.s) && (sc.s[sc.i] == '-' || sc.s[sc.i] == '+') {
			sc.i++
		}
		if digits() == 0 {
			sc.i = mark
		}
	}
	return strconv.ParseFloat(sc.s[start:sc.i], 64)
}

// flag reads an arc flag, which may be written without a separator.
func (sc *scanner) flag() (bool, error) {
	sc.skipSeparators()
	if sc.i < len(sc.s) {
		switch sc.s[sc.i] {
		case '0':
			sc.i++
			return false, nil
		case '1':
			sc.i++
			return true, nil
		}
	}
	return false, fmt.Errorf("expected arc flag at offset %d", sc.i)
}

func (sc *scanner) numbers(n int) ([]float64, error) {
	out := make([]float64, n)
	for k := range out {
		v, err := sc.number()
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// parseNumbers reads a separator-delimited list of numbers.
func parseNumbers(s string) ([]float64, error) {
	sc := &scanner{s: s}
	var out []float64
	for !sc.done() {
		v, err := sc.number()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// parsePathData converts SVG path data into absolute cubic segments.
// Quadratic curves and arcs are converted to cubics.
func parsePathData(d string) (*contentstream.Path, error) {
	sc := &scanner{s: d}
	p := &contentstream.Path{}
	var (
		cmd            byte
		x, y           float64
		sx, sy         float64
		lastCX, lastCY float64 // reflected control for S/T
		lastKind       byte
		closed         bool
	)
	for !sc.done() {
		if c := sc.s[sc.i]; !sc.atNumber() {
			cmd = c
			sc.i++
		} else if cmd == 0 {
			return nil, fmt.Errorf("expected path command at offset %d", sc.i)
		}
		rel := cmd >= 'a' && cmd <= 'z'
		abs := cmd &^ 0x20
		if closed && abs != 'M' && abs != 'Z' {
			// drawing after closepath starts a new subpath at the start point
			p.MoveTo(x, y)
		}
		closed = false
		ox, oy := 0.0, 0.0
		if rel {
			ox, oy = x, y
		}
		switch abs {
		case 'M':
			a, err := sc.numbers(2)
			if err != nil {
				return nil, err
			}
			x, y = ox+a[0], oy+a[1]
			sx, sy = x, y
			p.MoveTo(x, y)
			// further pairs are implicit lineto
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
			lastKind = 'M'
			continue
		case 'L':
			a, err := sc.numbers(2)
			if err != nil {
				return nil, err
			}
			x, y = ox+a[0], oy+a[1]
			p.LineTo(x, y)
		case 'H':
			v, err := sc.number()
			if err != nil {
				return nil, err
			}
			x = ox + v
			p.LineTo(x, y)
		case 'V':
			v, err := sc.number()
			if err != nil {
				return nil, err
			}
			y = oy + v
			p.LineTo(x, y)
		case 'C':
			a, err := sc.numbers(6)
			if err != nil {
				return nil, err
			}
			p.CurveTo(ox+a[0], oy+a[1], ox+a[2], oy+a[3], ox+a[4], oy+a[5])
			lastCX, lastCY = ox+a[2], oy+a[3]
			x, y = ox+a[4], oy+a[5]
		case 'S':
			a, err := sc.numbers(4)
			if err != nil {
				return nil, err
			}
			c1x, c1y := x, y
			if lastKind == 'C' || lastKind == 'S' {
				c1x, c1y = 2*x-lastCX, 2*y-lastCY
			}
			p.CurveTo(c1x, c1y, ox+a[0], oy+a[1], ox+a[2], oy+a[3])
			lastCX, lastCY = ox+a[0], oy+a[1]
			x, y = ox+a[2], oy+a[3]
		case 'Q':
			a, err := sc.numbers(4)
			if err != nil {
				return nil, err
			}
			qx, qy := ox+a[0], oy+a[1]
			quadTo(p, x, y, qx, qy, ox+a[2], oy+a[3])
			lastCX, lastCY = qx, qy
			x, y = ox+a[2], oy+a[3]
		case 'T':
			a, err := sc.numbers(2)
			if err != nil {
				return nil, err
			}
			qx, qy := x, y
			if lastKind == 'Q' || lastKind == 'T' {
				qx, qy = 2*x-lastCX, 2*y-lastCY
			}
			quadTo(p, x, y, qx, qy, ox+a[0], oy+a[1])
			lastCX, lastCY = qx, qy
			x, y = ox+a[0], oy+a[1]
		case 'A':
			a, err := sc.numbers(3)
			if err != nil {
				return nil, err
			}
			large, err := sc.flag()
			if err != nil {
				return nil, err
			}
			sweep, err := sc.flag()
			if err != nil {
				return nil, err
			}
			end, err := sc.numbers(2)
			if err != nil {
				return nil, err
			}
			ex, ey := ox+end[0], oy+end[1]
			arcTo(p, x, y, a[0], a[1], a[2], large, sweep, ex, ey)
			x, y = ex, ey
		case 'Z':
			p.Close()
			x, y = sx, sy
			lastKind = 'Z'
			closed = true
			cmd = 0
			continue
		default:
			return nil, fmt.Errorf("unknown path command %q", cmd)
		}
		lastKind = abs
	}
	return p, nil
}

func quadTo(p *contentstream.Path, x0, y0, qx, qy, x, y float64) {
	p.CurveTo(
		x0+2.0/3*(qx-x0), y0+2.0/3*(qy-y0),
		x+2.0/3*(qx-x), y+2.0/3*(qy-y),
		x, y,
	)
}

// arcTo appends an elliptical arc from (x1, y1) to (x2, y2) as cubic
// segments spanning at most a quarter turn each.
func arcTo(p *contentstream.Path, x1, y1, rx, ry, phiDeg float64, large, sweep bool, x2, y2 float64) {
	if x1 == x2 && y1 == y2 {
		return
	}
	rx, ry = math.Abs(rx), math.Abs(ry)
	if rx == 0 || ry == 0 {
		p.LineTo(x2, y2)
		return
	}
	phi := phiDeg * math.Pi / 180
	cosPhi, sinPhi := math.Cos(phi), math.Sin(phi)
	dx, dy := (x1-x2)/2, (y1-y2)/2
	x1p := cosPhi*dx + sinPhi*dy
	y1p := -sinPhi*dx + cosPhi*dy

	if lambda := x1p*x1p/(rx*rx) + y1p*y1p/(ry*ry); lambda > 1 {
		s := math.Sqrt(lambda)
		rx *= s
		ry *= s
	}
	num := rx*rx*ry*ry - rx*rx*y1p*y1p - ry*ry*x1p*x1p
	den := rx*rx*y1p*y1p + ry*ry*x1p*x1p
	coef := 0.0
	if den > 0 {
		coef = math.Sqrt(math.Max(0, num/den))
	}
	if large == sweep {
		coef = -coef
	}
	cxp := coef * rx * y1p / ry
	cyp := -coef * ry * x1p / rx
	cx := cosPhi*cxp - sinPhi*cyp + (x1+x2)/2
	cy := sinPhi*cxp + cosPhi*cyp + (y1+y2)/2

	ux, uy := (x1p-cxp)/rx, (y1p-cyp)/ry
	vx, vy := (-x1p-cxp)/rx, (-y1p-cyp)/ry
	theta := vectorAngle(1, 0, ux, uy)
	delta := vectorAngle(ux, uy, vx, vy)
	if !sweep && delta > 0 {
		delta -= 2 * math.Pi
	} else if sweep && delta < 0 {
		delta += 2 * math.Pi
	}

	n := int(math.Ceil(math.Abs(delta) / (math.Pi / 2)))
	if n < 1 {
		n = 1
	}
	step := delta / float64(n)
	k := 4.0 / 3 * math.Tan(step/4)
	at := func(t float64) (px, py, dx, dy float64) {
		ct, st := math.Cos(t), math.Sin(t)
		px = cx + rx*ct*cosPhi - ry*st*sinPhi
		py = cy + rx*ct*sinPhi + ry*st*cosPhi
		dx = -rx*st*cosPhi - ry*ct*sinPhi
		dy = -rx*st*sinPhi + ry*ct*cosPhi
		return
	}
	for i := range n {
		t1 := theta + float64(i)*step
		t2 := t1 + step
		p1x, p1y, d1x, d1y := at(t1)
		p2x, p2y, d2x, d2y := at(t2)
		if i == n-1 {
			p2x, p2y = x2, y2
		}
		p.CurveTo(p1x+k*d1x, p1y+k*d1y, p2x-k*d2x, p2y-k*d2y, p2x, p2y)
	}
}

func vectorAngle(ux, uy, vx, vy float64) float64 {
	return math.Atan2(ux*vy-uy*vx, ux*vx+uy*vy)
}

func polyPath(pts []float64, closed bool) *contentstream.Path {
	p := &contentstream.Path{}
	for i := 0; i+1 < len(pts); i += 2 {
		if i == 0 {
			p.MoveTo(pts[0], pts[1])
			continue
		}
		p.LineTo(pts[i], pts[i+1])
	}
	if closed {
		p.Close()
	}
	return p
}
