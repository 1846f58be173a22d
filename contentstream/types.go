package contentstream

import "github.com/wudi/pdfrender/coords"

// LineCap represents the line cap style (J operator).
type LineCap int

const (
	LineCapButt LineCap = iota
	LineCapRound
	LineCapSquare
)

// LineJoin represents the line join style (j operator).
type LineJoin int

const (
	LineJoinMiter LineJoin = iota
	LineJoinRound
	LineJoinBevel
)

// Kappa places cubic control points approximating a quarter ellipse.
const Kappa = 0.5522847498

// Path describes a graphics path made of subpaths.
type Path struct {
	Subpaths []Subpath
}

// Subpath describes a portion of a path.
type Subpath struct {
	Points []PathPoint
	Closed bool
}

// PathPoint identifies a path segment and its coordinates.
type PathPoint struct {
	X, Y                 float64
	Type                 PathPointType
	Control1X, Control1Y float64
	Control2X, Control2Y float64
}

// PathPointType enumerates path segment types.
type PathPointType int

const (
	PathMoveTo PathPointType = iota
	PathLineTo
	PathCurveTo
	PathClose
)

// MoveTo starts a new subpath.
func (p *Path) MoveTo(x, y float64) {
	p.Subpaths = append(p.Subpaths, Subpath{Points: []PathPoint{{X: x, Y: y, Type: PathMoveTo}}})
}

func (p *Path) current() *Subpath {
	if len(p.Subpaths) == 0 {
		p.MoveTo(0, 0)
	}
	return &p.Subpaths[len(p.Subpaths)-1]
}

// LineTo appends a straight segment.
func (p *Path) LineTo(x, y float64) {
	sp := p.current()
	sp.Points = append(sp.Points, PathPoint{X: x, Y: y, Type: PathLineTo})
}

// CurveTo appends a cubic Bézier segment.
func (p *Path) CurveTo(c1x, c1y, c2x, c2y, x, y float64) {
	sp := p.current()
	sp.Points = append(sp.Points, PathPoint{
		X: x, Y: y, Type: PathCurveTo,
		Control1X: c1x, Control1Y: c1y,
		Control2X: c2x, Control2Y: c2y,
	})
}

// Close closes the current subpath.
func (p *Path) Close() {
	if len(p.Subpaths) == 0 {
		return
	}
	p.Subpaths[len(p.Subpaths)-1].Closed = true
}

// Empty reports whether the path draws nothing.
func (p *Path) Empty() bool {
	for _, sp := range p.Subpaths {
		if len(sp.Points) > 1 {
			return false
		}
	}
	return true
}

// LastPoint returns the current point, or (0, 0) for an empty path.
func (p *Path) LastPoint() (float64, float64) {
	if len(p.Subpaths) == 0 {
		return 0, 0
	}
	sp := p.Subpaths[len(p.Subpaths)-1]
	if sp.Closed || len(sp.Points) == 0 {
		if len(sp.Points) == 0 {
			return 0, 0
		}
		return sp.Points[0].X, sp.Points[0].Y
	}
	last := sp.Points[len(sp.Points)-1]
	return last.X, last.Y
}

// Transform returns a copy of p with every point mapped through m.
func (p *Path) Transform(m coords.Matrix) *Path {
	out := &Path{Subpaths: make([]Subpath, len(p.Subpaths))}
	for i, sp := range p.Subpaths {
		pts := make([]PathPoint, len(sp.Points))
		for j, pt := range sp.Points {
			q := pt
			q.X, q.Y = m.Apply(pt.X, pt.Y)
			if pt.Type == PathCurveTo {
				q.Control1X, q.Control1Y = m.Apply(pt.Control1X, pt.Control1Y)
				q.Control2X, q.Control2Y = m.Apply(pt.Control2X, pt.Control2Y)
			}
			pts[j] = q
		}
		out.Subpaths[i] = Subpath{Points: pts, Closed: sp.Closed}
	}
	return out
}

// Bounds returns the bounding box of all points including control points.
func (p *Path) Bounds() (minX, minY, maxX, maxY float64, ok bool) {
	for _, sp := range p.Subpaths {
		for _, pt := range sp.Points {
			xs := []float64{pt.X}
			ys := []float64{pt.Y}
			if pt.Type == PathCurveTo {
				xs = append(xs, pt.Control1X, pt.Control2X)
				ys = append(ys, pt.Control1Y, pt.Control2Y)
			}
			for k := range xs {
				if !ok {
					minX, maxX, minY, maxY, ok = xs[k], xs[k], ys[k], ys[k], true
					continue
				}
				minX = min(minX, xs[k])
				maxX = max(maxX, xs[k])
				minY = min(minY, ys[k])
				maxY = max(maxY, ys[k])
			}
		}
	}
	return minX, minY, maxX, maxY, ok
}

// Ellipse builds a closed ellipse from four cubic quarters.
func Ellipse(cx, cy, rx, ry float64) *Path {
	p := &Path{}
	kx, ky := rx*Kappa, ry*Kappa
	p.MoveTo(cx+rx, cy)
	p.CurveTo(cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry)
	p.CurveTo(cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy)
	p.CurveTo(cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry)
	p.CurveTo(cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy)
	p.Close()
	return p
}

// RoundedRect builds a rectangle whose corners are quarter ellipses with
// radii rx and ry, already clamped by the caller. Zero radii give a plain
// four-sided path.
func RoundedRect(x, y, w, h, rx, ry float64) *Path {
	p := &Path{}
	if rx <= 0 || ry <= 0 {
		p.MoveTo(x, y)
		p.LineTo(x+w, y)
		p.LineTo(x+w, y+h)
		p.LineTo(x, y+h)
		p.Close()
		return p
	}
	kx, ky := rx*Kappa, ry*Kappa
	p.MoveTo(x+rx, y)
	p.LineTo(x+w-rx, y)
	p.CurveTo(x+w-rx+kx, y, x+w, y+ry-ky, x+w, y+ry)
	p.LineTo(x+w, y+h-ry)
	p.CurveTo(x+w, y+h-ry+ky, x+w-rx+kx, y+h, x+w-rx, y+h)
	p.LineTo(x+rx, y+h)
	p.CurveTo(x+rx-kx, y+h, x, y+h-ry+ky, x, y+h-ry)
	p.LineTo(x, y+ry)
	p.CurveTo(x, y+ry-ky, x+rx-kx, y, x+rx, y)
	p.Close()
	return p
}
