// Package coords holds the affine matrices shared by layout, the SVG
// converter and the content emitter. Matrices use the PDF convention
// [a b c d e f], mapping (x, y) to (a*x + c*y + e, b*x + d*y + f).
package coords

import (
	"errors"
	"math"
)

type Matrix [6]float64

func Identity() Matrix { return Matrix{1, 0, 0, 1, 0, 0} }

// Multiply returns m followed by o: applying the result equals applying m
// first and then o.
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2],
		m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2],
		m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4],
		m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

type Point struct{ X, Y float64 }

func (m Matrix) Transform(p Point) Point {
	return Point{X: m[0]*p.X + m[2]*p.Y + m[4], Y: m[1]*p.X + m[3]*p.Y + m[5]}
}

// Apply transforms a bare coordinate pair.
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

func (m Matrix) Inverse() (Matrix, error) {
	det := m.Det()
	if math.Abs(det) < 1e-10 {
		return Matrix{}, errors.New("matrix singular")
	}
	return Matrix{
		m[3] / det, -m[1] / det, -m[2] / det, m[0] / det,
		(m[2]*m[5] - m[3]*m[4]) / det, (m[1]*m[4] - m[0]*m[5]) / det,
	}, nil
}

func (m Matrix) Det() float64 { return m[0]*m[3] - m[1]*m[2] }

// MeanScale is the geometric mean of the axis scale factors, used to map
// stroke widths through a transform.
func (m Matrix) MeanScale() float64 { return math.Sqrt(math.Abs(m.Det())) }

func (m Matrix) IsIdentity() bool { return m == Identity() }

func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }
func Scale(sx, sy float64) Matrix     { return Matrix{sx, 0, 0, sy, 0, 0} }

// Rotate builds a rotation by angle radians, counter-clockwise in y-up space.
func Rotate(angle float64) Matrix {
	c := math.Cos(angle)
	s := math.Sin(angle)
	return Matrix{c, s, -s, c, 0, 0}
}

// SkewX and SkewY take angles in radians.
func SkewX(angle float64) Matrix { return Matrix{1, 0, math.Tan(angle), 1, 0, 0} }
func SkewY(angle float64) Matrix { return Matrix{1, math.Tan(angle), 0, 1, 0, 0} }

// FlipY maps top-left y-down page space onto PDF's bottom-left y-up space
// for a page of the given height.
func FlipY(pageHeight float64) Matrix { return Matrix{1, 0, 0, -1, 0, pageHeight} }
