package coords

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMultiplyOrder(t *testing.T) {
	m := Scale(2, 2).Multiply(Translate(10, 0))
	x, y := m.Apply(1, 1)
	if !near(x, 12) || !near(y, 2) {
		t.Fatalf("scale then translate: got (%v,%v)", x, y)
	}
}

func TestInverseRoundTrip(t *testing.T) {
	m := Rotate(0.3).Multiply(Scale(2, 3)).Multiply(Translate(5, -7))
	inv, err := m.Inverse()
	if err != nil {
		t.Fatalf("inverse: %v", err)
	}
	p := m.Transform(Point{X: 3, Y: 4})
	q := inv.Transform(p)
	if !near(q.X, 3) || !near(q.Y, 4) {
		t.Fatalf("round trip: got %+v", q)
	}
	if _, err := Scale(0, 1).Inverse(); err == nil {
		t.Fatalf("expected singular matrix error")
	}
}

func TestFlipY(t *testing.T) {
	x, y := FlipY(792).Apply(72, 72)
	if x != 72 || y != 720 {
		t.Fatalf("flip: got (%v,%v)", x, y)
	}
	if !near(Scale(2, 8).MeanScale(), 4) {
		t.Fatalf("mean scale")
	}
}
