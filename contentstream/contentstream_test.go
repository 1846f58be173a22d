package contentstream

import (
	"errors"
	"strings"
	"testing"

	"github.com/wudi/pdfrender/coords"
)

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{
		0:           "0",
		-0.00001:    "0",
		72:          "72",
		-3:          "-3",
		0.5:         "0.5",
		12.34567:    "12.3457",
		1e-7:        "0",
		123456789.5: "123456789.5",
	}
	for in, want := range cases {
		if got := FormatNumber(in); got != want {
			t.Fatalf("FormatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestSerialize(t *testing.T) {
	ops := []Operation{
		{Operator: "q"},
		{Operator: "rg", Operands: []Operand{Number(1), Number(0), Number(0.5)}},
		{Operator: "Tf", Operands: []Operand{Name("F1"), Number(12)}},
		{Operator: "Tj", Operands: []Operand{HexString{0x00, 0x01, 0xAB}}},
		{Operator: "Tj", Operands: []Operand{String("a(b)")}},
		{Operator: "TJ", Operands: []Operand{Array{String("x"), Number(-20)}}},
		{Operator: "Q"},
	}
	want := "q\n1 0 0.5 rg\n/F1 12 Tf\n<0001AB> Tj\n(a\\(b\\)) Tj\n[(x) -20] TJ\nQ\n"
	if got := string(Serialize(ops)); got != want {
		t.Fatalf("serialize mismatch:\n%s\nwant:\n%s", got, want)
	}
	if Serialize(nil) != nil {
		t.Fatalf("empty stream should serialize to nil")
	}
}

func TestScopedRestoresOnError(t *testing.T) {
	b := NewBuilder()
	boom := errors.New("boom")
	err := b.Scoped(func() error {
		b.FillRGB(1, 0, 0)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if b.Depth() != 0 {
		t.Fatalf("depth not restored: %d", b.Depth())
	}
	if got := string(b.Bytes()); got != "q\n1 0 0 rg\nQ\n" {
		t.Fatalf("unexpected stream %q", got)
	}
}

func TestAppendPathTransforms(t *testing.T) {
	var p Path
	p.MoveTo(0, 0)
	p.LineTo(10, 0)
	p.CurveTo(10, 5, 5, 10, 0, 10)
	p.Close()
	b := NewBuilder()
	b.AppendPath(&p, coords.Translate(100, 200)).Paint(true, false)
	want := "100 200 m\n110 200 l\n110 205 105 210 100 210 c\nh\nf\n"
	if got := string(b.Bytes()); got != want {
		t.Fatalf("path mismatch:\n%s\nwant:\n%s", got, want)
	}
}

func TestPathBoundsAndTransform(t *testing.T) {
	var p Path
	p.MoveTo(1, 2)
	p.CurveTo(-1, 0, 5, 8, 3, 4)
	minX, minY, maxX, maxY, ok := p.Bounds()
	if !ok || minX != -1 || minY != 0 || maxX != 5 || maxY != 8 {
		t.Fatalf("bounds = %v %v %v %v %v", minX, minY, maxX, maxY, ok)
	}
	q := p.Transform(coords.Scale(2, 2))
	if x, y := q.LastPoint(); x != 6 || y != 8 {
		t.Fatalf("last point = %v,%v", x, y)
	}
	if p.Empty() || (&Path{}).Empty() == false {
		t.Fatalf("Empty misreported")
	}
}

func TestPaintOperator(t *testing.T) {
	got := strings.Join([]string{
		PaintOperator(true, true), PaintOperator(true, false),
		PaintOperator(false, true), PaintOperator(false, false),
	}, " ")
	if got != "B f S n" {
		t.Fatalf("paint operators = %q", got)
	}
}

func TestConcatSkipsIdentity(t *testing.T) {
	b := NewBuilder().Concat(coords.Identity()).Concat(coords.FlipY(792))
	if got := string(b.Bytes()); got != "1 0 0 -1 0 792 cm\n" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestRoundedRectShape(t *testing.T) {
	plain := RoundedRect(0, 0, 10, 20, 0, 0)
	if got := len(plain.Subpaths[0].Points); got != 4 || !plain.Subpaths[0].Closed {
		t.Fatalf("plain rect points = %d closed = %v, want 4 closed", got, plain.Subpaths[0].Closed)
	}
	rounded := RoundedRect(0, 0, 10, 20, 2, 2)
	curves := 0
	for _, pt := range rounded.Subpaths[0].Points {
		if pt.Type == PathCurveTo {
			curves++
		}
	}
	if curves != 4 {
		t.Fatalf("curves = %d, want 4", curves)
	}
	minX, minY, maxX, maxY, ok := rounded.Bounds()
	if !ok || minX != 0 || minY != 0 || maxX != 10 || maxY != 20 {
		t.Fatalf("bounds = %v %v %v %v", minX, minY, maxX, maxY)
	}
}

func TestEllipseIsClosedCurve(t *testing.T) {
	p := Ellipse(5, 5, 5, 3)
	sp := p.Subpaths[0]
	if sp.Points[0].Type != PathMoveTo || !sp.Closed {
		t.Fatalf("ellipse not a closed subpath: %+v", sp)
	}
}
