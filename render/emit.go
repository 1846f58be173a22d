package render

import (
	"fmt"

	"github.com/wudi/pdfrender/barcode"
	"github.com/wudi/pdfrender/contentstream"
	"github.com/wudi/pdfrender/coords"
	"github.com/wudi/pdfrender/document"
	"github.com/wudi/pdfrender/images"
	"github.com/wudi/pdfrender/layout"
	"github.com/wudi/pdfrender/pdferr"
	"github.com/wudi/pdfrender/resources"
	"github.com/wudi/pdfrender/svg"
)

// pageEmitter writes one page's content stream. Coordinates arrive in
// top-left, y-down page space and leave flipped to PDF space; the flip
// is applied to each coordinate so text needs no mirroring.
type pageEmitter struct {
	b      *contentstream.Builder
	height float64
	res    *resourceSet
	lookup resources.Resolver

	// Resource names referenced by this page.
	fonts    map[string]*fontResource
	xobjects map[string]xobject
	alphas   map[string]bool
}

func newPageEmitter(height float64, res *resourceSet, lookup resources.Resolver) *pageEmitter {
	return &pageEmitter{
		b:        contentstream.NewBuilder(),
		height:   height,
		res:      res,
		lookup:   lookup,
		fonts:    make(map[string]*fontResource),
		xobjects: make(map[string]xobject),
		alphas:   make(map[string]bool),
	}
}

// y flips an authored y coordinate.
func (e *pageEmitter) y(v float64) float64 { return e.height - v }

func (e *pageEmitter) flip() coords.Matrix { return coords.FlipY(e.height) }

// emitPage paints the background and every element in order, each
// element inside its own q/Q pair.
func (e *pageEmitter) emitPage(p *document.Page, page int) error {
	if bg := p.BackgroundColor(); !bg.IsWhite() {
		_ = e.b.Scoped(func() error {
			e.fill(bg)
			e.b.Rect(0, 0, p.Width, p.Height).Paint(true, false)
			return nil
		})
	}
	for j, el := range p.Elements {
		err := e.b.Scoped(func() error { return e.element(el) })
		if err != nil {
			return pdferr.Locate(err, page, j)
		}
	}
	return nil
}

func (e *pageEmitter) element(el document.Element) error {
	switch v := el.(type) {
	case *document.Text:
		return e.text(v)
	case *document.TextBox:
		return e.textBox(v)
	case *document.Rect:
		e.rect(v)
	case *document.Line:
		e.line(v)
	case *document.Image:
		return e.image(v)
	case *document.Barcode:
		return e.barcode(v)
	case *document.QRCode:
		return e.qrcode(v)
	default:
		return fmt.Errorf("unknown element %T", el)
	}
	return nil
}

func (e *pageEmitter) alpha(a uint8) {
	if a == 255 {
		return
	}
	name := alphaName(a)
	e.alphas[name] = true
	e.b.ExtGState(name)
}

func (e *pageEmitter) fill(c document.Color) {
	e.alpha(c.A)
	e.b.FillRGB(c.Floats())
}

func (e *pageEmitter) stroke(c document.Color) {
	e.alpha(c.A)
	e.b.StrokeRGB(c.Floats())
}

func (e *pageEmitter) font(ref string) (*fontResource, error) {
	fr, ok := e.res.fonts[ref]
	if !ok {
		return nil, pdferr.Missing("font", ref)
	}
	e.fonts[fr.name] = fr
	return fr, nil
}

// showRuns writes runs as one text object. Each run after the first is
// positioned relative to the previous one.
func (e *pageEmitter) showRuns(fr *fontResource, size float64, runs []layout.Run) error {
	e.b.BeginText().Font(fr.name, size)
	var px, py float64
	for i, run := range runs {
		x, y := run.X, e.y(run.Baseline)
		if i == 0 {
			e.b.TextPosition(x, y)
		} else {
			e.b.TextPosition(x-px, y-py)
		}
		px, py = x, y
		encoded, err := fr.emb.Encode(run.Text)
		if err != nil {
			return err
		}
		if len(encoded) > 0 {
			e.b.ShowHex(encoded)
		}
	}
	e.b.EndText()
	return nil
}

func (e *pageEmitter) text(t *document.Text) error {
	fr, err := e.font(t.Font)
	if err != nil {
		return err
	}
	run := layout.PlaceText(fr.emb.Font, t)
	e.fill(t.Color)
	return e.showRuns(fr, t.Size, []layout.Run{run})
}

func (e *pageEmitter) textBox(tb *document.TextBox) error {
	fr, err := e.font(tb.Font)
	if err != nil {
		return err
	}
	block := layout.LayoutBox(fr.emb.Font, tb)
	if len(block.Lines) == 0 {
		return nil
	}
	box := block.Box
	e.b.Rect(box.X, e.y(box.Y+box.H), box.W, box.H).Clip()
	e.fill(tb.Color)
	return e.showRuns(fr, tb.Size, block.Lines)
}

func (e *pageEmitter) rect(r *document.Rect) {
	fill := r.FillColor != nil
	stroke := r.Stroke > 0
	if !fill && !stroke {
		return
	}
	path := func() {
		if radius := roundedRadius(r.CornerRadius, r.W, r.H); radius > 0 {
			e.b.AppendPath(contentstream.RoundedRect(r.X, r.Y, r.W, r.H, radius, radius), e.flip())
			return
		}
		e.b.Rect(r.X, e.y(r.Y+r.H), r.W, r.H)
	}
	if fill && stroke && r.FillColor.A != r.StrokeColor.A {
		// One constant alpha state covers both paints, so translucent
		// fills and strokes with different alphas are painted apart.
		_ = e.b.Scoped(func() error {
			e.fill(*r.FillColor)
			path()
			e.b.Paint(true, false)
			return nil
		})
		e.b.LineWidth(r.Stroke)
		e.stroke(r.StrokeColor)
		path()
		e.b.Paint(false, true)
		return
	}
	if fill {
		e.fill(*r.FillColor)
	}
	if stroke {
		e.b.LineWidth(r.Stroke)
		e.stroke(r.StrokeColor)
	}
	path()
	e.b.Paint(fill, stroke)
}

func (e *pageEmitter) line(l *document.Line) {
	if l.Stroke <= 0 {
		return
	}
	e.b.LineWidth(l.Stroke)
	e.stroke(l.Color)
	e.b.MoveTo(l.X1, e.y(l.Y1)).LineTo(l.X2, e.y(l.Y2)).Paint(false, true)
}

func (e *pageEmitter) image(el *document.Image) error {
	img, err := e.lookup.Image(el.ImageRef)
	if err != nil {
		return err
	}
	w, h := img.Resolve(el.W, el.H)
	if w <= 0 || h <= 0 {
		return nil
	}
	x := el.X + layout.AlignOffset(el.Align, w)

	if img.IsVector() {
		xo, ok := e.res.forms[el.ImageRef]
		if !ok {
			return pdferr.Missing("image", el.ImageRef)
		}
		v := img.Vector
		p := v.Placement(svg.Rect{X: x, Y: el.Y, W: w, H: h})
		e.b.Concat(coords.Matrix{p.W / v.Width, 0, 0, p.H / v.Height, p.X, e.y(p.Y + p.H)})
		e.b.XObject(xo.name)
		e.xobjects[xo.name] = xo
		return nil
	}
	xo, ok := e.res.rasters[images.SizeKey(el.ImageRef, w, h)]
	if !ok {
		return pdferr.Missing("image", el.ImageRef)
	}
	e.b.Concat(coords.Matrix{w, 0, 0, h, x, e.y(el.Y + h)})
	e.b.XObject(xo.name)
	e.xobjects[xo.name] = xo
	return nil
}

func (e *pageEmitter) barcode(bc *document.Barcode) error {
	modules, err := barcode.Code128(bc.Value)
	if err != nil {
		return err
	}
	size := bc.LabelSize()
	barH := bc.H
	if bc.HumanReadable {
		barH = max(bc.H-size-4, 0)
	}
	moduleW := bc.W / float64(len(modules))
	bottom := e.y(bc.Y + barH)

	e.fill(document.Black)
	if barH > 0 {
		for _, bar := range barcode.Bars(modules) {
			e.b.Rect(bc.X+float64(bar.Start)*moduleW, bottom, float64(bar.Width)*moduleW, barH)
		}
		e.b.Paint(true, false)
	}
	if !bc.HumanReadable {
		return nil
	}
	fr, err := e.font(bc.Font)
	if err != nil {
		return err
	}
	label := &document.Text{
		X:     bc.X + bc.W/2,
		Y:     bc.Y + barH + 2 + fr.emb.Font.AscenderAt(size),
		Text:  bc.Value,
		Font:  bc.Font,
		Size:  size,
		Align: document.AlignCenter,
	}
	run := layout.PlaceText(fr.emb.Font, label)
	return e.showRuns(fr, size, []layout.Run{run})
}

func (e *pageEmitter) qrcode(q *document.QRCode) error {
	matrix, err := barcode.QR(q.Value)
	if err != nil {
		return err
	}
	n := len(matrix)
	if n == 0 || q.Size <= 0 {
		return nil
	}
	m := q.Size / float64(n)
	if !q.Background.IsWhite() && q.Background.A > 0 {
		_ = e.b.Scoped(func() error {
			e.fill(q.Background)
			e.b.Rect(q.X, e.y(q.Y+q.Size), q.Size, q.Size).Paint(true, false)
			return nil
		})
	}
	e.fill(q.Color)
	dark := false
	for r, row := range matrix {
		for c, on := range row {
			if !on {
				continue
			}
			dark = true
			e.b.Rect(q.X+float64(c)*m, e.y(q.Y+float64(r+1)*m), m, m)
		}
	}
	if dark {
		e.b.Paint(true, false)
	}
	return nil
}
