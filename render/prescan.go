package render

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/wudi/pdfrender/barcode"
	"github.com/wudi/pdfrender/document"
	"github.com/wudi/pdfrender/fonts"
	"github.com/wudi/pdfrender/images"
	"github.com/wudi/pdfrender/pdferr"
	"github.com/wudi/pdfrender/resources"
	"github.com/wudi/pdfrender/svg"
)

// rasterUse is one raster image at one placed size.
type rasterUse struct {
	key  string
	img  *images.Image
	w, h float64
}

// pageScan is what the first pass learns from one page.
type pageScan struct {
	usage   *fonts.Usage
	rasters map[string]rasterUse
	forms   map[string]*images.Image
	alphas  map[string]bool
}

// scan is the merged, document-wide result of the first pass.
type scan struct {
	usage   *fonts.Usage
	fonts   map[string]*fonts.Font
	rasters []rasterUse
	forms   []*images.Image
	alphas  []string
}

func newPageScan() *pageScan {
	return &pageScan{
		usage:   fonts.NewUsage(),
		rasters: make(map[string]rasterUse),
		forms:   make(map[string]*images.Image),
		alphas:  make(map[string]bool),
	}
}

// prescan walks every page, resolving each resource reference, checking
// each character against its font and encoding every barcode payload.
// Pages are scanned concurrently; the merge happens only after every page
// is done.
func prescan(ctx context.Context, doc *document.Document, res resources.Resolver, workers int) (*scan, error) {
	pages := make([]*pageScan, len(doc.Pages))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range doc.Pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ps, err := scanPage(&doc.Pages[i], i, res)
			if err != nil {
				return err
			}
			pages[i] = ps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := &scan{usage: fonts.NewUsage(), fonts: make(map[string]*fonts.Font)}
	rasters := make(map[string]rasterUse)
	forms := make(map[string]*images.Image)
	alphas := make(map[string]bool)
	for _, ps := range pages {
		s.usage.Merge(ps.usage)
		for k, v := range ps.rasters {
			rasters[k] = v
		}
		for k, v := range ps.forms {
			forms[k] = v
		}
		for k := range ps.alphas {
			alphas[k] = true
		}
	}
	for _, ref := range s.usage.Refs() {
		f, err := res.Font(ref)
		if err != nil {
			return nil, err
		}
		s.fonts[ref] = f
	}
	for _, key := range sortedKeys(rasters) {
		s.rasters = append(s.rasters, rasters[key])
	}
	for _, ref := range sortedKeys(forms) {
		s.forms = append(s.forms, forms[ref])
	}
	s.alphas = sortedKeys(alphas)
	return s, nil
}

func scanPage(p *document.Page, page int, res resources.Resolver) (*pageScan, error) {
	ps := newPageScan()
	ps.color(p.BackgroundColor())
	for j, el := range p.Elements {
		if err := ps.element(el, res); err != nil {
			return nil, pdferr.Locate(err, page, j)
		}
	}
	return ps, nil
}

func (ps *pageScan) element(el document.Element, res resources.Resolver) error {
	switch e := el.(type) {
	case *document.Text:
		ps.color(e.Color)
		return ps.text(res, e.Font, e.Text)
	case *document.TextBox:
		ps.color(e.Color)
		return ps.text(res, e.Font, e.Text)
	case *document.Rect:
		if e.FillColor != nil {
			ps.color(*e.FillColor)
		}
		if e.Stroke > 0 {
			ps.color(e.StrokeColor)
		}
	case *document.Line:
		ps.color(e.Color)
	case *document.Image:
		return ps.image(res, e)
	case *document.Barcode:
		if _, err := barcode.Code128(e.Value); err != nil {
			return err
		}
		if e.HumanReadable {
			return ps.text(res, e.Font, e.Value)
		}
	case *document.QRCode:
		if _, err := barcode.QR(e.Value); err != nil {
			return err
		}
		ps.color(e.Color)
		ps.color(e.Background)
	}
	return nil
}

func (ps *pageScan) color(c document.Color) {
	if c.A < 255 {
		ps.alphas[alphaName(c.A)] = true
	}
}

func (ps *pageScan) text(res resources.Resolver, ref, text string) error {
	f, err := res.Font(ref)
	if err != nil {
		return err
	}
	for _, r := range text {
		if isDrawable(r) && !f.HasGlyph(r) {
			return pdferr.Unsupported(ref, r)
		}
	}
	ps.usage.Add(ref, text)
	return nil
}

func (ps *pageScan) image(res resources.Resolver, e *document.Image) error {
	img, err := res.Image(e.ImageRef)
	if err != nil {
		return err
	}
	w, h := img.Resolve(e.W, e.H)
	if w <= 0 || h <= 0 {
		return nil
	}
	if img.IsVector() {
		ps.forms[e.ImageRef] = img
		for _, a := range shapeAlphas(img.Vector) {
			ps.alphas[a] = true
		}
		return nil
	}
	key := images.SizeKey(e.ImageRef, w, h)
	if _, ok := ps.rasters[key]; !ok {
		ps.rasters[key] = rasterUse{key: key, img: img, w: w, h: h}
	}
	return nil
}

// shapeAlphas lists the graphics states an SVG's shapes select.
func shapeAlphas(img *svg.Image) []string {
	seen := make(map[string]bool)
	for _, s := range img.Shapes {
		if s.Fill != nil && s.Fill.A < 255 {
			seen[alphaName(s.Fill.A)] = true
		}
		if s.Stroke != nil && s.Stroke.A < 255 {
			seen[alphaName(s.Stroke.A)] = true
		}
	}
	return sortedKeys(seen)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
