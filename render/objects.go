package render

import (
	"context"
	"fmt"
	"math"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/wudi/pdfrender/contentstream"
	"github.com/wudi/pdfrender/filters"
	"github.com/wudi/pdfrender/fonts"
	"github.com/wudi/pdfrender/images"
	"github.com/wudi/pdfrender/ir/raw"
	"github.com/wudi/pdfrender/writer"
)

// alphaLevels are the shared constant-alpha graphics states.
var alphaLevels = []uint8{255, 191, 127, 63}

// alphaName selects the graphics state closest to a.
func alphaName(a uint8) string {
	best := alphaLevels[0]
	for _, l := range alphaLevels[1:] {
		if absDiff(a, l) < absDiff(a, best) {
			best = l
		}
	}
	return fmt.Sprintf("A%d", best)
}

func alphaValue(name string) float64 {
	var level int
	fmt.Sscanf(name, "A%d", &level)
	return float64(level) / 255
}

func absDiff(a, b uint8) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}

func isDrawable(r rune) bool { return !unicode.IsControl(r) }

// fontResource is an embedded font and the resource name pages use for it.
type fontResource struct {
	name string
	emb  *fonts.Embedded
	ref  raw.ObjectRef
}

// xobject is an image or form with its resource name.
type xobject struct {
	name string
	ref  raw.ObjectRef
}

// resourceSet holds every shared object a page may reference.
type resourceSet struct {
	fonts  map[string]*fontResource
	alphas map[string]raw.ObjectRef
	// rasters by size key, forms by image reference.
	rasters map[string]xobject
	forms   map[string]xobject
}

// embedFonts subsets every used font. Fonts are independent so the work
// fans out; the result is ordered by reference.
func embedFonts(ctx context.Context, s *scan, workers int) ([]*fonts.Embedded, error) {
	refs := s.usage.Refs()
	out := make([]*fonts.Embedded, len(refs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, ref := range refs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			emb, err := fonts.Embed(s.fonts[ref], s.usage.Runes(ref))
			if err != nil {
				return err
			}
			out[i] = emb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// stream builds a stream object, compressing data when enabled.
func (r *renderer) stream(ctx context.Context, dict *raw.DictObj, data []byte) (*raw.StreamObj, error) {
	if dict == nil {
		dict = raw.Dict()
	}
	if r.cfg.compress {
		enc, err := r.flate.Encode(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("compress stream: %w", err)
		}
		dict.Put("Filter", raw.NameLiteral(filters.FlateDecode))
		data = enc
	}
	return raw.NewStream(dict, data), nil
}

// addFont writes the five objects of a Type0 font: the program, its
// descriptor, the CIDFontType2 descendant, the ToUnicode CMap and the
// Type0 dictionary itself.
func (r *renderer) addFont(ctx context.Context, emb *fonts.Embedded) (raw.ObjectRef, error) {
	f := emb.Font
	program, err := r.stream(ctx, raw.Dict().Put("Length1", raw.NumberInt(int64(len(emb.Program)))), emb.Program)
	if err != nil {
		return raw.ObjectRef{}, err
	}
	programRef := r.asm.Add(program)

	flags := int64(32)
	if f.FixedPitch {
		flags |= 1
	}
	if f.ItalicAngle != 0 {
		flags |= 64
	}
	th := func(v int) raw.NumberObj { return raw.NumberInt(int64(f.Thousandths(v))) }
	descriptor := raw.Dict().
		Put("Type", raw.NameLiteral("FontDescriptor")).
		Put("FontName", raw.NameLiteral(emb.BaseFont())).
		Put("Flags", raw.NumberInt(flags)).
		Put("FontBBox", raw.NewArray(th(f.BBox[0]), th(f.BBox[1]), th(f.BBox[2]), th(f.BBox[3]))).
		Put("ItalicAngle", raw.NumberFloat(f.ItalicAngle)).
		Put("Ascent", th(f.Ascender)).
		Put("Descent", th(f.Descender)).
		Put("CapHeight", th(f.CapHeight)).
		Put("StemV", raw.NumberInt(80)).
		Put("FontFile2", raw.RefTo(programRef))
	descriptorRef := r.asm.Add(descriptor)

	widths := make(map[int]int, len(emb.Widths))
	for cid, w := range emb.Widths {
		widths[cid] = w
	}
	cidFont := raw.Dict().
		Put("Type", raw.NameLiteral("Font")).
		Put("Subtype", raw.NameLiteral("CIDFontType2")).
		Put("BaseFont", raw.NameLiteral(emb.BaseFont())).
		Put("CIDSystemInfo", raw.Dict().
			Put("Registry", raw.Str([]byte("Adobe"))).
			Put("Ordering", raw.Str([]byte("Identity"))).
			Put("Supplement", raw.NumberInt(0))).
		Put("FontDescriptor", raw.RefTo(descriptorRef)).
		Put("W", writer.EncodeCIDWidths(widths)).
		Put("CIDToGIDMap", raw.NameLiteral("Identity"))
	cidRef := r.asm.Add(cidFont)

	type0 := raw.Dict().
		Put("Type", raw.NameLiteral("Font")).
		Put("Subtype", raw.NameLiteral("Type0")).
		Put("BaseFont", raw.NameLiteral(emb.BaseFont())).
		Put("Encoding", raw.NameLiteral("Identity-H")).
		Put("DescendantFonts", raw.NewArray(raw.RefTo(cidRef)))
	if cmap := writer.BuildToUnicodeCMap(emb.BaseFont(), emb.ToUnicode); cmap != nil {
		toUnicode, err := r.stream(ctx, nil, cmap)
		if err != nil {
			return raw.ObjectRef{}, err
		}
		type0.Put("ToUnicode", raw.RefTo(r.asm.Add(toUnicode)))
	}
	return r.asm.Add(type0), nil
}

func (r *renderer) addAlpha(name string) raw.ObjectRef {
	a := alphaValue(name)
	return r.asm.Add(raw.Dict().
		Put("Type", raw.NameLiteral("ExtGState")).
		Put("ca", raw.NumberFloat(a)).
		Put("CA", raw.NumberFloat(a)))
}

// encodeRasters re-encodes every (image, size) pair as JPEG.
func (r *renderer) encodeRasters(ctx context.Context, uses []rasterUse) ([]*images.Encoded, error) {
	out := make([]*images.Encoded, len(uses))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.workers)
	for i, u := range uses {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			enc, err := u.img.EncodeJPEG(u.w, u.h, r.cfg.dpi, r.cfg.quality)
			if err != nil {
				return err
			}
			out[i] = enc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// addRaster writes a DCTDecode image XObject. JPEG data is never
// deflated again.
func (r *renderer) addRaster(enc *images.Encoded) raw.ObjectRef {
	dict := raw.Dict().
		Put("Type", raw.NameLiteral("XObject")).
		Put("Subtype", raw.NameLiteral("Image")).
		Put("Width", raw.NumberInt(int64(enc.Width))).
		Put("Height", raw.NumberInt(int64(enc.Height))).
		Put("ColorSpace", raw.NameLiteral("DeviceRGB")).
		Put("BitsPerComponent", raw.NumberInt(8)).
		Put("Filter", raw.NameLiteral("DCTDecode"))
	return r.asm.Add(raw.NewStream(dict, enc.Data))
}

// addForm writes an SVG as a Form XObject whose BBox is the SVG viewport.
func (r *renderer) addForm(ctx context.Context, img *images.Image) (raw.ObjectRef, error) {
	v := img.Vector
	used := make(map[string]bool)
	b := contentstream.NewBuilder()
	v.Emit(b, v.FormMatrix(), func(a uint8) string {
		name := alphaName(a)
		used[name] = true
		return name
	})
	dict := raw.Dict().
		Put("Type", raw.NameLiteral("XObject")).
		Put("Subtype", raw.NameLiteral("Form")).
		Put("BBox", raw.Numbers(0, 0, v.Width, v.Height))
	resources := raw.Dict()
	if len(used) > 0 {
		gs := raw.Dict()
		for _, name := range sortedKeys(used) {
			gs.Put(name, raw.RefTo(r.res.alphas[name]))
		}
		resources.Put("ExtGState", gs)
	}
	dict.Put("Resources", resources)
	s, err := r.stream(ctx, dict, b.Bytes())
	if err != nil {
		return raw.ObjectRef{}, err
	}
	return r.asm.Add(s), nil
}

// roundedRadius caps a corner radius at half the shorter side.
func roundedRadius(r, w, h float64) float64 {
	return math.Min(r, math.Min(w, h)/2)
}
