// Package render turns a document into a PDF file in two passes. The
// first pass resolves every resource and accumulates per-font character
// usage across all pages; fonts are then subset once with the frozen
// usage, and the second pass emits each page's content stream.
package render

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wudi/pdfrender/document"
	"github.com/wudi/pdfrender/filters"
	"github.com/wudi/pdfrender/ir/raw"
	"github.com/wudi/pdfrender/observability"
	"github.com/wudi/pdfrender/resources"
	"github.com/wudi/pdfrender/writer"
)

// Producer is written to the Info dictionary.
const Producer = "pdfrender"

type renderer struct {
	cfg   config
	asm   *writer.Assembler
	flate filters.Encoder
	res   *resourceSet
}

type pageResult struct {
	content []byte
	emitter *pageEmitter
}

// Render produces a complete PDF for doc. It fails atomically: on error no
// bytes are returned.
func Render(ctx context.Context, doc *document.Document, res resources.Resolver, opts ...Option) ([]byte, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	ctx, span := cfg.tracer.StartSpan(ctx, "render")
	defer span.Finish()
	out, err := render(ctx, doc, res, cfg)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.SetTag("bytes", len(out))
	return out, nil
}

// RenderBytes renders with default options and the given compression
// setting.
func RenderBytes(doc *document.Document, res resources.Resolver, compress bool) ([]byte, error) {
	return Render(context.Background(), doc, res, WithCompression(compress))
}

func render(ctx context.Context, doc *document.Document, res resources.Resolver, cfg config) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("render: nil document")
	}
	log := cfg.logger
	start := time.Now()
	if err := document.Validate(doc); err != nil {
		return nil, err
	}

	phase := time.Now()
	s, err := prescan(ctx, doc, res, cfg.workers)
	if err != nil {
		return nil, err
	}
	log.Debug("prescan complete",
		observability.Int("fonts", len(s.fonts)),
		observability.Int("rasters", len(s.rasters)),
		observability.Int("forms", len(s.forms)),
		observability.Duration(observability.MetricPrescanTime, time.Since(phase)))

	phase = time.Now()
	embedded, err := embedFonts(ctx, s, cfg.workers)
	if err != nil {
		return nil, err
	}
	for _, emb := range embedded {
		log.Debug("font subset",
			observability.String("font", emb.Font.Ref),
			observability.String("base_font", emb.BaseFont()),
			observability.Int("glyphs", emb.NumGlyphs()),
			observability.Int("bytes", len(emb.Program)))
	}
	log.Debug("fonts embedded", observability.Duration(observability.MetricSubsettingTime, time.Since(phase)))

	r := &renderer{
		cfg:   cfg,
		asm:   writer.NewAssembler(),
		flate: filters.NewFlateEncoder(cfg.level),
		res: &resourceSet{
			fonts:   make(map[string]*fontResource),
			alphas:  make(map[string]raw.ObjectRef),
			rasters: make(map[string]xobject),
			forms:   make(map[string]xobject),
		},
	}
	catalogRef := r.asm.Reserve()
	pagesRef := r.asm.Reserve()

	for i, emb := range embedded {
		ref, err := r.addFont(ctx, emb)
		if err != nil {
			return nil, err
		}
		r.res.fonts[emb.Font.Ref] = &fontResource{name: fmt.Sprintf("F%d", i+1), emb: emb, ref: ref}
	}
	for _, name := range s.alphas {
		r.res.alphas[name] = r.addAlpha(name)
	}
	encoded, err := r.encodeRasters(ctx, s.rasters)
	if err != nil {
		return nil, err
	}
	for i, use := range s.rasters {
		r.res.rasters[use.key] = xobject{name: fmt.Sprintf("Im%d", i+1), ref: r.addRaster(encoded[i])}
	}
	for i, img := range s.forms {
		ref, err := r.addForm(ctx, img)
		if err != nil {
			return nil, err
		}
		if n := len(img.Vector.Warnings); n > 0 {
			log.Debug("svg features skipped", observability.String("image", img.Ref), observability.Int("warnings", n))
		}
		r.res.forms[img.Ref] = xobject{name: fmt.Sprintf("Fm%d", i+1), ref: ref}
	}

	phase = time.Now()
	results, err := r.emitPages(ctx, doc, res)
	if err != nil {
		return nil, err
	}
	log.Debug("pages emitted",
		observability.Int(observability.MetricPageCount, len(results)),
		observability.Duration(observability.MetricEmitTime, time.Since(phase)))

	kids := raw.NewArray()
	for i, pr := range results {
		pageRef, err := r.addPage(ctx, &doc.Pages[i], pr, pagesRef)
		if err != nil {
			return nil, err
		}
		kids.Append(raw.RefTo(pageRef))
	}
	r.asm.Set(pagesRef, raw.Dict().
		Put("Type", raw.NameLiteral("Pages")).
		Put("Kids", kids).
		Put("Count", raw.NumberInt(int64(len(results)))))
	r.asm.Set(catalogRef, raw.Dict().
		Put("Type", raw.NameLiteral("Catalog")).
		Put("Pages", raw.RefTo(pagesRef)))

	md := doc.Metadata
	infoRef := r.asm.Add(writer.Info{
		Title:        md.Title,
		Author:       md.Author,
		Subject:      md.Subject,
		Creator:      md.Creator,
		Producer:     Producer,
		CreationDate: md.CreationDate,
	}.Dict())

	phase = time.Now()
	var buf bytes.Buffer
	n, err := r.asm.Write(&buf, writer.Trailer{Root: catalogRef, Info: &infoRef}, writer.Config{Version: writer.PDF17, Deterministic: true})
	if err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	log.Debug("pdf written",
		observability.Int(observability.MetricObjectCount, r.asm.Len()),
		observability.Int64(observability.MetricOutputBytes, n),
		observability.Duration(observability.MetricWriteTime, time.Since(phase)),
		observability.Duration(observability.MetricRenderTime, time.Since(start)))
	return buf.Bytes(), nil
}

// emitPages builds every content stream. Pages share only read-only
// state, so they run on up to cfg.workers goroutines; results keep page
// order.
func (r *renderer) emitPages(ctx context.Context, doc *document.Document, lookup resources.Resolver) ([]pageResult, error) {
	results := make([]pageResult, len(doc.Pages))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.workers)
	for i := range doc.Pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := &doc.Pages[i]
			e := newPageEmitter(p.Height, r.res, lookup)
			if err := e.emitPage(p, i); err != nil {
				return err
			}
			results[i] = pageResult{content: e.b.Bytes(), emitter: e}
			r.cfg.logger.Debug("page content",
				observability.Int("page", i),
				observability.Int("operations", e.b.Len()),
				observability.Int("bytes", len(results[i].content)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// addPage writes a page's content stream and its page dictionary. The
// resource dictionary names only what the page references.
func (r *renderer) addPage(ctx context.Context, p *document.Page, pr pageResult, parent raw.ObjectRef) (raw.ObjectRef, error) {
	content, err := r.stream(ctx, nil, pr.content)
	if err != nil {
		return raw.ObjectRef{}, err
	}
	contentRef := r.asm.Add(content)

	e := pr.emitter
	resDict := raw.Dict()
	if len(e.fonts) > 0 {
		d := raw.Dict()
		for _, name := range sortedKeys(e.fonts) {
			d.Put(name, raw.RefTo(e.fonts[name].ref))
		}
		resDict.Put("Font", d)
	}
	if len(e.xobjects) > 0 {
		d := raw.Dict()
		for _, name := range sortedKeys(e.xobjects) {
			d.Put(name, raw.RefTo(e.xobjects[name].ref))
		}
		resDict.Put("XObject", d)
	}
	if len(e.alphas) > 0 {
		d := raw.Dict()
		for _, name := range sortedKeys(e.alphas) {
			d.Put(name, raw.RefTo(r.res.alphas[name]))
		}
		resDict.Put("ExtGState", d)
	}

	page := raw.Dict().
		Put("Type", raw.NameLiteral("Page")).
		Put("Parent", raw.RefTo(parent)).
		Put("MediaBox", raw.Numbers(0, 0, p.Width, p.Height)).
		Put("Resources", resDict).
		Put("Contents", raw.RefTo(contentRef))
	return r.asm.Add(page), nil
}
