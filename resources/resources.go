// Package resources holds the Resource Table: fonts and images loaded once
// by reference name and shared read-only by every page of a render.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wudi/pdfrender/fonts"
	"github.com/wudi/pdfrender/images"
	"github.com/wudi/pdfrender/observability"
	"github.com/wudi/pdfrender/pdferr"
)

type ResourceCategory string

const (
	CategoryFont  ResourceCategory = "font"
	CategoryImage ResourceCategory = "image"
)

// Resolver looks up loaded resources by reference name.
type Resolver interface {
	Font(ref string) (*fonts.Font, error)
	Image(ref string) (*images.Image, error)
}

// Source is where a resource's bytes come from. Data wins over Path.
type Source struct {
	Path string
	Data []byte
}

func (s Source) read() ([]byte, error) {
	if s.Data != nil {
		return s.Data, nil
	}
	if s.Path == "" {
		return nil, fmt.Errorf("source has neither path nor data")
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return data, nil
}

// Table is a Resolver backed by maps. It is safe for concurrent reads once
// loading has finished.
type Table struct {
	mu     sync.RWMutex
	fonts  map[string]*fonts.Font
	images map[string]*images.Image
	logger observability.Logger
}

func NewTable(logger observability.Logger) *Table {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	return &Table{
		fonts:  make(map[string]*fonts.Font),
		images: make(map[string]*images.Image),
		logger: logger,
	}
}

// AddFont loads a TrueType font under ref.
func (t *Table) AddFont(ref string, src Source) error {
	data, err := src.read()
	if err != nil {
		return fmt.Errorf("font '%s': %w", ref, err)
	}
	f, err := fonts.LoadTrueType(ref, data)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.fonts[ref] = f
	t.mu.Unlock()
	t.logger.Debug("font loaded",
		observability.String("ref", ref),
		observability.String("postscript_name", f.PostScriptName),
		observability.Int("glyphs", f.NumGlyphs()))
	return nil
}

// AddImage loads a raster or SVG image under ref.
func (t *Table) AddImage(ref string, src Source) error {
	data, err := src.read()
	if err != nil {
		return fmt.Errorf("image '%s': %w", ref, err)
	}
	img, err := images.Load(ref, data, t.logger)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.images[ref] = img
	t.mu.Unlock()
	t.logger.Debug("image loaded", observability.String("ref", ref), observability.String("format", img.Format))
	return nil
}

func (t *Table) Font(ref string) (*fonts.Font, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.fonts[ref]
	if !ok {
		return nil, pdferr.Missing(string(CategoryFont), ref)
	}
	return f, nil
}

func (t *Table) Image(ref string) (*images.Image, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	img, ok := t.images[ref]
	if !ok {
		return nil, pdferr.Missing(string(CategoryImage), ref)
	}
	return img, nil
}

// FontRefs lists loaded font references in sorted order.
func (t *Table) FontRefs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	refs := make([]string, 0, len(t.fonts))
	for ref := range t.fonts {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Sources groups every resource of a document by reference name.
type Sources struct {
	Fonts  map[string]Source
	Images map[string]Source
}

// Load decodes all sources concurrently, at most workers at a time
// (unbounded when workers <= 0). The first failure cancels the rest.
func Load(ctx context.Context, srcs Sources, workers int, logger observability.Logger) (*Table, error) {
	t := NewTable(logger)
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	add := func(fn func() error) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn()
		})
	}
	for _, ref := range sortedKeys(srcs.Fonts) {
		src := srcs.Fonts[ref]
		add(func() error { return t.AddFont(ref, src) })
	}
	for _, ref := range sortedKeys(srcs.Images) {
		src := srcs.Images[ref]
		add(func() error { return t.AddImage(ref, src) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return t, nil
}

// Manifest is the on-disk description of a resource set: reference names
// mapped to file paths, relative to the manifest's own directory.
type Manifest struct {
	Fonts  map[string]string `json:"fonts"`
	Images map[string]string `json:"images"`
}

// ReadManifest parses a manifest file into Sources.
func ReadManifest(path string) (Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Sources{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Sources{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	resolve := func(in map[string]string) map[string]Source {
		out := make(map[string]Source, len(in))
		for ref, p := range in {
			if !filepath.IsAbs(p) {
				p = filepath.Join(dir, p)
			}
			out[ref] = Source{Path: p}
		}
		return out
	}
	return Sources{Fonts: resolve(m.Fonts), Images: resolve(m.Images)}, nil
}

func sortedKeys(m map[string]Source) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
