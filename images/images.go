// Package images loads image resources and prepares raster images for
// embedding as DCT-encoded XObjects.
package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/wudi/pdfrender/observability"
	"github.com/wudi/pdfrender/pdferr"
	"github.com/wudi/pdfrender/svg"
)

const (
	// maxDimension caps width/height so a lying header cannot force a huge
	// allocation.
	maxDimension = 32768
	// maxPixels bounds the total pixel count (roughly 64MP).
	maxPixels int64 = 64 * 1024 * 1024
)

// Image is a decoded image resource: a raster or a parsed SVG.
type Image struct {
	Ref    string
	Format string
	Raster image.Image
	Vector *svg.Image
}

// Load decodes data as SVG when it sniffs as one, otherwise as a raster in
// any registered format. Failures are UnsupportedResourceFormat errors.
func Load(ref string, data []byte, logger observability.Logger) (*Image, error) {
	if len(data) == 0 {
		return nil, pdferr.BadFormat(ref, errors.New("empty image data"))
	}
	if svg.Sniff(data) {
		v, err := svg.Parse(data, logger)
		if err != nil {
			return nil, pdferr.BadFormat(ref, err)
		}
		return &Image{Ref: ref, Format: "svg", Vector: v}, nil
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, pdferr.BadFormat(ref, fmt.Errorf("decode header: %w", err))
	}
	if err := validateBounds(cfg.Width, cfg.Height); err != nil {
		return nil, pdferr.BadFormat(ref, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, pdferr.BadFormat(ref, fmt.Errorf("decode %s: %w", format, err))
	}
	return &Image{Ref: ref, Format: format, Raster: img}, nil
}

func validateBounds(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("image bounds invalid (%d x %d)", width, height)
	}
	if width > maxDimension || height > maxDimension {
		return fmt.Errorf("image dimension exceeds limit (%d x %d)", width, height)
	}
	pixels := int64(width) * int64(height)
	if pixels > maxPixels {
		return fmt.Errorf("image pixel count %d exceeds limit %d", pixels, maxPixels)
	}
	return nil
}

// IsVector reports whether the image is an SVG.
func (img *Image) IsVector() bool { return img.Vector != nil }

// Size is the native size in points: one pixel per point for rasters, the
// viewport for SVG.
func (img *Image) Size() (w, h float64) {
	if img.Vector != nil {
		return img.Vector.Width, img.Vector.Height
	}
	b := img.Raster.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

// Resolve fills a missing width or height from the native aspect ratio.
// With neither given the native size is used.
func (img *Image) Resolve(w, h *float64) (float64, float64) {
	nw, nh := img.Size()
	switch {
	case w != nil && h != nil:
		return *w, *h
	case w != nil && nw > 0:
		return *w, *w * nh / nw
	case h != nil && nh > 0:
		return *h * nw / nh, *h
	}
	return nw, nh
}

// SizeKey names the XObject of a raster placed at a given size; sizes are
// rounded to whole points.
func SizeKey(ref string, w, h float64) string {
	return fmt.Sprintf("%s_%.0fx%.0f", ref, math.Round(w), math.Round(h))
}
