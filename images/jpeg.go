package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"

	"github.com/wudi/pdfrender/pdferr"
)

// Encoded is a baseline JPEG ready for a DCTDecode image XObject.
type Encoded struct {
	Data          []byte
	Width, Height int
}

// TargetPixels is the pixel size giving dpi resolution for a box of w x h
// points.
func TargetPixels(w, h, dpi float64) (int, int) {
	return int(math.Ceil(w / 72 * dpi)), int(math.Ceil(h / 72 * dpi))
}

// EncodeJPEG flattens the raster against white, downscales it (never up) to
// fit w x h points at dpi, and encodes it at quality.
func (img *Image) EncodeJPEG(w, h, dpi float64, quality int) (*Encoded, error) {
	if img.Raster == nil {
		return nil, pdferr.BadFormat(img.Ref, errors.New("not a raster image"))
	}
	flat := Flatten(img.Raster)
	sw, sh := flat.Bounds().Dx(), flat.Bounds().Dy()
	tw, th := TargetPixels(w, h, dpi)
	var out image.Image = flat
	if tw > 0 && th > 0 && (sw > tw || sh > th) {
		scale := math.Min(1, math.Min(float64(tw)/float64(sw), float64(th)/float64(sh)))
		nw := max(1, int(math.Round(float64(sw)*scale)))
		nh := max(1, int(math.Round(float64(sh)*scale)))
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), flat, flat.Bounds(), draw.Src, nil)
		out = dst
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: quality}); err != nil {
		return nil, pdferr.BadFormat(img.Ref, fmt.Errorf("encode jpeg: %w", err))
	}
	b := out.Bounds()
	return &Encoded{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// Flatten composites src over an opaque white background.
func Flatten(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}
