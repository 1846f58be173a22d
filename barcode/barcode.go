// Package barcode adapts the Code128 and QR encoders to plain module
// patterns the content emitter can draw.
package barcode

import (
	"errors"
	"fmt"
	"image/color"

	bc "github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/qr"

	"github.com/wudi/pdfrender/pdferr"
)

// Bar is a run of dark modules.
type Bar struct {
	Start, Width int
}

// Code128 returns the module pattern for value, dark modules true. No quiet
// zone is included.
func Code128(value string) ([]bool, error) {
	if value == "" {
		return nil, pdferr.Encoding("code128: empty value", nil)
	}
	code, err := code128.Encode(value)
	if err != nil {
		return nil, pdferr.Encoding(fmt.Sprintf("code128 value %q", value), err)
	}
	b := code.Bounds()
	modules := make([]bool, b.Dx())
	for x := range modules {
		modules[x] = dark(code.At(b.Min.X+x, b.Min.Y))
	}
	return modules, nil
}

// Bars collapses a module pattern into dark runs.
func Bars(modules []bool) []Bar {
	var bars []Bar
	for i := 0; i < len(modules); {
		if !modules[i] {
			i++
			continue
		}
		start := i
		for i < len(modules) && modules[i] {
			i++
		}
		bars = append(bars, Bar{Start: start, Width: i - start})
	}
	return bars
}

// QR returns the module matrix for value indexed [row][col], dark modules
// true, at error correction level M.
func QR(value string) ([][]bool, error) {
	if value == "" {
		return nil, pdferr.Encoding("qr: empty value", nil)
	}
	code, err := qr.Encode(value, qr.M, qr.Auto)
	if err != nil {
		return nil, pdferr.Encoding("qr payload", err)
	}
	return matrix(code)
}

func matrix(code bc.Barcode) ([][]bool, error) {
	b := code.Bounds()
	if b.Dx() != b.Dy() || b.Dx() == 0 {
		return nil, pdferr.Encoding("qr", errors.New("encoder returned a non-square matrix"))
	}
	rows := make([][]bool, b.Dy())
	for y := range rows {
		rows[y] = make([]bool, b.Dx())
		for x := range rows[y] {
			rows[y][x] = dark(code.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return rows, nil
}

func dark(c color.Color) bool {
	return color.GrayModel.Convert(c).(color.Gray).Y < 128
}
