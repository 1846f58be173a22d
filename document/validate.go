package document

import (
	"math"

	"github.com/wudi/pdfrender/pdferr"
)

// Validate checks page dimensions and the fields each element variant
// requires. It stops at the first problem, in page then element order.
func Validate(doc *Document) error {
	for i := range doc.Pages {
		p := &doc.Pages[i]
		if !positive(p.Width) || !positive(p.Height) {
			return pdferr.InvalidDimensions(i, p.Width, p.Height)
		}
		for j, el := range p.Elements {
			if err := validateElement(el); err != nil {
				return err.At(i, j)
			}
		}
	}
	return nil
}

func validateElement(el Element) *pdferr.Error {
	switch e := el.(type) {
	case *Text:
		if e.Font == "" {
			return pdferr.RequiredField("font", "text")
		}
	case *TextBox:
		if e.Font == "" {
			return pdferr.RequiredField("font", "textbox")
		}
	case *Image:
		if e.ImageRef == "" {
			return pdferr.RequiredField("image_ref", "image")
		}
	case *Barcode:
		if e.HumanReadable && e.Font == "" {
			return pdferr.RequiredField("font", "human_readable barcode")
		}
	case *QRCode:
		if e.Value == "" {
			return pdferr.RequiredField("value", "qrcode")
		}
	case *Rect, *Line:
	case nil:
		return pdferr.RequiredField("type", "nil element")
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
