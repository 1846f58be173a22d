package document

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdfrender/pdferr"
)

const sampleJSON = `{
  "metadata": {"title": "Invoice 42", "author": "Billing"},
  "pages": [{
    "width": 595, "height": 842,
    "background": [250, 250, 250],
    "elements": [
      {"type": "text", "x": 72, "y": 72, "text": "Hello", "font": "main", "size": 24, "align": "center", "vertical_anchor": "capline"},
      {"type": "textbox", "x": 10, "y": 20, "w": 200, "h": 100, "text": "a b c", "font": "main", "size": 10, "text_align_y": "top", "box_align_x": "right"},
      {"type": "rect", "x": 0, "y": 0, "w": 10, "h": 10, "fill_color": [255, 0, 0, 128]},
      {"type": "line", "x1": 0, "y1": 0, "x2": 10, "y2": 10},
      {"type": "image", "x": 5, "y": 5, "w": 50, "image_ref": "logo"},
      {"type": "barcode128", "x": 0, "y": 0, "w": 100, "h": 40, "value": "ABC-123", "human_readable": true, "font": "mono"},
      {"type": "qr", "x": 0, "y": 0, "size": 80, "value": "https://example.com"}
    ]
  }]
}`

func TestDecodeAppliesDefaults(t *testing.T) {
	doc, err := DecodeBytes([]byte(sampleJSON))
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, "Invoice 42", doc.Metadata.Title)

	page := doc.Pages[0]
	require.NotNil(t, page.Background)
	assert.Equal(t, RGBA(250, 250, 250, 255), *page.Background)
	require.Len(t, page.Elements, 7)

	text := page.Elements[0].(*Text)
	assert.Equal(t, Black, text.Color)
	assert.Equal(t, AlignCenter, text.Align)
	assert.Equal(t, AnchorCapline, text.Anchor)

	box := page.Elements[1].(*TextBox)
	assert.InDelta(t, 12.0, box.Leading(), 1e-9)
	assert.Equal(t, TextTop, box.TextAlignY)
	assert.Equal(t, AlignRight, box.BoxAlignX)
	assert.Equal(t, BoxTop, box.BoxAlignY)

	rect := page.Elements[2].(*Rect)
	assert.Equal(t, 1.0, rect.Stroke)
	assert.Equal(t, Black, rect.StrokeColor)
	require.NotNil(t, rect.FillColor)
	assert.Equal(t, uint8(128), rect.FillColor.A)

	line := page.Elements[3].(*Line)
	assert.Equal(t, 1.0, line.Stroke)

	img := page.Elements[4].(*Image)
	require.NotNil(t, img.W)
	assert.Nil(t, img.H)

	bc := page.Elements[5].(*Barcode)
	assert.Equal(t, 10.0, bc.LabelSize())
	assert.Equal(t, "barcode", bc.Kind())

	qr := page.Elements[6].(*QRCode)
	assert.Equal(t, White, qr.Background)
	assert.Equal(t, Black, qr.Color)

	require.NoError(t, Validate(doc))
}

func TestDecodeRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown type": `{"pages":[{"width":1,"height":1,"elements":[{"type":"circle"}]}]}`,
		"bad align":    `{"pages":[{"width":1,"height":1,"elements":[{"type":"text","align":"justify"}]}]}`,
		"bad color":    `{"pages":[{"width":1,"height":1,"elements":[{"type":"line","color":[1,2]}]}]}`,
		"bad channel":  `{"pages":[{"width":1,"height":1,"elements":[{"type":"line","color":[1,2,300]}]}]}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(in))
			require.Error(t, err)
		})
	}
}

func TestValidatePageDimensions(t *testing.T) {
	for _, dims := range [][2]float64{{0, 842}, {595, -1}, {math.Inf(1), 10}, {math.NaN(), 10}} {
		doc := &Document{Pages: []Page{{Width: 10, Height: 10}, {Width: dims[0], Height: dims[1]}}}
		err := Validate(doc)
		require.Error(t, err)
		assert.True(t, errors.Is(err, pdferr.ErrInvalidPageDimensions), "dims %v: %v", dims, err)
		var pe *pdferr.Error
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, 1, pe.Page)
	}
}

func TestValidateRequiredFields(t *testing.T) {
	doc := &Document{Pages: []Page{{Width: 612, Height: 792, Elements: []Element{
		&Rect{W: 1, H: 1},
		&Barcode{Value: "123", HumanReadable: true},
	}}}}
	err := Validate(doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pdferr.ErrMissingRequiredField))
	var pe *pdferr.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "font", pe.Field)
	assert.Equal(t, 0, pe.Page)
	assert.Equal(t, 1, pe.Element)

	doc.Pages[0].Elements[1] = &Barcode{Value: "123"}
	assert.NoError(t, Validate(doc))
}

func TestColorHelpers(t *testing.T) {
	r, g, b := RGBA(255, 0, 51, 10).Floats()
	assert.InDelta(t, 1.0, r, 1e-9)
	assert.InDelta(t, 0.0, g, 1e-9)
	assert.InDelta(t, 0.2, b, 1e-9)
	assert.True(t, RGBA(255, 255, 255, 0).IsWhite())
	assert.False(t, RGBA(255, 255, 255, 0).Opaque())
	var p Page
	assert.Equal(t, White, p.BackgroundColor())
}
