package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Decode reads a JSON document description. Element objects carry a
// "type" tag; optional fields take the same defaults the model documents.
func Decode(r io.Reader) (*Document, error) {
	var w wireDocument
	dec := json.NewDecoder(r)
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc := &Document{Metadata: w.Metadata.model()}
	for i, wp := range w.Pages {
		page := Page{Width: wp.Width, Height: wp.Height}
		if wp.Background != nil {
			c := wp.Background.color()
			page.Background = &c
		}
		for j, raw := range wp.Elements {
			el, err := decodeElement(raw)
			if err != nil {
				return nil, fmt.Errorf("page %d element %d: %w", i, j, err)
			}
			page.Elements = append(page.Elements, el)
		}
		doc.Pages = append(doc.Pages, page)
	}
	return doc, nil
}

// DecodeBytes is Decode over a byte slice.
func DecodeBytes(data []byte) (*Document, error) { return Decode(bytes.NewReader(data)) }

type wireDocument struct {
	Pages    []wirePage   `json:"pages"`
	Metadata wireMetadata `json:"metadata"`
}

type wirePage struct {
	Width      float64           `json:"width"`
	Height     float64           `json:"height"`
	Background *wireColor        `json:"background"`
	Elements   []json.RawMessage `json:"elements"`
}

type wireMetadata struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	Subject      string `json:"subject"`
	Creator      string `json:"creator"`
	CreationDate string `json:"creation_date"`
}

func (m wireMetadata) model() Metadata {
	return Metadata{Title: m.Title, Author: m.Author, Subject: m.Subject, Creator: m.Creator, CreationDate: m.CreationDate}
}

// wireColor accepts [r, g, b] or [r, g, b, a].
type wireColor []uint8

func (c wireColor) color() Color {
	out := Color{A: 255}
	if len(c) > 0 {
		out.R = c[0]
	}
	if len(c) > 1 {
		out.G = c[1]
	}
	if len(c) > 2 {
		out.B = c[2]
	}
	if len(c) > 3 {
		out.A = c[3]
	}
	return out
}

func (c *wireColor) UnmarshalJSON(data []byte) error {
	var vals []int
	if err := json.Unmarshal(data, &vals); err != nil {
		return fmt.Errorf("color must be an array of 3 or 4 integers: %w", err)
	}
	if len(vals) != 3 && len(vals) != 4 {
		return fmt.Errorf("color must have 3 or 4 channels, got %d", len(vals))
	}
	out := make(wireColor, len(vals))
	for i, v := range vals {
		if v < 0 || v > 255 {
			return fmt.Errorf("color channel %d out of range: %d", i, v)
		}
		out[i] = uint8(v)
	}
	*c = out
	return nil
}

func colorOr(c *wireColor, def Color) Color {
	if c == nil {
		return def
	}
	return c.color()
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

type wireElement struct {
	Type string `json:"type"`

	X  float64  `json:"x"`
	Y  float64  `json:"y"`
	W  *float64 `json:"w"`
	H  *float64 `json:"h"`
	X1 float64  `json:"x1"`
	Y1 float64  `json:"y1"`
	X2 float64  `json:"x2"`
	Y2 float64  `json:"y2"`

	Text           string     `json:"text"`
	Font           string     `json:"font"`
	Size           float64    `json:"size"`
	Color          *wireColor `json:"color"`
	Align          string     `json:"align"`
	VerticalAnchor string     `json:"vertical_anchor"`

	BoxAlignX  string   `json:"box_align_x"`
	BoxAlignY  string   `json:"box_align_y"`
	TextAlignX string   `json:"text_align_x"`
	TextAlignY string   `json:"text_align_y"`
	LineHeight *float64 `json:"line_height"`

	Stroke       *float64   `json:"stroke"`
	StrokeColor  *wireColor `json:"stroke_color"`
	FillColor    *wireColor `json:"fill_color"`
	CornerRadius float64    `json:"corner_radius"`

	ImageRef string `json:"image_ref"`

	Value         string     `json:"value"`
	Format        string     `json:"format"`
	HumanReadable bool       `json:"human_readable"`
	FontSize      *float64   `json:"font_size"`
	Background    *wireColor `json:"background"`
}

func decodeElement(raw json.RawMessage) (Element, error) {
	var w wireElement
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	width, height := floatOr(w.W, 0), floatOr(w.H, 0)

	switch w.Type {
	case "text":
		align, err := parseAlign("align", w.Align)
		if err != nil {
			return nil, err
		}
		anchor, err := parseAnchor(w.VerticalAnchor)
		if err != nil {
			return nil, err
		}
		return &Text{X: w.X, Y: w.Y, Text: w.Text, Font: w.Font, Size: w.Size,
			Color: colorOr(w.Color, Black), Align: align, Anchor: anchor}, nil
	case "textbox":
		bax, err := parseAlign("box_align_x", w.BoxAlignX)
		if err != nil {
			return nil, err
		}
		bay, err := parseBoxAlignY(w.BoxAlignY)
		if err != nil {
			return nil, err
		}
		tax, err := parseAlign("text_align_x", w.TextAlignX)
		if err != nil {
			return nil, err
		}
		tay, err := parseTextAlignY(w.TextAlignY)
		if err != nil {
			return nil, err
		}
		return &TextBox{X: w.X, Y: w.Y, W: width, H: height,
			BoxAlignX: bax, BoxAlignY: bay, TextAlignX: tax, TextAlignY: tay,
			Text: w.Text, Font: w.Font, Size: w.Size,
			LineHeight: floatOr(w.LineHeight, w.Size*1.2), Color: colorOr(w.Color, Black)}, nil
	case "rect":
		r := &Rect{X: w.X, Y: w.Y, W: width, H: height,
			Stroke: floatOr(w.Stroke, 1), StrokeColor: colorOr(w.StrokeColor, Black),
			CornerRadius: w.CornerRadius}
		if w.FillColor != nil {
			c := w.FillColor.color()
			r.FillColor = &c
		}
		return r, nil
	case "line":
		return &Line{X1: w.X1, Y1: w.Y1, X2: w.X2, Y2: w.Y2,
			Stroke: floatOr(w.Stroke, 1), Color: colorOr(w.Color, Black)}, nil
	case "image":
		align, err := parseAlign("align", w.Align)
		if err != nil {
			return nil, err
		}
		return &Image{X: w.X, Y: w.Y, W: w.W, H: w.H, ImageRef: w.ImageRef, Align: align}, nil
	case "barcode", "barcode128":
		if w.Format != "" && w.Format != "code128" {
			return nil, fmt.Errorf("unsupported barcode format %q", w.Format)
		}
		return &Barcode{X: w.X, Y: w.Y, W: width, H: height, Value: w.Value, Format: Code128,
			HumanReadable: w.HumanReadable, Font: w.Font, FontSize: floatOr(w.FontSize, 10)}, nil
	case "qrcode", "qr":
		return &QRCode{X: w.X, Y: w.Y, Size: w.Size, Value: w.Value,
			Color: colorOr(w.Color, Black), Background: colorOr(w.Background, White)}, nil
	case "":
		return nil, fmt.Errorf("element has no type")
	default:
		return nil, fmt.Errorf("unknown element type %q", w.Type)
	}
}

func parseAlign(field, s string) (Align, error) {
	switch s {
	case "", "left":
		return AlignLeft, nil
	case "center":
		return AlignCenter, nil
	case "right":
		return AlignRight, nil
	}
	return 0, fmt.Errorf("invalid %s: %q (want left, center or right)", field, s)
}

func parseAnchor(s string) (VerticalAnchor, error) {
	switch s {
	case "", "baseline":
		return AnchorBaseline, nil
	case "capline":
		return AnchorCapline, nil
	case "center":
		return AnchorCenter, nil
	}
	return 0, fmt.Errorf("invalid vertical_anchor: %q (want baseline, capline or center)", s)
}

func parseBoxAlignY(s string) (BoxAlignY, error) {
	switch s {
	case "", "top":
		return BoxTop, nil
	case "center":
		return BoxMiddle, nil
	case "bottom":
		return BoxBottom, nil
	}
	return 0, fmt.Errorf("invalid box_align_y: %q (want top, center or bottom)", s)
}

func parseTextAlignY(s string) (TextAlignY, error) {
	switch s {
	case "", "baseline":
		return TextBaseline, nil
	case "top":
		return TextTop, nil
	case "capline":
		return TextCapline, nil
	case "center":
		return TextCenter, nil
	case "bottom":
		return TextBottom, nil
	}
	return 0, fmt.Errorf("invalid text_align_y: %q (want top, capline, center, baseline or bottom)", s)
}
