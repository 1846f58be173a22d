// Package document is the in-memory model a render consumes: pages of
// already positioned elements in top-left, y-down coordinates, plus the
// metadata written to the Info dictionary. Values are treated as
// read-only by every renderer stage.
package document

// Color is an RGBA color with 0-255 channels.
type Color struct {
	R, G, B, A uint8
}

var (
	Black = Color{0, 0, 0, 255}
	White = Color{255, 255, 255, 255}
)

// RGBA builds a Color.
func RGBA(r, g, b, a uint8) Color { return Color{R: r, G: g, B: b, A: a} }

// Floats returns the color channels scaled to 0..1.
func (c Color) Floats() (r, g, b float64) {
	return float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255
}

func (c Color) Opaque() bool { return c.A == 255 }

// IsWhite ignores alpha.
func (c Color) IsWhite() bool { return c.R == 255 && c.G == 255 && c.B == 255 }

// Align is a horizontal alignment.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

func (a Align) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return "left"
	}
}

// VerticalAnchor says which line of a single-line Text its y coordinate
// names.
type VerticalAnchor int

const (
	AnchorBaseline VerticalAnchor = iota
	AnchorCapline
	AnchorCenter
)

// BoxAlignY says which edge of a TextBox its y coordinate names.
type BoxAlignY int

const (
	BoxTop BoxAlignY = iota
	BoxMiddle
	BoxBottom
)

// TextAlignY places the block of wrapped lines inside a TextBox.
type TextAlignY int

const (
	TextBaseline TextAlignY = iota
	TextTop
	TextCapline
	TextCenter
	TextBottom
)

// Element is one drawing primitive. The set of implementations is closed:
// Text, TextBox, Rect, Line, Image, Barcode and QRCode.
type Element interface {
	Kind() string
	element()
}

// Text is a single line anchored at (X, Y).
type Text struct {
	X, Y   float64
	Text   string
	Font   string
	Size   float64
	Color  Color
	Align  Align
	Anchor VerticalAnchor
}

// TextBox is word-wrapped text inside a W x H box.
type TextBox struct {
	X, Y, W, H float64
	BoxAlignX  Align
	BoxAlignY  BoxAlignY
	TextAlignX Align
	TextAlignY TextAlignY
	Text       string
	Font       string
	Size       float64
	// LineHeight of zero means Size * 1.2.
	LineHeight float64
	Color      Color
}

// Leading returns the effective baseline-to-baseline distance.
func (t *TextBox) Leading() float64 {
	if t.LineHeight > 0 {
		return t.LineHeight
	}
	return t.Size * 1.2
}

// Rect is an axis-aligned rectangle, optionally with rounded corners.
// A Stroke of zero draws no outline; a nil FillColor draws no fill.
type Rect struct {
	X, Y, W, H   float64
	Stroke       float64
	StrokeColor  Color
	FillColor    *Color
	CornerRadius float64
}

// Line is a straight segment.
type Line struct {
	X1, Y1, X2, Y2 float64
	Stroke         float64
	Color          Color
}

// Image places a raster or vector resource. A nil W or H follows the
// image's aspect ratio; with both nil the native size in points is used.
type Image struct {
	X, Y     float64
	W, H     *float64
	ImageRef string
	Align    Align
}

// BarcodeFormat selects the linear symbology.
type BarcodeFormat int

const (
	Code128 BarcodeFormat = iota
)

// Barcode is a linear barcode with an optional human-readable label.
type Barcode struct {
	X, Y, W, H    float64
	Value         string
	Format        BarcodeFormat
	HumanReadable bool
	Font          string
	// FontSize of zero means 10.
	FontSize float64
}

// LabelSize returns the effective label font size.
func (b *Barcode) LabelSize() float64 {
	if b.FontSize > 0 {
		return b.FontSize
	}
	return 10
}

// QRCode is a square QR symbol.
type QRCode struct {
	X, Y       float64
	Size       float64
	Value      string
	Color      Color
	Background Color
}

func (*Text) Kind() string    { return "text" }
func (*TextBox) Kind() string { return "textbox" }
func (*Rect) Kind() string    { return "rect" }
func (*Line) Kind() string    { return "line" }
func (*Image) Kind() string   { return "image" }
func (*Barcode) Kind() string { return "barcode" }
func (*QRCode) Kind() string  { return "qrcode" }

func (*Text) element()    {}
func (*TextBox) element() {}
func (*Rect) element()    {}
func (*Line) element()    {}
func (*Image) element()   {}
func (*Barcode) element() {}
func (*QRCode) element()  {}

// Page is one page of the document.
type Page struct {
	Width, Height float64
	// Background of nil is white.
	Background *Color
	Elements   []Element
}

// BackgroundColor returns the effective page background.
func (p *Page) BackgroundColor() Color {
	if p.Background == nil {
		return White
	}
	return *p.Background
}

// Metadata is written to the Info dictionary. Empty fields are omitted.
type Metadata struct {
	Title        string
	Author       string
	Subject      string
	Creator      string
	CreationDate string
}

// Document is the root of the model.
type Document struct {
	Pages    []Page
	Metadata Metadata
}
