// Package pdferr defines the closed set of error kinds a render can fail
// with. Every error carries enough location context (page, element,
// resource reference, character) to be acted on without reading source.
package pdferr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a render failure.
type Kind int

const (
	MissingResource Kind = iota + 1
	InvalidPageDimensions
	MissingRequiredField
	UnsupportedCharacter
	UnsupportedResourceFormat
	EncodingFailure
)

func (k Kind) String() string {
	switch k {
	case MissingResource:
		return "MissingResource"
	case InvalidPageDimensions:
		return "InvalidPageDimensions"
	case MissingRequiredField:
		return "MissingRequiredField"
	case UnsupportedCharacter:
		return "UnsupportedCharacter"
	case UnsupportedResourceFormat:
		return "UnsupportedResourceFormat"
	case EncodingFailure:
		return "EncodingFailure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Sentinels for errors.Is matching on the kind alone.
var (
	ErrMissingResource           = newError(MissingResource)
	ErrInvalidPageDimensions     = newError(InvalidPageDimensions)
	ErrMissingRequiredField      = newError(MissingRequiredField)
	ErrUnsupportedCharacter      = newError(UnsupportedCharacter)
	ErrUnsupportedResourceFormat = newError(UnsupportedResourceFormat)
	ErrEncodingFailure           = newError(EncodingFailure)
)

// NoIndex marks an unknown page or element position.
const NoIndex = -1

// Error is a classified render failure.
type Error struct {
	Kind Kind
	// Page and Element are zero-based; NoIndex when not applicable.
	Page    int
	Element int
	// Ref is the resource reference involved (font or image name).
	Ref string
	// Field names the missing field for MissingRequiredField.
	Field string
	// Char is the offending character for UnsupportedCharacter.
	Char rune
	// Detail is a free-form description.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Page >= 0 && e.Element >= 0 {
		fmt.Fprintf(&b, "page %d element %d: ", e.Page, e.Element)
	} else if e.Page >= 0 {
		fmt.Fprintf(&b, "page %d: ", e.Page)
	}
	switch e.Kind {
	case MissingResource:
		fmt.Fprintf(&b, "missing %s: '%s'", nonEmpty(e.Detail, "resource"), e.Ref)
	case InvalidPageDimensions:
		b.WriteString("invalid page dimensions")
		if e.Detail != "" {
			b.WriteString(": " + e.Detail)
		}
	case MissingRequiredField:
		fmt.Fprintf(&b, "missing required field '%s'", e.Field)
		if e.Detail != "" {
			b.WriteString(": " + e.Detail)
		}
	case UnsupportedCharacter:
		fmt.Fprintf(&b, "missing glyph '%c' (U+%04X) in font '%s'", e.Char, e.Char, e.Ref)
	case UnsupportedResourceFormat:
		fmt.Fprintf(&b, "unsupported resource format for '%s'", e.Ref)
		if e.Detail != "" {
			b.WriteString(": " + e.Detail)
		}
	case EncodingFailure:
		b.WriteString("encoding failure")
		if e.Detail != "" {
			b.WriteString(": " + e.Detail)
		}
	default:
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, which lets the package sentinels
// work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// At returns a copy of e located at the given page and element. Positions
// already set are kept.
func (e *Error) At(page, element int) *Error {
	c := *e
	if c.Page < 0 {
		c.Page = page
	}
	if c.Element < 0 {
		c.Element = element
	}
	return &c
}

func newError(kind Kind) *Error {
	return &Error{Kind: kind, Page: NoIndex, Element: NoIndex}
}

// Missing reports a reference absent from the resource table. what is
// "font" or "image".
func Missing(what, ref string) *Error {
	e := newError(MissingResource)
	e.Detail = what
	e.Ref = ref
	return e
}

// InvalidDimensions reports a page whose width or height is not a positive
// finite number.
func InvalidDimensions(page int, width, height float64) *Error {
	e := newError(InvalidPageDimensions)
	e.Page = page
	e.Detail = fmt.Sprintf("%gx%g", width, height)
	return e
}

// RequiredField reports an element missing a field its variant needs.
func RequiredField(field, detail string) *Error {
	e := newError(MissingRequiredField)
	e.Field = field
	e.Detail = detail
	return e
}

// Unsupported reports a character with no glyph in the referenced font.
func Unsupported(fontRef string, ch rune) *Error {
	e := newError(UnsupportedCharacter)
	e.Ref = fontRef
	e.Char = ch
	return e
}

// BadFormat reports resource bytes that could not be decoded.
func BadFormat(ref string, err error) *Error {
	e := newError(UnsupportedResourceFormat)
	e.Ref = ref
	e.Err = err
	return e
}

// Encoding reports a barcode or QR payload the encoder rejected.
func Encoding(detail string, err error) *Error {
	e := newError(EncodingFailure)
	e.Detail = detail
	e.Err = err
	return e
}

// Locate attaches page and element positions to err when it is an *Error,
// and returns err unchanged otherwise.
func Locate(err error, page, element int) error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.At(page, element)
	}
	return err
}

// KindOf returns the kind of err, or 0 when err is not a classified error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
