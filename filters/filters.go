// Package filters implements FlateDecode, the one stream filter the
// renderer writes. Content streams, SVG forms and embedded font programs
// are deflate-compressed; the decoder inflates them again for checks on
// rendered output.
package filters

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"io"
)

// FlateDecode is the PDF filter name for zlib/deflate data.
const FlateDecode = "FlateDecode"

type Encoder interface {
	Name() string
	Encode(ctx context.Context, input []byte) ([]byte, error)
}

type Decoder interface {
	Name() string
	Decode(ctx context.Context, input []byte) ([]byte, error)
}

type flate struct{ level int }

// NewFlateEncoder returns a zlib encoder at the given compress/flate level.
func NewFlateEncoder(level int) Encoder { return flate{level: level} }

// NewFlateDecoder returns a FlateDecode decoder.
func NewFlateDecoder() Decoder { return flate{level: zlib.DefaultCompression} }

func (flate) Name() string { return FlateDecode }

func (f flate) Encode(ctx context.Context, in []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, f.level)
	if err != nil {
		return nil, fmt.Errorf("flate level %d: %w", f.level, err)
	}
	if _, err := w.Write(in); err != nil {
		return nil, fmt.Errorf("flate write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("flate close: %w", err)
	}
	return buf.Bytes(), nil
}

func (flate) Decode(ctx context.Context, in []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, fmt.Errorf("flate header: %w", err)
	}
	defer r.Close()

	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
