package filters

import (
	"bytes"
	"compress/zlib"
	"context"
	"testing"
)

func TestFlateRoundTrip(t *testing.T) {
	in := bytes.Repeat([]byte("q 1 0 0 rg 0 0 10 10 re f Q\n"), 50)
	enc := NewFlateEncoder(zlib.BestCompression)
	out, err := enc.Encode(context.Background(), in)
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	if len(out) >= len(in) {
		t.Fatalf("expected compression, got %d >= %d", len(out), len(in))
	}
	if out[0] != 0x78 {
		t.Fatalf("expected zlib header, got %#x", out[0])
	}
	back, err := NewFlateDecoder().Decode(context.Background(), out)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !bytes.Equal(back, in) {
		t.Fatalf("round trip mismatch")
	}
}

func TestFlateEncoderRejectsBadLevel(t *testing.T) {
	if _, err := NewFlateEncoder(42).Encode(context.Background(), []byte("x")); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestFlateEncodeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewFlateEncoder(zlib.DefaultCompression).Encode(ctx, []byte("x")); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestFlateDecodeRejectsGarbage(t *testing.T) {
	if _, err := NewFlateDecoder().Decode(context.Background(), []byte("not zlib")); err == nil {
		t.Fatalf("expected header error")
	}
}
