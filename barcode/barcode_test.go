package barcode

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdfrender/pdferr"
)

func TestCode128Modules(t *testing.T) {
	modules, err := Code128("ABC")
	require.NoError(t, err)
	// start + 3 symbols + checksum at 11 modules each, stop at 13
	assert.Len(t, modules, 11*5+13)
	assert.True(t, modules[0])
	assert.True(t, modules[len(modules)-1])
}

func TestCode128RejectsInvalid(t *testing.T) {
	for _, v := range []string{"", "中文"} {
		_, err := Code128(v)
		require.Error(t, err, v)
		assert.True(t, errors.Is(err, pdferr.ErrEncodingFailure), v)
	}
}

func TestBars(t *testing.T) {
	got := Bars([]bool{true, true, false, true, false, false, true, true, true})
	want := []Bar{{0, 2}, {3, 1}, {6, 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("bars mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, Bars([]bool{false, false}))
}

func TestQRMatrix(t *testing.T) {
	m, err := QR("hello")
	require.NoError(t, err)
	require.Len(t, m, 21)
	for _, row := range m {
		require.Len(t, row, 21)
	}
	// finder pattern corners
	assert.True(t, m[0][0])
	assert.True(t, m[0][20])
	assert.True(t, m[20][0])
	assert.False(t, m[1][1])
}

func TestQREmpty(t *testing.T) {
	_, err := QR("")
	assert.True(t, errors.Is(err, pdferr.ErrEncodingFailure))
}
