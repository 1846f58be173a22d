package resources

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/wudi/pdfrender/pdferr"
)

func TestTableLookup(t *testing.T) {
	tbl := NewTable(nil)
	require.NoError(t, tbl.AddFont("main", Source{Data: goregular.TTF}))
	f, err := tbl.Font("main")
	require.NoError(t, err)
	assert.Equal(t, "main", f.Ref)

	_, err = tbl.Font("Arial")
	require.Error(t, err)
	assert.True(t, errors.Is(err, pdferr.ErrMissingResource))
	assert.Equal(t, "missing font: 'Arial'", err.Error())

	_, err = tbl.Image("missing")
	require.Error(t, err)
	var pe *pdferr.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "missing", pe.Ref)
}

func TestAddFontRejectsGarbage(t *testing.T) {
	tbl := NewTable(nil)
	err := tbl.AddFont("bad", Source{Data: []byte("nope")})
	assert.True(t, errors.Is(err, pdferr.ErrUnsupportedResourceFormat))
	assert.Error(t, tbl.AddFont("none", Source{}))
}

func TestLoadConcurrent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))))
	srcs := Sources{
		Fonts:  map[string]Source{"a": {Data: goregular.TTF}, "b": {Data: goregular.TTF}},
		Images: map[string]Source{"logo": {Data: buf.Bytes()}},
	}
	tbl, err := Load(context.Background(), srcs, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.FontRefs())
	_, err = tbl.Image("logo")
	assert.NoError(t, err)
}

func TestLoadFailsFast(t *testing.T) {
	srcs := Sources{Images: map[string]Source{"bad": {Data: []byte("xx")}}}
	_, err := Load(context.Background(), srcs, 0, nil)
	assert.True(t, errors.Is(err, pdferr.ErrUnsupportedResourceFormat))
}

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "regular.ttf"), goregular.TTF, 0o644))
	manifest := filepath.Join(dir, "res.json")
	require.NoError(t, os.WriteFile(manifest, []byte(`{"fonts":{"main":"regular.ttf"}}`), 0o644))

	srcs, err := ReadManifest(manifest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "regular.ttf"), srcs.Fonts["main"].Path)

	tbl, err := Load(context.Background(), srcs, 1, nil)
	require.NoError(t, err)
	_, err = tbl.Font("main")
	assert.NoError(t, err)
}

func TestReadManifestErrors(t *testing.T) {
	_, err := ReadManifest(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = ReadManifest(bad)
	assert.Error(t, err)
}
