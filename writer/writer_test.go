package writer

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wudi/pdfrender/ir/raw"
)

func assembleMinimal(t *testing.T, cfg Config) []byte {
	t.Helper()
	a := NewAssembler()
	catalog := a.Reserve()
	pages := a.Reserve()
	content := a.Add(raw.NewStream(raw.Dict(), []byte("0 0 m 10 10 l S")))
	page := a.Add(raw.Dict().
		Put("Type", raw.NameLiteral("Page")).
		Put("Parent", raw.RefTo(pages)).
		Put("MediaBox", raw.Numbers(0, 0, 612, 792)).
		Put("Contents", raw.RefTo(content)))
	a.Set(pages, raw.Dict().
		Put("Type", raw.NameLiteral("Pages")).
		Put("Kids", raw.NewArray(raw.RefTo(page))).
		Put("Count", raw.NumberInt(1)))
	a.Set(catalog, raw.Dict().Put("Type", raw.NameLiteral("Catalog")).Put("Pages", raw.RefTo(pages)))
	info := a.Add(Info{Title: "Test", Producer: "pdfrender"}.Dict())

	var buf bytes.Buffer
	n, err := a.Write(&buf, Trailer{Root: catalog, Info: &info}, cfg)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if n != int64(buf.Len()) {
		t.Fatalf("reported %d bytes, wrote %d", n, buf.Len())
	}
	return buf.Bytes()
}

func TestWriteStructure(t *testing.T) {
	out := assembleMinimal(t, Config{Deterministic: true})
	s := string(out)
	if !strings.HasPrefix(s, "%PDF-1.7\n") {
		t.Fatalf("missing header: %q", s[:12])
	}
	if !strings.HasSuffix(s, "%%EOF\n") {
		t.Fatalf("missing EOF marker")
	}
	for _, want := range []string{"/Type /Catalog", "/Count 1", "/Length 15", "/Title (Test)", "/Root 1 0 R", "/Info 5 0 R", "/Size 6"} {
		if !strings.Contains(s, want) {
			t.Fatalf("output missing %q", want)
		}
	}
}

func TestXRefOffsetsPointAtObjects(t *testing.T) {
	out := assembleMinimal(t, Config{Deterministic: true})
	s := string(out)
	m := regexp.MustCompile(`startxref\n(\d+)\n`).FindStringSubmatch(s)
	if m == nil {
		t.Fatalf("no startxref")
	}
	xref, _ := strconv.Atoi(m[1])
	if !strings.HasPrefix(s[xref:], "xref\n0 6\n") {
		t.Fatalf("startxref does not point at xref: %q", s[xref:xref+10])
	}
	lines := strings.Split(s[xref:], "\n")[3:8]
	for i, line := range lines {
		off, err := strconv.Atoi(line[:10])
		if err != nil {
			t.Fatalf("bad xref line %q", line)
		}
		want := fmt.Sprintf("%d 0 obj", i+1)
		if !strings.HasPrefix(s[off:], want) {
			t.Fatalf("xref entry %d points at %q", i+1, s[off:off+8])
		}
	}
}

func TestDeterministicOutput(t *testing.T) {
	a := assembleMinimal(t, Config{Deterministic: true})
	b := assembleMinimal(t, Config{Deterministic: true})
	if !bytes.Equal(a, b) {
		t.Fatalf("deterministic output differs")
	}
}

func TestWriteRejectsUnsetReference(t *testing.T) {
	a := NewAssembler()
	root := a.Add(raw.Dict())
	a.Reserve()
	if _, err := a.Write(&bytes.Buffer{}, Trailer{Root: root}, Config{}); err == nil {
		t.Fatalf("expected error for reserved but unset object")
	}
	if _, err := NewAssembler().Write(&bytes.Buffer{}, Trailer{Root: raw.ObjectRef{Num: 1}}, Config{}); err == nil {
		t.Fatalf("expected error for missing catalog")
	}
}

func TestEncodeCIDWidths(t *testing.T) {
	got := serializePrimitive(EncodeCIDWidths(map[int]int{0: 500, 1: 600, 2: 600, 3: 600, 5: 600}))
	if diff := cmp.Diff("[0 0 500 1 3 600 5 5 600]", string(got)); diff != "" {
		t.Fatalf("W array mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildToUnicodeCMap(t *testing.T) {
	cmap := string(BuildToUnicodeCMap("ABCDEF+Go Regular", map[uint16]rune{1: 'H', 2: '中', 3: '😀'}))
	for _, want := range []string{
		"/CMapName /ABCDEF+GoRegular-UTF16 def",
		"3 beginbfchar",
		"<0001> <0048>",
		"<0002> <4E2D>",
		"<0003> <D83DDE00>",
	} {
		if !strings.Contains(cmap, want) {
			t.Fatalf("cmap missing %q:\n%s", want, cmap)
		}
	}
	if BuildToUnicodeCMap("x", nil) != nil {
		t.Fatalf("empty map should produce nil")
	}
}

func TestTextString(t *testing.T) {
	if got := TextString("Invoice (1)"); got.Hex || string(got.Bytes) != "Invoice (1)" {
		t.Fatalf("ascii text string: %+v", got)
	}
	got := TextString("Größe")
	if !got.Hex {
		t.Fatalf("non-ascii should be hex")
	}
	want := []byte{0xFE, 0xFF, 0, 'G', 0, 'r', 0, 0xF6, 0, 0xDF, 0, 'e'}
	if !bytes.Equal(got.Bytes, want) {
		t.Fatalf("utf16 mismatch: % X", got.Bytes)
	}
	if !bytes.Equal(utf16BE("Größe"), want) {
		t.Fatalf("fallback encoder mismatch")
	}
}

func TestSerializeValues(t *testing.T) {
	cases := []struct {
		obj  raw.Object
		want string
	}{
		{raw.NumberFloat(0.25), "0.25"},
		{raw.NumberFloat(1e-9), "0"},
		{raw.NameLiteral("A B"), "/A#20B"},
		{raw.Str([]byte("a(b)")), `(a\(b\))`},
		{raw.HexStr([]byte{0xAB, 0x01}), "<AB01>"},
		{raw.Bool(true), "true"},
		{raw.NullObj{}, "null"},
	}
	for _, c := range cases {
		if got := string(serializePrimitive(c.obj)); got != c.want {
			t.Fatalf("serialize %#v = %q, want %q", c.obj, got, c.want)
		}
	}
}

func TestPDFDate(t *testing.T) {
	cases := map[string]string{
		"":                          "",
		"D:20240101000000Z":         "D:20240101000000Z",
		"2024-03-05T10:20:30Z":      "D:20240305102030Z",
		"2024-03-05T10:20:30+02:00": "D:20240305102030+02'00'",
		"2024-03-05":                "D:20240305000000Z",
		"yesterday":                 "yesterday",
	}
	for in, want := range cases {
		if got := pdfDate(in); got != want {
			t.Fatalf("pdfDate(%q) = %q, want %q", in, got, want)
		}
	}
}
