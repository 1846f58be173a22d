package fonts

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/go-text/typesetting/font/opentype"
)

// Composite glyph component flags.
const (
	argsAreWords    = 0x0001
	haveScale       = 0x0008
	moreComponents  = 0x0020
	haveXYScale     = 0x0040
	haveTwoByTwo    = 0x0080
	glyfHeaderBytes = 10
)

// ttSubset is the result of compacting a TrueType program.
type ttSubset struct {
	Program []byte
	// OldGIDs[newGID] is the glyph index in the source font.
	OldGIDs []uint16
	// NewGID maps a source glyph index to its compacted index.
	NewGID map[uint16]uint16
}

// subsetTrueType rebuilds data keeping only the given glyphs, their
// composite components and .notdef. Glyphs are renumbered in ascending
// source order with .notdef at 0. runeGIDs feeds the rebuilt cmap.
func subsetTrueType(data []byte, used []uint16, runeGIDs map[rune]uint16) (*ttSubset, error) {
	p, err := newTTReader(data)
	if err != nil {
		return nil, err
	}
	for _, tag := range []string{"head", "hhea", "maxp", "hmtx", "loca", "glyf"} {
		if !p.HasTable(tag) {
			return nil, fmt.Errorf("missing required table %q", tag)
		}
	}

	head, err := p.ReadTable("head")
	if err != nil {
		return nil, err
	}
	if len(head) < 54 {
		return nil, fmt.Errorf("head table truncated")
	}
	indexToLocFormat := int16(binary.BigEndian.Uint16(head[50:52]))

	maxp, err := p.ReadTable("maxp")
	if err != nil {
		return nil, err
	}
	if len(maxp) < 6 {
		return nil, fmt.Errorf("maxp table truncated")
	}
	numGlyphs := int(binary.BigEndian.Uint16(maxp[4:6]))

	glyphs, err := p.glyphTable(indexToLocFormat, numGlyphs)
	if err != nil {
		return nil, err
	}

	closure := map[uint16]bool{0: true}
	for _, gid := range used {
		if int(gid) < numGlyphs {
			closure[gid] = true
		}
	}
	glyphs.addComponents(closure)

	old := make([]uint16, 0, len(closure))
	for gid := range closure {
		old = append(old, gid)
	}
	sort.Slice(old, func(i, j int) bool { return old[i] < old[j] })
	remap := make(map[uint16]uint16, len(old))
	for i, gid := range old {
		remap[gid] = uint16(i)
	}

	glyf, loca, longLoca := glyphs.rebuild(old, remap)

	hmtx, err := p.rebuildHmtx(old)
	if err != nil {
		return nil, err
	}

	w := &ttWriter{}
	w.AddTable("glyf", glyf)
	w.AddTable("loca", loca)
	w.AddTable("hmtx", hmtx)
	w.AddTable("cmap", buildCmap(runeGIDs, remap))

	newHead := clone(head)
	binary.BigEndian.PutUint32(newHead[8:], 0)
	if longLoca {
		binary.BigEndian.PutUint16(newHead[50:], 1)
	} else {
		binary.BigEndian.PutUint16(newHead[50:], 0)
	}
	w.AddTable("head", newHead)

	newMaxp := clone(maxp)
	binary.BigEndian.PutUint16(newMaxp[4:], uint16(len(old)))
	w.AddTable("maxp", newMaxp)

	hhea, err := p.ReadTable("hhea")
	if err != nil {
		return nil, err
	}
	if len(hhea) < 36 {
		return nil, fmt.Errorf("hhea table truncated")
	}
	newHhea := clone(hhea)
	binary.BigEndian.PutUint16(newHhea[34:], uint16(len(old)))
	w.AddTable("hhea", newHhea)

	if post, err := p.ReadTable("post"); err == nil && len(post) >= 32 {
		newPost := clone(post[:32])
		binary.BigEndian.PutUint32(newPost[0:], 0x00030000)
		w.AddTable("post", newPost)
	}

	// Hinting programs and naming survive unchanged; layout tables refer
	// to source glyph indices and are dropped.
	for _, tag := range []string{"name", "OS/2", "cvt ", "fpgm", "prep", "gasp"} {
		if !p.HasTable(tag) {
			continue
		}
		data, err := p.ReadTable(tag)
		if err != nil {
			return nil, err
		}
		w.AddTable(tag, data)
	}

	return &ttSubset{Program: w.Bytes(), OldGIDs: old, NewGID: remap}, nil
}

// ttReader exposes raw sfnt tables through the go-text loader.
type ttReader struct {
	loader *opentype.Loader
}

func newTTReader(data []byte) (*ttReader, error) {
	loader, err := opentype.NewLoader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create loader: %w", err)
	}
	return &ttReader{loader: loader}, nil
}

func tableTag(tag string) opentype.Tag {
	return opentype.NewTag(tag[0], tag[1], tag[2], tag[3])
}

func (p *ttReader) HasTable(tag string) bool {
	return p.loader.HasTable(tableTag(tag))
}

func (p *ttReader) ReadTable(tag string) ([]byte, error) {
	data, err := p.loader.RawTable(tableTag(tag))
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", tag, err)
	}
	return data, nil
}

// glyphTable is the source glyf data split per glyph through loca.
type glyphTable struct {
	glyf    []byte
	offsets []uint32 // numGlyphs+1 entries
}

func (p *ttReader) glyphTable(indexToLocFormat int16, numGlyphs int) (*glyphTable, error) {
	loca, err := p.ReadTable("loca")
	if err != nil {
		return nil, err
	}
	glyf, err := p.ReadTable("glyf")
	if err != nil {
		return nil, err
	}
	offsets := make([]uint32, numGlyphs+1)
	for i := 0; i <= numGlyphs; i++ {
		var off uint32
		if indexToLocFormat == 0 {
			if i*2+2 > len(loca) {
				return nil, fmt.Errorf("loca table truncated")
			}
			off = uint32(binary.BigEndian.Uint16(loca[i*2:])) * 2
		} else {
			if i*4+4 > len(loca) {
				return nil, fmt.Errorf("loca table truncated")
			}
			off = binary.BigEndian.Uint32(loca[i*4:])
		}
		if off > uint32(len(glyf)) {
			off = uint32(len(glyf))
		}
		offsets[i] = off
	}
	return &glyphTable{glyf: glyf, offsets: offsets}, nil
}

func (g *glyphTable) data(gid uint16) []byte {
	if int(gid)+1 >= len(g.offsets) {
		return nil
	}
	start, end := g.offsets[gid], g.offsets[gid+1]
	if start >= end {
		return nil
	}
	return g.glyf[start:end]
}

// components calls fn with the offset of each component glyph index
// inside a composite glyph record.
func components(glyph []byte, fn func(offset int)) {
	if len(glyph) < glyfHeaderBytes || int16(binary.BigEndian.Uint16(glyph)) >= 0 {
		return
	}
	offset := glyfHeaderBytes
	for offset+4 <= len(glyph) {
		flags := binary.BigEndian.Uint16(glyph[offset:])
		fn(offset + 2)
		offset += 4
		if flags&argsAreWords != 0 {
			offset += 4
		} else {
			offset += 2
		}
		switch {
		case flags&haveScale != 0:
			offset += 2
		case flags&haveXYScale != 0:
			offset += 4
		case flags&haveTwoByTwo != 0:
			offset += 8
		}
		if flags&moreComponents == 0 {
			return
		}
	}
}

// addComponents extends closure with every glyph reachable through
// composite references.
func (g *glyphTable) addComponents(closure map[uint16]bool) {
	queue := make([]uint16, 0, len(closure))
	for gid := range closure {
		queue = append(queue, gid)
	}
	numGlyphs := len(g.offsets) - 1
	for len(queue) > 0 {
		gid := queue[0]
		queue = queue[1:]
		glyph := g.data(gid)
		components(glyph, func(off int) {
			sub := binary.BigEndian.Uint16(glyph[off:])
			if int(sub) >= numGlyphs || closure[sub] {
				return
			}
			closure[sub] = true
			queue = append(queue, sub)
		})
	}
}

// rebuild writes the compacted glyf and loca tables. Each glyph is padded
// to four bytes; the short loca format is used when offsets fit.
func (g *glyphTable) rebuild(old []uint16, remap map[uint16]uint16) (glyf, loca []byte, long bool) {
	var out bytes.Buffer
	offsets := make([]uint32, 0, len(old)+1)
	for _, gid := range old {
		offsets = append(offsets, uint32(out.Len()))
		glyph := clone(g.data(gid))
		components(glyph, func(off int) {
			sub := binary.BigEndian.Uint16(glyph[off:])
			binary.BigEndian.PutUint16(glyph[off:], remap[sub])
		})
		out.Write(glyph)
		for out.Len()%4 != 0 {
			out.WriteByte(0)
		}
	}
	offsets = append(offsets, uint32(out.Len()))

	long = out.Len()/2 > 0xFFFF
	var l bytes.Buffer
	for _, off := range offsets {
		if long {
			binary.Write(&l, binary.BigEndian, off)
		} else {
			binary.Write(&l, binary.BigEndian, uint16(off/2))
		}
	}
	return out.Bytes(), l.Bytes(), long
}

// rebuildHmtx emits one full metric per kept glyph; hhea is patched to
// match.
func (p *ttReader) rebuildHmtx(old []uint16) ([]byte, error) {
	hhea, err := p.ReadTable("hhea")
	if err != nil {
		return nil, err
	}
	if len(hhea) < 36 {
		return nil, fmt.Errorf("hhea table truncated")
	}
	numOfHMetrics := int(binary.BigEndian.Uint16(hhea[34:36]))
	hmtx, err := p.ReadTable("hmtx")
	if err != nil {
		return nil, err
	}
	if numOfHMetrics == 0 || len(hmtx) < numOfHMetrics*4 {
		return nil, fmt.Errorf("hmtx table truncated")
	}

	metric := func(gid int) (uint16, int16) {
		if gid < numOfHMetrics {
			return binary.BigEndian.Uint16(hmtx[gid*4:]), int16(binary.BigEndian.Uint16(hmtx[gid*4+2:]))
		}
		adv := binary.BigEndian.Uint16(hmtx[(numOfHMetrics-1)*4:])
		lsbOffset := numOfHMetrics*4 + (gid-numOfHMetrics)*2
		if lsbOffset+2 > len(hmtx) {
			return adv, 0
		}
		return adv, int16(binary.BigEndian.Uint16(hmtx[lsbOffset:]))
	}

	var out bytes.Buffer
	for _, gid := range old {
		adv, lsb := metric(int(gid))
		binary.Write(&out, binary.BigEndian, adv)
		binary.Write(&out, binary.BigEndian, lsb)
	}
	return out.Bytes(), nil
}

// buildCmap writes a (3,1) format 4 cmap for the BMP characters of the
// subset. Runs where both codes and glyphs increase by one share a
// segment.
func buildCmap(runeGIDs map[rune]uint16, remap map[uint16]uint16) []byte {
	type pair struct {
		code uint16
		gid  uint16
	}
	pairs := make([]pair, 0, len(runeGIDs))
	for r, gid := range runeGIDs {
		if r < 0 || r >= 0xFFFF {
			continue
		}
		ng, ok := remap[gid]
		if !ok {
			continue
		}
		pairs = append(pairs, pair{uint16(r), ng})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].code < pairs[j].code })

	type segment struct{ start, end, delta uint16 }
	var segs []segment
	for _, pr := range pairs {
		if n := len(segs); n > 0 {
			last := &segs[n-1]
			if pr.code == last.end+1 && pr.gid-pr.code == last.delta {
				last.end = pr.code
				continue
			}
		}
		segs = append(segs, segment{start: pr.code, end: pr.code, delta: pr.gid - pr.code})
	}
	segs = append(segs, segment{start: 0xFFFF, end: 0xFFFF, delta: 1})

	segX2 := len(segs) * 2
	entrySelector := 0
	for (1 << (entrySelector + 1)) <= len(segs) {
		entrySelector++
	}
	searchRange := (1 << entrySelector) * 2

	var sub bytes.Buffer
	length := 16 + 4*segX2
	binary.Write(&sub, binary.BigEndian, uint16(4))
	binary.Write(&sub, binary.BigEndian, uint16(length))
	binary.Write(&sub, binary.BigEndian, uint16(0))
	binary.Write(&sub, binary.BigEndian, uint16(segX2))
	binary.Write(&sub, binary.BigEndian, uint16(searchRange))
	binary.Write(&sub, binary.BigEndian, uint16(entrySelector))
	binary.Write(&sub, binary.BigEndian, uint16(segX2-searchRange))
	for _, s := range segs {
		binary.Write(&sub, binary.BigEndian, s.end)
	}
	binary.Write(&sub, binary.BigEndian, uint16(0))
	for _, s := range segs {
		binary.Write(&sub, binary.BigEndian, s.start)
	}
	for _, s := range segs {
		binary.Write(&sub, binary.BigEndian, s.delta)
	}
	for range segs {
		binary.Write(&sub, binary.BigEndian, uint16(0))
	}

	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, uint16(0)) // version
	binary.Write(&out, binary.BigEndian, uint16(1)) // numTables
	binary.Write(&out, binary.BigEndian, uint16(3)) // platform Windows
	binary.Write(&out, binary.BigEndian, uint16(1)) // Unicode BMP
	binary.Write(&out, binary.BigEndian, uint32(12))
	out.Write(sub.Bytes())
	return out.Bytes()
}

type ttWriter struct {
	tables []tableData
}

type tableData struct {
	tag  string
	data []byte
}

func (w *ttWriter) AddTable(tag string, data []byte) {
	w.tables = append(w.tables, tableData{tag, data})
}

// Bytes assembles the sfnt with tables sorted by tag and fixes up the
// head checksumAdjustment. head must have its adjustment zeroed.
func (w *ttWriter) Bytes() []byte {
	sort.Slice(w.tables, func(i, j int) bool { return w.tables[i].tag < w.tables[j].tag })

	numTables := len(w.tables)
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x01, 0x00, 0x00})
	binary.Write(&buf, binary.BigEndian, uint16(numTables))

	entrySelector := 0
	for (1 << (entrySelector + 1)) <= numTables {
		entrySelector++
	}
	searchRange := (1 << entrySelector) * 16
	binary.Write(&buf, binary.BigEndian, uint16(searchRange))
	binary.Write(&buf, binary.BigEndian, uint16(entrySelector))
	binary.Write(&buf, binary.BigEndian, uint16(numTables*16-searchRange))

	offset := 12 + 16*numTables
	headOffset := -1
	for _, t := range w.tables {
		if t.tag == "head" {
			headOffset = offset
		}
		buf.WriteString(t.tag)
		binary.Write(&buf, binary.BigEndian, calcChecksum(t.data))
		binary.Write(&buf, binary.BigEndian, uint32(offset))
		binary.Write(&buf, binary.BigEndian, uint32(len(t.data)))
		offset += (len(t.data) + 3) &^ 3
	}
	for _, t := range w.tables {
		buf.Write(t.data)
		for k := len(t.data); k%4 != 0; k++ {
			buf.WriteByte(0)
		}
	}

	out := buf.Bytes()
	if headOffset >= 0 && headOffset+12 <= len(out) {
		binary.BigEndian.PutUint32(out[headOffset+8:], 0xB1B0AFBA-calcChecksum(out))
	}
	return out
}

func calcChecksum(data []byte) uint32 {
	var sum uint32
	for i := 0; i < len(data); i += 4 {
		if i+4 <= len(data) {
			sum += binary.BigEndian.Uint32(data[i : i+4])
			continue
		}
		var tail [4]byte
		copy(tail[:], data[i:])
		sum += binary.BigEndian.Uint32(tail[:])
	}
	return sum
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
