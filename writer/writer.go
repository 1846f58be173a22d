// Package writer assembles indirect objects into a complete PDF file with
// a classic cross-reference table.
package writer

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"sort"

	"github.com/wudi/pdfrender/ir/raw"
)

type PDFVersion string

const (
	PDF17 PDFVersion = "1.7"
)

type Config struct {
	Version PDFVersion
	// Deterministic derives both file identifiers from the serialized body
	// so identical input gives identical bytes.
	Deterministic bool
}

func pdfVersion(cfg Config) string {
	if cfg.Version == "" {
		return string(PDF17)
	}
	return string(cfg.Version)
}

// Assembler collects indirect objects. Object numbers are handed out in
// allocation order starting at 1.
type Assembler struct {
	alloc   *raw.Allocator
	objects map[raw.ObjectRef]raw.Object
}

func NewAssembler() *Assembler {
	return &Assembler{alloc: raw.NewAllocator(), objects: make(map[raw.ObjectRef]raw.Object)}
}

// Reserve allocates a reference to be filled later with Set.
func (a *Assembler) Reserve() raw.ObjectRef { return a.alloc.Next() }

// Add allocates a reference for obj.
func (a *Assembler) Add(obj raw.Object) raw.ObjectRef {
	ref := a.alloc.Next()
	a.objects[ref] = obj
	return ref
}

// Set stores obj under a reserved reference.
func (a *Assembler) Set(ref raw.ObjectRef, obj raw.Object) { a.objects[ref] = obj }

func (a *Assembler) Object(ref raw.ObjectRef) (raw.Object, bool) {
	o, ok := a.objects[ref]
	return o, ok
}

// Len is the number of stored objects.
func (a *Assembler) Len() int { return len(a.objects) }

// Trailer names the catalog and optional Info dictionary.
type Trailer struct {
	Root raw.ObjectRef
	Info *raw.ObjectRef
}

// Write serializes every object, the xref table and the trailer. Every
// reserved reference must have been Set.
func (a *Assembler) Write(out io.Writer, trailer Trailer, cfg Config) (int64, error) {
	if _, ok := a.objects[trailer.Root]; !ok {
		return 0, fmt.Errorf("catalog %v not assembled", trailer.Root)
	}
	maxObjNum := a.alloc.Count()
	for num := 1; num <= maxObjNum; num++ {
		if _, ok := a.objects[raw.ObjectRef{Num: num}]; !ok {
			return 0, fmt.Errorf("object %d reserved but never set", num)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-" + pdfVersion(cfg) + "\n%\xE2\xE3\xCF\xD3\n")
	offsets := make(map[int]int64, len(a.objects))

	ordered := make([]raw.ObjectRef, 0, len(a.objects))
	for ref := range a.objects {
		ordered = append(ordered, ref)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Num < ordered[j].Num })
	for _, ref := range ordered {
		offsets[ref.Num] = int64(buf.Len())
		buf.Write(SerializeObject(ref, a.objects[ref]))
	}

	id := fileID(buf.Bytes(), cfg)

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxObjNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= maxObjNum; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}

	td := raw.Dict().
		Put("Size", raw.NumberInt(int64(maxObjNum+1))).
		Put("Root", raw.RefTo(trailer.Root)).
		Put("ID", raw.NewArray(raw.HexStr(id[0]), raw.HexStr(id[1])))
	if trailer.Info != nil {
		td.Put("Info", raw.RefTo(*trailer.Info))
	}
	buf.WriteString("trailer\n")
	buf.Write(serializePrimitive(td))
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	n, err := out.Write(buf.Bytes())
	return int64(n), err
}

// SerializeObject renders one indirect object.
func SerializeObject(ref raw.ObjectRef, obj raw.Object) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
	buf.Write(serializePrimitive(obj))
	buf.WriteString("\nendobj\n")
	return buf.Bytes()
}

func fileID(body []byte, cfg Config) [2][]byte {
	sum := sha256.Sum256(body)
	seed := sum[:16]
	if cfg.Deterministic {
		return [2][]byte{seed, seed}
	}
	id := make([]byte, 16)
	if _, err := rand.Read(id); err != nil {
		id = seed
	}
	return [2][]byte{seed, id}
}
