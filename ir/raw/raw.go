package raw

import "fmt"

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is the base interface for all raw PDF objects.
type Object interface {
	Type() string
	IsIndirect() bool
}

// Dictionary represents a PDF dictionary object.
type Dictionary interface {
	Object
	Get(key Name) (Object, bool)
	Set(key Name, value Object)
	Keys() []Name
	Len() int
}

// Array represents a PDF array object.
type Array interface {
	Object
	Get(index int) (Object, bool)
	Len() int
	Append(obj Object)
}

// Stream represents a PDF stream whose Data is already encoded with the
// filters named in its dictionary.
type Stream interface {
	Object
	Dictionary() Dictionary
	RawData() []byte
	Length() int64
}

// Name represents a PDF name object.
type Name interface {
	Object
	Value() string
}

// String represents a PDF string (literal or hex).
type String interface {
	Object
	Value() []byte
	IsHex() bool
}

// Number represents a PDF numeric value.
type Number interface {
	Object
	Int() int64
	Float() float64
	IsInteger() bool
}

// Boolean represents a PDF boolean.
type Boolean interface {
	Object
	Value() bool
}

// Null represents the PDF null object.
type Null interface{ Object }

// Reference represents an indirect object reference.
type Reference interface {
	Object
	Ref() ObjectRef
}

// Allocator hands out sequential object numbers starting at 1.
type Allocator struct{ next int }

// NewAllocator returns an allocator whose first reference is 1 0 R.
func NewAllocator() *Allocator { return &Allocator{next: 1} }

// Next reserves a new object number.
func (a *Allocator) Next() ObjectRef {
	if a.next == 0 {
		a.next = 1
	}
	ref := ObjectRef{Num: a.next}
	a.next++
	return ref
}

// Count reports how many references were handed out.
func (a *Allocator) Count() int {
	if a.next == 0 {
		return 0
	}
	return a.next - 1
}
