// Package contentstream models page content as a list of operations and
// serializes it to PDF content-stream syntax.
package contentstream

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// Operand is a content-stream operand.
type Operand interface {
	appendTo(b *bytes.Buffer)
}

// Number is a numeric operand.
type Number float64

// Name is a name operand, written with a leading slash.
type Name string

// String is a literal string operand.
type String []byte

// HexString is a string operand written as <…>. Text shown with a
// two-byte CID encoding uses this form.
type HexString []byte

// Array is an array operand.
type Array []Operand

// Operation is one operator with its operands.
type Operation struct {
	Operator string
	Operands []Operand
}

func (n Number) appendTo(b *bytes.Buffer) { b.WriteString(FormatNumber(float64(n))) }
func (n Name) appendTo(b *bytes.Buffer)   { b.WriteString("/" + string(n)) }
func (s String) appendTo(b *bytes.Buffer) { b.Write(EscapeLiteral(s)) }

func (s HexString) appendTo(b *bytes.Buffer) {
	fmt.Fprintf(b, "<%X>", []byte(s))
}

func (a Array) appendTo(b *bytes.Buffer) {
	b.WriteByte('[')
	for i, it := range a {
		if i > 0 {
			b.WriteByte(' ')
		}
		it.appendTo(b)
	}
	b.WriteByte(']')
}

// Serialize writes ops one per line as "operands operator".
func Serialize(ops []Operation) []byte {
	if len(ops) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, op := range ops {
		for i, operand := range op.Operands {
			if i > 0 {
				buf.WriteByte(' ')
			}
			operand.appendTo(&buf)
		}
		if len(op.Operands) > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(op.Operator)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// FormatNumber prints v with at most four decimals and without exponent
// notation, which content-stream syntax does not allow.
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	v = math.Round(v*10000) / 10000
	if v == 0 {
		return "0"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// EscapeLiteral renders raw bytes as a parenthesised literal string.
func EscapeLiteral(raw []byte) []byte {
	var b bytes.Buffer
	b.WriteByte('(')
	for _, ch := range raw {
		switch ch {
		case '\\', '(', ')':
			b.WriteByte('\\')
			b.WriteByte(ch)
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		case '\b':
			b.WriteString("\\b")
		case '\f':
			b.WriteString("\\f")
		default:
			if ch < 0x20 || ch >= 0x80 {
				fmt.Fprintf(&b, "\\%03o", ch)
			} else {
				b.WriteByte(ch)
			}
		}
	}
	b.WriteByte(')')
	return b.Bytes()
}
