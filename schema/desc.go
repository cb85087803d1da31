// Package schema implements the recursive schema descriptor that drives
// the tabular sink's column naming and column-order recovery. A Desc
// value is pure, static data: building one and walking it allocates no
// per-record state and can safely be cached for the lifetime of the
// process, the way a compile-time constant would be in a language with
// richer const-evaluation.
package schema

import (
	"strconv"
	"strings"
)

// Kind identifies which of the four descriptor shapes a Desc is.
type Kind int

// The four descriptor shapes.
const (
	KindAtom Kind = iota
	KindOption
	KindArray
	KindStruct
)

// Field is one named child of a Struct descriptor. A Field whose Name is
// the empty string is flattened: its own leaves contribute column names
// without the parent's name as a prefix.
type Field struct {
	Name string
	Desc *Desc
}

// Desc is the recursive descriptor tree for one record type.
type Desc struct {
	Kind   Kind
	Inner  *Desc   // set for KindOption, KindArray
	N      int     // set for KindArray
	Fields []Field // set for KindStruct
}

// Atom returns a descriptor for a single scalar column.
func Atom() *Desc {
	return &Desc{Kind: KindAtom}
}

// Option returns a descriptor with the same column layout as inner; a
// missing value writes the sentinel "_" in each of inner's leaf columns.
func Option(inner *Desc) *Desc {
	return &Desc{Kind: KindOption, Inner: inner}
}

// Array returns a descriptor for n positional children of inner.
func Array(n int, inner *Desc) *Desc {
	return &Desc{Kind: KindArray, N: n, Inner: inner}
}

// Struct returns a descriptor for named children.
func Struct(fields ...Field) *Desc {
	return &Desc{Kind: KindStruct, Fields: fields}
}

// F declares a named struct field.
func F(name string, d *Desc) Field {
	return Field{Name: name, Desc: d}
}

// Flatten declares a struct field whose leaves contribute column names
// without a parent prefix.
func Flatten(d *Desc) Field {
	return Field{Name: "", Desc: d}
}

// Columns returns the number of leaf columns in d.
func Columns(d *Desc) int {
	switch d.Kind {
	case KindAtom:
		return 1
	case KindOption:
		return Columns(d.Inner)
	case KindArray:
		return d.N * Columns(d.Inner)
	case KindStruct:
		sum := 0
		for _, f := range d.Fields {
			sum += Columns(f.Desc)
		}
		return sum
	default:
		return 0
	}
}

// EmitHeader performs a depth-first enumeration of d's leaves, writing
// "dotted_prefix " for each leaf, where dotted_prefix joins parent and
// child names with "." (no dot if either side is empty). For Array, the
// child name is the decimal index. This mirrors the original tcpdiag
// tool's const-eval cprint exactly, trailing space included, so that
// HeaderBytes below stays a pure byte count of this same string.
func EmitHeader(d *Desc, prefix string) string {
	var b strings.Builder
	emitHeader(&b, d, prefix)
	return b.String()
}

func emitHeader(b *strings.Builder, d *Desc, prefix string) {
	switch d.Kind {
	case KindOption:
		emitHeader(b, d.Inner, prefix)
	case KindArray:
		for i := 0; i < d.N; i++ {
			emitHeader(b, d.Inner, joinDot(prefix, strconv.Itoa(i)))
		}
	case KindStruct:
		for _, f := range d.Fields {
			emitHeader(b, f.Desc, joinDot(prefix, f.Name))
		}
	case KindAtom:
		b.WriteString(prefix)
		b.WriteByte(' ')
	}
}

// HeaderBytes returns the exact byte length of EmitHeader(d, "").
func HeaderBytes(d *Desc) int {
	return len(EmitHeader(d, ""))
}

// Header returns the human-readable header line for d: the leaf
// enumeration with the single trailing separator trimmed. HeaderBytes
// remains the untrimmed pure byte count used by the header-invariance
// and column-count properties; Header is the Go-idiomatic on-disk form
// (see the tabular header trailing-space Open Question in SPEC_FULL.md).
func Header(d *Desc) string {
	return strings.TrimSuffix(EmitHeader(d, ""), " ")
}

func joinDot(prefix, name string) string {
	if prefix == "" {
		return name
	}
	if name == "" {
		return prefix
	}
	return prefix + "." + name
}
