package protocol

import (
	"fmt"
	"math"
	"strings"

	"github.com/danmuck/robolink/internal/protocol/codes"
)

// Kind is the variant of an Element.
type Kind uint8

const (
	KindCode Kind = iota
	KindF32
	KindU32
	KindI32
)

func (k Kind) String() string {
	switch k {
	case KindCode:
		return "code"
	case KindF32:
		return "f32"
	case KindU32:
		return "u32"
	case KindI32:
		return "i32"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Element is one tagged value of a message: a bare code, or a 32-bit numeric
// payload. Numeric payloads are kept as raw bits so float patterns survive a
// round trip exactly.
type Element struct {
	kind Kind
	code codes.Code
	bits uint32
}

func CodeElem(c codes.Code) Element { return Element{kind: KindCode, code: c} }
func F32(v float32) Element         { return Element{kind: KindF32, bits: math.Float32bits(v)} }
func U32(v uint32) Element          { return Element{kind: KindU32, bits: v} }
func I32(v int32) Element           { return Element{kind: KindI32, bits: uint32(v)} }

func numericElem(k Kind, bits uint32) Element { return Element{kind: k, bits: bits} }

func (e Element) Kind() Kind { return e.kind }

func (e Element) Code() (codes.Code, bool) {
	return e.code, e.kind == KindCode
}

func (e Element) Float32() (float32, bool) {
	return math.Float32frombits(e.bits), e.kind == KindF32
}

func (e Element) Uint32() (uint32, bool) {
	return e.bits, e.kind == KindU32
}


func (e Element) String() string {
	switch e.kind {
	case KindCode:
		return string(e.code)
	case KindF32:
		return fmt.Sprintf("f:%g", math.Float32frombits(e.bits))
	case KindU32:
		return fmt.Sprintf("u:%d", e.bits)
	case KindI32:
		return fmt.Sprintf("i:%d", int32(e.bits))
	default:
		return e.kind.String()
	}
}

// Message is an ordered element sequence. The frame delimiters are not part
// of it.
type Message []Element

func (m Message) Equal(other Message) bool {
	if len(m) != len(other) {
		return false
	}
	for i := range m {
		if m[i] != other[i] {
			return false
		}
	}
	return true
}

// Floats returns the F32 payloads in order, skipping other kinds.
func (m Message) Floats() []float32 {
	out := make([]float32, 0, len(m))
	for _, e := range m {
		if v, ok := e.Float32(); ok {
			out = append(out, v)
		}
	}
	return out
}

func (m Message) String() string {
	parts := make([]string, len(m))
	for i, e := range m {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
