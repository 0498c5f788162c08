package codes

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code is the symbolic name of one message code.
type Code string

// Structural codes.
const (
	MsgStart   Code = "MSG_START"
	MsgEnd     Code = "MSG_END"
	FloatAhead Code = "FLOAT_AHEAD"
	UintAhead  Code = "UINT_AHEAD"
	IntAhead   Code = "INT_AHEAD"
)

// Semantic codes used by the host.
const (
	None         Code = "NONE"
	Set          Code = "SET"
	Get          Code = "GET"
	All          Code = "ALL"
	PID          Code = "PID"
	Odometry     Code = "ODOMETRY"
	DriveBase    Code = "DRIVE_BASE"
	EncoderMotor Code = "ENCODER_MOTOR"
	Shoulder     Code = "SHOULDER"
	Arm          Code = "ARM"
	Turntable    Code = "TTBL"
	Lidar        Code = "LIDAR"
)

var ErrSchemaMismatch = errors.New("codes: schema mismatch")

// SchemaError describes why a code table is not a bijection.
type SchemaError struct {
	Code   Code
	Other  Code
	Value  int
	Reason string
}

func (e SchemaError) Error() string {
	switch {
	case e.Other != "":
		return fmt.Sprintf("codes: %s and %s share byte 0x%02x: %s", e.Code, e.Other, e.Value, e.Reason)
	case e.Code != "":
		return fmt.Sprintf("codes: code=%s value=%d: %s", e.Code, e.Value, e.Reason)
	default:
		return "codes: " + e.Reason
	}
}

func (e SchemaError) Unwrap() error { return ErrSchemaMismatch }

var structural = []Code{MsgStart, MsgEnd, FloatAhead, UintAhead, IntAhead}

// IsStructural reports whether c is reserved for framing or type tagging.
func IsStructural(c Code) bool {
	for _, s := range structural {
		if s == c {
			return true
		}
	}
	return false
}

// IsTypeTag reports whether c announces a 4-byte numeric payload.
func IsTypeTag(c Code) bool {
	return c == FloatAhead || c == UintAhead || c == IntAhead
}

// Entry is one name/byte pair of a table.
type Entry struct {
	Code Code
	Byte byte
}

// Table is a validated bidirectional code/byte mapping.
type Table struct {
	toByte   map[Code]byte
	fromByte [256]Code
}

// NewTable validates assignments and builds the lookup table. Values must fit
// a byte, no two codes may share a byte, and every structural code plus NONE
// must be present.
func NewTable(assignments map[Code]int) (*Table, error) {
	t := &Table{toByte: make(map[Code]byte, len(assignments))}

	names := make([]Code, 0, len(assignments))
	for c := range assignments {
		names = append(names, c)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for _, c := range names {
		v := assignments[c]
		if strings.TrimSpace(string(c)) == "" {
			return nil, SchemaError{Value: v, Reason: "empty code name"}
		}
		if v < 0 || v > 0xff {
			return nil, SchemaError{Code: c, Value: v, Reason: "value outside byte range"}
		}
		if other := t.fromByte[v]; other != "" {
			return nil, SchemaError{Code: other, Other: c, Value: v, Reason: "aliased byte"}
		}
		t.fromByte[v] = c
		t.toByte[c] = byte(v)
	}

	required := append([]Code{None}, structural...)
	for _, c := range required {
		if _, ok := t.toByte[c]; !ok {
			return nil, SchemaError{Code: c, Value: -1, Reason: "required code missing"}
		}
	}
	return t, nil
}

// Byte returns the wire byte for c.
func (t *Table) Byte(c Code) (byte, bool) {
	b, ok := t.toByte[c]
	return b, ok
}

// MustByte is Byte for codes NewTable guarantees to exist.
func (t *Table) MustByte(c Code) byte {
	b, ok := t.toByte[c]
	if !ok {
		panic(fmt.Sprintf("codes: %s not in table", c))
	}
	return b
}

// Lookup maps any byte to its code. Unassigned bytes map to NONE.
func (t *Table) Lookup(b byte) Code {
	if c := t.fromByte[b]; c != "" {
		return c
	}
	return None
}

// Known reports whether b is assigned to a code.
func (t *Table) Known(b byte) bool {
	return t.fromByte[b] != ""
}

// Entries lists the table in byte order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.toByte))
	for v := 0; v < len(t.fromByte); v++ {
		if c := t.fromByte[v]; c != "" {
			out = append(out, Entry{Code: c, Byte: byte(v)})
		}
	}
	return out
}

// Len returns the number of assigned codes.
func (t *Table) Len() int {
	return len(t.toByte)
}
