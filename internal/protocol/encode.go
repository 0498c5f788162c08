package protocol

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/danmuck/robolink/internal/protocol/codes"
)

const payloadSize = 4

// Encode serializes msg into one frame: MSG_START, the elements, MSG_END.
// Payload bytes are not escaped; a payload byte equal to MSG_END will cut the
// frame short on the receiving side.
func Encode(t *codes.Table, msg Message) ([]byte, error) {
	return AppendEncoded(make([]byte, 0, EncodedLen(msg)), t, msg)
}

// AppendEncoded appends the frame for msg to dst. Code elements must name
// semantic codes; structural ones fail with ErrStructuralCode.
func AppendEncoded(dst []byte, t *codes.Table, msg Message) ([]byte, error) {
	dst = append(dst, t.MustByte(codes.MsgStart))
	for i, e := range msg {
		switch e.kind {
		case KindCode:
			if codes.IsStructural(e.code) {
				return nil, fmt.Errorf("%w: element=%d code=%q", ErrStructuralCode, i, e.code)
			}
			b, ok := t.Byte(e.code)
			if !ok {
				return nil, fmt.Errorf("%w: element=%d code=%q", ErrUnknownCode, i, e.code)
			}
			dst = append(dst, b)
		case KindF32:
			dst = appendPayload(dst, t.MustByte(codes.FloatAhead), e.bits)
		case KindU32:
			dst = appendPayload(dst, t.MustByte(codes.UintAhead), e.bits)
		case KindI32:
			dst = appendPayload(dst, t.MustByte(codes.IntAhead), e.bits)
		default:
			return nil, fmt.Errorf("protocol: element=%d has invalid kind %d", i, e.kind)
		}
	}
	return append(dst, t.MustByte(codes.MsgEnd)), nil
}

func appendPayload(dst []byte, tag byte, bits uint32) []byte {
	dst = append(dst, tag)
	return binary.LittleEndian.AppendUint32(dst, bits)
}

// EncodedLen is the frame size of msg in bytes.
func EncodedLen(msg Message) int {
	n := 2
	for _, e := range msg {
		if e.kind == KindCode {
			n++
		} else {
			n += 1 + payloadSize
		}
	}
	return n
}

// Encoder writes whole frames to a transport writer.
type Encoder struct {
	w     io.Writer
	table *codes.Table
	buf   []byte
}

func NewEncoder(w io.Writer, t *codes.Table) *Encoder {
	return &Encoder{w: w, table: t}
}

// WriteMessage encodes msg and writes it with a single Write call.
func (e *Encoder) WriteMessage(msg Message) (int, error) {
	frame, err := AppendEncoded(e.buf[:0], e.table, msg)
	if err != nil {
		return 0, err
	}
	e.buf = frame
	return e.w.Write(frame)
}
