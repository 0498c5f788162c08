package protocol

import (
	"encoding/binary"

	"github.com/danmuck/robolink/internal/protocol/codes"
)

// SpanStats counts degraded positions found while decoding one span.
type SpanStats struct {
	Unknown   int
	Truncated int
}

// DecodeSpan decodes the bytes strictly between MSG_START and MSG_END.
// It never fails: unassigned bytes become Code(NONE), and a type tag with
// fewer than 4 bytes left becomes Code(NONE) without consuming those bytes.
func DecodeSpan(t *codes.Table, span []byte) Message {
	msg, _ := DecodeSpanStats(t, span)
	return msg
}

// DecodeSpanStats is DecodeSpan that also reports degraded positions.
func DecodeSpanStats(t *codes.Table, span []byte) (Message, SpanStats) {
	var stats SpanStats
	msg := make(Message, 0, len(span))
	for i := 0; i < len(span); i++ {
		b := span[i]
		if !t.Known(b) {
			stats.Unknown++
			msg = append(msg, CodeElem(codes.None))
			continue
		}
		c := t.Lookup(b)
		kind, tagged := tagKind(c)
		if !tagged {
			msg = append(msg, CodeElem(c))
			continue
		}
		if len(span)-(i+1) < payloadSize {
			stats.Truncated++
			msg = append(msg, CodeElem(codes.None))
			continue
		}
		bits := binary.LittleEndian.Uint32(span[i+1 : i+1+payloadSize])
		msg = append(msg, numericElem(kind, bits))
		i += payloadSize
	}
	return msg, stats
}

func tagKind(c codes.Code) (Kind, bool) {
	switch c {
	case codes.FloatAhead:
		return KindF32, true
	case codes.UintAhead:
		return KindU32, true
	case codes.IntAhead:
		return KindI32, true
	default:
		return KindCode, false
	}
}
