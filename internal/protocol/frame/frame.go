package frame

import (
	"bytes"

	"github.com/danmuck/robolink/internal/protocol"
	"github.com/danmuck/robolink/internal/protocol/codes"
	"github.com/rs/zerolog/log"
)

// DefaultCeiling is the backlog size at which the overflow policy fires.
const DefaultCeiling = 2000

// OverflowPolicy decides what survives when the backlog reaches the ceiling.
type OverflowPolicy int

const (
	// OverflowReset clears the whole backlog.
	OverflowReset OverflowPolicy = iota
	// OverflowKeepLastStart keeps the tail beginning at the last MSG_START
	// when that tail is itself under the ceiling, and resets otherwise.
	OverflowKeepLastStart
)

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowReset:
		return "reset"
	case OverflowKeepLastStart:
		return "keep_last_start"
	default:
		return "unknown"
	}
}

// Stats are cumulative counters for one Buffer.
type Stats struct {
	Frames         uint64
	Overflows      uint64
	DiscardedBytes uint64
	UnknownBytes   uint64
	Truncated      uint64
}

// Buffer accumulates stream bytes and extracts one frame per TryDecode.
// It is owned by a single polling loop and is not safe for concurrent use.
type Buffer struct {
	table   *codes.Table
	start   byte
	end     byte
	ceiling int
	policy  OverflowPolicy
	backlog []byte
	stats   Stats
}

type Option func(*Buffer)

func WithCeiling(n int) Option {
	return func(b *Buffer) {
		if n > 0 {
			b.ceiling = n
		}
	}
}

func WithOverflowPolicy(p OverflowPolicy) Option {
	return func(b *Buffer) {
		b.policy = p
	}
}

func NewBuffer(t *codes.Table, opts ...Option) *Buffer {
	b := &Buffer{
		table:   t,
		start:   t.MustByte(codes.MsgStart),
		end:     t.MustByte(codes.MsgEnd),
		ceiling: DefaultCeiling,
		policy:  OverflowReset,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.backlog = make([]byte, 0, b.ceiling)
	return b
}

// Feed appends newly read bytes, then applies the overflow guard.
func (b *Buffer) Feed(p []byte) {
	if len(p) == 0 {
		return
	}
	b.backlog = append(b.backlog, p...)
	if len(b.backlog) >= b.ceiling {
		b.overflow()
	}
}

func (b *Buffer) overflow() {
	before := len(b.backlog)
	kept := 0
	if b.policy == OverflowKeepLastStart {
		if i := bytes.LastIndexByte(b.backlog, b.start); i >= 0 && before-i < b.ceiling {
			kept = before - i
			copy(b.backlog, b.backlog[i:])
		}
	}
	b.backlog = b.backlog[:kept]
	b.stats.Overflows++
	b.stats.DiscardedBytes += uint64(before - kept)
	log.Warn().Msgf(
		"frame.Buffer.overflow policy=%s ceiling=%d discarded=%d kept=%d",
		b.policy,
		b.ceiling,
		before-kept,
		kept,
	)
}

// TryDecode extracts at most one message. It returns false when no complete
// frame is buffered; the backlog is then left untouched.
func (b *Buffer) TryDecode() (protocol.Message, bool) {
	startIdx := bytes.IndexByte(b.backlog, b.start)
	if startIdx < 0 {
		return nil, false
	}
	rel := bytes.IndexByte(b.backlog[startIdx+1:], b.end)
	if rel < 0 {
		return nil, false
	}
	endIdx := startIdx + 1 + rel

	msg, spanStats := protocol.DecodeSpanStats(b.table, b.backlog[startIdx+1:endIdx])
	b.stats.Frames++
	b.stats.DiscardedBytes += uint64(startIdx)
	b.stats.UnknownBytes += uint64(spanStats.Unknown)
	b.stats.Truncated += uint64(spanStats.Truncated)

	n := copy(b.backlog, b.backlog[endIdx+1:])
	b.backlog = b.backlog[:n]

	if startIdx > 0 {
		log.Debug().Msgf("frame.Buffer.TryDecode skipped=%d bytes before start", startIdx)
	}
	return msg, true
}

// Drain extracts every complete frame currently buffered.
func (b *Buffer) Drain() []protocol.Message {
	var out []protocol.Message
	for {
		msg, ok := b.TryDecode()
		if !ok {
			return out
		}
		out = append(out, msg)
	}
}

// Len is the current backlog size.
func (b *Buffer) Len() int {
	return len(b.backlog)
}

func (b *Buffer) Ceiling() int {
	return b.ceiling
}

// Reset drops the backlog without touching the counters.
func (b *Buffer) Reset() {
	b.backlog = b.backlog[:0]
}

func (b *Buffer) Stats() Stats {
	return b.stats
}
