package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/robolink/internal/observability"
	"github.com/danmuck/robolink/internal/protocol"
	"github.com/danmuck/robolink/internal/protocol/codes"
	"github.com/danmuck/robolink/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

var ErrTransport = errors.New("session: transport failure")

// Port is the transport under a Link. A read that times out returns (0, nil)
// or an error for which IsTimeout reports true.
type Port interface {
	io.Reader
	io.Writer
}

type timeoutError interface {
	Timeout() bool
}

// IsTimeout reports whether err is an expected read/write timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var te timeoutError
	return errors.As(err, &te) && te.Timeout()
}

// Handler consumes decoded messages on the poll goroutine.
type Handler interface {
	Handle(msg protocol.Message)
}

type HandlerFunc func(msg protocol.Message)

func (f HandlerFunc) Handle(msg protocol.Message) { f(msg) }

// Link runs the cooperative poll cycle over one Port.
type Link struct {
	port    Port
	buf     *frame.Buffer
	enc     *protocol.Encoder
	outbox  *Outbox
	scratch []byte
	last    frame.Stats
}

type LinkOption func(*Link)

// WithOutbox shares an outbound queue with other goroutines.
func WithOutbox(o *Outbox) LinkOption {
	return func(l *Link) {
		if o != nil {
			l.outbox = o
		}
	}
}

func NewLink(port Port, t *codes.Table, cfg Config, opts ...LinkOption) *Link {
	cfg = cfg.WithDefaults()
	l := &Link{
		port: port,
		buf: frame.NewBuffer(
			t,
			frame.WithCeiling(cfg.BufferCeiling),
			frame.WithOverflowPolicy(cfg.OverflowPolicy),
		),
		enc:     protocol.NewEncoder(port, t),
		scratch: make([]byte, cfg.ReadChunk),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.outbox == nil {
		l.outbox = NewOutbox(cfg.OutboxSize)
	}
	return l
}

// Outbox returns the queue drained before each read.
func (l *Link) Outbox() *Outbox {
	return l.outbox
}

// Poll performs one cycle: a single read, feed, and one decode attempt.
// Timeouts are not errors; any other read error is returned wrapped in
// ErrTransport after the bytes read so far have been fed.
func (l *Link) Poll() (protocol.Message, bool, error) {
	n, err := l.port.Read(l.scratch)
	if n > 0 {
		l.buf.Feed(l.scratch[:n])
		observability.RecordBytesRead(n)
	}
	if err != nil && !IsTimeout(err) {
		l.publishStats()
		observability.RecordTransportError("read")
		return nil, false, fmt.Errorf("%w: read: %w", ErrTransport, err)
	}
	msg, ok := l.buf.TryDecode()
	l.publishStats()
	return msg, ok, nil
}

// Next decodes another already-buffered frame without reading.
func (l *Link) Next() (protocol.Message, bool) {
	msg, ok := l.buf.TryDecode()
	if ok {
		l.publishStats()
	}
	return msg, ok
}

// Send encodes and writes msg. A write timeout is logged and dropped.
func (l *Link) Send(msg protocol.Message) error {
	n, err := l.enc.WriteMessage(msg)
	if err != nil {
		if IsTimeout(err) {
			log.Warn().Msgf("session.Link.Send write timeout msg=%s", msg)
			return nil
		}
		if isMessageError(err) {
			return err
		}
		observability.RecordTransportError("write")
		return fmt.Errorf("%w: write: %w", ErrTransport, err)
	}
	observability.RecordFrameSent(n)
	log.Debug().Msgf("session.Link.Send msg=%s bytes=%d", msg, n)
	return nil
}

// Flush writes every queued outbound message.
func (l *Link) Flush() error {
	for _, msg := range l.outbox.Take() {
		if err := l.Send(msg); err != nil {
			if isMessageError(err) {
				log.Error().Msgf("session.Link.Flush dropped msg=%s err=%v", msg, err)
				continue
			}
			return err
		}
	}
	return nil
}

// Run loops flush, poll and dispatch until ctx is done or the transport
// fails. After each decoded message the backlog is drained before the next
// read so back-to-back frames are not delayed by a read timeout.
func (l *Link) Run(ctx context.Context, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := l.Flush(); err != nil {
			return err
		}
		msg, ok, err := l.Poll()
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		h.Handle(msg)
		for {
			msg, ok = l.Next()
			if !ok {
				break
			}
			h.Handle(msg)
		}
	}
}

func (l *Link) publishStats() {
	cur := l.buf.Stats()
	if cur == l.last {
		return
	}
	observability.RecordFrameDelta(observability.FrameDelta{
		Frames:         cur.Frames - l.last.Frames,
		Overflows:      cur.Overflows - l.last.Overflows,
		DiscardedBytes: cur.DiscardedBytes - l.last.DiscardedBytes,
		UnknownBytes:   cur.UnknownBytes - l.last.UnknownBytes,
		Truncated:      cur.Truncated - l.last.Truncated,
	})
	l.last = cur
}

// isMessageError reports an encode failure caused by the message itself; the
// transport is still healthy.
func isMessageError(err error) bool {
	return errors.Is(err, protocol.ErrUnknownCode) || errors.Is(err, protocol.ErrStructuralCode)
}
