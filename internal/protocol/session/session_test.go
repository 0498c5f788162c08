package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/robolink/internal/protocol"
	"github.com/danmuck/robolink/internal/protocol/codes"
	"github.com/danmuck/robolink/internal/testutil/testlog"
)

// fakePort hands out scripted read chunks, then reports timeouts (0, nil).
type fakePort struct {
	mu       sync.Mutex
	chunks   [][]byte
	readErr  error
	writeErr error
	written  bytes.Buffer
	closed   bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.chunks) == 0 {
		if p.readErr != nil {
			return 0, p.readErr
		}
		return 0, nil
	}
	n := copy(b, p.chunks[0])
	if n < len(p.chunks[0]) {
		p.chunks[0] = p.chunks[0][n:]
	} else {
		p.chunks = p.chunks[1:]
	}
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "read timeout" }
func (timeoutErr) Timeout() bool { return true }

func encode(t *testing.T, msg protocol.Message) []byte {
	t.Helper()
	b, err := protocol.Encode(codes.Default(), msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return b
}

func TestNextBackoffDelayDeterministicNoJitter(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       false,
	}
	if got := NextBackoffDelay(cfg, 1, nil); got != 250*time.Millisecond {
		t.Fatalf("attempt1 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 2, nil); got != 500*time.Millisecond {
		t.Fatalf("attempt2 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 3, nil); got != time.Second {
		t.Fatalf("attempt3 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 6, nil); got != 5*time.Second {
		t.Fatalf("attempt6 got=%v", got)
	}
}

func TestNextBackoffDelayJitterRange(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       true,
	}
	rng := rand.New(rand.NewSource(7))
	for attempt := 2; attempt < 10; attempt++ {
		got := NextBackoffDelay(cfg, attempt, rng)
		if got < 0 || got > time.Duration(1.5*float64(5*time.Second)) {
			t.Fatalf("attempt%d out of range: %v", attempt, got)
		}
	}
}

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(timeoutErr{}) {
		t.Fatalf("expected timeout")
	}
	if IsTimeout(io.EOF) || IsTimeout(nil) {
		t.Fatalf("EOF and nil are not timeouts")
	}
}

func TestPollSplitFrame(t *testing.T) {
	testlog.Start(t)
	msg := protocol.Message{protocol.CodeElem(codes.Odometry), protocol.F32(1), protocol.F32(2), protocol.F32(0.5)}
	frame := encode(t, msg)
	port := &fakePort{chunks: [][]byte{frame[:4], frame[4:9], frame[9:]}}
	link := NewLink(port, codes.Default(), DefaultConfig())

	for i := 0; i < 2; i++ {
		if _, ok, err := link.Poll(); ok || err != nil {
			t.Fatalf("poll %d: ok=%v err=%v", i, ok, err)
		}
	}
	got, ok, err := link.Poll()
	if err != nil || !ok {
		t.Fatalf("final poll: ok=%v err=%v", ok, err)
	}
	if !got.Equal(msg) {
		t.Fatalf("got=%v want=%v", got, msg)
	}
}

func TestPollTimeoutIsNotAnError(t *testing.T) {
	testlog.Start(t)
	port := &fakePort{readErr: timeoutErr{}}
	link := NewLink(port, codes.Default(), DefaultConfig())
	if _, ok, err := link.Poll(); ok || err != nil {
		t.Fatalf("expected quiet cycle, ok=%v err=%v", ok, err)
	}
}

func TestPollTransportError(t *testing.T) {
	testlog.Start(t)
	port := &fakePort{readErr: io.ErrClosedPipe}
	link := NewLink(port, codes.Default(), DefaultConfig())
	_, _, err := link.Poll()
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("read cause lost: %v", err)
	}
}

func TestSendKeepsWriteCause(t *testing.T) {
	testlog.Start(t)
	port := &fakePort{writeErr: io.ErrShortWrite}
	link := NewLink(port, codes.Default(), DefaultConfig())
	err := link.Send(protocol.Message{protocol.CodeElem(codes.Get)})
	if !errors.Is(err, ErrTransport) || !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("expected ErrTransport wrapping io.ErrShortWrite, got %v", err)
	}
}

func TestRunDrainsBackToBackFrames(t *testing.T) {
	testlog.Start(t)
	a := protocol.Message{protocol.CodeElem(codes.Get), protocol.CodeElem(codes.All)}
	b := protocol.Message{protocol.CodeElem(codes.Lidar), protocol.U32(9)}
	stream := append(encode(t, a), encode(t, b)...)
	port := &fakePort{chunks: [][]byte{stream}, readErr: io.EOF}
	link := NewLink(port, codes.Default(), DefaultConfig())

	var got []protocol.Message
	err := link.Run(context.Background(), HandlerFunc(func(m protocol.Message) {
		got = append(got, m)
	}))
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected run to stop on EOF, got %v", err)
	}
	if len(got) != 2 || !got[0].Equal(a) || !got[1].Equal(b) {
		t.Fatalf("unexpected messages: %v", got)
	}
}

func TestRunFlushesOutbox(t *testing.T) {
	testlog.Start(t)
	port := &fakePort{}
	link := NewLink(port, codes.Default(), DefaultConfig())
	cmd := protocol.Message{protocol.CodeElem(codes.Turntable), protocol.CodeElem(codes.Set), protocol.F32(0.5)}
	if err := link.Outbox().Enqueue(cmd); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- link.Run(ctx, HandlerFunc(func(protocol.Message) {})) }()

	deadline := time.Now().Add(2 * time.Second)
	for link.Outbox().Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	port.mu.Lock()
	written := append([]byte(nil), port.written.Bytes()...)
	port.mu.Unlock()
	if !bytes.Equal(written, encode(t, cmd)) {
		t.Fatalf("written=% x want=% x", written, encode(t, cmd))
	}
}

func TestOutboxLimit(t *testing.T) {
	testlog.Start(t)
	o := NewOutbox(2)
	msg := protocol.Message{protocol.CodeElem(codes.Get)}
	if err := o.Enqueue(msg); err != nil {
		t.Fatalf("enqueue 1: %v", err)
	}
	if err := o.Enqueue(msg); err != nil {
		t.Fatalf("enqueue 2: %v", err)
	}
	if err := o.Enqueue(msg); !errors.Is(err, ErrOutboxFull) {
		t.Fatalf("expected ErrOutboxFull, got %v", err)
	}
	if got := o.Take(); len(got) != 2 {
		t.Fatalf("take: got %d", len(got))
	}
	if o.Len() != 0 || o.Take() != nil {
		t.Fatalf("outbox should be empty")
	}
}

func TestSendDropsUnknownCode(t *testing.T) {
	testlog.Start(t)
	port := &fakePort{}
	link := NewLink(port, codes.Default(), DefaultConfig())
	if err := link.Send(protocol.Message{protocol.CodeElem("BOGUS")}); !errors.Is(err, protocol.ErrUnknownCode) {
		t.Fatalf("expected ErrUnknownCode, got %v", err)
	}
	if port.written.Len() != 0 {
		t.Fatalf("nothing should be written")
	}
}

func TestFlushDropsStructuralCodeAndContinues(t *testing.T) {
	testlog.Start(t)
	port := &fakePort{}
	link := NewLink(port, codes.Default(), DefaultConfig())
	bad := protocol.Message{protocol.CodeElem(codes.PID), protocol.CodeElem(codes.MsgEnd), protocol.CodeElem(codes.Set)}
	good := protocol.Message{protocol.CodeElem(codes.Get), protocol.CodeElem(codes.All)}

	if err := link.Send(bad); !errors.Is(err, protocol.ErrStructuralCode) {
		t.Fatalf("expected ErrStructuralCode, got %v", err)
	}
	if err := link.Outbox().Enqueue(bad); err != nil {
		t.Fatalf("enqueue bad: %v", err)
	}
	if err := link.Outbox().Enqueue(good); err != nil {
		t.Fatalf("enqueue good: %v", err)
	}
	if err := link.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	want, err := protocol.Encode(codes.Default(), good)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(port.written.Bytes(), want) {
		t.Fatalf("got=% x want=% x", port.written.Bytes(), want)
	}
}

func TestSupervisorReopensAfterFailure(t *testing.T) {
	testlog.Start(t)
	msg := protocol.Message{protocol.CodeElem(codes.Arm), protocol.F32(3)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu    sync.Mutex
		opens int
		ports []*fakePort
	)
	open := func(context.Context) (Port, error) {
		mu.Lock()
		defer mu.Unlock()
		opens++
		switch opens {
		case 1:
			return nil, errors.New("no such device")
		case 2:
			p := &fakePort{chunks: [][]byte{encode(t, msg)}, readErr: io.ErrUnexpectedEOF}
			ports = append(ports, p)
			return p, nil
		default:
			p := &fakePort{}
			ports = append(ports, p)
			return p, nil
		}
	}

	received := make(chan protocol.Message, 4)
	cfg := DefaultConfig()
	cfg.Backoff = BackoffConfig{InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond}
	sup := NewSupervisor(cfg, codes.Default(), open, HandlerFunc(func(m protocol.Message) {
		received <- m
	}))

	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	select {
	case got := <-received:
		if !got.Equal(msg) {
			t.Fatalf("got=%v want=%v", got, msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no message received")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := opens
		mu.Unlock()
		if n >= 3 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("supervisor: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if opens < 3 {
		t.Fatalf("expected reopen after failure, opens=%d", opens)
	}
	ports[0].mu.Lock()
	closed := ports[0].closed
	ports[0].mu.Unlock()
	if !closed {
		t.Fatalf("failed port should be closed")
	}
}

func TestSupervisorGivesUp(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.MaxReconnectAttempts = 3
	cfg.Backoff = BackoffConfig{InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond}
	calls := 0
	open := func(context.Context) (Port, error) {
		calls++
		return nil, errors.New("busy")
	}
	sup := NewSupervisor(cfg, codes.Default(), open, HandlerFunc(func(protocol.Message) {}))
	err := sup.Run(context.Background())
	if !errors.Is(err, ErrReconnectExhausted) {
		t.Fatalf("expected ErrReconnectExhausted, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 open attempts, got %d", calls)
	}
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{ReadChunk: 64}.WithDefaults()
	if cfg.ReadChunk != 64 {
		t.Fatalf("explicit chunk overwritten: %d", cfg.ReadChunk)
	}
	if cfg.ReadTimeout != 2*time.Millisecond || cfg.BufferCeiling != 2000 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
