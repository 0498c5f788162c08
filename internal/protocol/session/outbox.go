package session

import (
	"errors"
	"sync"

	"github.com/danmuck/robolink/internal/protocol"
)

var ErrOutboxFull = errors.New("session: outbox full")

// Outbox queues outbound messages from any goroutine until the poll loop
// writes them.
type Outbox struct {
	mu    sync.Mutex
	limit int
	items []protocol.Message
}

func NewOutbox(limit int) *Outbox {
	if limit <= 0 {
		limit = DefaultConfig().OutboxSize
	}
	return &Outbox{
		limit: limit,
		items: make([]protocol.Message, 0, limit),
	}
}

func (o *Outbox) Enqueue(msg protocol.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.items) >= o.limit {
		return ErrOutboxFull
	}
	cp := make(protocol.Message, len(msg))
	copy(cp, msg)
	o.items = append(o.items, cp)
	return nil
}

// Take removes and returns every queued message in FIFO order.
func (o *Outbox) Take() []protocol.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.items) == 0 {
		return nil
	}
	out := o.items
	o.items = make([]protocol.Message, 0, o.limit)
	return out
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}
