package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/danmuck/robolink/internal/protocol/codes"
	"github.com/rs/zerolog/log"
)

var ErrReconnectExhausted = errors.New("session: reconnect attempts exhausted")

// Opener returns a freshly opened Port. Ports implementing io.Closer are
// closed when their Link stops.
type Opener func(ctx context.Context) (Port, error)

// Supervisor keeps a Link running, reopening the port with backoff after
// transport failures. The protocol core itself never retries.
type Supervisor struct {
	cfg     Config
	table   *codes.Table
	open    Opener
	handler Handler
	outbox  *Outbox
	rng     Jitterer
	sleep   func(ctx context.Context, d time.Duration) bool
}

func NewSupervisor(cfg Config, t *codes.Table, open Opener, h Handler) *Supervisor {
	cfg = cfg.WithDefaults()
	return &Supervisor{
		cfg:     cfg,
		table:   t,
		open:    open,
		handler: h,
		outbox:  NewOutbox(cfg.OutboxSize),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:   sleepCtx,
	}
}

// Outbox is shared by every Link the supervisor starts, so queued commands
// survive a reopen.
func (s *Supervisor) Outbox() *Outbox {
	return s.outbox
}

// Run blocks until ctx is done (returns nil) or reconnect attempts are
// exhausted.
func (s *Supervisor) Run(ctx context.Context) error {
	attempt := 0
	for {
		port, err := s.open(ctx)
		if err == nil {
			log.Info().Msg("session.Supervisor.Run link up")
			link := NewLink(port, s.table, s.cfg, WithOutbox(s.outbox))
			err = link.Run(ctx, s.handler)
			closePort(port)
			if err == nil || ctx.Err() != nil {
				return nil
			}
			attempt = 0
		}
		if ctx.Err() != nil {
			return nil
		}

		attempt++
		if s.cfg.MaxReconnectAttempts > 0 && attempt >= s.cfg.MaxReconnectAttempts {
			log.Error().Msgf("session.Supervisor.Run giving up attempts=%d err=%v", attempt, err)
			return fmt.Errorf("%w: %v", ErrReconnectExhausted, err)
		}
		delay := NextBackoffDelay(s.cfg.Backoff, attempt, s.rng)
		log.Warn().Msgf("session.Supervisor.Run reopen attempt=%d delay=%s err=%v", attempt, delay, err)
		if !s.sleep(ctx, delay) {
			return nil
		}
	}
}

func closePort(p Port) {
	c, ok := p.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		log.Warn().Msgf("session.closePort err=%v", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
