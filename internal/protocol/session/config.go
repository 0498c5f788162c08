package session

import (
	"time"

	"github.com/danmuck/robolink/internal/protocol/frame"
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines link polling and reconnect defaults.
type Config struct {
	// ReadTimeout bounds each transport read; it is applied by the opener.
	ReadTimeout    time.Duration
	ReadChunk      int
	BufferCeiling  int
	OverflowPolicy frame.OverflowPolicy
	OutboxSize     int
	// MaxReconnectAttempts of 0 retries forever.
	MaxReconnectAttempts int
	Backoff              BackoffConfig
}

// DefaultConfig returns the reference link parameters.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:    2 * time.Millisecond,
		ReadChunk:      1024,
		BufferCeiling:  frame.DefaultCeiling,
		OverflowPolicy: frame.OverflowReset,
		OutboxSize:     64,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.ReadChunk <= 0 {
		c.ReadChunk = def.ReadChunk
	}
	if c.BufferCeiling <= 0 {
		c.BufferCeiling = def.BufferCeiling
	}
	if c.OutboxSize <= 0 {
		c.OutboxSize = def.OutboxSize
	}
	if c.MaxReconnectAttempts < 0 {
		c.MaxReconnectAttempts = 0
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff.InitialDelay = def.Backoff.InitialDelay
	}
	if c.Backoff.Multiplier <= 0 {
		c.Backoff.Multiplier = def.Backoff.Multiplier
	}
	if c.Backoff.MaxDelay <= 0 {
		c.Backoff.MaxDelay = def.Backoff.MaxDelay
	}
	return c
}
