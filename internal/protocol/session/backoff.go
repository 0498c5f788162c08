package session

import (
	"math"
	"time"
)

// Jitterer supplies the random factor for jittered delays; *rand.Rand fits.
type Jitterer interface {
	Float64() float64
}

// NextBackoffDelay returns the reopen delay for attempt N (1-based).
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng Jitterer) time.Duration {
	if attempt <= 1 {
		return cfg.InitialDelay
	}
	if cfg.InitialDelay <= 0 {
		return 0
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay = delay * f
	}
	return time.Duration(delay)
}
