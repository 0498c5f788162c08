package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/robolink/internal/protocol/frame"
	"github.com/danmuck/robolink/internal/protocol/session"
	"github.com/danmuck/robolink/internal/telemetry"
)

// HostConfig configures the serial host runtime.
type HostConfig struct {
	Port        string
	Baud        int
	SchemaPath  string
	HTTPAddr    string
	CorsOrigins []string
	PIDHistory  int
	FrontOffset float32
	Session     session.Config

	// ControlToken guards the HTTP control routes when non-empty.
	ControlToken string
}

type fileConfig struct {
	Port                 string   `toml:"port"`
	Baud                 int      `toml:"baud"`
	ReadTimeout          string   `toml:"read_timeout"`
	ReadChunk            int      `toml:"read_chunk"`
	BufferCeiling        int      `toml:"buffer_ceiling"`
	OverflowPolicy       string   `toml:"overflow_policy"`
	Schema               string   `toml:"schema"`
	HTTPAddr             string   `toml:"http_addr"`
	CorsOrigins          []string `toml:"cors_origins"`
	ControlToken         string   `toml:"control_token"`
	PIDHistory           int      `toml:"pid_history"`
	OdometryFrontOffset  float64  `toml:"odometry_front_offset"`
	ReconnectMaxAttempts int      `toml:"reconnect_max_attempts"`
	BackoffInitial       string   `toml:"backoff_initial"`
	BackoffMax           string   `toml:"backoff_max"`
}

// DefaultHostConfig returns the reference link settings: 115200 8N1 with a
// 2ms read timeout and a 2000 byte backlog ceiling.
func DefaultHostConfig() HostConfig {
	return HostConfig{
		Baud:        115200,
		HTTPAddr:    "127.0.0.1:9300",
		CorsOrigins: []string{"http://localhost:3000"},
		PIDHistory:  telemetry.DefaultPIDHistory,
		FrontOffset: telemetry.DefaultFrontOffset,
		Session:     session.DefaultConfig(),
	}
}

// LoadHostConfig reads path and validates the result.
func LoadHostConfig(path string) (HostConfig, error) {
	cfg, err := ReadHostConfig(path)
	if err != nil {
		return HostConfig{}, err
	}
	if err := ValidateHostConfig(cfg); err != nil {
		return HostConfig{}, err
	}
	return cfg, nil
}

// ReadHostConfig overlays the keys defined in path onto the defaults without
// validating, so callers can apply flag overrides first.
func ReadHostConfig(path string) (HostConfig, error) {
	cfg := DefaultHostConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return HostConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") {
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return HostConfig{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.Session.ReadTimeout = d
	}
	if meta.IsDefined("read_chunk") {
		cfg.Session.ReadChunk = raw.ReadChunk
	}
	if meta.IsDefined("buffer_ceiling") {
		cfg.Session.BufferCeiling = raw.BufferCeiling
	}
	if meta.IsDefined("overflow_policy") {
		p, err := ParseOverflowPolicy(raw.OverflowPolicy)
		if err != nil {
			return HostConfig{}, err
		}
		cfg.Session.OverflowPolicy = p
	}
	if meta.IsDefined("schema") {
		cfg.SchemaPath = strings.TrimSpace(raw.Schema)
	}
	if meta.IsDefined("http_addr") {
		cfg.HTTPAddr = strings.TrimSpace(raw.HTTPAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("control_token") {
		cfg.ControlToken = strings.TrimSpace(raw.ControlToken)
	}
	if meta.IsDefined("pid_history") {
		cfg.PIDHistory = raw.PIDHistory
	}
	if meta.IsDefined("odometry_front_offset") {
		cfg.FrontOffset = float32(raw.OdometryFrontOffset)
	}
	if meta.IsDefined("reconnect_max_attempts") {
		cfg.Session.MaxReconnectAttempts = raw.ReconnectMaxAttempts
	}
	if meta.IsDefined("backoff_initial") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.BackoffInitial))
		if err != nil {
			return HostConfig{}, fmt.Errorf("parse backoff_initial: %w", err)
		}
		cfg.Session.Backoff.InitialDelay = d
	}
	if meta.IsDefined("backoff_max") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.BackoffMax))
		if err != nil {
			return HostConfig{}, fmt.Errorf("parse backoff_max: %w", err)
		}
		cfg.Session.Backoff.MaxDelay = d
	}
	return cfg, nil
}

func ParseOverflowPolicy(raw string) (frame.OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "reset":
		return frame.OverflowReset, nil
	case "keep_last_start":
		return frame.OverflowKeepLastStart, nil
	default:
		return frame.OverflowReset, fmt.Errorf("unknown overflow_policy: %q", raw)
	}
}

func ValidateHostConfig(cfg HostConfig) error {
	if strings.TrimSpace(cfg.Port) == "" {
		return fmt.Errorf("host config missing port")
	}
	if cfg.Baud <= 0 {
		return fmt.Errorf("host config baud must be positive")
	}
	if cfg.Session.ReadTimeout <= 0 {
		return fmt.Errorf("host config read_timeout must be positive")
	}
	if cfg.Session.ReadChunk <= 0 {
		return fmt.Errorf("host config read_chunk must be positive")
	}
	// A ceiling smaller than the largest frame would reset before any
	// frame could complete; 16 bytes is the smallest useful value.
	if cfg.Session.BufferCeiling < 16 {
		return fmt.Errorf("host config buffer_ceiling too small: %d", cfg.Session.BufferCeiling)
	}
	if cfg.PIDHistory <= 0 {
		return fmt.Errorf("host config pid_history must be positive")
	}
	if cfg.Session.MaxReconnectAttempts < 0 {
		return fmt.Errorf("host config reconnect_max_attempts must not be negative")
	}
	return nil
}
