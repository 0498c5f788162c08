// Package serialport opens the controller's USB serial device with the
// link settings the firmware expects (8N1, short read timeout).
package serialport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/danmuck/robolink/internal/protocol/session"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

var ErrNoPort = errors.New("serialport: no port configured")

// Config selects the device and line settings.
type Config struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Baud <= 0 {
		c.Baud = 115200
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 2 * time.Millisecond
	}
	return c
}

// Mode returns the 8N1 line mode for cfg.
func Mode(cfg Config) *serial.Mode {
	cfg = cfg.withDefaults()
	return &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Open opens and configures the port. A read that times out returns
// (0, nil), which the link treats as "no data yet".
func Open(cfg Config) (serial.Port, error) {
	cfg = cfg.withDefaults()
	name := strings.TrimSpace(cfg.Port)
	if name == "" {
		return nil, ErrNoPort
	}
	p, err := serial.Open(name, Mode(cfg))
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", name, err)
	}
	if err := p.SetReadTimeout(cfg.ReadTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("serialport: set read timeout %s: %w", name, err)
	}
	log.Info().Msgf("serialport.Open port=%s baud=%d read_timeout=%s", name, cfg.Baud, cfg.ReadTimeout)
	return p, nil
}

// Opener adapts Open for session.Supervisor.
func Opener(cfg Config) session.Opener {
	return func(ctx context.Context) (session.Port, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Open(cfg)
	}
}

// Info describes one enumerated serial device.
type Info struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
}

func (i Info) String() string {
	if !i.IsUSB {
		return i.Name
	}
	s := fmt.Sprintf("%s usb=%s:%s", i.Name, i.VID, i.PID)
	if i.SerialNumber != "" {
		s += " serial=" + i.SerialNumber
	}
	if i.Product != "" {
		s += " product=" + i.Product
	}
	return s
}

// List enumerates available serial devices sorted by name.
func List() ([]Info, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("serialport: enumerate: %w", err)
	}
	out := make([]Info, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		out = append(out, Info{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
