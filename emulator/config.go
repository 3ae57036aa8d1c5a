package emulator

import (
	"time"

	"github.com/pkg/errors"

	"github.com/hexaflex/avrsim/devices"
	"github.com/hexaflex/avrsim/devices/m328p/cpu"
)

// Limits keeping cycle budget arithmetic within int64.
const (
	maxClockHz   = 1000000000
	maxTickLimit = 5 * time.Second
)

// Config defines emulator configuration.
type Config struct {
	ClockHz     int           // Emulated CPU clock in herz.
	SerialLimit int           // Number of serial output bytes retained in State.
	MaxTick     time.Duration // Longest elapsed time honoured by a single Tick.
	Trace       cpu.TraceFunc // Optional handler receiving every executed instruction.
}

// DefaultConfig returns the configuration of a 16 MHz board.
func DefaultConfig() Config {
	return Config{
		ClockHz:     16000000,
		SerialLimit: 4096,
		MaxTick:     100 * time.Millisecond,
	}
}

// validate returns all problems with c at once.
func (c *Config) validate() error {
	var errs devices.ErrorSet

	if c.ClockHz <= 0 || c.ClockHz > maxClockHz {
		errs.Append(errors.Errorf("clock rate must be in (0, %d], have %d", maxClockHz, c.ClockHz))
	}

	if c.SerialLimit < 0 {
		errs.Append(errors.Errorf("serial limit must not be negative, have %d", c.SerialLimit))
	}

	if c.MaxTick <= 0 || c.MaxTick > maxTickLimit {
		errs.Append(errors.Errorf("max tick must be in (0, %v], have %v", maxTickLimit, c.MaxTick))
	}

	if errs.Len() > 0 {
		return errs
	}
	return nil
}
