package emulator

import (
	"time"

	"github.com/hexaflex/avrsim/arch"
	"github.com/hexaflex/avrsim/devices/m328p/cpu"
	"github.com/hexaflex/avrsim/servo"
)

// Status defines the scheduler state.
type Status int

// Known scheduler states.
const (
	Stopped Status = iota
	Running
	Halted // Execution faulted; only Reset or LoadHex leave this state.
)

func (s Status) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Halted:
		return "halted"
	}
	return "unknown"
}

// PWM describes the last complete pulse measured on a timer output pin.
type PWM struct {
	Duty  float64       // Fraction of the period spent high, 0..1.
	Width time.Duration // Width of the high phase.
	Angle int           // Servo angle commanded by Width.
}

// State is a snapshot of the observable emulator state. It shares no
// memory with the emulator.
type State struct {
	Running      bool
	Status       Status
	CycleCount   uint64
	SerialOutput string
	PinStates    map[int]bool // Level of every digital pin, 0..19.
	PWMValues    map[int]PWM  // Timer output pins that completed a pulse.
	Fault        *cpu.Fault   // Set while Halted.
	PC           uint16       // Program counter as a byte address.
}

// State returns a snapshot of the current state.
func (e *Emulator) State() State {
	s := State{
		Running:    e.status == Running,
		Status:     e.status,
		CycleCount: e.cycles,
		PinStates:  e.pins(),
		PWMValues:  e.pwm(),
		PC:         e.cpu.Registers().PC * 2,
	}

	if limit := e.config.SerialLimit; len(e.serial) > limit {
		s.SerialOutput = string(e.serial[len(e.serial)-limit:])
	} else {
		s.SerialOutput = string(e.serial)
	}

	if e.fault != nil {
		f := *e.fault
		s.Fault = &f
	}

	return s
}

// pins returns the level of every digital pin. A timer channel with its
// compare output connected overrides the port register, as on hardware.
func (e *Emulator) pins() map[int]bool {
	out := make(map[int]bool, arch.NumPins)

	for _, p := range e.ports {
		for _, pin := range p.Pins() {
			level, _, _ := p.Level(pin)
			out[pin] = level
		}
	}

	for _, t := range e.timers {
		for _, pin := range t.Pins() {
			if level, driven := t.Output(pin); driven {
				out[pin] = level
			}
		}
	}

	return out
}

func (e *Emulator) pwm() map[int]PWM {
	out := make(map[int]PWM)

	for _, t := range e.timers {
		for _, pin := range t.Pins() {
			high, low, ok := t.Pulse(pin)
			if !ok {
				continue
			}

			width := servo.PulseWidth(high, e.config.ClockHz)
			out[pin] = PWM{
				Duty:  servo.Duty(high, low),
				Width: width,
				Angle: servo.Angle(width),
			}
		}
	}

	return out
}
