// Package servo converts PWM pulses into hobby servo angles.
//
// The convention is the common one for 180 degree servos: a 500µs pulse
// commands 0°, 1500µs the 90° centre and 2500µs 180°, linear in between.
package servo

import (
	"math"
	"sort"
	"time"
)

// Pulse width limits and angle range.
const (
	MinPulse     = 500 * time.Microsecond
	CenterPulse  = 1500 * time.Microsecond
	MaxPulse     = 2500 * time.Microsecond
	MaxAngle     = 180
	DefaultAngle = 90
)

// Angle returns the angle commanded by a pulse of the given width, rounded
// to the nearest degree. Widths outside the valid range are clamped.
func Angle(width time.Duration) int {
	switch {
	case width <= MinPulse:
		return 0
	case width >= MaxPulse:
		return MaxAngle
	}

	span := float64(MaxPulse - MinPulse)
	return int(math.Round(float64(width-MinPulse) * MaxAngle / span))
}

// PulseWidth converts a number of CPU cycles at clockHz into a duration.
func PulseWidth(cycles uint64, clockHz int) time.Duration {
	if clockHz <= 0 {
		return 0
	}

	hz := uint64(clockHz)
	sec := cycles / hz
	rem := cycles % hz
	return time.Duration(sec)*time.Second + time.Duration(rem*uint64(time.Second)/hz)
}

// Duty returns the fraction of a period spent high.
func Duty(high, low uint64) float64 {
	if high+low == 0 {
		return 0
	}
	return float64(high) / float64(high+low)
}

// Bank tracks the last reported angle of a set of attached pins.
type Bank struct {
	angles map[int]int
	seen   map[int]bool
}

// NewBank creates an empty bank.
func NewBank() *Bank {
	return &Bank{
		angles: make(map[int]int),
		seen:   make(map[int]bool),
	}
}

// Attach starts tracking pin. Attaching a tracked pin keeps its angle.
func (b *Bank) Attach(pin int) {
	if _, ok := b.angles[pin]; !ok {
		b.angles[pin] = DefaultAngle
	}
}

// Detach stops tracking pin.
func (b *Bank) Detach(pin int) {
	delete(b.angles, pin)
	delete(b.seen, pin)
}

// Attached reports whether pin is tracked.
func (b *Bank) Attached(pin int) bool {
	_, ok := b.angles[pin]
	return ok
}

// Pins returns the tracked pins in ascending order.
func (b *Bank) Pins() []int {
	pins := make([]int, 0, len(b.angles))
	for pin := range b.angles {
		pins = append(pins, pin)
	}
	sort.Ints(pins)
	return pins
}

// Angle returns the last angle of pin, or DefaultAngle if nothing has been
// measured yet or the pin is not tracked.
func (b *Bank) Angle(pin int) int {
	if a, ok := b.angles[pin]; ok {
		return a
	}
	return DefaultAngle
}

// Update records a pulse measured on pin. It returns the derived angle and
// whether it should be reported: on the first measurement and on every
// change after that. Untracked pins are ignored.
func (b *Bank) Update(pin int, width time.Duration) (int, bool) {
	old, ok := b.angles[pin]
	if !ok {
		return 0, false
	}

	angle := Angle(width)
	changed := !b.seen[pin] || angle != old
	b.angles[pin] = angle
	b.seen[pin] = true
	return angle, changed
}

// Reset forgets all measurements but keeps the tracked pins.
func (b *Bank) Reset() {
	for pin := range b.angles {
		b.angles[pin] = DefaultAngle
	}
	b.seen = make(map[int]bool)
}
