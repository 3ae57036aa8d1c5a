// Package gpio implements the digital I/O ports of the ATmega328P.
package gpio

import (
	"github.com/hexaflex/avrsim/arch"
	"github.com/hexaflex/avrsim/devices"
)

// Config describes one port.
type Config struct {
	Name     string
	PIN      int
	DDR      int
	PORT     int
	FirstPin int // Board number of bit 0.
	Width    int // Number of bits wired to board pins.
}

// Ports of the ATmega328P.
var (
	PortB = Config{Name: "portb", PIN: arch.PINB, DDR: arch.DDRB, PORT: arch.PORTB, FirstPin: arch.PinPortB, Width: 6}
	PortC = Config{Name: "portc", PIN: arch.PINC, DDR: arch.DDRC, PORT: arch.PORTC, FirstPin: arch.PinPortC, Width: 6}
	PortD = Config{Name: "portd", PIN: arch.PIND, DDR: arch.DDRD, PORT: arch.PORTD, FirstPin: arch.PinPortD, Width: 8}
)

// Device defines all internal doodads for a port. No external stimulus is
// modelled, so the input register reflects the output latch.
type Device struct {
	cfg  Config
	ddr  byte
	port byte
}

var _ devices.Device = &Device{}
var _ devices.BitWriter = &Device{}

// New creates a port with the given layout.
func New(cfg Config) *Device {
	return &Device{cfg: cfg}
}

func (d *Device) Name() string {
	return d.cfg.Name
}

func (d *Device) Registers() []int {
	return []int{d.cfg.PIN, d.cfg.DDR, d.cfg.PORT}
}

func (d *Device) Reset() {
	d.ddr = 0
	d.port = 0
}

func (d *Device) Advance(int) {}

func (d *Device) Read(addr int) byte {
	switch addr {
	case d.cfg.PIN, d.cfg.PORT:
		return d.port
	case d.cfg.DDR:
		return d.ddr
	}
	return 0
}

func (d *Device) Write(addr int, v byte) {
	switch addr {
	case d.cfg.PIN:
		d.port ^= v
	case d.cfg.DDR:
		d.ddr = v
	case d.cfg.PORT:
		d.port = v
	}
}

// WriteBit implements SBI and CBI. Setting a bit in PINx toggles the output
// latch; clearing one has no effect.
func (d *Device) WriteBit(addr, bit int, v bool) {
	mask := byte(1) << uint(bit)

	switch addr {
	case d.cfg.PIN:
		if v {
			d.port ^= mask
		}
	case d.cfg.DDR:
		d.ddr = set(d.ddr, mask, v)
	case d.cfg.PORT:
		d.port = set(d.port, mask, v)
	}
}

func set(b, mask byte, v bool) byte {
	if v {
		return b | mask
	}
	return b &^ mask
}

// Pins returns the board pin numbers of this port.
func (d *Device) Pins() []int {
	pins := make([]int, d.cfg.Width)
	for i := range pins {
		pins[i] = d.cfg.FirstPin + i
	}
	return pins
}

// Level returns the output latch of the given board pin and whether the pin
// is configured as an output. ok is false if the pin is not on this port.
func (d *Device) Level(pin int) (level, output, ok bool) {
	bit := pin - d.cfg.FirstPin
	if bit < 0 || bit >= d.cfg.Width {
		return false, false, false
	}

	mask := byte(1) << uint(bit)
	return d.port&mask != 0, d.ddr&mask != 0, true
}
