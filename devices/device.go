// Package devices defines the interface between the CPU and its on-chip
// peripherals. Peripherals are reached exclusively through reads and
// writes of their I/O registers; they never call into the CPU.
package devices

import (
	"log"

	"github.com/pkg/errors"
)

// Device represents a peripheral device mapped into the I/O window.
type Device interface {
	// Name identifies the device in logs.
	Name() string

	// Registers yields the data space addresses the device handles.
	Registers() []int

	// Reset restores power-on defaults.
	Reset()

	// Read returns the value of the register at addr. Reads may have
	// side effects, such as popping a receive buffer.
	Read(addr int) byte

	// Write stores v in the register at addr.
	Write(addr int, v byte)

	// Advance moves the device forward by the given number of clock cycles.
	Advance(cycles int)
}

// BitWriter is implemented by devices whose registers react to SBI and CBI
// differently from a read-modify-write cycle, e.g. flag registers that are
// cleared by writing a one.
type BitWriter interface {
	WriteBit(addr, bit int, v bool)
}

// Interrupter is implemented by devices which can raise interrupts.
type Interrupter interface {
	// Pending returns the lowest enabled and flagged vector number.
	Pending() (vector int, ok bool)

	// Acknowledge is called when the CPU enters the handler for vector.
	Acknowledge(vector int)
}

// ioWindow is the number of addresses a register table has to cover.
const ioWindow = 0x100

// Map contains a list of registered peripherals and a lookup table from
// register address to the device owning it.
type Map struct {
	list  []Device
	irq   []Interrupter
	owner [ioWindow]Device
}

// Connect adds the given device to the map.
// Returns an error if one of its registers is already claimed.
func (m *Map) Connect(dev Device) error {
	for _, addr := range dev.Registers() {
		if addr < 0 || addr >= ioWindow {
			return errors.Errorf("%s: register %#x outside the I/O window", dev.Name(), addr)
		}

		if other := m.owner[addr]; other != nil {
			return errors.Errorf("%s: register %#x already claimed by %s", dev.Name(), addr, other.Name())
		}
	}

	for _, addr := range dev.Registers() {
		m.owner[addr] = dev
	}

	m.list = append(m.list, dev)
	if irq, ok := dev.(Interrupter); ok {
		m.irq = append(m.irq, irq)
	}
	return nil
}

// Owner returns the device handling the given address, or nil.
func (m *Map) Owner(addr int) Device {
	if addr < 0 || addr >= ioWindow {
		return nil
	}
	return m.owner[addr]
}

// Reset restores all devices to power-on defaults.
func (m *Map) Reset() {
	for _, dev := range m.list {
		log.Println(dev.Name(), "reset")
		dev.Reset()
	}
}

// Advance moves all devices forward by the given number of clock cycles.
func (m *Map) Advance(cycles int) {
	for _, dev := range m.list {
		dev.Advance(cycles)
	}
}

// Pending returns the lowest pending interrupt vector across all devices.
func (m *Map) Pending() (int, bool) {
	best, found := 0, false

	for _, irq := range m.irq {
		if v, ok := irq.Pending(); ok && (!found || v < best) {
			best, found = v, true
		}
	}

	return best, found
}

// Acknowledge tells every interrupting device that vector is being serviced.
func (m *Map) Acknowledge(vector int) {
	for _, irq := range m.irq {
		irq.Acknowledge(vector)
	}
}
