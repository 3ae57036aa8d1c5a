// Package usart implements the ATmega328P serial port USART0.
//
// Transmission is reported synchronously: every write to UDR0 hands the
// byte to the transmit hook before the writing instruction completes. The
// configured baud rate only paces the status flags and the delivery of
// received bytes.
package usart

import (
	"github.com/hexaflex/avrsim/arch"
	"github.com/hexaflex/avrsim/devices"
)

// UCSR0A bits.
const (
	bitMPCM = 1 << 0
	bitU2X  = 1 << 1
	bitUDRE = 1 << 5
	bitTXC  = 1 << 6
	bitRXC  = 1 << 7
)

// UCSR0B interrupt enable bits.
const (
	bitUDRIE = 1 << 5
	bitTXCIE = 1 << 6
	bitRXCIE = 1 << 7
)

// FrameBits is the length of one serial frame: start, 8 data, stop.
const FrameBits = 10

// TransmitFunc receives bytes written to the data register.
type TransmitFunc func(byte)

// Device defines all internal doodads for the serial port.
type Device struct {
	onTransmit TransmitFunc

	ucsra, ucsrb, ucsrc byte
	ubrr                int

	txLeft int // Cycles until the transmit register is empty again.
	rxLeft int // Cycles until the next queued byte may be received.
	rxData byte
	rx     []byte // Bytes waiting to be received.
}

var _ devices.Device = &Device{}
var _ devices.Interrupter = &Device{}

// New creates a serial port. onTransmit is optional.
func New(onTransmit TransmitFunc) *Device {
	if onTransmit == nil {
		onTransmit = func(byte) { /* nop */ }
	}

	d := &Device{onTransmit: onTransmit}
	d.Reset()
	return d
}

func (d *Device) Name() string {
	return "usart0"
}

func (d *Device) Registers() []int {
	return []int{arch.UCSR0A, arch.UCSR0B, arch.UCSR0C, arch.UBRR0L, arch.UBRR0H, arch.UDR0}
}

// Reset restores power-on defaults and discards pending input.
func (d *Device) Reset() {
	d.ucsra = bitUDRE
	d.ucsrb = 0
	d.ucsrc = 0x06
	d.ubrr = 0
	d.txLeft = 0
	d.rxLeft = 0
	d.rxData = 0
	d.rx = d.rx[:0]
}

// Receive queues bytes on the receive line. They become visible in UDR0
// one frame time apart, each after the previous one has been read.
func (d *Device) Receive(p []byte) {
	if len(d.rx) == 0 && d.rxLeft <= 0 {
		d.rxLeft = d.FrameCycles()
	}
	d.rx = append(d.rx, p...)
}

// Queued returns the number of bytes waiting to be received.
func (d *Device) Queued() int {
	return len(d.rx)
}

// FrameCycles returns the duration of one frame in CPU cycles.
func (d *Device) FrameCycles() int {
	div := 16
	if d.ucsra&bitU2X != 0 {
		div = 8
	}
	return FrameBits * div * (d.ubrr + 1)
}

func (d *Device) Read(addr int) byte {
	switch addr {
	case arch.UCSR0A:
		return d.ucsra
	case arch.UCSR0B:
		return d.ucsrb
	case arch.UCSR0C:
		return d.ucsrc
	case arch.UBRR0L:
		return byte(d.ubrr)
	case arch.UBRR0H:
		return byte(d.ubrr >> 8)
	case arch.UDR0:
		d.ucsra &^= bitRXC
		return d.rxData
	}
	return 0
}

func (d *Device) Write(addr int, v byte) {
	switch addr {
	case arch.UCSR0A:
		d.ucsra = d.ucsra&^(bitU2X|bitMPCM) | v&(bitU2X|bitMPCM)
		if v&bitTXC != 0 {
			d.ucsra &^= bitTXC
		}
	case arch.UCSR0B:
		d.ucsrb = v
	case arch.UCSR0C:
		d.ucsrc = v
	case arch.UBRR0L:
		d.ubrr = d.ubrr&0x0f00 | int(v)
	case arch.UBRR0H:
		d.ubrr = d.ubrr&0x00ff | int(v&0x0f)<<8
	case arch.UDR0:
		d.ucsra &^= bitUDRE | bitTXC
		d.txLeft = d.FrameCycles()
		d.onTransmit(v)
	}
}

// Advance moves transmit and receive timing forward.
func (d *Device) Advance(cycles int) {
	if d.txLeft > 0 {
		d.txLeft -= cycles
		if d.txLeft <= 0 {
			d.txLeft = 0
			d.ucsra |= bitUDRE | bitTXC
		}
	}

	if len(d.rx) == 0 {
		return
	}

	if d.rxLeft > 0 {
		d.rxLeft -= cycles
	}

	if d.rxLeft <= 0 && d.ucsra&bitRXC == 0 {
		d.rxData = d.rx[0]
		d.rx = d.rx[1:]
		d.ucsra |= bitRXC
		d.rxLeft = d.FrameCycles()
	}
}

// Pending returns the lowest enabled serial interrupt with its flag set.
func (d *Device) Pending() (int, bool) {
	switch {
	case d.ucsra&bitRXC != 0 && d.ucsrb&bitRXCIE != 0:
		return arch.VectorUSARTRx, true
	case d.ucsra&bitUDRE != 0 && d.ucsrb&bitUDRIE != 0:
		return arch.VectorUSARTUDRE, true
	case d.ucsra&bitTXC != 0 && d.ucsrb&bitTXCIE != 0:
		return arch.VectorUSARTTx, true
	}
	return 0, false
}

// Acknowledge clears the transmit complete flag when its handler runs.
// The other flags are cleared by accessing UDR0.
func (d *Device) Acknowledge(vector int) {
	if vector == arch.VectorUSARTTx {
		d.ucsra &^= bitTXC
	}
}
