package cpu

import (
	"github.com/hexaflex/avrsim/arch"
	"github.com/hexaflex/avrsim/devices"
)

// Registers defines the CPU register file.
type Registers struct {
	R    [arch.NumRegisters]byte // General purpose registers.
	PC   uint16                  // Program counter, as a word address.
	SP   uint16                  // Stack pointer.
	SREG byte                    // Status register.
}

// Memory defines the system's memory banks: program memory and data space.
//
// Data space addresses below arch.IOStart map onto the register file, the
// I/O window routes through connected devices and everything else is
// plain SRAM.
type Memory struct {
	regs    *Registers
	devices *devices.Map
	flash   []byte
	data    [arch.DataSize]byte
}

// U8 returns the byte at the given data space address.
// Unmapped addresses read as zero.
func (m *Memory) U8(addr int) byte {
	switch {
	case addr < 0:
		return 0
	case addr < arch.IOStart:
		return m.regs.R[addr]
	case addr < arch.RAMStart:
		return m.readIO(addr)
	case addr < arch.DataSize:
		return m.data[addr]
	}
	return 0
}

// SetU8 stores v at the given data space address.
// Writes to unmapped addresses are discarded.
func (m *Memory) SetU8(addr int, v byte) {
	switch {
	case addr < 0:
	case addr < arch.IOStart:
		m.regs.R[addr] = v
	case addr < arch.RAMStart:
		m.writeIO(addr, v)
	case addr < arch.DataSize:
		m.data[addr] = v
	}
}

// U16 returns the little-endian 16-bit value at the given address.
func (m *Memory) U16(addr int) uint16 {
	return uint16(m.U8(addr)) | uint16(m.U8(addr+1))<<8
}

// SetU16 stores a 16-bit value at the given address, high byte first, the
// order in which 16-bit peripheral registers expect to be written.
func (m *Memory) SetU16(addr int, v uint16) {
	m.SetU8(addr+1, byte(v>>8))
	m.SetU8(addr, byte(v))
}

// SetBit sets or clears a single bit of an I/O register, as SBI and CBI do.
func (m *Memory) SetBit(addr, bit int, v bool) {
	if dev := m.devices.Owner(addr); dev != nil {
		if bw, ok := dev.(devices.BitWriter); ok {
			bw.WriteBit(addr, bit, v)
			return
		}
	}

	b := m.U8(addr)
	if v {
		b |= 1 << uint(bit)
	} else {
		b &^= 1 << uint(bit)
	}
	m.SetU8(addr, b)
}

func (m *Memory) readIO(addr int) byte {
	switch addr {
	case arch.SPL:
		return byte(m.regs.SP)
	case arch.SPH:
		return byte(m.regs.SP >> 8)
	case arch.SREG:
		return m.regs.SREG
	}

	if dev := m.devices.Owner(addr); dev != nil {
		return dev.Read(addr)
	}
	return m.data[addr]
}

func (m *Memory) writeIO(addr int, v byte) {
	switch addr {
	case arch.SPL:
		m.regs.SP = m.regs.SP&0xff00 | uint16(v)
		return
	case arch.SPH:
		m.regs.SP = m.regs.SP&0x00ff | uint16(v)<<8
		return
	case arch.SREG:
		m.regs.SREG = v
		return
	}

	if dev := m.devices.Owner(addr); dev != nil {
		dev.Write(addr, v)
		return
	}
	m.data[addr] = v
}

// Fetch returns the program word at the given word address.
// Returns false if the address lies beyond the loaded image.
func (m *Memory) Fetch(pc uint16) (uint16, bool) {
	i := int(pc) * 2
	if i+1 >= len(m.flash) {
		return 0, false
	}
	return uint16(m.flash[i]) | uint16(m.flash[i+1])<<8, true
}

// ProgramByte returns the program memory byte at the given byte address,
// as read by LPM. Addresses outside the image read as erased flash.
func (m *Memory) ProgramByte(addr uint16) byte {
	if int(addr) >= len(m.flash) {
		return 0xff
	}
	return m.flash[addr]
}

// FlashSize returns the size of the loaded image in bytes.
func (m *Memory) FlashSize() int {
	return len(m.flash)
}

// clear zeroes data space; program memory is left alone.
func (m *Memory) clear() {
	for i := range m.data {
		m.data[i] = 0
	}
}
