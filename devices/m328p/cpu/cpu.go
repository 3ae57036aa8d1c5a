// Package cpu implements the AVR core of the ATmega328P.
package cpu

import (
	"log"

	"github.com/pkg/errors"

	"github.com/hexaflex/avrsim/arch"
	"github.com/hexaflex/avrsim/devices"
)

// InterruptCycles is the cost of entering an interrupt handler.
const InterruptCycles = 4

// TraceFunc represents a callback handler for debug trace output.
type TraceFunc func(*Instruction)

// CPU implements the runtime.
type CPU struct {
	devices devices.Map // Connected peripherals.
	trace   TraceFunc   // Handler for debug trace output.
	regs    Registers   // Register file.
	memory  Memory      // Program memory and data space.
	instr   Instruction // Decoded instruction data.
	holdInt bool        // Must the next instruction run before interrupts are taken?
}

// New creates a new CPU with empty program memory.
// Optionally with the given debug trace handler.
func New(trace TraceFunc) *CPU {
	if trace == nil {
		trace = func(*Instruction) { /* nop */ }
	}

	c := &CPU{trace: trace}
	c.memory.regs = &c.regs
	c.memory.devices = &c.devices
	c.powerOn()
	return c
}

// Connect connects the given peripheral to the I/O window.
func (c *CPU) Connect(dev devices.Device) error {
	return errors.Wrap(c.devices.Connect(dev), "cpu")
}

// Memory returns the cpu's memory banks.
func (c *CPU) Memory() *Memory {
	return &c.memory
}

// Registers returns a copy of the register file.
func (c *CPU) Registers() Registers {
	return c.regs
}

// Load replaces program memory with the given image and resets the
// system. The slice is retained and must not be modified afterwards.
func (c *CPU) Load(program []byte) {
	log.Println("cpu", "load", len(program), "bytes")
	c.memory.flash = program
	c.Reset()
}

// Reset restores registers, data space and peripherals to power-on
// defaults. Program memory is kept.
func (c *CPU) Reset() {
	log.Println("cpu", "reset")
	c.powerOn()
	c.devices.Reset()
}

func (c *CPU) powerOn() {
	c.regs = Registers{SP: arch.RAMEnd}
	c.memory.clear()
	c.holdInt = false
}

// Step performs a single execution step: either entering a pending
// interrupt handler or executing one instruction. It returns the number
// of clock cycles consumed. Connected devices are advanced by the same
// amount.
//
// A *Fault is returned if execution cannot continue. The program counter
// is left on the faulting instruction and no cycles are consumed.
func (c *CPU) Step() (int, error) {
	if !c.holdInt && c.flag(arch.FlagI) {
		if vector, ok := c.devices.Pending(); ok {
			return c.interrupt(vector)
		}
	}

	instr := &c.instr
	if err := instr.Decode(&c.memory, c.regs.PC); err != nil {
		return 0, err
	}

	c.trace(instr)
	c.holdInt = false

	cycles, err := c.execute(instr)
	if err != nil {
		c.regs.PC = instr.Addr
		return 0, err
	}

	c.devices.Advance(cycles)
	return cycles, nil
}

// interrupt pushes the program counter and jumps to the handler for vector.
func (c *CPU) interrupt(vector int) (int, error) {
	c.instr = Instruction{Addr: c.regs.PC}

	if err := c.pushPC(c.regs.PC); err != nil {
		return 0, err
	}

	c.setFlag(arch.FlagI, false)
	c.regs.PC = arch.VectorAddress(vector)
	c.devices.Acknowledge(vector)
	c.devices.Advance(InterruptCycles)
	return InterruptCycles, nil
}

// push pushes the given value onto the stack and updates SP.
func (c *CPU) push(v byte) error {
	sp := c.regs.SP
	if sp < arch.RAMStart || sp > arch.RAMEnd {
		return NewFault(StackOverflow, &c.instr, "stack overflow: SP=%04x", sp)
	}

	c.memory.data[sp] = v
	c.regs.SP = sp - 1
	return nil
}

// pop returns the top value from the stack and updates SP.
func (c *CPU) pop() (byte, error) {
	sp := int(c.regs.SP) + 1
	if sp < arch.RAMStart || sp > arch.RAMEnd {
		return 0, NewFault(StackUnderflow, &c.instr, "stack underflow: SP=%04x", c.regs.SP)
	}

	c.regs.SP = uint16(sp)
	return c.memory.data[sp], nil
}

// pushPC pushes a return address, low byte first.
func (c *CPU) pushPC(pc uint16) error {
	sp := c.regs.SP
	if sp < arch.RAMStart+1 || sp > arch.RAMEnd {
		return NewFault(StackOverflow, &c.instr, "stack overflow: SP=%04x", sp)
	}

	c.memory.data[sp] = byte(pc)
	c.memory.data[sp-1] = byte(pc >> 8)
	c.regs.SP = sp - 2
	return nil
}

// popPC pops a return address pushed by pushPC.
func (c *CPU) popPC() (uint16, error) {
	sp := int(c.regs.SP)
	if sp+1 < arch.RAMStart || sp+2 > arch.RAMEnd {
		return 0, NewFault(StackUnderflow, &c.instr, "stack underflow: SP=%04x", sp)
	}

	c.regs.SP = uint16(sp + 2)
	return uint16(c.memory.data[sp+1])<<8 | uint16(c.memory.data[sp+2]), nil
}

// pair returns the 16-bit value held in registers n+1:n.
func (c *CPU) pair(n int) uint16 {
	return uint16(c.regs.R[n]) | uint16(c.regs.R[n+1])<<8
}

// setPair stores v in registers n+1:n.
func (c *CPU) setPair(n int, v uint16) {
	c.regs.R[n] = byte(v)
	c.regs.R[n+1] = byte(v >> 8)
}

// pointer returns the effective address of an LD or ST instruction and
// applies its pointer adjustment.
func (c *CPU) pointer(i *Instruction) int {
	p := c.pair(i.Ptr)

	switch i.Mode {
	case arch.PtrPostInc:
		c.setPair(i.Ptr, p+1)
		return int(p)
	case arch.PtrPreDec:
		p--
		c.setPair(i.Ptr, p)
		return int(p)
	}

	return int(p) + i.K
}

// skip moves the program counter past the next instruction and returns
// the number of extra cycles this takes.
func (c *CPU) skip() int {
	w, ok := c.memory.Fetch(c.regs.PC)
	if ok && arch.TwoWord(w) {
		c.regs.PC += 2
		return 2
	}

	c.regs.PC++
	return 1
}
