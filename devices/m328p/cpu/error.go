package cpu

import "fmt"

// FaultReason classifies execution faults.
type FaultReason int

// Known fault reasons.
const (
	UnknownOpcode FaultReason = iota
	FetchOutOfBounds
	StackOverflow
	StackUnderflow
	Breakpoint
)

func (r FaultReason) String() string {
	switch r {
	case UnknownOpcode:
		return "unknown opcode"
	case FetchOutOfBounds:
		return "fetch out of bounds"
	case StackOverflow:
		return "stack overflow"
	case StackUnderflow:
		return "stack underflow"
	case Breakpoint:
		return "breakpoint"
	}
	return "fault"
}

// Fault defines an execution fault. Execution cannot continue past it.
type Fault struct {
	Reason  FaultReason
	Address uint16 // Byte address of the faulting instruction.
	Msg     string
}

// NewFault creates a new, formatted fault for the given instruction.
func NewFault(reason FaultReason, instr *Instruction, f string, argv ...interface{}) *Fault {
	return &Fault{
		Reason:  reason,
		Address: instr.Addr * 2,
		Msg:     fmt.Sprintf(f, argv...),
	}
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%04x: %s", f.Address, f.Msg)
}
