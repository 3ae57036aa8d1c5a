// Package arch defines the supported AVR instruction subset along with
// the ATmega328P register map and some related helper functions.
package arch

// Op identifies a decoded instruction.
type Op int

// Known opcodes.
const (
	Invalid Op = iota
	NOP
	MOVW
	MUL
	MULS
	MULSU

	ADD
	ADC
	SUB
	SBC
	AND
	OR
	EOR
	MOV
	CP
	CPC
	CPSE

	CPI
	SUBI
	SBCI
	ORI
	ANDI
	LDI

	COM
	NEG
	SWAP
	INC
	DEC
	ASR
	LSR
	ROR
	ADIW
	SBIW

	LD
	ST
	LDS
	STS
	LPM
	PUSH
	POP
	IN
	OUT
	CBI
	SBI

	SBIC
	SBIS
	SBRC
	SBRS
	BST
	BLD
	BSET
	BCLR

	RJMP
	RCALL
	JMP
	CALL
	IJMP
	ICALL
	RET
	RETI
	BRBS
	BRBC

	SLEEP
	WDR
	BREAK
)

// Name returns the mnemonic for the given opcode.
// Returns false if the opcode is not recognized.
func Name(op Op) (string, bool) {
	switch op {
	case NOP:
		return "nop", true
	case MOVW:
		return "movw", true
	case MUL:
		return "mul", true
	case MULS:
		return "muls", true
	case MULSU:
		return "mulsu", true

	case ADD:
		return "add", true
	case ADC:
		return "adc", true
	case SUB:
		return "sub", true
	case SBC:
		return "sbc", true
	case AND:
		return "and", true
	case OR:
		return "or", true
	case EOR:
		return "eor", true
	case MOV:
		return "mov", true
	case CP:
		return "cp", true
	case CPC:
		return "cpc", true
	case CPSE:
		return "cpse", true

	case CPI:
		return "cpi", true
	case SUBI:
		return "subi", true
	case SBCI:
		return "sbci", true
	case ORI:
		return "ori", true
	case ANDI:
		return "andi", true
	case LDI:
		return "ldi", true

	case COM:
		return "com", true
	case NEG:
		return "neg", true
	case SWAP:
		return "swap", true
	case INC:
		return "inc", true
	case DEC:
		return "dec", true
	case ASR:
		return "asr", true
	case LSR:
		return "lsr", true
	case ROR:
		return "ror", true
	case ADIW:
		return "adiw", true
	case SBIW:
		return "sbiw", true

	case LD:
		return "ld", true
	case ST:
		return "st", true
	case LDS:
		return "lds", true
	case STS:
		return "sts", true
	case LPM:
		return "lpm", true
	case PUSH:
		return "push", true
	case POP:
		return "pop", true
	case IN:
		return "in", true
	case OUT:
		return "out", true
	case CBI:
		return "cbi", true
	case SBI:
		return "sbi", true

	case SBIC:
		return "sbic", true
	case SBIS:
		return "sbis", true
	case SBRC:
		return "sbrc", true
	case SBRS:
		return "sbrs", true
	case BST:
		return "bst", true
	case BLD:
		return "bld", true
	case BSET:
		return "bset", true
	case BCLR:
		return "bclr", true

	case RJMP:
		return "rjmp", true
	case RCALL:
		return "rcall", true
	case JMP:
		return "jmp", true
	case CALL:
		return "call", true
	case IJMP:
		return "ijmp", true
	case ICALL:
		return "icall", true
	case RET:
		return "ret", true
	case RETI:
		return "reti", true
	case BRBS:
		return "brbs", true
	case BRBC:
		return "brbc", true

	case SLEEP:
		return "sleep", true
	case WDR:
		return "wdr", true
	case BREAK:
		return "break", true
	}

	return "", false
}

func (op Op) String() string {
	if name, ok := Name(op); ok {
		return name
	}
	return "???"
}

// TwoWord returns true if the instruction word w is the first half of a
// 32-bit instruction (LDS, STS, JMP, CALL).
func TwoWord(w uint16) bool {
	return w&0xfc0f == 0x9000 || w&0xfe0c == 0x940c
}
