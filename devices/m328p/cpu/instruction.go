package cpu

import (
	"fmt"

	"github.com/hexaflex/avrsim/arch"
)

// Instruction defines decoded instruction data.
type Instruction struct {
	Addr  uint16       // Word address of the instruction.
	Raw   uint16       // First instruction word.
	Op    arch.Op      // Decoded opcode; arch.Invalid if not supported.
	Words uint16       // Encoded width in words.
	Rd    int          // Destination register.
	Rr    int          // Source register.
	K     int          // Immediate, absolute address or signed offset.
	A     int          // I/O register as a data space address.
	B     int          // Bit number.
	Ptr   int          // Pointer register for LD/ST/LPM: arch.X, Y or Z.
	Mode  arch.PtrMode // Pointer adjustment for LD/ST/LPM.
}

// Decode decodes the instruction at word address pc.
// Returns a fault if the address lies beyond program memory or the
// opcode is not supported.
func (i *Instruction) Decode(m *Memory, pc uint16) error {
	*i = Instruction{Addr: pc, Words: 1}

	w, ok := m.Fetch(pc)
	if !ok {
		return NewFault(FetchOutOfBounds, i, "fetch beyond program memory")
	}
	i.Raw = w

	if arch.TwoWord(w) {
		k, ok := m.Fetch(pc + 1)
		if !ok {
			return NewFault(FetchOutOfBounds, i, "fetch beyond program memory")
		}
		i.Words = 2
		i.K = int(k)
	}

	i.decode(w)

	if i.Op == arch.Invalid {
		return NewFault(UnknownOpcode, i, "unknown opcode %04x", w)
	}
	return nil
}

// decode fills in the opcode and operands for the instruction word w.
func (i *Instruction) decode(w uint16) {
	d5 := int(w>>4) & 0x1f
	r5 := int(w>>5)&0x10 | int(w)&0x0f

	twoReg := func(op arch.Op) {
		i.Op, i.Rd, i.Rr = op, d5, r5
	}

	switch w >> 12 {
	case 0x0:
		switch {
		case w == 0x0000:
			i.Op = arch.NOP
		case w&0xff00 == 0x0100:
			i.Op, i.Rd, i.Rr = arch.MOVW, int(w>>4&0xf)*2, int(w&0xf)*2
		case w&0xff00 == 0x0200:
			i.Op, i.Rd, i.Rr = arch.MULS, 16+int(w>>4&0xf), 16+int(w&0xf)
		case w&0xff88 == 0x0300:
			i.Op, i.Rd, i.Rr = arch.MULSU, 16+int(w>>4&0x7), 16+int(w&0x7)
		case w&0xfc00 == 0x0400:
			twoReg(arch.CPC)
		case w&0xfc00 == 0x0800:
			twoReg(arch.SBC)
		case w&0xfc00 == 0x0c00:
			twoReg(arch.ADD)
		}

	case 0x1:
		twoReg([...]arch.Op{arch.CPSE, arch.CP, arch.SUB, arch.ADC}[w>>10&3])

	case 0x2:
		twoReg([...]arch.Op{arch.AND, arch.EOR, arch.OR, arch.MOV}[w>>10&3])

	case 0x3, 0x4, 0x5, 0x6, 0x7, 0xe:
		i.Op = immediateOps[w>>12]
		i.Rd = 16 + int(w>>4&0xf)
		i.K = int(w>>4&0xf0 | w&0x0f)

	case 0x8, 0xa:
		i.Op = arch.LD
		if w&0x0200 != 0 {
			i.Op = arch.ST
		}
		i.Rd = d5
		i.Ptr = arch.Z
		if w&0x0008 != 0 {
			i.Ptr = arch.Y
		}
		i.K = int(w>>8&0x20 | w>>7&0x18 | w&0x07)

	case 0x9:
		i.decode9(w, d5)

	case 0xb:
		i.Op = arch.IN
		if w&0x0800 != 0 {
			i.Op = arch.OUT
		}
		i.Rd = d5
		i.A = arch.IOStart + int(w>>5&0x30|w&0x0f)

	case 0xc, 0xd:
		i.Op = arch.RJMP
		if w>>12 == 0xd {
			i.Op = arch.RCALL
		}
		i.K = signExtend(int(w&0x0fff), 12)

	case 0xf:
		switch {
		case w&0x0800 == 0:
			i.Op = arch.BRBS
			if w&0x0400 != 0 {
				i.Op = arch.BRBC
			}
			i.K = signExtend(int(w>>3&0x7f), 7)
			i.B = int(w & 7)
		case w&0x0008 != 0:
		default:
			i.Rd, i.B = d5, int(w&7)
			i.Op = [...]arch.Op{arch.BLD, arch.BST, arch.SBRC, arch.SBRS}[w>>9&3]
		}
	}
}

var immediateOps = [16]arch.Op{
	0x3: arch.CPI, 0x4: arch.SBCI, 0x5: arch.SUBI,
	0x6: arch.ORI, 0x7: arch.ANDI, 0xe: arch.LDI,
}

// decode9 handles the crowded 0x9xxx opcode space.
func (i *Instruction) decode9(w uint16, d5 int) {
	switch {
	case w&0xfe00 == 0x9000:
		i.Rd = d5
		switch w & 0xf {
		case 0x0:
			i.Op = arch.LDS
		case 0x1, 0x2:
			i.Op, i.Ptr, i.Mode = arch.LD, arch.Z, arch.PtrMode(w&0xf)
		case 0x4, 0x5:
			i.Op, i.Ptr, i.Mode = arch.LPM, arch.Z, arch.PtrMode(w&1)
		case 0x9, 0xa:
			i.Op, i.Ptr, i.Mode = arch.LD, arch.Y, arch.PtrMode(w&0xf-8)
		case 0xc, 0xd, 0xe:
			i.Op, i.Ptr, i.Mode = arch.LD, arch.X, arch.PtrMode(w&0xf-0xc)
		case 0xf:
			i.Op = arch.POP
		}

	case w&0xfe00 == 0x9200:
		i.Rd = d5
		switch w & 0xf {
		case 0x0:
			i.Op = arch.STS
		case 0x1, 0x2:
			i.Op, i.Ptr, i.Mode = arch.ST, arch.Z, arch.PtrMode(w&0xf)
		case 0x9, 0xa:
			i.Op, i.Ptr, i.Mode = arch.ST, arch.Y, arch.PtrMode(w&0xf-8)
		case 0xc, 0xd, 0xe:
			i.Op, i.Ptr, i.Mode = arch.ST, arch.X, arch.PtrMode(w&0xf-0xc)
		case 0xf:
			i.Op = arch.PUSH
		}

	case w&0xfe00 == 0x9400:
		i.Rd = d5
		switch w & 0xf {
		case 0x0:
			i.Op = arch.COM
		case 0x1:
			i.Op = arch.NEG
		case 0x2:
			i.Op = arch.SWAP
		case 0x3:
			i.Op = arch.INC
		case 0x5:
			i.Op = arch.ASR
		case 0x6:
			i.Op = arch.LSR
		case 0x7:
			i.Op = arch.ROR
		case 0xa:
			i.Op = arch.DEC
		case 0x8:
			i.decodeMisc(w)
		case 0x9:
			switch w {
			case 0x9409:
				i.Op = arch.IJMP
			case 0x9509:
				i.Op = arch.ICALL
			}
		case 0xc, 0xd:
			i.Op = arch.JMP
			i.K |= int(w>>3&0x3e|w&1) << 16
		case 0xe, 0xf:
			i.Op = arch.CALL
			i.K |= int(w>>3&0x3e|w&1) << 16
		}

	case w&0xff00 == 0x9600, w&0xff00 == 0x9700:
		i.Op = arch.ADIW
		if w&0x0100 != 0 {
			i.Op = arch.SBIW
		}
		i.Rd = 24 + int(w>>4&3)*2
		i.K = int(w>>2&0x30 | w&0x0f)

	case w&0xfc00 == 0x9800:
		i.Op = [...]arch.Op{arch.CBI, arch.SBIC, arch.SBI, arch.SBIS}[w>>8&3]
		i.A = arch.IOStart + int(w>>3&0x1f)
		i.B = int(w & 7)

	case w&0xfc00 == 0x9c00:
		i.Op, i.Rd, i.Rr = arch.MUL, d5, int(w>>5)&0x10|int(w)&0x0f
	}
}

// decodeMisc handles the 0x9408 family: status bit set/clear, returns and
// the single-word system instructions.
func (i *Instruction) decodeMisc(w uint16) {
	i.Rd = 0

	if w&0x0100 == 0 {
		i.Op = arch.BSET
		if w&0x0080 != 0 {
			i.Op = arch.BCLR
		}
		i.B = int(w >> 4 & 7)
		return
	}

	switch w {
	case 0x9508:
		i.Op = arch.RET
	case 0x9518:
		i.Op = arch.RETI
	case 0x9588:
		i.Op = arch.SLEEP
	case 0x9598:
		i.Op = arch.BREAK
	case 0x95a8:
		i.Op = arch.WDR
	case 0x95c8:
		i.Op, i.Ptr, i.Mode = arch.LPM, arch.Z, arch.PtrDirect
	}
}

// signExtend interprets the low n bits of v as a two's complement value.
func signExtend(v int, n uint) int {
	if v&(1<<(n-1)) != 0 {
		return v - 1<<n
	}
	return v
}

// String returns the instruction in assembler notation.
func (i *Instruction) String() string {
	name, ok := arch.Name(i.Op)
	if !ok {
		return fmt.Sprintf(".word 0x%04x", i.Raw)
	}

	reg := arch.RegisterName
	switch i.Op {
	case arch.NOP, arch.RET, arch.RETI, arch.IJMP, arch.ICALL, arch.SLEEP, arch.WDR, arch.BREAK:
		return name

	case arch.COM, arch.NEG, arch.SWAP, arch.INC, arch.DEC, arch.ASR, arch.LSR, arch.ROR, arch.PUSH, arch.POP:
		return fmt.Sprintf("%s %s", name, reg(i.Rd))

	case arch.CPI, arch.SUBI, arch.SBCI, arch.ORI, arch.ANDI, arch.LDI:
		return fmt.Sprintf("%s %s, 0x%02x", name, reg(i.Rd), i.K)

	case arch.ADIW, arch.SBIW:
		return fmt.Sprintf("%s %s, 0x%02x", name, reg(i.Rd), i.K)

	case arch.MOVW:
		return fmt.Sprintf("%s %s:%s, %s:%s", name, reg(i.Rd+1), reg(i.Rd), reg(i.Rr+1), reg(i.Rr))

	case arch.LDS:
		return fmt.Sprintf("%s %s, 0x%04x", name, reg(i.Rd), i.K)
	case arch.STS:
		return fmt.Sprintf("%s 0x%04x, %s", name, i.K, reg(i.Rd))

	case arch.LD:
		return fmt.Sprintf("%s %s, %s", i.ptrName(name), reg(i.Rd), i.ptrOperand())
	case arch.ST:
		return fmt.Sprintf("%s %s, %s", i.ptrName(name), i.ptrOperand(), reg(i.Rd))
	case arch.LPM:
		if i.Raw == 0x95c8 {
			return name
		}
		return fmt.Sprintf("%s %s, %s", name, reg(i.Rd), i.ptrOperand())

	case arch.IN:
		return fmt.Sprintf("%s %s, %s", name, reg(i.Rd), arch.IOName(i.A))
	case arch.OUT:
		return fmt.Sprintf("%s %s, %s", name, arch.IOName(i.A), reg(i.Rd))
	case arch.CBI, arch.SBI, arch.SBIC, arch.SBIS:
		return fmt.Sprintf("%s %s, %d", name, arch.IOName(i.A), i.B)

	case arch.SBRC, arch.SBRS, arch.BST, arch.BLD:
		return fmt.Sprintf("%s %s, %d", name, reg(i.Rd), i.B)

	case arch.BSET, arch.BCLR:
		if alias := flagAlias(i.Op == arch.BSET, i.B); alias != "" {
			return alias
		}
		return fmt.Sprintf("%s %d", name, i.B)

	case arch.RJMP, arch.RCALL:
		return fmt.Sprintf("%s .%+d", name, i.K*2)

	case arch.JMP, arch.CALL:
		return fmt.Sprintf("%s 0x%04x", name, i.K*2)

	case arch.BRBS, arch.BRBC:
		return fmt.Sprintf("%s .%+d", branchAlias(i.Op == arch.BRBS, i.B), i.K*2)
	}

	return fmt.Sprintf("%s %s, %s", name, reg(i.Rd), reg(i.Rr))
}

func (i *Instruction) ptrName(name string) string {
	if i.Ptr != arch.X && i.Mode == arch.PtrDirect && i.K > 0 {
		return name + "d"
	}
	return name
}

func (i *Instruction) ptrOperand() string {
	p := arch.PointerName(i.Ptr)
	switch i.Mode {
	case arch.PtrPostInc:
		return p + "+"
	case arch.PtrPreDec:
		return "-" + p
	}
	if i.K > 0 && i.Op != arch.LPM {
		return fmt.Sprintf("%s+%d", p, i.K)
	}
	return p
}

var setAliases = [8]string{"sec", "sez", "sen", "sev", "ses", "seh", "set", "sei"}
var clearAliases = [8]string{"clc", "clz", "cln", "clv", "cls", "clh", "clt", "cli"}

func flagAlias(set bool, bit int) string {
	if set {
		return setAliases[bit&7]
	}
	return clearAliases[bit&7]
}

var setBranches = [8]string{"brcs", "breq", "brmi", "brvs", "brlt", "brhs", "brts", "brie"}
var clearBranches = [8]string{"brcc", "brne", "brpl", "brvc", "brge", "brhc", "brtc", "brid"}

func branchAlias(set bool, bit int) string {
	if set {
		return setBranches[bit&7]
	}
	return clearBranches[bit&7]
}
