package cpu

import (
	"github.com/hexaflex/avrsim/arch"
)

// execute runs the decoded instruction and returns its cycle cost.
func (c *CPU) execute(i *Instruction) (int, error) {
	r := &c.regs.R
	mem := &c.memory
	c.regs.PC = i.Addr + i.Words

	switch i.Op {
	case arch.NOP, arch.SLEEP, arch.WDR:
		/* nop */

	case arch.MOV:
		r[i.Rd] = r[i.Rr]
	case arch.MOVW:
		r[i.Rd] = r[i.Rr]
		r[i.Rd+1] = r[i.Rr+1]
	case arch.LDI:
		r[i.Rd] = byte(i.K)

	case arch.ADD:
		r[i.Rd] = c.add(r[i.Rd], r[i.Rr], 0)
	case arch.ADC:
		r[i.Rd] = c.add(r[i.Rd], r[i.Rr], c.carry())
	case arch.SUB:
		r[i.Rd] = c.sub(r[i.Rd], r[i.Rr], 0, false)
	case arch.SBC:
		r[i.Rd] = c.sub(r[i.Rd], r[i.Rr], c.carry(), true)
	case arch.SUBI:
		r[i.Rd] = c.sub(r[i.Rd], byte(i.K), 0, false)
	case arch.SBCI:
		r[i.Rd] = c.sub(r[i.Rd], byte(i.K), c.carry(), true)
	case arch.CP:
		c.sub(r[i.Rd], r[i.Rr], 0, false)
	case arch.CPC:
		c.sub(r[i.Rd], r[i.Rr], c.carry(), true)
	case arch.CPI:
		c.sub(r[i.Rd], byte(i.K), 0, false)

	case arch.AND:
		r[i.Rd] = c.logic(r[i.Rd] & r[i.Rr])
	case arch.ANDI:
		r[i.Rd] = c.logic(r[i.Rd] & byte(i.K))
	case arch.OR:
		r[i.Rd] = c.logic(r[i.Rd] | r[i.Rr])
	case arch.ORI:
		r[i.Rd] = c.logic(r[i.Rd] | byte(i.K))
	case arch.EOR:
		r[i.Rd] = c.logic(r[i.Rd] ^ r[i.Rr])

	case arch.COM:
		r[i.Rd] = c.logic(^r[i.Rd])
		c.setFlag(arch.FlagC, true)
	case arch.NEG:
		r[i.Rd] = c.sub(0, r[i.Rd], 0, false)
	case arch.INC:
		v := r[i.Rd] + 1
		c.setFlag(arch.FlagV, v == 0x80)
		c.setNZS(v)
		r[i.Rd] = v
	case arch.DEC:
		v := r[i.Rd] - 1
		c.setFlag(arch.FlagV, v == 0x7f)
		c.setNZS(v)
		r[i.Rd] = v
	case arch.SWAP:
		r[i.Rd] = r[i.Rd]<<4 | r[i.Rd]>>4

	case arch.ASR:
		r[i.Rd] = c.shift(r[i.Rd], r[i.Rd]>>1|r[i.Rd]&0x80)
	case arch.LSR:
		r[i.Rd] = c.shift(r[i.Rd], r[i.Rd]>>1)
	case arch.ROR:
		r[i.Rd] = c.shift(r[i.Rd], r[i.Rd]>>1|c.carry()<<7)

	case arch.ADIW:
		a := c.pair(i.Rd)
		v := a + uint16(i.K)
		c.setFlag(arch.FlagV, a&0x8000 == 0 && v&0x8000 != 0)
		c.setFlag(arch.FlagC, a&0x8000 != 0 && v&0x8000 == 0)
		c.setWordNZS(v)
		c.setPair(i.Rd, v)
		return 2, nil
	case arch.SBIW:
		a := c.pair(i.Rd)
		v := a - uint16(i.K)
		c.setFlag(arch.FlagV, a&0x8000 != 0 && v&0x8000 == 0)
		c.setFlag(arch.FlagC, a&0x8000 == 0 && v&0x8000 != 0)
		c.setWordNZS(v)
		c.setPair(i.Rd, v)
		return 2, nil

	case arch.MUL:
		c.mul(int(r[i.Rd]) * int(r[i.Rr]))
		return 2, nil
	case arch.MULS:
		c.mul(int(int8(r[i.Rd])) * int(int8(r[i.Rr])))
		return 2, nil
	case arch.MULSU:
		c.mul(int(int8(r[i.Rd])) * int(r[i.Rr]))
		return 2, nil

	case arch.LD:
		r[i.Rd] = mem.U8(c.pointer(i))
		return 2, nil
	case arch.ST:
		mem.SetU8(c.pointer(i), r[i.Rd])
		return 2, nil
	case arch.LDS:
		r[i.Rd] = mem.U8(i.K)
		return 2, nil
	case arch.STS:
		mem.SetU8(i.K, r[i.Rd])
		return 2, nil
	case arch.LPM:
		z := c.pair(arch.Z)
		r[i.Rd] = mem.ProgramByte(z)
		if i.Mode == arch.PtrPostInc {
			c.setPair(arch.Z, z+1)
		}
		return 3, nil

	case arch.PUSH:
		if err := c.push(r[i.Rd]); err != nil {
			return 0, err
		}
		return 2, nil
	case arch.POP:
		v, err := c.pop()
		if err != nil {
			return 0, err
		}
		r[i.Rd] = v
		return 2, nil

	case arch.IN:
		r[i.Rd] = mem.U8(i.A)
	case arch.OUT:
		mem.SetU8(i.A, r[i.Rd])
	case arch.CBI:
		mem.SetBit(i.A, i.B, false)
		return 2, nil
	case arch.SBI:
		mem.SetBit(i.A, i.B, true)
		return 2, nil

	case arch.CPSE:
		if r[i.Rd] == r[i.Rr] {
			return 1 + c.skip(), nil
		}
	case arch.SBRC:
		if r[i.Rd]&(1<<uint(i.B)) == 0 {
			return 1 + c.skip(), nil
		}
	case arch.SBRS:
		if r[i.Rd]&(1<<uint(i.B)) != 0 {
			return 1 + c.skip(), nil
		}
	case arch.SBIC:
		if mem.U8(i.A)&(1<<uint(i.B)) == 0 {
			return 1 + c.skip(), nil
		}
	case arch.SBIS:
		if mem.U8(i.A)&(1<<uint(i.B)) != 0 {
			return 1 + c.skip(), nil
		}

	case arch.BST:
		c.setFlag(arch.FlagT, r[i.Rd]&(1<<uint(i.B)) != 0)
	case arch.BLD:
		if c.flag(arch.FlagT) {
			r[i.Rd] |= 1 << uint(i.B)
		} else {
			r[i.Rd] &^= 1 << uint(i.B)
		}
	case arch.BSET:
		c.setFlag(i.B, true)
		if i.B == arch.FlagI {
			c.holdInt = true
		}
	case arch.BCLR:
		c.setFlag(i.B, false)

	case arch.BRBS, arch.BRBC:
		if c.flag(i.B) == (i.Op == arch.BRBS) {
			c.jump(i.K)
			return 2, nil
		}

	case arch.RJMP:
		c.jump(i.K)
		return 2, nil
	case arch.JMP:
		c.regs.PC = uint16(i.K)
		return 3, nil
	case arch.IJMP:
		c.regs.PC = c.pair(arch.Z)
		return 2, nil

	case arch.RCALL:
		if err := c.pushPC(c.regs.PC); err != nil {
			return 0, err
		}
		c.jump(i.K)
		return 3, nil
	case arch.CALL:
		if err := c.pushPC(c.regs.PC); err != nil {
			return 0, err
		}
		c.regs.PC = uint16(i.K)
		return 4, nil
	case arch.ICALL:
		if err := c.pushPC(c.regs.PC); err != nil {
			return 0, err
		}
		c.regs.PC = c.pair(arch.Z)
		return 3, nil

	case arch.RET, arch.RETI:
		pc, err := c.popPC()
		if err != nil {
			return 0, err
		}
		c.regs.PC = pc
		if i.Op == arch.RETI {
			c.setFlag(arch.FlagI, true)
			c.holdInt = true
		}
		return 4, nil

	case arch.BREAK:
		return 0, NewFault(Breakpoint, i, "break")

	default:
		return 0, NewFault(UnknownOpcode, i, "unsupported opcode %s", i.Op)
	}

	return 1, nil
}

// jump moves the program counter by k words.
func (c *CPU) jump(k int) {
	c.regs.PC = uint16(int(c.regs.PC) + k)
}

func (c *CPU) flag(bit int) bool {
	return c.regs.SREG&(1<<uint(bit)) != 0
}

func (c *CPU) setFlag(bit int, v bool) {
	if v {
		c.regs.SREG |= 1 << uint(bit)
	} else {
		c.regs.SREG &^= 1 << uint(bit)
	}
}

// carry returns the carry flag as 0 or 1.
func (c *CPU) carry() byte {
	return c.regs.SREG & 1
}

// setNZS updates N and Z from the 8-bit result v and derives S from N and
// the current V.
func (c *CPU) setNZS(v byte) {
	n := v&0x80 != 0
	c.setFlag(arch.FlagN, n)
	c.setFlag(arch.FlagZ, v == 0)
	c.setFlag(arch.FlagS, n != c.flag(arch.FlagV))
}

func (c *CPU) setWordNZS(v uint16) {
	n := v&0x8000 != 0
	c.setFlag(arch.FlagN, n)
	c.setFlag(arch.FlagZ, v == 0)
	c.setFlag(arch.FlagS, n != c.flag(arch.FlagV))
}

// add returns a+b+carry and sets H, S, V, N, Z and C.
func (c *CPU) add(a, b, carry byte) byte {
	v := a + b + carry
	cv := a&b | b&^v | ^v&a
	c.setFlag(arch.FlagH, cv&0x08 != 0)
	c.setFlag(arch.FlagC, cv&0x80 != 0)
	c.setFlag(arch.FlagV, (a&b&^v|^a&^b&v)&0x80 != 0)
	c.setNZS(v)
	return v
}

// sub returns a-b-carry and sets H, S, V, N, Z and C. With keepZ the zero
// flag can only be cleared, as multi-byte compares require.
func (c *CPU) sub(a, b, carry byte, keepZ bool) byte {
	v := a - b - carry
	bv := ^a&b | b&v | v&^a
	z := c.flag(arch.FlagZ)
	c.setFlag(arch.FlagH, bv&0x08 != 0)
	c.setFlag(arch.FlagC, bv&0x80 != 0)
	c.setFlag(arch.FlagV, (a&^b&^v|^a&b&v)&0x80 != 0)
	c.setNZS(v)
	if keepZ {
		c.setFlag(arch.FlagZ, z && v == 0)
	}
	return v
}

// logic sets the flags for a bitwise result: V cleared, S, N and Z updated.
func (c *CPU) logic(v byte) byte {
	c.setFlag(arch.FlagV, false)
	c.setNZS(v)
	return v
}

// shift sets the flags for a right shift of old yielding v.
func (c *CPU) shift(old, v byte) byte {
	cf := old&1 != 0
	n := v&0x80 != 0
	c.setFlag(arch.FlagC, cf)
	c.setFlag(arch.FlagV, n != cf)
	c.setNZS(v)
	return v
}

// mul stores a product in r1:r0 and sets C and Z.
func (c *CPU) mul(p int) {
	v := uint16(p)
	c.setPair(0, v)
	c.setFlag(arch.FlagC, v&0x8000 != 0)
	c.setFlag(arch.FlagZ, v == 0)
}
