package arch

// The functions below encode single instructions into program words. They
// exist so firmware fragments can be put together without an external
// toolchain. Arguments are not range checked beyond masking.

// PtrMode defines how LD and ST adjust their pointer register.
type PtrMode int

// Known pointer modes.
const (
	PtrDirect  PtrMode = iota // ld r, Z / ldd r, Z+q
	PtrPostInc                // ld r, Z+
	PtrPreDec                 // ld r, -Z
)

// Program turns instruction words into little-endian program bytes.
func Program(code ...[]uint16) []byte {
	var out []byte
	for _, words := range code {
		for _, w := range words {
			out = append(out, byte(w), byte(w>>8))
		}
	}
	return out
}

func one(w uint16) []uint16 { return []uint16{w} }

func rr(base uint16, d, r int) []uint16 {
	return one(base | uint16(r&0x10)<<5 | uint16(d&0x1f)<<4 | uint16(r&0x0f))
}

func imm(base uint16, d int, k byte) []uint16 {
	return one(base | uint16(k&0xf0)<<4 | uint16((d-16)&0x0f)<<4 | uint16(k&0x0f))
}

func single(d int, low uint16) []uint16 {
	return one(0x9400 | uint16(d&0x1f)<<4 | low)
}

func EncodeNOP() []uint16          { return one(0x0000) }
func EncodeADD(d, r int) []uint16  { return rr(0x0c00, d, r) }
func EncodeADC(d, r int) []uint16  { return rr(0x1c00, d, r) }
func EncodeSUB(d, r int) []uint16  { return rr(0x1800, d, r) }
func EncodeSBC(d, r int) []uint16  { return rr(0x0800, d, r) }
func EncodeAND(d, r int) []uint16  { return rr(0x2000, d, r) }
func EncodeOR(d, r int) []uint16   { return rr(0x2800, d, r) }
func EncodeEOR(d, r int) []uint16  { return rr(0x2400, d, r) }
func EncodeMOV(d, r int) []uint16  { return rr(0x2c00, d, r) }
func EncodeCP(d, r int) []uint16   { return rr(0x1400, d, r) }
func EncodeCPC(d, r int) []uint16  { return rr(0x0400, d, r) }
func EncodeCPSE(d, r int) []uint16 { return rr(0x1000, d, r) }
func EncodeMUL(d, r int) []uint16  { return rr(0x9c00, d, r) }

func EncodeMOVW(d, r int) []uint16 {
	return one(0x0100 | uint16(d/2)<<4 | uint16(r/2))
}

func EncodeMULS(d, r int) []uint16 {
	return one(0x0200 | uint16((d-16)&0x0f)<<4 | uint16((r-16)&0x0f))
}

func EncodeMULSU(d, r int) []uint16 {
	return one(0x0300 | uint16((d-16)&0x07)<<4 | uint16((r-16)&0x07))
}

func EncodeCPI(d int, k byte) []uint16  { return imm(0x3000, d, k) }
func EncodeSBCI(d int, k byte) []uint16 { return imm(0x4000, d, k) }
func EncodeSUBI(d int, k byte) []uint16 { return imm(0x5000, d, k) }
func EncodeORI(d int, k byte) []uint16  { return imm(0x6000, d, k) }
func EncodeANDI(d int, k byte) []uint16 { return imm(0x7000, d, k) }
func EncodeLDI(d int, k byte) []uint16  { return imm(0xe000, d, k) }

func EncodeCOM(d int) []uint16  { return single(d, 0x0) }
func EncodeNEG(d int) []uint16  { return single(d, 0x1) }
func EncodeSWAP(d int) []uint16 { return single(d, 0x2) }
func EncodeINC(d int) []uint16  { return single(d, 0x3) }
func EncodeASR(d int) []uint16  { return single(d, 0x5) }
func EncodeLSR(d int) []uint16  { return single(d, 0x6) }
func EncodeROR(d int) []uint16  { return single(d, 0x7) }
func EncodeDEC(d int) []uint16  { return single(d, 0xa) }

func EncodeADIW(d int, k byte) []uint16 {
	return one(0x9600 | uint16(k&0x30)<<2 | uint16((d-24)/2)<<4 | uint16(k&0x0f))
}

func EncodeSBIW(d int, k byte) []uint16 {
	return one(0x9700 | uint16(k&0x30)<<2 | uint16((d-24)/2)<<4 | uint16(k&0x0f))
}

// EncodeLD encodes ld d, ptr with the given pointer mode.
func EncodeLD(d, ptr int, mode PtrMode) []uint16 {
	if mode == PtrDirect && ptr != X {
		return EncodeLDD(d, ptr, 0)
	}
	return one(0x9000 | uint16(d&0x1f)<<4 | ptrBits(ptr, mode))
}

// EncodeST encodes st ptr, r with the given pointer mode.
func EncodeST(ptr int, mode PtrMode, r int) []uint16 {
	if mode == PtrDirect && ptr != X {
		return EncodeSTD(ptr, 0, r)
	}
	return one(0x9200 | uint16(r&0x1f)<<4 | ptrBits(ptr, mode))
}

func ptrBits(ptr int, mode PtrMode) uint16 {
	switch ptr {
	case X:
		return [...]uint16{0xc, 0xd, 0xe}[mode]
	case Y:
		return [...]uint16{0x8, 0x9, 0xa}[mode]
	default:
		return [...]uint16{0x0, 0x1, 0x2}[mode]
	}
}

// EncodeLDD encodes ldd d, ptr+q for ptr Y or Z. q = 0 yields ld d, Y / ld d, Z.
func EncodeLDD(d, ptr, q int) []uint16 {
	return one(0x8000 | disp(ptr, q) | uint16(d&0x1f)<<4)
}

// EncodeSTD encodes std ptr+q, r for ptr Y or Z.
func EncodeSTD(ptr, q, r int) []uint16 {
	return one(0x8200 | disp(ptr, q) | uint16(r&0x1f)<<4)
}

func disp(ptr, q int) uint16 {
	w := uint16(q&0x20)<<8 | uint16(q&0x18)<<7 | uint16(q&0x07)
	if ptr == Y {
		w |= 0x0008
	}
	return w
}

func EncodeLDS(d int, addr uint16) []uint16 {
	return []uint16{0x9000 | uint16(d&0x1f)<<4, addr}
}

func EncodeSTS(addr uint16, r int) []uint16 {
	return []uint16{0x9200 | uint16(r&0x1f)<<4, addr}
}

// EncodeLPM encodes lpm d, Z (postInc false) or lpm d, Z+ (postInc true).
func EncodeLPM(d int, postInc bool) []uint16 {
	w := 0x9004 | uint16(d&0x1f)<<4
	if postInc {
		w |= 1
	}
	return one(w)
}

func EncodePUSH(r int) []uint16 { return one(0x920f | uint16(r&0x1f)<<4) }
func EncodePOP(d int) []uint16  { return one(0x900f | uint16(d&0x1f)<<4) }

// EncodeIN encodes in d, A where a is a data space address.
func EncodeIN(d, a int) []uint16 {
	a -= IOStart
	return one(0xb000 | uint16(a&0x30)<<5 | uint16(d&0x1f)<<4 | uint16(a&0x0f))
}

// EncodeOUT encodes out A, r where a is a data space address.
func EncodeOUT(a, r int) []uint16 {
	a -= IOStart
	return one(0xb800 | uint16(a&0x30)<<5 | uint16(r&0x1f)<<4 | uint16(a&0x0f))
}

func ioBit(base uint16, a, b int) []uint16 {
	return one(base | uint16((a-IOStart)&0x1f)<<3 | uint16(b&7))
}

// The bit instructions below take a data space address in 0x20..0x3f.
func EncodeCBI(a, b int) []uint16  { return ioBit(0x9800, a, b) }
func EncodeSBIC(a, b int) []uint16 { return ioBit(0x9900, a, b) }
func EncodeSBI(a, b int) []uint16  { return ioBit(0x9a00, a, b) }
func EncodeSBIS(a, b int) []uint16 { return ioBit(0x9b00, a, b) }

func EncodeSBRC(r, b int) []uint16 { return one(0xfc00 | uint16(r&0x1f)<<4 | uint16(b&7)) }
func EncodeSBRS(r, b int) []uint16 { return one(0xfe00 | uint16(r&0x1f)<<4 | uint16(b&7)) }
func EncodeBST(d, b int) []uint16  { return one(0xfa00 | uint16(d&0x1f)<<4 | uint16(b&7)) }
func EncodeBLD(d, b int) []uint16  { return one(0xf800 | uint16(d&0x1f)<<4 | uint16(b&7)) }
func EncodeBSET(s int) []uint16    { return one(0x9408 | uint16(s&7)<<4) }
func EncodeBCLR(s int) []uint16    { return one(0x9488 | uint16(s&7)<<4) }
func EncodeSEI() []uint16          { return EncodeBSET(FlagI) }
func EncodeCLI() []uint16          { return EncodeBCLR(FlagI) }

// EncodeRJMP encodes a relative jump of k words from the next instruction.
func EncodeRJMP(k int) []uint16 { return one(0xc000 | uint16(k)&0x0fff) }

// EncodeRCALL encodes a relative call of k words from the next instruction.
func EncodeRCALL(k int) []uint16 { return one(0xd000 | uint16(k)&0x0fff) }

// EncodeJMP encodes an absolute jump to word address k.
func EncodeJMP(k uint16) []uint16 { return []uint16{0x940c, k} }

// EncodeCALL encodes an absolute call to word address k.
func EncodeCALL(k uint16) []uint16 { return []uint16{0x940e, k} }

func EncodeIJMP() []uint16  { return one(0x9409) }
func EncodeICALL() []uint16 { return one(0x9509) }
func EncodeRET() []uint16   { return one(0x9508) }
func EncodeRETI() []uint16  { return one(0x9518) }
func EncodeSLEEP() []uint16 { return one(0x9588) }
func EncodeWDR() []uint16   { return one(0x95a8) }
func EncodeBREAK() []uint16 { return one(0x9598) }

// EncodeBRBS branches k words if SREG bit s is set.
func EncodeBRBS(s, k int) []uint16 { return one(0xf000 | (uint16(k)&0x7f)<<3 | uint16(s&7)) }

// EncodeBRBC branches k words if SREG bit s is cleared.
func EncodeBRBC(s, k int) []uint16 { return one(0xf400 | (uint16(k)&0x7f)<<3 | uint16(s&7)) }
