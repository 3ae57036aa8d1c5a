package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexaflex/avrsim/arch"
)

func TestLDI(t *testing.T) {
	//   ldi r16, 0x2a
	//   mov r0, r16
	//   break

	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0x2a))
	ct.emit(arch.EncodeMOV(0, 16))
	ct.emit(arch.EncodeBREAK())

	ct.want[16] = 0x2a
	ct.want[0] = 0x2a
	ct.want[arch.SREG] = 0
	ct.wantPC = 2
	runTest(t, ct)
}

func TestMOVW(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0x34))
	ct.emit(arch.EncodeLDI(17, 0x12))
	ct.emit(arch.EncodeMOVW(2, 16))
	ct.emit(arch.EncodeBREAK())

	ct.want[2] = 0x34
	ct.want[3] = 0x12
	runTest(t, ct)
}

func TestADDCarry(t *testing.T) {
	//   ldi r16, 0xff
	//   ldi r17, 0x01
	//   add r16, r17
	//   break

	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0xff))
	ct.emit(arch.EncodeLDI(17, 0x01))
	ct.emit(arch.EncodeADD(16, 17))
	ct.emit(arch.EncodeBREAK())

	ct.want[16] = 0
	ct.want[arch.SREG] = flags(arch.FlagC, arch.FlagZ, arch.FlagH)
	runTest(t, ct)
}

func TestADDOverflow(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0x7f))
	ct.emit(arch.EncodeLDI(17, 0x01))
	ct.emit(arch.EncodeADD(16, 17))
	ct.emit(arch.EncodeBREAK())

	ct.want[16] = 0x80
	ct.want[arch.SREG] = flags(arch.FlagN, arch.FlagV, arch.FlagH)
	runTest(t, ct)
}

func TestADC(t *testing.T) {
	// 16-bit addition 0x00ff + 0x0001.
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0xff))
	ct.emit(arch.EncodeLDI(17, 0x00))
	ct.emit(arch.EncodeLDI(18, 0x01))
	ct.emit(arch.EncodeLDI(19, 0x00))
	ct.emit(arch.EncodeADD(16, 18))
	ct.emit(arch.EncodeADC(17, 19))
	ct.emit(arch.EncodeBREAK())

	ct.want[16] = 0x00
	ct.want[17] = 0x01
	ct.want[arch.SREG] = 0
	runTest(t, ct)
}

func TestSUB(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0x10))
	ct.emit(arch.EncodeLDI(17, 0x20))
	ct.emit(arch.EncodeSUB(16, 17))
	ct.emit(arch.EncodeBREAK())

	ct.want[16] = 0xf0
	ct.want[arch.SREG] = flags(arch.FlagC, arch.FlagN, arch.FlagS)
	runTest(t, ct)
}

func TestSUBI(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(20, 5))
	ct.emit(arch.EncodeSUBI(20, 5))
	ct.emit(arch.EncodeBREAK())

	ct.want[20] = 0
	ct.want[arch.SREG] = flags(arch.FlagZ)
	runTest(t, ct)
}

func TestCPCEqual(t *testing.T) {
	//   cp  r16, r18
	//   cpc r17, r19
	//   brne done
	//   ldi r20, 0xaa
	// done:
	//   break

	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0x00))
	ct.emit(arch.EncodeLDI(17, 0x01))
	ct.emit(arch.EncodeLDI(18, 0x00))
	ct.emit(arch.EncodeLDI(19, 0x01))
	ct.emit(arch.EncodeCP(16, 18))
	ct.emit(arch.EncodeCPC(17, 19))
	ct.emit(arch.EncodeBRBC(arch.FlagZ, 1))
	ct.emit(arch.EncodeLDI(20, 0xaa))
	ct.emit(arch.EncodeBREAK())

	ct.want[20] = 0xaa
	runTest(t, ct)
}

func TestCPCKeepsZeroCleared(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0x01))
	ct.emit(arch.EncodeLDI(17, 0x01))
	ct.emit(arch.EncodeLDI(18, 0x00))
	ct.emit(arch.EncodeLDI(19, 0x01))
	ct.emit(arch.EncodeCP(16, 18))
	ct.emit(arch.EncodeCPC(17, 19))
	ct.emit(arch.EncodeBRBC(arch.FlagZ, 1))
	ct.emit(arch.EncodeLDI(20, 0xaa))
	ct.emit(arch.EncodeBREAK())

	ct.want[20] = 0
	runTest(t, ct)
}

func TestEOR(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0x5a))
	ct.emit(arch.EncodeEOR(16, 16))
	ct.emit(arch.EncodeBREAK())

	ct.want[16] = 0
	ct.want[arch.SREG] = flags(arch.FlagZ)
	runTest(t, ct)
}

func TestANDIORI(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0xf0))
	ct.emit(arch.EncodeANDI(16, 0x3c))
	ct.emit(arch.EncodeORI(16, 0x81))
	ct.emit(arch.EncodeBREAK())

	ct.want[16] = 0xb1
	ct.want[arch.SREG] = flags(arch.FlagN, arch.FlagS)
	runTest(t, ct)
}

func TestCOMNEG(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0x0f))
	ct.emit(arch.EncodeCOM(16))
	ct.emit(arch.EncodeLDI(17, 0x01))
	ct.emit(arch.EncodeNEG(17))
	ct.emit(arch.EncodeBREAK())

	ct.want[16] = 0xf0
	ct.want[17] = 0xff
	ct.want[arch.SREG] = flags(arch.FlagC, arch.FlagN, arch.FlagS, arch.FlagH)
	runTest(t, ct)
}

func TestINC(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0x7f))
	ct.emit(arch.EncodeINC(16))
	ct.emit(arch.EncodeBREAK())

	ct.want[16] = 0x80
	ct.want[arch.SREG] = flags(arch.FlagN, arch.FlagV)
	runTest(t, ct)
}

func TestDEC(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0x80))
	ct.emit(arch.EncodeDEC(16))
	ct.emit(arch.EncodeBREAK())

	ct.want[16] = 0x7f
	ct.want[arch.SREG] = flags(arch.FlagV, arch.FlagS)
	runTest(t, ct)
}

func TestSWAP(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0x12))
	ct.emit(arch.EncodeSWAP(16))
	ct.emit(arch.EncodeBREAK())

	ct.want[16] = 0x21
	runTest(t, ct)
}

func TestLSR(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0x81))
	ct.emit(arch.EncodeLSR(16))
	ct.emit(arch.EncodeBREAK())

	ct.want[16] = 0x40
	ct.want[arch.SREG] = flags(arch.FlagC, arch.FlagV, arch.FlagS)
	runTest(t, ct)
}

func TestASR(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0x81))
	ct.emit(arch.EncodeASR(16))
	ct.emit(arch.EncodeBREAK())

	ct.want[16] = 0xc0
	ct.want[arch.SREG] = flags(arch.FlagC, arch.FlagN, arch.FlagS)
	runTest(t, ct)
}

func TestROR(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeBSET(arch.FlagC))
	ct.emit(arch.EncodeLDI(16, 0x02))
	ct.emit(arch.EncodeROR(16))
	ct.emit(arch.EncodeBREAK())

	ct.want[16] = 0x81
	ct.want[arch.SREG] = flags(arch.FlagN, arch.FlagV)
	runTest(t, ct)
}

func TestADIW(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(24, 0xff))
	ct.emit(arch.EncodeLDI(25, 0xff))
	ct.emit(arch.EncodeADIW(24, 1))
	ct.emit(arch.EncodeBREAK())

	ct.want[24] = 0
	ct.want[25] = 0
	ct.want[arch.SREG] = flags(arch.FlagC, arch.FlagZ)
	runTest(t, ct)
}

func TestSBIW(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeSBIW(arch.X, 1))
	ct.emit(arch.EncodeBREAK())

	ct.want[arch.X] = 0xff
	ct.want[arch.X+1] = 0xff
	ct.want[arch.SREG] = flags(arch.FlagC, arch.FlagN, arch.FlagS)
	runTest(t, ct)
}

func TestMUL(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 200))
	ct.emit(arch.EncodeLDI(17, 3))
	ct.emit(arch.EncodeMUL(16, 17))
	ct.emit(arch.EncodeBREAK())

	ct.want[0] = 0x58
	ct.want[1] = 0x02
	ct.want[arch.SREG] = 0
	runTest(t, ct)
}

func TestMULS(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0xfe))
	ct.emit(arch.EncodeLDI(17, 3))
	ct.emit(arch.EncodeMULS(16, 17))
	ct.emit(arch.EncodeBREAK())

	ct.want[0] = 0xfa
	ct.want[1] = 0xff
	ct.want[arch.SREG] = flags(arch.FlagC)
	runTest(t, ct)
}

func TestPUSHPOP(t *testing.T) {
	//   ldi  r16, 0x42
	//   push r16
	//   pop  r17
	//   break

	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0x42))
	ct.emit(arch.EncodePUSH(16))
	ct.emit(arch.EncodePOP(17))
	ct.emit(arch.EncodeBREAK())

	ct.want[17] = 0x42
	ct.want[arch.RAMEnd] = 0x42
	ct.want[arch.SPL] = 0xff
	ct.want[arch.SPH] = 0x08
	runTest(t, ct)
}

func TestRCALL(t *testing.T) {
	//   rcall sub
	//   ldi r17, 1
	//   break
	// sub:
	//   ldi r16, 5
	//   ret

	ct := newCodeTest()
	ct.emit(arch.EncodeRCALL(2))
	ct.emit(arch.EncodeLDI(17, 1))
	ct.emit(arch.EncodeBREAK())
	ct.emit(arch.EncodeLDI(16, 5))
	ct.emit(arch.EncodeRET())

	ct.want[16] = 5
	ct.want[17] = 1
	ct.want[arch.RAMEnd] = 0x01
	ct.want[arch.RAMEnd-1] = 0x00
	ct.want[arch.SPL] = 0xff
	ct.wantPC = 2
	runTest(t, ct)
}

func TestCALL(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeCALL(4))
	ct.emit(arch.EncodeLDI(17, 1))
	ct.emit(arch.EncodeBREAK())
	ct.emit(arch.EncodeLDI(16, 7))
	ct.emit(arch.EncodeRET())

	ct.want[16] = 7
	ct.want[17] = 1
	ct.want[arch.RAMEnd] = 0x02
	runTest(t, ct)
}

func TestJMP(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeJMP(3))
	ct.emit(arch.EncodeLDI(16, 1))
	ct.emit(arch.EncodeLDI(17, 1))
	ct.emit(arch.EncodeBREAK())

	ct.want[16] = 0
	ct.want[17] = 1
	runTest(t, ct)
}

func TestIJMPICALL(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(30, 5))
	ct.emit(arch.EncodeLDI(31, 0))
	ct.emit(arch.EncodeICALL())
	ct.emit(arch.EncodeBREAK())
	ct.emit(arch.EncodeNOP())
	ct.emit(arch.EncodeLDI(16, 9))
	ct.emit(arch.EncodeRET())

	ct.want[16] = 9
	ct.wantPC = 3
	runTest(t, ct)
}

func TestLDST(t *testing.T) {
	//   X = 0x0100
	//   st X+, r16
	//   st X+, r17
	//   ld r18, -X
	//   lds r19, 0x0100

	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(26, 0x00))
	ct.emit(arch.EncodeLDI(27, 0x01))
	ct.emit(arch.EncodeLDI(16, 0x11))
	ct.emit(arch.EncodeLDI(17, 0x22))
	ct.emit(arch.EncodeST(arch.X, arch.PtrPostInc, 16))
	ct.emit(arch.EncodeST(arch.X, arch.PtrPostInc, 17))
	ct.emit(arch.EncodeLD(18, arch.X, arch.PtrPreDec))
	ct.emit(arch.EncodeLDS(19, 0x0100))
	ct.emit(arch.EncodeBREAK())

	ct.want[0x100] = 0x11
	ct.want[0x101] = 0x22
	ct.want[18] = 0x22
	ct.want[19] = 0x11
	ct.want[arch.X] = 0x01
	ct.want[arch.X+1] = 0x01
	runTest(t, ct)
}

func TestLDDSTD(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(28, 0x00))
	ct.emit(arch.EncodeLDI(29, 0x02))
	ct.emit(arch.EncodeLDI(16, 0x33))
	ct.emit(arch.EncodeSTD(arch.Y, 5, 16))
	ct.emit(arch.EncodeLDD(17, arch.Y, 5))
	ct.emit(arch.EncodeSTS(0x0210, 17))
	ct.emit(arch.EncodeBREAK())

	ct.want[0x205] = 0x33
	ct.want[0x210] = 0x33
	ct.want[17] = 0x33
	ct.want[arch.Y] = 0x00
	runTest(t, ct)
}

func TestLPM(t *testing.T) {
	//   ldi r30, lo(data)
	//   ldi r31, hi(data)
	//   lpm r16, Z+
	//   lpm r17, Z
	//   break
	// data:
	//   .word 0x3412

	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(30, 10))
	ct.emit(arch.EncodeLDI(31, 0))
	ct.emit(arch.EncodeLPM(16, true))
	ct.emit(arch.EncodeLPM(17, false))
	ct.emit(arch.EncodeBREAK())
	ct.emit([]uint16{0x3412})

	ct.want[16] = 0x12
	ct.want[17] = 0x34
	ct.want[30] = 11
	runTest(t, ct)
}

func TestINOUT(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0x55))
	ct.emit(arch.EncodeOUT(arch.PORTB, 16))
	ct.emit(arch.EncodeCBI(arch.PORTB, 0))
	ct.emit(arch.EncodeSBI(arch.PORTB, 1))
	ct.emit(arch.EncodeIN(17, arch.PORTB))
	ct.emit(arch.EncodeBREAK())

	ct.want[arch.PORTB] = 0x56
	ct.want[17] = 0x56
	runTest(t, ct)
}

func TestSPWrite(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0x00))
	ct.emit(arch.EncodeOUT(arch.SPL, 16))
	ct.emit(arch.EncodeLDI(16, 0x04))
	ct.emit(arch.EncodeOUT(arch.SPH, 16))
	ct.emit(arch.EncodePUSH(16))
	ct.emit(arch.EncodeBREAK())

	ct.want[0x400] = 0x04
	ct.want[arch.SPL] = 0xff
	ct.want[arch.SPH] = 0x03
	runTest(t, ct)
}

func TestCPSESkipsTwoWords(t *testing.T) {
	//   cpse r16, r17
	//   jmp  0x100
	//   ldi  r18, 1
	//   break

	ct := newCodeTest()
	ct.emit(arch.EncodeCPSE(16, 17))
	ct.emit(arch.EncodeJMP(0x100))
	ct.emit(arch.EncodeLDI(18, 1))
	ct.emit(arch.EncodeBREAK())

	ct.want[18] = 1
	ct.wantCycles = 3 + 1
	runTest(t, ct)
}

func TestSBRSSBRC(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0x04))
	ct.emit(arch.EncodeSBRS(16, 2))
	ct.emit(arch.EncodeLDI(17, 1))
	ct.emit(arch.EncodeSBRC(16, 2))
	ct.emit(arch.EncodeLDI(18, 1))
	ct.emit(arch.EncodeBREAK())

	ct.want[17] = 0
	ct.want[18] = 1
	runTest(t, ct)
}

func TestSBICSBIS(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeSBI(arch.PORTD, 3))
	ct.emit(arch.EncodeSBIS(arch.PORTD, 3))
	ct.emit(arch.EncodeLDI(17, 1))
	ct.emit(arch.EncodeSBIC(arch.PORTD, 3))
	ct.emit(arch.EncodeLDI(18, 1))
	ct.emit(arch.EncodeBREAK())

	ct.want[17] = 0
	ct.want[18] = 1
	runTest(t, ct)
}

func TestBSTBLD(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0x04))
	ct.emit(arch.EncodeBST(16, 2))
	ct.emit(arch.EncodeBLD(17, 7))
	ct.emit(arch.EncodeBREAK())

	ct.want[17] = 0x80
	ct.want[arch.SREG] = flags(arch.FlagT)
	runTest(t, ct)
}

func TestLoopCycles(t *testing.T) {
	//   ldi r16, 3
	// loop:
	//   dec r16
	//   brne loop
	//   break

	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 3))
	ct.emit(arch.EncodeDEC(16))
	ct.emit(arch.EncodeBRBC(arch.FlagZ, -2))
	ct.emit(arch.EncodeBREAK())

	ct.want[16] = 0
	ct.wantCycles = 1 + 3 + 2*2 + 1
	runTest(t, ct)
}

func TestStackOverflow(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0xff))
	ct.emit(arch.EncodeOUT(arch.SPL, 16))
	ct.emit(arch.EncodeLDI(16, 0x00))
	ct.emit(arch.EncodeOUT(arch.SPH, 16))
	ct.emit(arch.EncodePUSH(16))
	ct.emit(arch.EncodeBREAK())

	c := newTestCPU(ct.code)
	f := runUntilFault(t, c)
	assert.Equal(t, StackOverflow, f.Reason)
	assert.Equal(t, uint16(8), f.Address)
	assert.Equal(t, uint16(4), c.Registers().PC)
	assert.Equal(t, uint16(0x00ff), c.Registers().SP)
}

func TestStackUnderflow(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodePOP(16))

	c := newTestCPU(ct.code)
	f := runUntilFault(t, c)
	assert.Equal(t, StackUnderflow, f.Reason)
	assert.Equal(t, uint16(arch.RAMEnd), c.Registers().SP)
}

func TestReturnUnderflow(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeRET())

	c := newTestCPU(ct.code)
	f := runUntilFault(t, c)
	assert.Equal(t, StackUnderflow, f.Reason)
	assert.Equal(t, uint16(0), c.Registers().PC)
}

func TestUnknownOpcode(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeNOP())
	ct.emit([]uint16{0xffff})

	c := newTestCPU(ct.code)
	f := runUntilFault(t, c)
	assert.Equal(t, UnknownOpcode, f.Reason)
	assert.Equal(t, uint16(2), f.Address)
	assert.Equal(t, "0002: unknown opcode ffff", f.Error())
}

func TestFetchOutOfBounds(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeNOP())

	c := newTestCPU(ct.code)
	f := runUntilFault(t, c)
	assert.Equal(t, FetchOutOfBounds, f.Reason)
	assert.Equal(t, uint16(1), c.Registers().PC)
}

func TestFaultConsumesNoCycles(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeBREAK())

	dev := &testDevice{}
	c := newTestCPU(ct.code)
	require.NoError(t, c.Connect(dev))

	n, err := c.Step()
	assert.Equal(t, 0, n)
	assert.Error(t, err)
	assert.Equal(t, 0, dev.cycles)
	assert.Equal(t, uint16(0), c.Registers().PC)
}

func TestInterrupt(t *testing.T) {
	// 0x00: jmp main
	// 0x02: ldi r20, 0x99   ; vector 1
	// 0x03: reti
	// 0x10: main: sei
	// 0x11: nop
	// 0x12: break

	ct := newCodeTest()
	ct.emit(arch.EncodeJMP(0x10))
	ct.emit(arch.EncodeLDI(20, 0x99))
	ct.emit(arch.EncodeRETI())
	for len(ct.code) < 0x20 {
		ct.emit(arch.EncodeNOP())
	}
	ct.emit(arch.EncodeSEI())
	ct.emit(arch.EncodeNOP())
	ct.emit(arch.EncodeBREAK())

	var trail []uint16
	c := New(func(i *Instruction) { trail = append(trail, i.Addr) })
	dev := &testDevice{pending: true, vector: 1}
	require.NoError(t, c.Connect(dev))
	c.Load(ct.code)

	f := runUntilFault(t, c)
	assert.Equal(t, Breakpoint, f.Reason)
	assert.Equal(t, []uint16{0x00, 0x10, 0x11, 0x02, 0x03, 0x12}, trail)
	assert.Equal(t, byte(0x99), c.Memory().U8(20))
	assert.Equal(t, 1, dev.acked)
	assert.True(t, c.Registers().SREG&(1<<arch.FlagI) != 0)
	assert.Equal(t, uint16(arch.RAMEnd), c.Registers().SP)
}

func TestInterruptsDisabled(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeNOP())
	ct.emit(arch.EncodeBREAK())

	dev := &testDevice{pending: true, vector: 1}
	c := newTestCPU(ct.code)
	require.NoError(t, c.Connect(dev))

	runUntilFault(t, c)
	assert.Equal(t, 0, dev.acked)
}

func TestDeviceRegisters(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 0x77))
	ct.emit(arch.EncodeSTS(0xc6, 16))
	ct.emit(arch.EncodeLDS(17, 0xc6))
	ct.emit(arch.EncodeBREAK())

	dev := &testDevice{}
	c := newTestCPU(ct.code)
	require.NoError(t, c.Connect(dev))

	runUntilFault(t, c)
	assert.Equal(t, byte(0x77), dev.reg)
	assert.Equal(t, byte(0x77), c.Memory().U8(17))
	assert.Equal(t, 1+2+2, dev.cycles)
}

func TestConnectConflict(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Connect(&testDevice{}))
	assert.Error(t, c.Connect(&testDevice{}))
}

func TestReset(t *testing.T) {
	ct := newCodeTest()
	ct.emit(arch.EncodeLDI(16, 1))
	ct.emit(arch.EncodePUSH(16))
	ct.emit(arch.EncodeBREAK())

	c := newTestCPU(ct.code)
	runUntilFault(t, c)
	c.Reset()

	regs := c.Registers()
	assert.Equal(t, Registers{SP: arch.RAMEnd}, regs)
	assert.Equal(t, byte(0), c.Memory().U8(arch.RAMEnd))
	assert.Equal(t, len(ct.code), c.Memory().FlashSize())
}

func TestDisassemble(t *testing.T) {
	tests := []struct {
		code []uint16
		want string
	}{
		{arch.EncodeNOP(), "nop"},
		{arch.EncodeLDI(16, 0x2a), "ldi r16, 0x2a"},
		{arch.EncodeADD(1, 2), "add r1, r2"},
		{arch.EncodeMOVW(24, 30), "movw r25:r24, r31:r30"},
		{arch.EncodeST(arch.X, arch.PtrPostInc, 5), "st X+, r5"},
		{arch.EncodeLD(5, arch.Z, arch.PtrPreDec), "ld r5, -Z"},
		{arch.EncodeLDD(3, arch.Y, 4), "ldd r3, Y+4"},
		{arch.EncodeLD(3, arch.Y, arch.PtrDirect), "ld r3, Y"},
		{arch.EncodeLDS(2, 0x0123), "lds r2, 0x0123"},
		{arch.EncodeLPM(0, true), "lpm r0, Z+"},
		{arch.EncodeOUT(arch.PORTB, 16), "out PORTB, r16"},
		{arch.EncodeSBI(arch.DDRB, 1), "sbi DDRB, 1"},
		{arch.EncodeSEI(), "sei"},
		{arch.EncodeBCLR(arch.FlagT), "clt"},
		{arch.EncodeBRBC(arch.FlagZ, -2), "brne .-4"},
		{arch.EncodeRJMP(3), "rjmp .+6"},
		{arch.EncodeJMP(0x34), "jmp 0x0068"},
		{arch.EncodeADIW(24, 1), "adiw r24, 0x01"},
		{[]uint16{0xffff}, ".word 0xffff"},
	}

	for _, tt := range tests {
		var m Memory
		m.flash = arch.Program(tt.code)

		var instr Instruction
		instr.Decode(&m, 0)
		assert.Equal(t, tt.want, instr.String())
	}
}

// flags returns an SREG value with the given bits set.
func flags(bits ...int) int {
	var v int
	for _, b := range bits {
		v |= 1 << uint(b)
	}
	return v
}

type codeTest struct {
	code       []byte
	want       map[int]int // Expected data space contents.
	wantPC     int         // Expected PC of the final break, or -1.
	wantCycles int         // Expected cycle count, or -1.
}

func newCodeTest() *codeTest {
	return &codeTest{
		want:       make(map[int]int),
		wantPC:     -1,
		wantCycles: -1,
	}
}

func (ct *codeTest) emit(words []uint16) {
	ct.code = append(ct.code, arch.Program(words)...)
}

func newTestCPU(code []byte) *CPU {
	c := New(nil)
	c.Load(code)
	return c
}

// runUntilFault steps c until it faults and returns the fault.
func runUntilFault(t *testing.T, c *CPU) *Fault {
	for n := 0; n < 10000; n++ {
		if _, err := c.Step(); err != nil {
			f, ok := err.(*Fault)
			require.True(t, ok, "unexpected error type %T", err)
			return f
		}
	}
	t.Fatalf("program did not halt")
	return nil
}

func runTest(t *testing.T, ct *codeTest) {
	c := newTestCPU(ct.code)

	var cycles int
	for n := 0; ; n++ {
		require.Less(t, n, 10000, "program did not halt")

		steps, err := c.Step()
		if err != nil {
			f, ok := err.(*Fault)
			require.True(t, ok, "unexpected error type %T", err)
			require.Equal(t, Breakpoint, f.Reason, f.Error())
			break
		}
		cycles += steps
	}

	mem := c.Memory()
	for addr, want := range ct.want {
		assert.Equal(t, want, int(mem.U8(addr)), "data at %#04x", addr)
	}

	if ct.wantPC > -1 {
		assert.Equal(t, ct.wantPC, int(c.Registers().PC), "pc")
	}

	if ct.wantCycles > -1 {
		assert.Equal(t, ct.wantCycles, cycles, "cycles")
	}
}

// testDevice owns UDR0 and raises a fixed interrupt vector.
type testDevice struct {
	reg     byte
	cycles  int
	pending bool
	vector  int
	acked   int
}

func (d *testDevice) Name() string        { return "test" }
func (d *testDevice) Registers() []int    { return []int{0xc6} }
func (d *testDevice) Reset()              { d.reg = 0 }
func (d *testDevice) Read(int) byte       { return d.reg }
func (d *testDevice) Write(_ int, v byte) { d.reg = v }
func (d *testDevice) Advance(n int)       { d.cycles += n }

func (d *testDevice) Pending() (int, bool) {
	return d.vector, d.pending
}

func (d *testDevice) Acknowledge(vector int) {
	if vector == d.vector {
		d.pending = false
		d.acked++
	}
}
