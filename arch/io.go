package arch

// Memory layout of the ATmega328P.
const (
	FlashSize    = 0x8000 // Program memory capacity in bytes.
	NumRegisters = 32     // General purpose registers r0..r31.
	IOStart      = 0x20   // First data space address of the I/O window.
	RAMStart     = 0x0100 // First SRAM address; end of the I/O window.
	RAMEnd       = 0x08ff // Last SRAM address; initial stack pointer.
	DataSize     = RAMEnd + 1
)

// Pointer register pairs, identified by the index of their low byte.
const (
	X = 26
	Y = 28
	Z = 30
)

// Status register bits.
const (
	FlagC = iota // Carry.
	FlagZ        // Zero.
	FlagN        // Negative.
	FlagV        // Two's complement overflow.
	FlagS        // Sign, N xor V.
	FlagH        // Half carry.
	FlagT        // Bit copy storage.
	FlagI        // Global interrupt enable.
)

// I/O registers, as data space addresses.
// IN, OUT, SBI and friends use the address minus IOStart.
const (
	PINB  = 0x23
	DDRB  = 0x24
	PORTB = 0x25
	PINC  = 0x26
	DDRC  = 0x27
	PORTC = 0x28
	PIND  = 0x29
	DDRD  = 0x2a
	PORTD = 0x2b

	TIFR0 = 0x35
	TIFR1 = 0x36
	TIFR2 = 0x37

	TCCR0A = 0x44
	TCCR0B = 0x45
	TCNT0  = 0x46
	OCR0A  = 0x47
	OCR0B  = 0x48

	SPL  = 0x5d
	SPH  = 0x5e
	SREG = 0x5f

	TIMSK0 = 0x6e
	TIMSK1 = 0x6f
	TIMSK2 = 0x70

	TCCR1A = 0x80
	TCCR1B = 0x81
	TCCR1C = 0x82
	TCNT1L = 0x84
	TCNT1H = 0x85
	ICR1L  = 0x86
	ICR1H  = 0x87
	OCR1AL = 0x88
	OCR1AH = 0x89
	OCR1BL = 0x8a
	OCR1BH = 0x8b

	TCCR2A = 0xb0
	TCCR2B = 0xb1
	TCNT2  = 0xb2
	OCR2A  = 0xb3
	OCR2B  = 0xb4

	UCSR0A = 0xc0
	UCSR0B = 0xc1
	UCSR0C = 0xc2
	UBRR0L = 0xc4
	UBRR0H = 0xc5
	UDR0   = 0xc6
)

// Interrupt vector numbers. The handler for vector n lives at word
// address VectorAddress(n).
const (
	VectorReset       = 0
	VectorTimer2CompA = 7
	VectorTimer2CompB = 8
	VectorTimer2Ovf   = 9
	VectorTimer1CompA = 11
	VectorTimer1CompB = 12
	VectorTimer1Ovf   = 13
	VectorTimer0CompA = 14
	VectorTimer0CompB = 15
	VectorTimer0Ovf   = 16
	VectorUSARTRx     = 18
	VectorUSARTUDRE   = 19
	VectorUSARTTx     = 20
)

// VectorAddress returns the word address of the given interrupt vector.
// Each vector slot holds a two-word JMP.
func VectorAddress(vector int) uint16 {
	return uint16(vector * 2)
}
