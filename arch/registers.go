package arch

import (
	"fmt"
	"strconv"
)

// RegisterName returns the name associated with the given register index.
// Returns "" if the index is not recognized.
func RegisterName(n int) string {
	if n < 0 || n >= NumRegisters {
		return ""
	}
	return "r" + strconv.Itoa(n)
}

// PointerName returns the name of the pointer pair starting at register n.
func PointerName(n int) string {
	switch n {
	case X:
		return "X"
	case Y:
		return "Y"
	case Z:
		return "Z"
	}
	return ""
}

var ioNames = map[int]string{
	PINB: "PINB", DDRB: "DDRB", PORTB: "PORTB",
	PINC: "PINC", DDRC: "DDRC", PORTC: "PORTC",
	PIND: "PIND", DDRD: "DDRD", PORTD: "PORTD",
	TIFR0: "TIFR0", TIFR1: "TIFR1", TIFR2: "TIFR2",
	TCCR0A: "TCCR0A", TCCR0B: "TCCR0B", TCNT0: "TCNT0", OCR0A: "OCR0A", OCR0B: "OCR0B",
	SPL: "SPL", SPH: "SPH", SREG: "SREG",
	TIMSK0: "TIMSK0", TIMSK1: "TIMSK1", TIMSK2: "TIMSK2",
	TCCR1A: "TCCR1A", TCCR1B: "TCCR1B", TCCR1C: "TCCR1C",
	TCNT1L: "TCNT1L", TCNT1H: "TCNT1H", ICR1L: "ICR1L", ICR1H: "ICR1H",
	OCR1AL: "OCR1AL", OCR1AH: "OCR1AH", OCR1BL: "OCR1BL", OCR1BH: "OCR1BH",
	TCCR2A: "TCCR2A", TCCR2B: "TCCR2B", TCNT2: "TCNT2", OCR2A: "OCR2A", OCR2B: "OCR2B",
	UCSR0A: "UCSR0A", UCSR0B: "UCSR0B", UCSR0C: "UCSR0C",
	UBRR0L: "UBRR0L", UBRR0H: "UBRR0H", UDR0: "UDR0",
}

// IOName returns the symbolic name of the I/O register at the given data
// space address, or its hex address if it has none.
func IOName(addr int) string {
	if name, ok := ioNames[addr]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", addr)
}
