package timer

import "github.com/hexaflex/avrsim/arch"

// Config describes the register layout and wiring of one timer/counter.
type Config struct {
	Name  string
	Wide  bool // 16-bit counter with TEMP-buffered register access.
	TCCRA int
	TCCRB int
	TCNT  int // Low byte address for 16-bit timers.
	OCRA  int
	OCRB  int
	ICR   int // 0 if the timer has no input capture register.
	TIMSK int
	TIFR  int

	PinA int // Compare output A pin.
	PinB int // Compare output B pin.

	// Prescalers maps the clock select bits to a clock divider.
	// Zero means the timer is stopped.
	Prescalers [8]int

	VectorCompA int
	VectorCompB int
	VectorOvf   int
}

// Standard timers of the ATmega328P.
var (
	Timer0 = Config{
		Name:        "timer0",
		TCCRA:       arch.TCCR0A,
		TCCRB:       arch.TCCR0B,
		TCNT:        arch.TCNT0,
		OCRA:        arch.OCR0A,
		OCRB:        arch.OCR0B,
		TIMSK:       arch.TIMSK0,
		TIFR:        arch.TIFR0,
		PinA:        arch.PinOC0A,
		PinB:        arch.PinOC0B,
		Prescalers:  [8]int{0, 1, 8, 64, 256, 1024, 0, 0},
		VectorCompA: arch.VectorTimer0CompA,
		VectorCompB: arch.VectorTimer0CompB,
		VectorOvf:   arch.VectorTimer0Ovf,
	}

	Timer1 = Config{
		Name:        "timer1",
		Wide:        true,
		TCCRA:       arch.TCCR1A,
		TCCRB:       arch.TCCR1B,
		TCNT:        arch.TCNT1L,
		OCRA:        arch.OCR1AL,
		OCRB:        arch.OCR1BL,
		ICR:         arch.ICR1L,
		TIMSK:       arch.TIMSK1,
		TIFR:        arch.TIFR1,
		PinA:        arch.PinOC1A,
		PinB:        arch.PinOC1B,
		Prescalers:  [8]int{0, 1, 8, 64, 256, 1024, 0, 0},
		VectorCompA: arch.VectorTimer1CompA,
		VectorCompB: arch.VectorTimer1CompB,
		VectorOvf:   arch.VectorTimer1Ovf,
	}

	Timer2 = Config{
		Name:        "timer2",
		TCCRA:       arch.TCCR2A,
		TCCRB:       arch.TCCR2B,
		TCNT:        arch.TCNT2,
		OCRA:        arch.OCR2A,
		OCRB:        arch.OCR2B,
		TIMSK:       arch.TIMSK2,
		TIFR:        arch.TIFR2,
		PinA:        arch.PinOC2A,
		PinB:        arch.PinOC2B,
		Prescalers:  [8]int{0, 1, 8, 32, 64, 128, 256, 1024},
		VectorCompA: arch.VectorTimer2CompA,
		VectorCompB: arch.VectorTimer2CompB,
		VectorOvf:   arch.VectorTimer2Ovf,
	}
)

// maxCount returns the largest counter value.
func (c *Config) maxCount() int {
	if c.Wide {
		return 0xffff
	}
	return 0xff
}

// registers returns every data space address the timer owns.
func (c *Config) registers() []int {
	regs := []int{c.TCCRA, c.TCCRB, c.TCNT, c.OCRA, c.OCRB, c.TIMSK, c.TIFR}
	if c.Wide {
		regs = append(regs, c.TCCRB+1, c.TCNT+1, c.OCRA+1, c.OCRB+1)
		if c.ICR != 0 {
			regs = append(regs, c.ICR, c.ICR+1)
		}
	}
	return regs
}
