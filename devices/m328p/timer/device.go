// Package timer implements the timer/counter peripherals of the ATmega328P,
// including compare output generation on their PWM pins.
package timer

import (
	"github.com/hexaflex/avrsim/devices"
)

// Interrupt flag and mask bits, shared by TIFRn and TIMSKn.
const (
	flagTOV  = 1 << 0
	flagOCFA = 1 << 1
	flagOCFB = 1 << 2
	flagMask = flagTOV | flagOCFA | flagOCFB
)

// Force output compare strobes in TCCRnB, or TCCR1C for the 16-bit timer.
const (
	focA = 1 << 7
	focB = 1 << 6
)

type mode int

const (
	modeNormal mode = iota
	modeCTC
	modeFastPWM
)

type topSource int

const (
	topFixed topSource = iota
	topOCRA
	topICR
)

// PulseFunc receives a completed pulse on a compare output pin: the time it
// spent high and the low time that preceded it, both in CPU cycles.
type PulseFunc func(pin int, high, low uint64)

// output tracks the level and edge timing of one compare output.
type output struct {
	pin      int
	level    bool
	rose     bool   // Has a rising edge been seen?
	fell     bool   // Has a falling edge been seen?
	riseAt   uint64 // Cycle count of the last rising edge.
	fallAt   uint64 // Cycle count of the last falling edge.
	high     uint64 // Last measured high time.
	low      uint64 // Low time preceding the last pulse.
	measured bool
}

// Device defines all internal doodads for a timer/counter.
type Device struct {
	cfg     Config
	onPulse PulseFunc

	tccra, tccrb, tccrc byte
	timsk, tifr         byte
	temp                byte // TEMP register for 16-bit access.

	tcnt   int
	ocr    [2]int // Active compare values.
	ocrBuf [2]int // Compare values as written by the CPU.
	icr    int

	mode     mode
	top      topSource
	topFixed int

	sub        int    // Cycles since the last timer clock.
	now        uint64 // Cycles since reset.
	blockMatch bool   // Suppress compare match on the next timer clock.

	out [2]output
}

var _ devices.Device = &Device{}
var _ devices.BitWriter = &Device{}
var _ devices.Interrupter = &Device{}

// New creates a timer with the given layout. onPulse is optional and is
// called for every falling edge on a compare output.
func New(cfg Config, onPulse PulseFunc) *Device {
	if onPulse == nil {
		onPulse = func(int, uint64, uint64) { /* nop */ }
	}

	d := &Device{cfg: cfg, onPulse: onPulse}
	d.Reset()
	return d
}

func (d *Device) Name() string {
	return d.cfg.Name
}

func (d *Device) Registers() []int {
	return d.cfg.registers()
}

func (d *Device) Reset() {
	*d = Device{cfg: d.cfg, onPulse: d.onPulse}
	d.out[0].pin = d.cfg.PinA
	d.out[1].pin = d.cfg.PinB
	d.updateMode()
}

// Pins returns the compare output pins, A first.
func (d *Device) Pins() []int {
	return []int{d.cfg.PinA, d.cfg.PinB}
}

// Output returns the level of the given pin and whether the timer currently
// drives it.
func (d *Device) Output(pin int) (level, driven bool) {
	for ch := range d.out {
		if d.out[ch].pin == pin && d.connected(ch) {
			return d.out[ch].level, true
		}
	}
	return false, false
}

// Pulse returns the last pulse measured on the given pin, in CPU cycles.
func (d *Device) Pulse(pin int) (high, low uint64, ok bool) {
	for ch := range d.out {
		o := &d.out[ch]
		if o.pin == pin && o.measured {
			return o.high, o.low, true
		}
	}
	return 0, 0, false
}

func (d *Device) Read(addr int) byte {
	c := &d.cfg

	switch addr {
	case c.TCCRA:
		return d.tccra
	case c.TCCRB:
		return d.tccrb
	case c.TIMSK:
		return d.timsk
	case c.TIFR:
		return d.tifr
	case c.TCNT:
		return d.readWide(d.tcnt)
	case c.OCRA:
		return d.readWide(d.ocrBuf[0])
	case c.OCRB:
		return d.readWide(d.ocrBuf[1])
	}

	if !c.Wide {
		return 0
	}

	switch addr {
	case c.TCCRB + 1:
		return d.tccrc
	case c.TCNT + 1:
		return d.temp
	case c.OCRA + 1:
		return byte(d.ocrBuf[0] >> 8)
	case c.OCRB + 1:
		return byte(d.ocrBuf[1] >> 8)
	}

	if c.ICR != 0 {
		switch addr {
		case c.ICR:
			return d.readWide(d.icr)
		case c.ICR + 1:
			return d.temp
		}
	}
	return 0
}

// readWide returns the low byte of v and latches the high byte into TEMP.
func (d *Device) readWide(v int) byte {
	d.temp = byte(v >> 8)
	return byte(v)
}

func (d *Device) Write(addr int, v byte) {
	c := &d.cfg

	switch addr {
	case c.TCCRA:
		d.tccra = v &^ 0x0c
		d.updateMode()
		return
	case c.TCCRB:
		if !c.Wide {
			d.force(v)
			v &^= focA | focB
		}
		d.tccrb = v
		d.updateMode()
		return
	case c.TIMSK:
		d.timsk = v & flagMask
		return
	case c.TIFR:
		d.tifr &^= v & flagMask
		return
	case c.TCNT:
		d.tcnt = d.writeWide(v)
		d.blockMatch = true
		return
	case c.OCRA:
		d.setOCR(0, d.writeWide(v))
		return
	case c.OCRB:
		d.setOCR(1, d.writeWide(v))
		return
	}

	if !c.Wide {
		return
	}

	switch addr {
	case c.TCCRB + 1:
		d.force(v)
	case c.TCNT + 1, c.OCRA + 1, c.OCRB + 1, c.ICR + 1:
		d.temp = v
	case c.ICR:
		if c.ICR != 0 {
			d.icr = d.writeWide(v)
		}
	}
}

// writeWide combines v with TEMP for 16-bit timers.
func (d *Device) writeWide(v byte) int {
	if d.cfg.Wide {
		return int(d.temp)<<8 | int(v)
	}
	return int(v)
}

// WriteBit implements SBI and CBI. Interrupt flags are cleared by writing a
// one to them, so only the addressed flag is affected.
func (d *Device) WriteBit(addr, bit int, v bool) {
	if addr == d.cfg.TIFR {
		if v {
			d.tifr &^= 1 << uint(bit)
		}
		return
	}

	b := d.Read(addr)
	if v {
		b |= 1 << uint(bit)
	} else {
		b &^= 1 << uint(bit)
	}
	d.Write(addr, b)
}

// Pending returns the lowest enabled interrupt with its flag set.
func (d *Device) Pending() (int, bool) {
	f := d.tifr & d.timsk
	switch {
	case f&flagOCFA != 0:
		return d.cfg.VectorCompA, true
	case f&flagOCFB != 0:
		return d.cfg.VectorCompB, true
	case f&flagTOV != 0:
		return d.cfg.VectorOvf, true
	}
	return 0, false
}

// Acknowledge clears the flag of a serviced interrupt.
func (d *Device) Acknowledge(vector int) {
	switch vector {
	case d.cfg.VectorCompA:
		d.tifr &^= flagOCFA
	case d.cfg.VectorCompB:
		d.tifr &^= flagOCFB
	case d.cfg.VectorOvf:
		d.tifr &^= flagTOV
	}
}

// Advance runs the prescaler and counter for the given number of cycles.
func (d *Device) Advance(cycles int) {
	div := d.cfg.Prescalers[d.tccrb&7]
	if div == 0 {
		d.now += uint64(cycles)
		return
	}

	for cycles > 0 {
		need := div - d.sub
		if cycles < need {
			d.sub += cycles
			d.now += uint64(cycles)
			return
		}

		cycles -= need
		d.now += uint64(need)
		d.sub = 0
		d.tick()
	}
}

// tick performs one timer clock. Compare matches are evaluated against the
// count before it moves; the bottom of a PWM cycle is handled afterwards so
// a compare value equal to TOP yields a constant output.
func (d *Device) tick() {
	old := d.tcnt
	top := d.topValue()
	level := [2]bool{d.out[0].level, d.out[1].level}

	if d.blockMatch {
		d.blockMatch = false
	} else {
		for ch := range d.out {
			if old == d.ocr[ch] {
				d.tifr |= flagOCFA << uint(ch)
				level[ch] = d.matchLevel(ch, level[ch])
			}
		}
	}

	switch {
	case old == top:
		d.tcnt = 0
		if d.mode == modeFastPWM || top == d.cfg.maxCount() {
			d.tifr |= flagTOV
		}
		d.bottom(&level)
	case old >= d.cfg.maxCount():
		d.tcnt = 0
		d.tifr |= flagTOV
		d.bottom(&level)
	default:
		d.tcnt++
	}

	for ch := range d.out {
		d.setLevel(ch, level[ch])
	}
}

// bottom updates double buffered compare values and sets PWM outputs.
func (d *Device) bottom(level *[2]bool) {
	if d.mode != modeFastPWM {
		return
	}

	d.ocr = d.ocrBuf
	for ch := range level {
		switch d.com(ch) {
		case 2:
			level[ch] = true
		case 3:
			level[ch] = false
		}
	}
}

// matchLevel returns the output level after a compare match on channel ch.
func (d *Device) matchLevel(ch int, level bool) bool {
	switch d.com(ch) {
	case 1:
		if d.mode != modeFastPWM || (ch == 0 && d.top == topOCRA) {
			return !level
		}
	case 2:
		return false
	case 3:
		return true
	}
	return level
}

// force applies the FOC strobes in v. They only act in non-PWM modes.
func (d *Device) force(v byte) {
	if d.mode == modeFastPWM {
		return
	}

	for ch, bit := range [2]byte{focA, focB} {
		if v&bit != 0 {
			d.setLevel(ch, d.matchLevel(ch, d.out[ch].level))
		}
	}
}

// setLevel changes the level of a compare output and records edge timing.
func (d *Device) setLevel(ch int, v bool) {
	o := &d.out[ch]
	if o.level == v {
		return
	}
	o.level = v

	if v {
		o.riseAt, o.rose = d.now, true
		return
	}

	if o.rose {
		o.high = d.now - o.riseAt
		o.low = 0
		if o.fell {
			o.low = o.riseAt - o.fallAt
		}
		o.measured = true
		d.onPulse(o.pin, o.high, o.low)
	}
	o.fallAt, o.fell = d.now, true
}

// com returns the compare output mode of channel ch.
func (d *Device) com(ch int) int {
	return int(d.tccra>>uint(6-2*ch)) & 3
}

// connected reports whether channel ch drives its pin.
func (d *Device) connected(ch int) bool {
	switch d.com(ch) {
	case 0:
		return false
	case 1:
		return d.mode != modeFastPWM || (ch == 0 && d.top == topOCRA)
	}
	return true
}

func (d *Device) setOCR(ch, v int) {
	d.ocrBuf[ch] = v
	if d.mode != modeFastPWM {
		d.ocr[ch] = v
	}
}

func (d *Device) topValue() int {
	switch d.top {
	case topOCRA:
		return d.ocr[0]
	case topICR:
		return d.icr
	}
	return d.topFixed
}

// updateMode decodes the waveform generation bits. Phase correct modes are
// not supported and run as normal mode.
func (d *Device) updateMode() {
	wgm := int(d.tccra&3) | int(d.tccrb>>1)&0x0c
	d.mode, d.top, d.topFixed = modeNormal, topFixed, d.cfg.maxCount()

	if d.cfg.Wide {
		switch wgm {
		case 4:
			d.mode, d.top = modeCTC, topOCRA
		case 5:
			d.mode, d.topFixed = modeFastPWM, 0xff
		case 6:
			d.mode, d.topFixed = modeFastPWM, 0x1ff
		case 7:
			d.mode, d.topFixed = modeFastPWM, 0x3ff
		case 12:
			d.mode, d.top = modeCTC, topICR
		case 14:
			d.mode, d.top = modeFastPWM, topICR
		case 15:
			d.mode, d.top = modeFastPWM, topOCRA
		}
	} else {
		switch wgm & 7 {
		case 2:
			d.mode, d.top = modeCTC, topOCRA
		case 3:
			d.mode = modeFastPWM
		case 7:
			d.mode, d.top = modeFastPWM, topOCRA
		}
	}

	if d.mode != modeFastPWM {
		d.ocr = d.ocrBuf
	}
}
