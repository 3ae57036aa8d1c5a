// Package emulator runs ATmega328P firmware against wall-clock time and
// reports what it does to the outside world: serial output, servo angles
// and pin levels.
//
// An Emulator is not safe for concurrent use. All methods, including the
// observer callbacks they trigger, run on the caller's goroutine.
package emulator

import (
	"log"
	"time"

	"github.com/pkg/errors"

	"github.com/hexaflex/avrsim/arch"
	"github.com/hexaflex/avrsim/devices"
	"github.com/hexaflex/avrsim/devices/m328p/cpu"
	"github.com/hexaflex/avrsim/devices/m328p/gpio"
	"github.com/hexaflex/avrsim/devices/m328p/timer"
	"github.com/hexaflex/avrsim/devices/m328p/usart"
	"github.com/hexaflex/avrsim/ihex"
	"github.com/hexaflex/avrsim/servo"
)

// ErrNoProgram is returned by Step when no firmware is loaded.
var ErrNoProgram = errors.New("no program loaded")

// ErrRunning is returned by Step while the scheduler is running.
var ErrRunning = errors.New("emulator is running")

// Emulator defines a single microcontroller and its scheduler.
type Emulator struct {
	config Config
	cpu    *cpu.CPU
	timers []*timer.Device
	ports  []*gpio.Device
	usart  *usart.Device
	servos *servo.Bank

	loaded  bool  // Is there a valid program loaded?
	loadErr error // Reason the last load was rejected.

	status    Status
	fault     *cpu.Fault
	cycles    uint64 // Cycles executed since the last reset.
	remainder int64  // Fraction of a cycle carried between ticks, in cycles*1e9.
	debt      int64  // Cycles executed beyond the last tick's budget.
	resets    uint64 // Bumped whenever scheduler state is cleared.
	serial    []byte

	observers observers
}

// New creates an emulator with empty program memory.
func New(config Config) (*Emulator, error) {
	if err := config.validate(); err != nil {
		return nil, errors.Wrap(err, "emulator")
	}

	e := &Emulator{
		config: config,
		cpu:    cpu.New(config.Trace),
		servos: servo.NewBank(),
	}

	e.usart = usart.New(e.transmit)
	for _, cfg := range []timer.Config{timer.Timer0, timer.Timer1, timer.Timer2} {
		e.timers = append(e.timers, timer.New(cfg, e.pulse))
	}
	for _, cfg := range []gpio.Config{gpio.PortB, gpio.PortC, gpio.PortD} {
		e.ports = append(e.ports, gpio.New(cfg))
	}

	var errs devices.ErrorSet
	for _, dev := range e.peripherals() {
		if err := e.cpu.Connect(dev); err != nil {
			errs.Append(err)
		}
	}

	if errs.Len() > 0 {
		return nil, errors.Wrap(errs, "emulator")
	}
	return e, nil
}

func (e *Emulator) peripherals() []devices.Device {
	list := []devices.Device{e.usart}
	for _, t := range e.timers {
		list = append(list, t)
	}
	for _, p := range e.ports {
		list = append(list, p)
	}
	return list
}

// LoadHex parses Intel HEX firmware and, if it is valid, replaces program
// memory with it and resets the machine. A rejected image leaves all state
// untouched; LoadError tells why it was rejected.
func (e *Emulator) LoadHex(text string) bool {
	img, err := ihex.Parse(text, arch.FlashSize)
	if err != nil {
		e.loadErr = errors.Wrap(err, "load rejected")
		log.Println("emulator", e.loadErr)
		return false
	}

	log.Println("emulator", "loaded", img.Len(), "bytes")
	e.loadErr = nil
	e.loaded = true
	e.cpu.Load(img.Bytes())
	e.clear()
	return true
}

// LoadError returns the reason the most recent LoadHex call failed, or nil
// if it succeeded.
func (e *Emulator) LoadError() error {
	return e.loadErr
}

// Start begins execution. It has no effect while running, after a fault or
// when no program is loaded.
func (e *Emulator) Start() {
	if e.status != Stopped || !e.loaded {
		return
	}

	log.Println("emulator", "start")
	e.status = Running
}

// Stop pauses execution. Machine state is kept for inspection.
func (e *Emulator) Stop() {
	if e.status != Running {
		return
	}

	log.Println("emulator", "stop")
	e.status = Stopped
	e.remainder = 0
	e.debt = 0
}

// Reset restores power-on defaults, keeping the loaded program. It clears
// faults and always leaves the emulator stopped.
func (e *Emulator) Reset() {
	e.cpu.Reset()
	e.clear()
}

// clear resets scheduler and observation state; the CPU has already been
// reset by the caller.
func (e *Emulator) clear() {
	e.resets++
	e.status = Stopped
	e.fault = nil
	e.cycles = 0
	e.remainder = 0
	e.debt = 0
	e.serial = e.serial[:0]
	e.servos.Reset()
}

// Status returns the scheduler state.
func (e *Emulator) Status() Status {
	return e.status
}

// Tick advances emulated time by elapsed wall-clock time. Elapsed time
// beyond the configured MaxTick is dropped, so a stalled host does not
// cause a burst of catch-up work. Fractions of a cycle and cycles spent
// beyond the budget carry over to the next tick.
//
// The returned error is the fault that halted execution, if any.
func (e *Emulator) Tick(elapsed time.Duration) error {
	if e.status != Running || elapsed <= 0 {
		return nil
	}

	if elapsed > e.config.MaxTick {
		elapsed = e.config.MaxTick
	}

	ns := e.remainder + int64(elapsed)*int64(e.config.ClockHz)
	budget := ns/int64(time.Second) - e.debt
	e.remainder = ns % int64(time.Second)

	// Observers may stop or reset the emulator from inside step.
	for budget > 0 && e.status == Running {
		n, err := e.step()
		if err != nil {
			e.debt = 0
			return err
		}
		budget -= int64(n)
	}

	switch {
	case e.status != Running:
		e.debt, e.remainder = 0, 0
	case budget < 0:
		e.debt = -budget
	default:
		e.debt = 0
	}
	return nil
}

// Step executes a single instruction while the emulator is stopped.
func (e *Emulator) Step() error {
	switch {
	case e.status == Halted:
		return e.fault
	case e.status == Running:
		return ErrRunning
	case !e.loaded:
		return ErrNoProgram
	}

	_, err := e.step()
	return err
}

func (e *Emulator) step() (int, error) {
	resets := e.resets
	n, err := e.cpu.Step()

	// An observer reset or reloaded the machine mid-instruction; whatever
	// the old instruction did no longer counts.
	if e.resets != resets {
		return 0, nil
	}

	if err != nil {
		e.halt(err)
		return 0, err
	}

	e.cycles += uint64(n)
	return n, nil
}

// halt records a fault and stops the scheduler until the next reset.
func (e *Emulator) halt(err error) {
	if f, ok := errors.Cause(err).(*cpu.Fault); ok {
		e.fault = f
	} else {
		e.fault = &cpu.Fault{Address: e.cpu.Registers().PC * 2, Msg: err.Error()}
	}

	log.Println("emulator", "halted:", e.fault.Reason, e.fault)
	e.status = Halted
}

// SendSerial queues data on the serial receive line. The firmware picks it
// up byte by byte at the configured baud rate.
func (e *Emulator) SendSerial(data string) {
	e.usart.Receive([]byte(data))
}

// AttachServo starts deriving servo angles from PWM on the given pin.
func (e *Emulator) AttachServo(pin int) {
	e.servos.Attach(pin)
}

// DetachServo stops deriving servo angles for the given pin.
func (e *Emulator) DetachServo(pin int) {
	e.servos.Detach(pin)
}

// ServoAngle returns the last angle derived for pin, or the centre
// position if none has been measured yet.
func (e *Emulator) ServoAngle(pin int) int {
	return e.servos.Angle(pin)
}

// transmit receives bytes written to the serial data register.
func (e *Emulator) transmit(b byte) {
	e.serial = append(e.serial, b)

	// Compact once the retained output has grown to twice its limit.
	if limit := e.config.SerialLimit; len(e.serial) >= 2*limit {
		n := copy(e.serial, e.serial[len(e.serial)-limit:])
		e.serial = e.serial[:n]
	}

	e.observers.serial(b)
}

// pulse receives every completed pulse on a timer output pin.
func (e *Emulator) pulse(pin int, high, _ uint64) {
	width := servo.PulseWidth(high, e.config.ClockHz)
	if angle, ok := e.servos.Update(pin, width); ok {
		e.observers.servo(pin, angle)
	}
}
