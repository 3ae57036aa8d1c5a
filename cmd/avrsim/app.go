package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hexaflex/avrsim/devices/m328p/cpu"
	"github.com/hexaflex/avrsim/emulator"
)

// stateInterval is how often the state snapshot goes out to bridge clients.
const stateInterval = 250 * time.Millisecond

// App defines application context.
type App struct {
	config    *Config            // Application configuration.
	emu       *emulator.Emulator // Board running the firmware.
	term      *terminal          // Raw keyboard input.
	bridge    *bridge            // Optional websocket event stream.
	out       io.Writer          // Serial and trace output.
	lastTick  time.Time          // Time of the previous scheduler tick.
	lastState time.Time          // Last time a state snapshot was broadcast.
	quit      bool
}

// NewApp creates a new application instance using the given configuration.
func NewApp(config *Config) *App {
	return &App{
		config: config,
		out:    os.Stdout,
	}
}

// Run runs the application and does not return until it is finished
// or an error occured during initialization.
func (a *App) Run() error {
	ec := a.config.emulatorConfig()
	ec.Trace = a.printTrace

	var err error
	a.emu, err = emulator.New(ec)
	if err != nil {
		return err
	}

	for _, j := range a.config.Joints {
		a.emu.AttachServo(j.Pin)
	}

	a.emu.OnSerial(a.serial)
	a.emu.OnServo(a.servo)

	if err := a.loadProgram(); err != nil {
		return err
	}

	if a.config.Listen != "" {
		a.bridge, err = listenBridge(a.config.Listen)
		if err != nil {
			return err
		}
		defer a.bridge.Close()
	}

	a.term, err = openTerminal()
	if err != nil {
		return err
	}

	defer a.term.close()
	a.out = crlfWriter{os.Stdout, a.term.Raw}
	log.SetOutput(crlfWriter{os.Stderr, a.term.Raw})

	log.Println(Version())
	log.Println("clock", prettyFrequency(float64(a.config.ClockHz)))
	printHelp()

	if !a.config.Paused {
		a.emu.Start()
	}

	ticker := time.NewTicker(time.Second / time.Duration(a.config.FPS))
	defer ticker.Stop()

	keys := a.term.keys
	a.lastTick = time.Now()

	for !a.quit {
		select {
		case now := <-ticker.C:
			a.mainLoop(now)

		case key, ok := <-keys:
			if !ok {
				keys = nil // stdin closed; keep running until Ctrl-Q or a signal.
				continue
			}
			a.keyPress(key)

		case msg := <-a.bridge.Commands():
			a.command(msg)
		}
	}

	return nil
}

// mainLoop advances the emulator by the time passed since the last tick.
func (a *App) mainLoop(now time.Time) {
	elapsed := now.Sub(a.lastTick)
	a.lastTick = now

	if err := a.emu.Tick(elapsed); err != nil {
		log.Println("halted:", err)
		a.broadcastState()
	}

	if a.bridge != nil && now.Sub(a.lastState) >= stateInterval {
		a.lastState = now
		a.broadcastState()
	}
}

func (a *App) keyPress(key byte) {
	var err error

	switch key {
	case keyQuit:
		a.quit = true
	case keyHelp:
		printHelp()
	case keyReset:
		a.restart()
	case keyReload:
		if err = a.loadProgram(); err == nil {
			a.emu.Start()
		}
	case keyPause:
		a.toggleRun()
	case keyStep:
		err = a.emu.Step()
	case keyTrace:
		a.config.PrintTrace = !a.config.PrintTrace
	default:
		a.emu.SendSerial(string([]byte{key}))
	}

	if err != nil {
		log.Println(err)
	}
}

// command handles a message from a bridge client.
func (a *App) command(msg message) {
	switch msg.Type {
	case "serial":
		a.emu.SendSerial(msg.Text)
	case "start":
		a.emu.Start()
	case "stop":
		a.emu.Stop()
	case "reset":
		a.restart()
	default:
		log.Println("bridge", "unknown command", msg.Type)
	}
}

// restart presses the board's reset button: the program starts over.
func (a *App) restart() {
	log.Println("reset")
	a.emu.Reset()
	a.emu.Start()
}

func (a *App) toggleRun() {
	if a.emu.Status() == emulator.Running {
		a.emu.Stop()
	} else {
		a.emu.Start()
	}
	log.Println(a.emu.Status())
}

// loadProgram loads the firmware from disk and resets the board.
func (a *App) loadProgram() error {
	log.Println("loading", a.config.Image)

	data, err := os.ReadFile(a.config.Image)
	if err != nil {
		return err
	}

	if !a.emu.LoadHex(string(data)) {
		return errors.Wrapf(a.emu.LoadError(), "%s", a.config.Image)
	}
	return nil
}

// serial prints firmware output and forwards it to bridge clients.
func (a *App) serial(b byte) {
	a.out.Write([]byte{b})
	a.bridge.Broadcast(message{Type: "serial", Text: string([]byte{b})})
}

func (a *App) servo(pin, angle int) {
	name := jointName(a.config.Joints, pin)
	log.Printf("servo %s: %d°", name, angle)
	a.bridge.Broadcast(message{Type: "servo", Pin: pin, Joint: name, Angle: angle})
}

func (a *App) broadcastState() {
	view := newStateView(a.emu.State(), a.config.Joints, a.emu.ServoAngle)
	a.bridge.Broadcast(message{Type: "state", State: view})
}

// printTrace prints instruction trace data. This can be toggled
// on and off through a.config.PrintTrace.
func (a *App) printTrace(i *cpu.Instruction) {
	if !a.config.PrintTrace {
		return
	}

	var sb strings.Builder
	sb.Grow(40)
	for w := uint16(0); w < i.Words; w++ {
		if w == 0 {
			fmt.Fprintf(&sb, "%04x", i.Raw)
		} else {
			sb.WriteString(" ....")
		}
	}
	pad(&sb, 10)

	fmt.Fprintf(a.out, "%04x  %s %s\n", i.Addr*2, sb.String(), i)
}

// printHelp writes a short overview of supported shortcut keys.
func printHelp() {
	var sb strings.Builder
	sb.WriteString("shortcut keys:\n")
	sb.WriteString(" Ctrl-Q   Exit the emulator.\n")
	sb.WriteString(" Ctrl-F   Display this help.\n")
	sb.WriteString(" Ctrl-R   Reset the board and run the program from the start.\n")
	sb.WriteString(" Ctrl-L   (re)load the program from disk and run it.\n")
	sb.WriteString(" Ctrl-P   Pause/Resume program execution.\n")
	sb.WriteString(" Ctrl-E   Perform a single execution step while paused.\n")
	sb.WriteString(" Ctrl-T   Enable/Disable instruction trace output.\n")
	sb.WriteString(" other    Sent to the board's serial port.")
	log.Println(sb.String())
}

// pad pads sb with spaces until it reaches the given size.
func pad(sb *strings.Builder, size int) {
	if n := size - sb.Len(); n > 0 {
		sb.WriteString(strings.Repeat(" ", n))
	}
}

// prettyFrequency returns a human-readable version of the given clock frequency in herz.
func prettyFrequency(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.2f GHz", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2f MHz", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.2f KHz", v/1e3)
	default:
		return fmt.Sprintf("%.2f Hz", v)
	}
}
