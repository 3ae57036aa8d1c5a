package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hexaflex/avrsim/emulator"
)

// Config defines program configuration.
type Config struct {
	Image       string  // Path to the Intel HEX file to load.
	ClockHz     int     // Emulated clock rate in herz.
	FPS         int     // Number of scheduler ticks per second.
	SerialLimit int     // Serial output retained for the state snapshot.
	Listen      string  // Address for the websocket event stream; empty disables it.
	Joints      []Joint // Servo pins and the robot joints they drive.
	PrintTrace  bool    // Print instruction trace data?
	Paused      bool    // Wait for a key press before starting execution?
}

// parseArgs parses command line arguments as applicable.
//
// If an error occurred, this exits the program with an appropriate message.
// When version information is requested, it is printed to stdout and the program ends cleanly.
func parseArgs() *Config {
	def := emulator.DefaultConfig()

	var c Config
	c.ClockHz = def.ClockHz
	c.SerialLimit = def.SerialLimit
	c.FPS = 60

	flag.Usage = func() {
		fmt.Printf("%s [options] <hex file>\n", os.Args[0])
		flag.PrintDefaults()
	}

	joints := flag.String("joints", DefaultJoints, "Comma-separated list of pin:joint servo assignments.")
	flag.IntVar(&c.ClockHz, "clock", c.ClockHz, "Emulated clock rate in herz.")
	flag.IntVar(&c.FPS, "fps", c.FPS, "Scheduler ticks per second.")
	flag.IntVar(&c.SerialLimit, "serial-limit", c.SerialLimit, "Number of serial output bytes kept in the state snapshot.")
	flag.StringVar(&c.Listen, "listen", c.Listen, "Serve a websocket event stream on this address, e.g. localhost:2035.")
	flag.BoolVar(&c.PrintTrace, "trace", c.PrintTrace, "Print every executed instruction.")
	flag.BoolVar(&c.Paused, "paused", c.Paused, "Load the program but do not start it.")
	version := flag.Bool("version", false, "Display version information.")
	flag.Parse()

	if *version {
		fmt.Println(Version())
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	list, err := parseJoints(*joints)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if c.FPS <= 0 {
		fmt.Fprintln(os.Stderr, "fps must be positive")
		os.Exit(1)
	}

	c.Joints = list
	c.Image = flag.Arg(0)
	return &c
}

// emulatorConfig returns the emulator configuration for c.
func (c *Config) emulatorConfig() emulator.Config {
	ec := emulator.DefaultConfig()
	ec.ClockHz = c.ClockHz
	ec.SerialLimit = c.SerialLimit

	// Allow a few dropped frames before time is thrown away.
	if tick := 4 * time.Second / time.Duration(c.FPS); tick > ec.MaxTick {
		ec.MaxTick = tick
	}
	return ec
}
