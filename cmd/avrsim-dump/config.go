package main

import (
	"flag"
	"fmt"
	"os"
)

// Supported output formats.
const (
	FormatDisasm = "disasm"
	FormatHex    = "hex"
	FormatDump   = "dump"
)

// Config defines program configuration.
type Config struct {
	Input  string // Intel HEX file to inspect.
	Output string // Path to store output in; stdout if empty.
	Format string // One of the Format constants.
}

// parseArgs parses command line arguments as applicable.
//
// If an error occurred, this exits the program with an appropriate message.
// When version information is requested, it is printed to stdout and the program ends cleanly.
func parseArgs() *Config {
	var c Config
	c.Format = FormatDisasm

	flag.Usage = func() {
		fmt.Printf("%s [options] <hex file>\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.StringVar(&c.Output, "out", c.Output, "Output file. Defaults to stdout.")
	flag.StringVar(&c.Format, "format", c.Format, "Output format: disasm, hex (normalized Intel HEX) or dump (hex dump).")
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

	switch c.Format {
	case FormatDisasm, FormatHex, FormatDump:
	default:
		fmt.Fprintf(os.Stderr, "unknown format %q\n", c.Format)
		os.Exit(1)
	}

	c.Input = flag.Arg(0)
	return &c
}
