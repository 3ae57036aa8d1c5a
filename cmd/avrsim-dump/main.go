package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/hexaflex/avrsim/arch"
	"github.com/hexaflex/avrsim/devices/m328p/cpu"
	"github.com/hexaflex/avrsim/ihex"
)

func main() {
	config := parseArgs()

	img, err := loadImage(config.Input)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	w, close := makeWriter(config)
	defer close()

	switch config.Format {
	case FormatHex:
		err = ihex.Encode(w, img.Bytes())
	case FormatDump:
		_, err = fmt.Fprint(w, img)
	default:
		err = disassemble(w, img.Bytes())
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadImage reads and validates an Intel HEX file.
func loadImage(file string) (*ihex.Image, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	img, err := ihex.Parse(string(data), arch.FlashSize)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", file)
	}
	return img, nil
}

// disassemble writes a listing of program with one instruction per line.
// Words which do not decode are listed as data.
func disassemble(w io.Writer, program []byte) error {
	c := cpu.New(nil)
	c.Load(program)
	mem := c.Memory()

	var instr cpu.Instruction
	for pc := uint16(0); int(pc)*2+1 < len(program); {
		err := instr.Decode(mem, pc)

		if err != nil {
			word, _ := mem.Fetch(pc)
			if werr := listWord(w, pc, word); werr != nil {
				return werr
			}

			// A two word instruction cut off by the end of the image.
			if f, ok := err.(*cpu.Fault); ok && f.Reason == cpu.FetchOutOfBounds {
				break
			}

			pc++
			continue
		}

		words := fmt.Sprintf("%04x", instr.Raw)
		if instr.Words > 1 {
			next, _ := mem.Fetch(pc + 1)
			words += fmt.Sprintf(" %04x", next)
		}

		if _, err := fmt.Fprintf(w, "%04x:  %-16s  %s\n", int(pc)*2, words, &instr); err != nil {
			return err
		}
		pc += instr.Words
	}

	return nil
}

func listWord(w io.Writer, pc, word uint16) error {
	_, err := fmt.Fprintf(w, "%04x:  %-16s  .word 0x%04x\n", int(pc)*2, fmt.Sprintf("%04x", word), word)
	return err
}

// makeWriter creates an output writer and a cleanup function for it.
func makeWriter(c *Config) (io.Writer, func()) {
	if c.Output == "" {
		return os.Stdout, func() {}
	}

	dir, _ := filepath.Split(c.Output)
	if dir != "" {
		err := os.MkdirAll(dir, 0744)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	fd, err := os.Create(c.Output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	return fd, func() { fd.Close() }
}
