package main

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// Control keys handled by the host instead of the firmware.
const (
	keyStep   = 0x05 // Ctrl-E
	keyHelp   = 0x06 // Ctrl-F
	keyReload = 0x0c // Ctrl-L
	keyPause  = 0x10 // Ctrl-P
	keyQuit   = 0x11 // Ctrl-Q
	keyReset  = 0x12 // Ctrl-R
	keyTrace  = 0x14 // Ctrl-T
)

// terminal puts stdin into raw mode and delivers key presses on a channel.
type terminal struct {
	fd    int
	state *term.State // Nil when stdin is not a terminal.
	keys  chan byte
}

// openTerminal starts reading stdin. If stdin is a terminal, it is switched
// to raw mode until close is called.
func openTerminal() (*terminal, error) {
	t := &terminal{
		fd:   int(os.Stdin.Fd()),
		keys: make(chan byte, 64),
	}

	if term.IsTerminal(t.fd) {
		state, err := term.MakeRaw(t.fd)
		if err != nil {
			return nil, errors.Wrap(err, "terminal")
		}
		t.state = state
	}

	go t.read(os.Stdin)
	return t, nil
}

// read forwards input until stdin is closed. The goroutine is not stopped
// by close; it ends with the process.
func (t *terminal) read(r io.Reader) {
	defer close(t.keys)

	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			// Raw mode sends CR for Enter.
			if b == '\r' {
				b = '\n'
			}
			t.keys <- b
		}
		if err != nil {
			return
		}
	}
}

// Raw reports whether output needs explicit carriage returns.
func (t *terminal) Raw() bool {
	return t.state != nil
}

func (t *terminal) close() {
	if t.state != nil {
		term.Restore(t.fd, t.state)
		t.state = nil
	}
}

// crlfWriter translates line feeds into CR LF pairs for a raw terminal.
type crlfWriter struct {
	w   io.Writer
	raw func() bool
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if !c.raw() {
		return c.w.Write(p)
	}

	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte{'\n'}, []byte{'\r', '\n'})); err != nil {
		return 0, err
	}
	return len(p), nil
}
