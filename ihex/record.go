// Package ihex decodes and encodes Intel HEX firmware images.
package ihex

import (
	"encoding/hex"
	"strings"
)

// RecordType is the closed set of record kinds the loader understands.
type RecordType int

// Known record types. Anything the loader does not act upon decodes as
// Ignorable.
const (
	Data RecordType = iota
	EndOfFile
	ExtendedSegmentAddress
	ExtendedLinearAddress
	Ignorable
)

func (t RecordType) String() string {
	switch t {
	case Data:
		return "data"
	case EndOfFile:
		return "eof"
	case ExtendedSegmentAddress:
		return "extended segment address"
	case ExtendedLinearAddress:
		return "extended linear address"
	}
	return "ignorable"
}

// recordType maps the on-wire type byte onto a RecordType.
func recordType(b byte) RecordType {
	switch b {
	case 0x00:
		return Data
	case 0x01:
		return EndOfFile
	case 0x02:
		return ExtendedSegmentAddress
	case 0x04:
		return ExtendedLinearAddress
	}
	return Ignorable
}

// Record defines a single decoded line.
type Record struct {
	Type    RecordType
	Raw     byte   // Type byte as found in the line.
	Address uint16 // Load offset.
	Data    []byte // Payload.
}

// minLineLen is the shortest legal line: ':' + count + address + type + checksum.
const minLineLen = 1 + 2 + 4 + 2 + 2

// parseRecord decodes one line. The line must start with ':' and carry no
// surrounding whitespace.
func parseRecord(line string) (*Record, *Error) {
	if !strings.HasPrefix(line, ":") {
		return nil, errorf("missing start code")
	}

	if len(line) < minLineLen {
		return nil, errorf("record too short (%d characters)", len(line))
	}

	if len(line)%2 == 0 {
		return nil, errorf("odd number of hex digits")
	}

	p, err := hex.DecodeString(line[1:])
	if err != nil {
		return nil, errorf("invalid hex digits")
	}

	count := int(p[0])
	if len(p) != count+5 {
		return nil, errorf("byte count %d does not match record length %d", count, len(p)-5)
	}

	var sum byte
	for _, b := range p[:len(p)-1] {
		sum += b
	}

	if want := -sum; want != p[len(p)-1] {
		return nil, errorf("checksum mismatch: have %02x, want %02x", p[len(p)-1], want)
	}

	return &Record{
		Type:    recordType(p[3]),
		Raw:     p[3],
		Address: uint16(p[1])<<8 | uint16(p[2]),
		Data:    p[4 : 4+count],
	}, nil
}
