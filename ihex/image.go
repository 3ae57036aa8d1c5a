package ihex

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// erased is the value of program memory which was never written.
const erased = 0xff

// Image defines a decoded program image.
type Image struct {
	data []byte
}

// Bytes returns the image contents, addressed from zero.
// The returned slice must not be modified.
func (img *Image) Bytes() []byte {
	return img.data
}

// Len returns the image size in bytes.
func (img *Image) Len() int {
	return len(img.data)
}

// String returns a human-readable dump of the image contents.
func (img *Image) String() string {
	return hex.Dump(img.data)
}

// Parse decodes the given Intel HEX text. Data beyond capacity bytes is
// rejected. The image is padded to an even length with erased bytes and
// so are gaps between data records.
//
// Any structural or checksum error rejects the whole image; the returned
// error is an *Error carrying the offending line number.
func Parse(text string, capacity int) (*Image, error) {
	var (
		data  = make([]byte, 0, 1024)
		base  int
		lines int
		seen  bool
	)

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 1024), 1<<20)

	for sc.Scan() {
		lines++

		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		rec, err := parseRecord(line)
		if err != nil {
			return nil, atLine(err, lines)
		}

		switch rec.Type {
		case Data:
			addr := base + int(rec.Address)
			end := addr + len(rec.Data)
			if end > capacity {
				return nil, atLine(errorf("data at %#x exceeds program memory of %d bytes", addr, capacity), lines)
			}

			for len(data) < end {
				data = append(data, erased)
			}

			copy(data[addr:], rec.Data)
			seen = true

		case EndOfFile:
			return finish(data, seen)

		case ExtendedSegmentAddress, ExtendedLinearAddress:
			if len(rec.Data) != 2 {
				return nil, atLine(errorf("%s record needs 2 data bytes, has %d", rec.Type, len(rec.Data)), lines)
			}

			v := int(rec.Data[0])<<8 | int(rec.Data[1])
			if rec.Type == ExtendedSegmentAddress {
				base = v << 4
			} else {
				base = v << 16
			}

		case Ignorable:
		}
	}

	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "ihex")
	}

	return finish(data, seen)
}

func finish(data []byte, seen bool) (*Image, error) {
	if !seen {
		return nil, errorf("image contains no data records")
	}

	if len(data)%2 != 0 {
		data = append(data, erased)
	}

	return &Image{data: data}, nil
}

// recordSize is the payload size Encode emits per data record.
const recordSize = 16

// Encode writes p as Intel HEX data records starting at address zero,
// followed by an end-of-file record.
func Encode(w io.Writer, p []byte) error {
	bw := bufio.NewWriter(w)

	for addr := 0; addr < len(p); addr += recordSize {
		end := addr + recordSize
		if end > len(p) {
			end = len(p)
		}

		if addr > 0xffff {
			return errors.Errorf("ihex: image of %d bytes needs extended addressing", len(p))
		}

		writeRecord(bw, uint16(addr), 0x00, p[addr:end])
	}

	writeRecord(bw, 0, 0x01, nil)
	return errors.Wrapf(bw.Flush(), "ihex")
}

// EncodeToString returns p encoded as Intel HEX text.
func EncodeToString(p []byte) (string, error) {
	var sb strings.Builder
	if err := Encode(&sb, p); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeRecord(w io.Writer, addr uint16, kind byte, data []byte) {
	sum := byte(len(data)) + byte(addr>>8) + byte(addr) + kind
	for _, b := range data {
		sum += b
	}

	fmt.Fprintf(w, ":%02X%04X%02X%s%02X\n", len(data), addr, kind, strings.ToUpper(hex.EncodeToString(data)), -sum)
}
