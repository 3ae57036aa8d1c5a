package usart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexaflex/avrsim/arch"
)

func TestTransmitOrder(t *testing.T) {
	var out []byte
	d := New(func(b byte) { out = append(out, b) })

	for _, b := range []byte("ABC") {
		d.Write(arch.UDR0, b)
	}

	assert.Equal(t, "ABC", string(out))
}

func TestTransmitStatus(t *testing.T) {
	d := New(nil)
	d.Write(arch.UBRR0H, 0)
	d.Write(arch.UBRR0L, 103)
	require.Equal(t, 16640, d.FrameCycles())

	assert.Equal(t, byte(bitUDRE), d.Read(arch.UCSR0A))

	d.Write(arch.UDR0, 'x')
	assert.Equal(t, byte(0), d.Read(arch.UCSR0A)&(bitUDRE|bitTXC))

	d.Advance(16639)
	assert.Equal(t, byte(0), d.Read(arch.UCSR0A)&bitUDRE)

	d.Advance(1)
	assert.Equal(t, byte(bitUDRE|bitTXC), d.Read(arch.UCSR0A)&(bitUDRE|bitTXC))

	d.Write(arch.UCSR0A, bitTXC)
	assert.Equal(t, byte(bitUDRE), d.Read(arch.UCSR0A))
}

func TestDoubleSpeed(t *testing.T) {
	d := New(nil)
	d.Write(arch.UBRR0L, 16)
	d.Write(arch.UCSR0A, bitU2X)
	assert.Equal(t, 10*8*17, d.FrameCycles())
	assert.Equal(t, byte(16), d.Read(arch.UBRR0L))
}

func TestReceive(t *testing.T) {
	d := New(nil)
	frame := d.FrameCycles()

	d.Receive([]byte("hi"))
	assert.Equal(t, 2, d.Queued())

	d.Advance(frame - 1)
	assert.Equal(t, byte(0), d.Read(arch.UCSR0A)&bitRXC)

	d.Advance(1)
	assert.Equal(t, byte(bitRXC), d.Read(arch.UCSR0A)&bitRXC)
	assert.Equal(t, byte('h'), d.Read(arch.UDR0))
	assert.Equal(t, byte(0), d.Read(arch.UCSR0A)&bitRXC)

	d.Advance(frame)
	assert.Equal(t, byte('i'), d.Read(arch.UDR0))
	assert.Equal(t, 0, d.Queued())
}

func TestReceiveWaitsForRead(t *testing.T) {
	d := New(nil)
	d.Receive([]byte("ab"))

	d.Advance(d.FrameCycles() * 5)
	assert.Equal(t, 1, d.Queued())
	assert.Equal(t, byte('a'), d.Read(arch.UDR0))

	d.Advance(d.FrameCycles())
	assert.Equal(t, byte('b'), d.Read(arch.UDR0))
}

func TestInterrupts(t *testing.T) {
	d := New(nil)

	_, ok := d.Pending()
	assert.False(t, ok)

	d.Write(arch.UCSR0B, bitUDRIE)
	vector, ok := d.Pending()
	assert.True(t, ok)
	assert.Equal(t, arch.VectorUSARTUDRE, vector)

	d.Write(arch.UCSR0B, bitRXCIE|bitUDRIE)
	d.Receive([]byte{1})
	d.Advance(d.FrameCycles())
	vector, _ = d.Pending()
	assert.Equal(t, arch.VectorUSARTRx, vector)

	d.Read(arch.UDR0)
	d.Write(arch.UCSR0B, bitTXCIE)
	d.Write(arch.UDR0, 0)
	d.Advance(d.FrameCycles())
	vector, _ = d.Pending()
	assert.Equal(t, arch.VectorUSARTTx, vector)

	d.Acknowledge(vector)
	_, ok = d.Pending()
	assert.False(t, ok)
}

func TestReset(t *testing.T) {
	d := New(nil)
	d.Receive([]byte("pending"))
	d.Write(arch.UBRR0L, 8)
	d.Reset()

	assert.Equal(t, 0, d.Queued())
	assert.Equal(t, byte(0), d.Read(arch.UBRR0L))
	assert.Equal(t, byte(0x06), d.Read(arch.UCSR0C))
}
