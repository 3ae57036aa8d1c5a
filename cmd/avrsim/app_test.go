package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexaflex/avrsim/devices/m328p/cpu"
	"github.com/hexaflex/avrsim/emulator"
)

func TestPrettyFrequency(t *testing.T) {
	assert.Equal(t, "16.00 MHz", prettyFrequency(16e6))
	assert.Equal(t, "1.50 KHz", prettyFrequency(1500))
	assert.Equal(t, "2.00 GHz", prettyFrequency(2e9))
	assert.Equal(t, "12.00 Hz", prettyFrequency(12))
}

func TestCRLFWriter(t *testing.T) {
	var buf bytes.Buffer
	raw := true
	w := crlfWriter{&buf, func() bool { return raw }}

	n, err := w.Write([]byte("a\nb\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "a\r\nb\r\n", buf.String())

	buf.Reset()
	raw = false
	w.Write([]byte("c\n"))
	assert.Equal(t, "c\n", buf.String())
}

func TestStateView(t *testing.T) {
	s := emulator.State{
		Status:     emulator.Halted,
		CycleCount: 42,
		PC:         6,
		PinStates:  map[int]bool{9: true},
		Fault:      &cpu.Fault{Reason: cpu.UnknownOpcode, Address: 6, Msg: "unknown opcode ffff"},
	}

	joints, _ := parseJoints("9:base,10:shoulder")
	v := newStateView(s, joints, func(pin int) int { return pin * 10 })

	assert.Equal(t, "halted", v.Status)
	assert.Equal(t, uint64(42), v.CycleCount)
	assert.Equal(t, "unknown opcode: 0006: unknown opcode ffff", v.Fault)
	assert.Equal(t, map[string]int{"base": 90, "shoulder": 100}, v.Joints)
	assert.True(t, v.Pins[9])
}

func TestBridge(t *testing.T) {
	b, err := listenBridge("127.0.0.1:0")
	require.NoError(t, err)
	defer b.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+b.listener.Addr().String()+"/", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(message{Type: "serial", Text: "hi"}))

	select {
	case msg := <-b.Commands():
		assert.Equal(t, message{Type: "serial", Text: "hi"}, msg)
	case <-time.After(5 * time.Second):
		t.Fatal("no command received")
	}

	b.Broadcast(message{Type: "servo", Pin: 9, Joint: "base", Angle: 45})

	var got message
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, message{Type: "servo", Pin: 9, Joint: "base", Angle: 45}, got)
}

func TestBridgeDropsStalledClient(t *testing.T) {
	b, err := listenBridge("127.0.0.1:0")
	require.NoError(t, err)
	defer b.Close()
	b.writeWait = 20 * time.Millisecond

	clients := func() int {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.clients)
	}

	// This client never reads, so its socket buffers eventually fill up.
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+b.listener.Addr().String()+"/", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return clients() == 1 }, 5*time.Second, time.Millisecond)

	text := strings.Repeat("x", 1<<20)
	start := time.Now()
	for i := 0; i < 256 && clients() > 0; i++ {
		b.Broadcast(message{Type: "serial", Text: text})
	}

	assert.Equal(t, 0, clients())
	assert.True(t, time.Since(start) < 30*time.Second, "broadcast blocked for %v", time.Since(start))
}

func TestNilBridge(t *testing.T) {
	var b *bridge
	assert.Nil(t, b.Commands())
	assert.NoError(t, b.Close())
	b.Broadcast(message{Type: "serial"})
}
