package main

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/hexaflex/avrsim/emulator"
)

// message defines the JSON frames exchanged with websocket clients.
//
// Outgoing types are "serial" (Text), "servo" (Pin, Joint, Angle) and
// "state" (State). Clients may send "serial" (Text), "start", "stop" and
// "reset".
type message struct {
	Type  string     `json:"type"`
	Text  string     `json:"text,omitempty"`
	Pin   int        `json:"pin,omitempty"`
	Joint string     `json:"joint,omitempty"`
	Angle int        `json:"angle,omitempty"`
	State *stateView `json:"state,omitempty"`
}

// stateView is the wire form of emulator.State.
type stateView struct {
	Status     string         `json:"status"`
	CycleCount uint64         `json:"cycles"`
	PC         uint16         `json:"pc"`
	Fault      string         `json:"fault,omitempty"`
	Pins       map[int]bool   `json:"pins"`
	Joints     map[string]int `json:"joints"`
}

func newStateView(s emulator.State, joints []Joint, angle func(int) int) *stateView {
	v := &stateView{
		Status:     s.Status.String(),
		CycleCount: s.CycleCount,
		PC:         s.PC,
		Pins:       s.PinStates,
		Joints:     make(map[string]int, len(joints)),
	}

	if s.Fault != nil {
		v.Fault = s.Fault.Reason.String() + ": " + s.Fault.Error()
	}

	for _, j := range joints {
		v.Joints[j.Name] = angle(j.Pin)
	}
	return v
}

// writeWait is the time allowed to write a message to a client.
const writeWait = 250 * time.Millisecond

// bridge streams emulator events to websocket clients and collects their
// commands. Commands are delivered on a channel so the emulator is only
// ever touched by the main loop.
type bridge struct {
	upgrader  websocket.Upgrader
	listener  net.Listener
	commands  chan message
	writeWait time.Duration

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// listenBridge starts serving websocket clients on addr.
func listenBridge(addr string) (*bridge, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", addr)
	}

	b := &bridge{
		listener:  ln,
		commands:  make(chan message, 16),
		clients:   make(map[*websocket.Conn]bool),
		writeWait: writeWait,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	go http.Serve(ln, b)
	log.Println("bridge", "listening on", ln.Addr())
	return b, nil
}

// ServeHTTP upgrades a client connection and reads its commands until it
// disconnects.
func (b *bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("bridge", err)
		return
	}

	log.Println("bridge", "client", conn.RemoteAddr())

	b.mu.Lock()
	b.clients[conn] = true
	b.mu.Unlock()

	defer b.drop(conn)

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Println("bridge", "read:", err)
			}
			return
		}
		b.commands <- msg
	}
}

func (b *bridge) drop(conn *websocket.Conn) {
	b.mu.Lock()
	delete(b.clients, conn)
	b.mu.Unlock()
	conn.Close()
}

// Broadcast sends msg to every connected client. Clients which fail to
// receive it within writeWait are disconnected.
func (b *bridge) Broadcast(msg message) {
	if b == nil {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Println("bridge", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for conn := range b.clients {
		conn.SetWriteDeadline(time.Now().Add(b.writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Println("bridge", "write:", err)
			delete(b.clients, conn)
			conn.Close()
		}
	}
}

// Commands returns the channel of client commands. It is nil for a nil
// bridge, which blocks forever in a select.
func (b *bridge) Commands() <-chan message {
	if b == nil {
		return nil
	}
	return b.commands
}

func (b *bridge) Close() error {
	if b == nil {
		return nil
	}

	b.mu.Lock()
	for conn := range b.clients {
		conn.Close()
	}
	b.clients = make(map[*websocket.Conn]bool)
	b.mu.Unlock()

	return b.listener.Close()
}
