package emulator

// Token identifies an observer registration.
type Token uint64

// SerialFunc receives every byte the firmware transmits.
type SerialFunc func(b byte)

// ServoFunc receives the new angle of an attached servo pin.
type ServoFunc func(pin, angle int)

type serialObserver struct {
	token Token
	fn    SerialFunc
}

type servoObserver struct {
	token Token
	fn    ServoFunc
}

// observers holds registered callbacks in registration order.
type observers struct {
	next    Token
	serials []serialObserver
	servos  []servoObserver
}

func (o *observers) token() Token {
	o.next++
	return o.next
}

// serial notifies serial observers. Removal during notification replaces
// the slice, so the loop below keeps iterating the old one.
func (o *observers) serial(b byte) {
	for _, s := range o.serials {
		s.fn(b)
	}
}

func (o *observers) servo(pin, angle int) {
	for _, s := range o.servos {
		s.fn(pin, angle)
	}
}

func (o *observers) remove(t Token) bool {
	for i, s := range o.serials {
		if s.token == t {
			o.serials = append(o.serials[:i:i], o.serials[i+1:]...)
			return true
		}
	}

	for i, s := range o.servos {
		if s.token == t {
			o.servos = append(o.servos[:i:i], o.servos[i+1:]...)
			return true
		}
	}

	return false
}

// OnSerial registers fn to receive transmitted serial bytes.
func (e *Emulator) OnSerial(fn SerialFunc) Token {
	t := e.observers.token()
	e.observers.serials = append(e.observers.serials, serialObserver{t, fn})
	return t
}

// OnServo registers fn to receive servo angle changes on attached pins.
func (e *Emulator) OnServo(fn ServoFunc) Token {
	t := e.observers.token()
	e.observers.servos = append(e.observers.servos, servoObserver{t, fn})
	return t
}

// Unsubscribe removes a registration. It reports whether t was registered.
func (e *Emulator) Unsubscribe(t Token) bool {
	return e.observers.remove(t)
}
