package arch

// Digital pins use the board numbering printed on the controller:
// PD0..PD7 are pins 0..7, PB0..PB5 are pins 8..13 and PC0..PC5 are
// pins 14..19.
const (
	NumPins = 20

	PinPortD = 0
	PinPortB = 8
	PinPortC = 14
)

// Timer compare outputs and the pins they drive.
const (
	PinOC0A = 6  // PD6
	PinOC0B = 5  // PD5
	PinOC1A = 9  // PB1
	PinOC1B = 10 // PB2
	PinOC2A = 11 // PB3
	PinOC2B = 3  // PD3
)
