package main

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hexaflex/avrsim/arch"
)

// DefaultJoints is the servo wiring of the reference robot arm.
const DefaultJoints = "9:base,10:shoulder,11:elbow,12:gripper"

// Joint maps a servo pin to the robot joint it moves.
type Joint struct {
	Pin  int
	Name string
}

// parseJoints parses a list of pin:name pairs, e.g. "9:base,10:shoulder".
// The result is ordered by pin.
func parseJoints(s string) ([]Joint, error) {
	var out []Joint
	seen := make(map[int]bool)

	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		pin, name, ok := strings.Cut(field, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, errors.Errorf("joint %q: want pin:name", field)
		}

		n, err := strconv.Atoi(strings.TrimSpace(pin))
		if err != nil {
			return nil, errors.Wrapf(err, "joint %q", field)
		}

		if n < 0 || n >= arch.NumPins {
			return nil, errors.Errorf("joint %q: pin out of range 0..%d", field, arch.NumPins-1)
		}

		if seen[n] {
			return nil, errors.Errorf("joint %q: pin %d assigned twice", field, n)
		}

		seen[n] = true
		out = append(out, Joint{Pin: n, Name: strings.TrimSpace(name)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Pin < out[j].Pin })
	return out, nil
}

// jointName returns the name of the joint on pin, or the pin number.
func jointName(joints []Joint, pin int) string {
	for _, j := range joints {
		if j.Pin == pin {
			return j.Name
		}
	}
	return "pin " + strconv.Itoa(pin)
}
