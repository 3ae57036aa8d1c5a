package devices

import "strings"

// ErrorSet collects independent errors, such as every problem found while
// validating a configuration or connecting a set of devices. It is itself
// an error.
type ErrorSet []error

// Len returns the number of collected errors.
func (e ErrorSet) Len() int {
	return len(e)
}

// Append adds errors to the set. Nil errors are skipped.
func (e *ErrorSet) Append(errs ...error) {
	for _, err := range errs {
		if err != nil {
			*e = append(*e, err)
		}
	}
}

func (e ErrorSet) Error() string {
	msg := make([]string, len(e))
	for i, err := range e {
		msg[i] = err.Error()
	}
	return strings.Join(msg, "; ")
}
