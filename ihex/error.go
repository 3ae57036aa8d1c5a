package ihex

import "fmt"

// Error defines a load error for a specific line of input.
// Line is zero for errors which concern the image as a whole.
type Error struct {
	Line int
	Msg  string
}

func errorf(f string, argv ...interface{}) *Error {
	return &Error{Msg: fmt.Sprintf(f, argv...)}
}

func atLine(err *Error, line int) *Error {
	err.Line = line
	return err
}

func (e *Error) Error() string {
	if e.Line == 0 {
		return "ihex: " + e.Msg
	}
	return fmt.Sprintf("ihex: line %d: %s", e.Line, e.Msg)
}
