package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed is returned when a record has the wrong number of fields or a field fails to parse
	ErrMalformed = errors.New("malformed record")

	// ErrUnsupported is returned when a record's tag is not recognized
	ErrUnsupported = errors.New("unsupported record")
)

// LineError locates a decode failure inside a file. Line is 1-based.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }
