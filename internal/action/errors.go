package action

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAction is returned when an action's fields are out of bounds
	ErrInvalidAction = errors.New("invalid action")

	// ErrInvalidZone is returned when a click zone has a negative origin or empty size
	ErrInvalidZone = errors.New("invalid click zone")

	// ErrUnsupportedAction matches every UnsupportedActionError
	ErrUnsupportedAction = errors.New("unsupported action")
)

// UnsupportedActionError reports an action kind a consumer cannot handle
type UnsupportedActionError struct {
	Index int
	Kind  Kind
}

func (e *UnsupportedActionError) Error() string {
	return fmt.Sprintf("unsupported action %s at index %d", e.Kind, e.Index)
}

func (e *UnsupportedActionError) Unwrap() error { return ErrUnsupportedAction }
