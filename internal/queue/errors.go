package queue

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning is returned when Run is called while the queue is running
var ErrAlreadyRunning = errors.New("queue: already running")

// ItemError reports the item whose failure stopped the queue
type ItemError struct {
	ID   string
	Name string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("queue: item %s (%s): %v", e.Name, e.ID, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }
