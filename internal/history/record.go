package history

import "time"

// Run statuses
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusStopped = "stopped"
)

// Run is one played queue item
type Run struct {
	// ID is the auto-increment primary key (assigned on insert).
	ID int64

	// ItemID is the queue item ID the run belongs to.
	ItemID string

	// Name is the recording name, usually its file name.
	Name string

	// Status is one of "running", "success", "failed" or "stopped".
	Status string

	// ErrorMessage explains a failed run.
	ErrorMessage string

	StartedAt  time.Time
	FinishedAt time.Time // zero while running
}

// Duration returns how long the run took, or zero if it has not finished
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
