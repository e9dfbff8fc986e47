package action

import "time"

// Recording is a replayable action list with its click zones. It is built once and never mutated.
type Recording struct {
	actions []Action
	zones   []ClickZone
}

// NewRecording copies actions and zones into a new Recording
func NewRecording(actions []Action, zones []ClickZone) *Recording {
	r := &Recording{
		actions: make([]Action, len(actions)),
		zones:   make([]ClickZone, len(zones)),
	}
	copy(r.actions, actions)
	copy(r.zones, zones)
	return r
}

// Actions returns a copy of the action list
func (r *Recording) Actions() []Action {
	out := make([]Action, len(r.actions))
	copy(out, r.actions)
	return out
}

// Zones returns a copy of the click zones
func (r *Recording) Zones() []ClickZone {
	out := make([]ClickZone, len(r.zones))
	copy(out, r.zones)
	return out
}

// At returns the i-th action without copying the list
func (r *Recording) At(i int) Action { return r.actions[i] }

func (r *Recording) Len() int { return len(r.actions) }

// InAnyZone reports whether (x, y) is inside at least one click zone.
// A recording without zones has no inside.
func (r *Recording) InAnyZone(x, y int) bool {
	for _, z := range r.zones {
		if z.Contains(x, y) {
			return true
		}
	}
	return false
}

// Duration is the total time spent in waits for one pass over the recording
func (r *Recording) Duration() time.Duration {
	var total time.Duration
	for _, a := range r.actions {
		if a.IsWait() {
			total += a.Duration()
		}
	}
	return total
}
