// Package compiler turns a captured action sequence into a replayable
// recording by inserting explicit waits between consecutive actions.
package compiler

import (
	"fmt"

	"vmacro/internal/action"
)

// Compile inserts a Wait before every action that directly follows another
// non-wait action. The wait lasts the timestamp gap between the two; negative
// gaps become zero. Waits already present are kept and suppress insertion, so
// compiling a compiled recording returns an equal recording.
func Compile(raw []action.Action, zones []action.ClickZone) (*action.Recording, error) {
	out := make([]action.Action, 0, 2*len(raw))
	var prev *action.Action

	for i := range raw {
		a := raw[i]
		switch a.Kind() {
		case action.KindWait:
			out = append(out, a)
			prev = nil
			continue
		case action.KindMouseMove, action.KindMousePress, action.KindMouseRelease,
			action.KindKeyPress, action.KindKeyRelease:
		default:
			return nil, &action.UnsupportedActionError{Index: i, Kind: a.Kind()}
		}

		if prev != nil {
			gap := a.Timestamp() - prev.Timestamp()
			if gap < 0 {
				gap = 0
			}
			w, err := action.NewWait(prev.Timestamp(), gap)
			if err != nil {
				return nil, fmt.Errorf("compiler: wait before action %d: %w", i, err)
			}
			out = append(out, w)
		}
		out = append(out, a)
		prev = &raw[i]
	}
	return action.NewRecording(out, zones), nil
}
