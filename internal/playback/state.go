package playback

// State is the lifecycle state of a Session
type State int32

const (
	New State = iota
	Running
	Paused
	Stopped
	FinishedSuccessfully
	FinishedWithErrors
)

func (s State) String() string {
	switch s {
	case New:
		return "new"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	case FinishedSuccessfully:
		return "finished"
	case FinishedWithErrors:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool {
	return s == Stopped || s == FinishedSuccessfully || s == FinishedWithErrors
}
