package playback

import (
	"errors"
	"fmt"

	"vmacro/internal/action"
)

var (
	// ErrRepeatPolicy is returned when options set no repeat policy or more than one
	ErrRepeatPolicy = errors.New("playback: exactly one of RepeatCount or RepeatFor must be set")

	// ErrNoFallback is returned when the fallback policy is given a nil recording
	ErrNoFallback = errors.New("playback: fallback policy needs a recording")

	// ErrAlreadyStarted is returned when Start is called on a session that left New
	ErrAlreadyStarted = errors.New("playback: session already started")

	// ErrVerification matches every VerificationError
	ErrVerification = errors.New("playback: click verification failed")

	// ErrNoRecording is returned by Start on a session created without a recording
	ErrNoRecording = errors.New("playback: no recording")
)

// InjectionError reports an injector failure while executing an action
type InjectionError struct {
	Index int    // position of the action in the recording
	Op    string // "move", "press", "release", "key-press", "key-release"
	Err   error
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("playback: inject %s at action %d: %v", e.Op, e.Index, e.Err)
}

func (e *InjectionError) Unwrap() error { return e.Err }

// VerificationError reports a button release whose screen color never matched
// the color recorded at capture time.
type VerificationError struct {
	Index    int
	Expected action.Color
	Observed action.Color
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("playback: click verification failed at action %d: expected %s, observed %s",
		e.Index, e.Expected, e.Observed)
}

func (e *VerificationError) Unwrap() error { return ErrVerification }
