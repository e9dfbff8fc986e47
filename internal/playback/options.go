package playback

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"vmacro/internal/action"
)

// Unit is the time unit of a RepeatFor policy
type Unit int

const (
	Seconds Unit = iota + 1
	Minutes
	Hours
)

// Duration returns the length of one unit
func (u Unit) Duration() time.Duration {
	switch u {
	case Seconds:
		return time.Second
	case Minutes:
		return time.Minute
	case Hours:
		return time.Hour
	}
	return 0
}

func (u Unit) String() string {
	switch u {
	case Seconds:
		return "s"
	case Minutes:
		return "m"
	case Hours:
		return "h"
	}
	return "unknown"
}

// FailurePolicy decides what a queue does after a session fails
type FailurePolicy int

const (
	StopQueue FailurePolicy = iota
	Continue
	RunFallback
)

func (p FailurePolicy) String() string {
	switch p {
	case StopQueue:
		return "stop"
	case Continue:
		return "continue"
	case RunFallback:
		return "fallback"
	}
	return "unknown"
}

// ParseFailurePolicy parses "stop", "continue" or "fallback"
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stop":
		return StopQueue, nil
	case "continue":
		return Continue, nil
	case "fallback":
		return RunFallback, nil
	}
	return StopQueue, fmt.Errorf("playback: unknown failure policy %q", s)
}

// Options is an immutable playback policy
type Options struct {
	byDuration bool
	count      uint32
	amount     uint32
	unit       Unit

	verify    bool
	onFailure FailurePolicy
	fallback  *action.Recording
}

type builder struct {
	Options
	policies int
}

// Option configures Options
type Option func(*builder) error

// RepeatCount plays the recording n times. Zero repeats until stopped.
func RepeatCount(n uint32) Option {
	return func(b *builder) error {
		b.policies++
		b.byDuration = false
		b.count = n
		return nil
	}
}

// RepeatFor keeps replaying the recording for n units of time
func RepeatFor(n uint32, unit Unit) Option {
	return func(b *builder) error {
		if unit.Duration() == 0 {
			return fmt.Errorf("playback: invalid repeat unit %d", unit)
		}
		b.policies++
		b.byDuration = true
		b.amount = n
		b.unit = unit
		return nil
	}
}

// WithVerification enables click-zone color verification
func WithVerification(verify bool) Option {
	return func(b *builder) error {
		b.verify = verify
		return nil
	}
}

// OnFailureStop discards the rest of the queue after a failure. This is the default.
func OnFailureStop() Option {
	return func(b *builder) error {
		b.onFailure = StopQueue
		b.fallback = nil
		return nil
	}
}

// OnFailureContinue moves on to the next queue item after a failure
func OnFailureContinue() Option {
	return func(b *builder) error {
		b.onFailure = Continue
		b.fallback = nil
		return nil
	}
}

// OnFailureFallback plays rec once, with verification, after a failure
func OnFailureFallback(rec *action.Recording) Option {
	return func(b *builder) error {
		if rec == nil {
			return ErrNoFallback
		}
		b.onFailure = RunFallback
		b.fallback = rec
		return nil
	}
}

// NewOptions builds Options. Exactly one of RepeatCount or RepeatFor is required.
func NewOptions(opts ...Option) (Options, error) {
	var b builder
	for _, opt := range opts {
		if err := opt(&b); err != nil {
			return Options{}, err
		}
	}
	if b.policies != 1 {
		return Options{}, ErrRepeatPolicy
	}
	return b.Options, nil
}

// RepeatCount returns the repeat count and whether the count policy is active
func (o Options) RepeatCount() (uint32, bool) {
	return o.count, !o.byDuration
}

// RepeatFor returns the total play time and whether the duration policy is active
func (o Options) RepeatFor() (time.Duration, bool) {
	return time.Duration(o.amount) * o.unit.Duration(), o.byDuration
}

func (o Options) Verify() bool                { return o.verify }
func (o Options) OnFailure() FailurePolicy    { return o.onFailure }
func (o Options) Fallback() *action.Recording { return o.fallback }

func (o Options) String() string {
	var repeat string
	if o.byDuration {
		repeat = fmt.Sprintf("for %d%s", o.amount, o.unit)
	} else if o.count == 0 {
		repeat = "until stopped"
	} else {
		repeat = fmt.Sprintf("%dx", o.count)
	}
	return fmt.Sprintf("repeat %s, verify=%t, on failure %s", repeat, o.verify, o.onFailure)
}

// ParseRepeatFor parses a duration policy such as "90s", "5m" or "2h"
func ParseRepeatFor(s string) (uint32, Unit, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if len(s) < 2 {
		return 0, 0, fmt.Errorf("playback: invalid duration %q", s)
	}
	var unit Unit
	switch s[len(s)-1] {
	case 's':
		unit = Seconds
	case 'm':
		unit = Minutes
	case 'h':
		unit = Hours
	default:
		return 0, 0, fmt.Errorf("playback: invalid duration unit in %q, want s, m or h", s)
	}
	n, err := strconv.ParseUint(s[:len(s)-1], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("playback: invalid duration %q: %w", s, err)
	}
	return uint32(n), unit, nil
}
