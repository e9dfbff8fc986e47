// Package hotkey tracks held keys and matches them against key chords such as
// "Shift+Escape".
package hotkey

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
)

var (
	// ErrEmptyChord is returned when a chord string has no keys
	ErrEmptyChord = errors.New("hotkey: empty chord")

	// ErrUnknownKey is returned when a chord names a key with no virtual-key code
	ErrUnknownKey = errors.New("hotkey: unknown key")
)

// Chord is an ordered set of keys that must be held together
type Chord struct {
	parts    []string // e.g., ["SHIFT", "ESC"]
	codes    []uint32 // generic virtual-key code per part
	original string
}

// ParseChord parses a chord string such as "Shift+Escape" or "Ctrl+Alt+F12".
// Names are case-insensitive.
func ParseChord(s string) (Chord, error) {
	if strings.TrimSpace(s) == "" {
		return Chord{}, ErrEmptyChord
	}
	c := Chord{original: s}
	seen := make(map[string]bool)
	for _, p := range strings.Split(strings.ToUpper(s), "+") {
		p = strings.TrimSpace(p)
		if p == "" {
			return Chord{}, fmt.Errorf("%w: %q", ErrEmptyChord, s)
		}
		vk, ok := keyCode(p)
		if !ok {
			return Chord{}, fmt.Errorf("%w: %q in %q", ErrUnknownKey, p, s)
		}
		name := KeyName(vk)
		if seen[name] {
			continue
		}
		seen[name] = true
		c.parts = append(c.parts, name)
		c.codes = append(c.codes, vk)
	}
	return c, nil
}

// IsZero reports whether the chord has no keys
func (c Chord) IsZero() bool { return len(c.parts) == 0 }

func (c Chord) String() string {
	return strings.Join(c.parts, "+")
}

// Tracker keeps the set of held keys and reports when a chord becomes fully held
type Tracker struct {
	mu    sync.Mutex
	chord Chord
	held  map[string]uint32 // key name -> the exact code that was pressed
}

// NewTracker creates a tracker for the given chord
func NewTracker(chord Chord) *Tracker {
	return &Tracker{
		chord: chord,
		held:  make(map[string]uint32),
	}
}

// Update records a key transition and reports whether the press completed the chord.
// Releases never match.
func (t *Tracker) Update(vk uint32, isDown bool) bool {
	name := KeyName(vk)
	if name == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !isDown {
		delete(t.held, name)
		return false
	}
	t.held[name] = vk

	if t.chord.IsZero() {
		return false
	}
	// All parts of the chord must be held
	for _, part := range t.chord.parts {
		if _, ok := t.held[part]; !ok {
			return false
		}
	}
	log.Printf("Hotkey triggered: %s", t.chord.original)
	return true
}

// HeldChordCodes returns, in chord order, the code that was actually pressed
// for each chord key, falling back to the generic code for keys not held.
func (t *Tracker) HeldChordCodes() []uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	codes := make([]uint32, len(t.chord.parts))
	for i, part := range t.chord.parts {
		if vk, ok := t.held[part]; ok {
			codes[i] = vk
		} else {
			codes[i] = t.chord.codes[i]
		}
	}
	return codes
}
