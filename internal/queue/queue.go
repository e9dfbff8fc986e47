// Package queue plays several recordings one after another, applying each
// item's failure policy.
package queue

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"vmacro/internal/action"
	"vmacro/internal/playback"
)

// Item is one queued recording with its playback policy
type Item struct {
	ID        string
	Name      string
	Recording *action.Recording
	Options   playback.Options
}

// Status is a snapshot of the orchestrator
type Status struct {
	Running     bool
	Paused      bool
	CurrentID   string
	CurrentName string
	Session     playback.State // state of the current session, New when idle
	Pending     int
	Finished    int
	Failed      int
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithSessionOptions applies opts to every session the queue starts
func WithSessionOptions(opts ...playback.SessionOption) Option {
	return func(o *Orchestrator) {
		o.sessionOpts = append(o.sessionOpts, opts...)
	}
}

// Orchestrator drives one playback session at a time
type Orchestrator struct {
	mu          sync.Mutex
	devices     playback.Devices
	sessionOpts []playback.SessionOption

	items   []*Item
	current *playback.Session
	item    *Item

	running  bool
	paused   bool
	stopped  bool
	finished int
	failed   int

	// Callbacks for host notifications
	onItemStarted  func(id, name string)
	onItemFinished func(id string)
	onItemFailed   func(id string, err error)
}

// New creates an empty orchestrator
func New(devices playback.Devices, opts ...Option) *Orchestrator {
	o := &Orchestrator{devices: devices}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetOnItemStarted sets the callback fired before an item plays
func (o *Orchestrator) SetOnItemStarted(callback func(id, name string)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onItemStarted = callback
}

// SetOnItemFinished sets the callback fired when an item finishes successfully
func (o *Orchestrator) SetOnItemFinished(callback func(id string)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onItemFinished = callback
}

// SetOnItemFailed sets the callback fired when an item fails
func (o *Orchestrator) SetOnItemFailed(callback func(id string, err error)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onItemFailed = callback
}

// Add appends a recording to the queue and returns its item ID
func (o *Orchestrator) Add(name string, rec *action.Recording, opts playback.Options) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	it := &Item{ID: uuid.NewString(), Name: name, Recording: rec, Options: opts}
	o.items = append(o.items, it)
	log.Printf("Queue: added %s (%s), %s", name, it.ID, opts)
	return it.ID
}

// Pending returns the items not yet started
func (o *Orchestrator) Pending() []Item {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Item, len(o.items))
	for i, it := range o.items {
		out[i] = *it
	}
	return out
}

// Status returns a snapshot of the queue
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := Status{
		Running:  o.running,
		Paused:   o.paused,
		Pending:  len(o.items),
		Finished: o.finished,
		Failed:   o.failed,
	}
	if o.item != nil {
		st.CurrentID, st.CurrentName = o.item.ID, o.item.Name
	}
	if o.current != nil {
		st.Session = o.current.Status()
	}
	return st
}

// Pause pauses the current session; sessions started later begin paused
func (o *Orchestrator) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused = true
	if o.current != nil {
		o.current.Pause()
	}
}

// Resume resumes the current session
func (o *Orchestrator) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused = false
	if o.current != nil {
		o.current.Resume()
	}
}

// Stop stops the current session and discards the rest of the queue.
// No item callbacks fire for a stopped item.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopped = true
	o.items = nil
	if o.current != nil {
		o.current.Stop()
	}
	log.Println("Queue: stopped")
}

// Run plays queued items until the queue is empty, stopped, or stopped by a
// failure. It returns an *ItemError in the last case.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	o.running = true
	o.stopped = false
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.item = nil
		o.mu.Unlock()
	}()

	for {
		it := o.next()
		if it == nil {
			log.Println("Queue: done")
			return nil
		}
		if started := o.callbacks().started; started != nil {
			started(it.ID, it.Name)
		}

		err := o.play(ctx, it.Recording, it.Options)
		if o.isStopped() || ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			o.itemFinished(it)
			continue
		}

		log.Printf("Queue: %s failed: %v", it.Name, err)
		switch it.Options.OnFailure() {
		case playback.Continue:
			o.itemFailed(it, err)

		case playback.RunFallback:
			log.Printf("Queue: playing fallback for %s", it.Name)
			fallbackOpts, optErr := playback.NewOptions(playback.RepeatCount(1), playback.WithVerification(true))
			if optErr != nil {
				return optErr
			}
			ferr := o.play(ctx, it.Options.Fallback(), fallbackOpts)
			if o.isStopped() || ctx.Err() != nil {
				return ctx.Err()
			}
			if ferr != nil {
				err = fmt.Errorf("%w (fallback: %w)", err, ferr)
				o.itemFailed(it, err)
				o.discard()
				return &ItemError{ID: it.ID, Name: it.Name, Err: err}
			}
			o.itemFailed(it, err)

		default:
			o.itemFailed(it, err)
			o.discard()
			return &ItemError{ID: it.ID, Name: it.Name, Err: err}
		}
	}
}

// play runs one session to completion
func (o *Orchestrator) play(ctx context.Context, rec *action.Recording, opts playback.Options) error {
	s := playback.NewSession(rec, opts, o.devices, o.sessionOpts...)

	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return nil
	}
	o.current = s
	if err := s.Start(ctx); err != nil {
		o.current = nil
		o.mu.Unlock()
		return err
	}
	if o.paused {
		s.Pause()
	}
	o.mu.Unlock()

	err := s.Wait()

	o.mu.Lock()
	o.current = nil
	o.mu.Unlock()
	return err
}

func (o *Orchestrator) next() *Item {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped || len(o.items) == 0 {
		o.item = nil
		return nil
	}
	it := o.items[0]
	o.items = o.items[1:]
	o.item = it
	return it
}

func (o *Orchestrator) discard() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.items) > 0 {
		log.Printf("Queue: discarding %d remaining items", len(o.items))
	}
	o.items = nil
}

func (o *Orchestrator) isStopped() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stopped
}

type callbacks struct {
	started  func(id, name string)
	finished func(id string)
	failed   func(id string, err error)
}

func (o *Orchestrator) callbacks() callbacks {
	o.mu.Lock()
	defer o.mu.Unlock()
	return callbacks{o.onItemStarted, o.onItemFinished, o.onItemFailed}
}

func (o *Orchestrator) itemFinished(it *Item) {
	o.mu.Lock()
	o.finished++
	o.mu.Unlock()
	log.Printf("Queue: %s finished", it.Name)
	if cb := o.callbacks().finished; cb != nil {
		cb(it.ID)
	}
}

func (o *Orchestrator) itemFailed(it *Item, err error) {
	o.mu.Lock()
	o.failed++
	o.mu.Unlock()
	if cb := o.callbacks().failed; cb != nil {
		cb(it.ID, err)
	}
}

// Summary renders the status as one line, e.g. for a tray title
func (o *Orchestrator) Summary() string {
	st := o.Status()
	switch {
	case !st.Running:
		return fmt.Sprintf("idle (%d done, %d failed)", st.Finished, st.Failed)
	case st.Paused:
		return fmt.Sprintf("paused: %s (%d queued)", st.CurrentName, st.Pending)
	}
	return fmt.Sprintf("playing: %s (%d queued)", st.CurrentName, st.Pending)
}
