// Package tasks tracks completion of the required tasks for the giveaway a user
// currently has open.
//
// A task counts as done once a fixed delay elapses after the user is sent to
// its external link. Nothing checks that the user actually followed, subscribed
// or watched anything.
package tasks

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidTaskKind = errors.New("invalid task kind")
	ErrNoSession       = errors.New("no giveaway is open")
)

// LinkOpener sends the user to an external link in the host environment.
type LinkOpener func(kind, link string)

// Listener is notified about every task flag change.
type Listener func(giveawayID, kind string, complete bool)

type Option func(*Tracker)

func WithScheduler(s Scheduler) Option { return func(t *Tracker) { t.scheduler = s } }

func WithLinkOpener(o LinkOpener) Option { return func(t *Tracker) { t.opener = o } }

func WithListener(l Listener) Option { return func(t *Tracker) { t.listener = l } }

type session struct {
	id         string
	giveawayID string
	done       map[string]bool
	// pending verification timers by kind
	timers map[string]func() bool
}

// Tracker holds one verification session at a time.
type Tracker struct {
	mu      sync.Mutex
	kinds   []string
	delay   time.Duration
	session *session

	scheduler Scheduler
	opener    LinkOpener
	listener  Listener
}

func NewTracker(kinds []string, delay time.Duration, opts ...Option) *Tracker {
	t := &Tracker{
		kinds:     slices.Clone(kinds),
		delay:     delay,
		scheduler: RealScheduler,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Snapshot is a read-only view of the current session.
type Snapshot struct {
	SessionID  string          `json:"session_id"`
	GiveawayID string          `json:"giveaway_id"`
	Tasks      map[string]bool `json:"tasks"`
}

// ResetSession opens a fresh session for giveawayID with every task incomplete.
// Timers of the previous session are stopped, and any that already fired are
// ignored because their session id no longer matches.
func (t *Tracker) ResetSession(giveawayID string) Snapshot {
	t.mu.Lock()
	t.stopTimersLocked()
	s := &session{
		id:         uuid.NewString(),
		giveawayID: giveawayID,
		done:       make(map[string]bool, len(t.kinds)),
		timers:     make(map[string]func() bool),
	}
	for _, k := range t.kinds {
		s.done[k] = false
	}
	t.session = s
	snap := t.snapshotLocked()
	t.mu.Unlock()

	for _, k := range t.kinds {
		t.notify(giveawayID, k, false)
	}
	return snap
}

// StartTask sends the user to link and schedules verification of kind.
// It is a no-op returning started=false when kind is already complete.
// A second call while verification is pending opens the link again but keeps
// the existing timer.
func (t *Tracker) StartTask(kind, link string) (started bool, err error) {
	if !t.IsKnownKind(kind) {
		return false, fmt.Errorf("%w: %q", ErrInvalidTaskKind, kind)
	}

	t.mu.Lock()
	s := t.session
	if s == nil {
		t.mu.Unlock()
		return false, ErrNoSession
	}
	if s.done[kind] {
		t.mu.Unlock()
		return false, nil
	}
	if _, pending := s.timers[kind]; !pending {
		sessionID := s.id
		s.timers[kind] = t.scheduler.AfterFunc(t.delay, func() {
			t.onTaskVerified(sessionID, kind)
		})
	}
	t.mu.Unlock()

	if t.opener != nil {
		t.opener(kind, link)
	}
	return true, nil
}

// onTaskVerified marks kind complete if sessionID is still the current session.
func (t *Tracker) onTaskVerified(sessionID, kind string) {
	t.mu.Lock()
	s := t.session
	if s == nil || s.id != sessionID {
		t.mu.Unlock()
		return
	}
	delete(s.timers, kind)
	if s.done[kind] {
		t.mu.Unlock()
		return
	}
	s.done[kind] = true
	giveawayID := s.giveawayID
	t.mu.Unlock()

	t.notify(giveawayID, kind, true)
}

// AllTasksComplete is the gate for the join action. False when no session is open.
func (t *Tracker) AllTasksComplete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		return false
	}
	for _, k := range t.kinds {
		if !t.session.done[k] {
			return false
		}
	}
	return true
}

// AllTasksCompleteFor is AllTasksComplete restricted to the session of giveawayID.
func (t *Tracker) AllTasksCompleteFor(giveawayID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil || t.session.giveawayID != giveawayID {
		return false
	}
	for _, k := range t.kinds {
		if !t.session.done[k] {
			return false
		}
	}
	return true
}

// GiveawayID returns the giveaway of the open session, or "".
func (t *Tracker) GiveawayID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		return ""
	}
	return t.session.giveawayID
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) Kinds() []string { return slices.Clone(t.kinds) }

func (t *Tracker) IsKnownKind(kind string) bool { return slices.Contains(t.kinds, kind) }

// Close discards the session and stops its timers.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTimersLocked()
	t.session = nil
}

func (t *Tracker) stopTimersLocked() {
	if t.session == nil {
		return
	}
	for kind, stop := range t.session.timers {
		stop()
		delete(t.session.timers, kind)
	}
}

func (t *Tracker) snapshotLocked() Snapshot {
	if t.session == nil {
		return Snapshot{Tasks: map[string]bool{}}
	}
	tasks := make(map[string]bool, len(t.session.done))
	for k, v := range t.session.done {
		tasks[k] = v
	}
	return Snapshot{
		SessionID:  t.session.id,
		GiveawayID: t.session.giveawayID,
		Tasks:      tasks,
	}
}

func (t *Tracker) notify(giveawayID, kind string, complete bool) {
	if t.listener != nil {
		t.listener(giveawayID, kind, complete)
	}
}
