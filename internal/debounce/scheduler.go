// Package debounce coalesces bursts of input into one delayed action.
package debounce

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// State of a Scheduler.
type State int

const (
	Idle State = iota
	Armed
)

func (s State) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// Scheduler keeps at most one pending action. Use one Scheduler per
// independent input stream: a later Schedule always cancels the pending one.
type Scheduler struct {
	name string
	log  *zap.Logger

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// New creates an idle scheduler. A nil logger disables logging.
func New(name string, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{name: name, log: log}
}

// Schedule cancels any pending action and arms a timer that runs action once
// after delay, unless superseded first.
func (s *Scheduler) Schedule(action func(), delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	gen := s.gen
	s.timer = time.AfterFunc(delay, func() { s.fire(gen, action) })
	s.log.Debug("debounce armed", zap.String("scheduler", s.name), zap.Duration("delay", delay))
}

func (s *Scheduler) fire(gen uint64, action func()) {
	s.mu.Lock()
	// the timer may have fired while a Schedule or Cancel held the lock
	if gen != s.gen || s.timer == nil {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	action()
}

// CancelPending drops the pending action, if any. Safe to call repeatedly.
func (s *Scheduler) CancelPending() {
	s.mu.Lock()
	s.cancelLocked()
	s.mu.Unlock()
}

func (s *Scheduler) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

// RunNow cancels the pending action and runs action synchronously.
func (s *Scheduler) RunNow(action func()) {
	s.CancelPending()
	action()
}

// State reports whether an action is pending.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		return Armed
	}
	return Idle
}
