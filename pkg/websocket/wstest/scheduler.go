// Package wstest provides in-memory transport and clock fakes for code built
// on pkg/websocket.
package wstest

import (
	"sort"
	"sync"
	"time"

	"gatewatch/pkg/websocket"
)

// Scheduler is a manual clock. Timers fire only from Advance.
type Scheduler struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*timer
}

type timer struct {
	s     *Scheduler
	at    time.Time
	seq   uint64
	fn    func()
	fired bool
	dead  bool
}

// NewScheduler returns a Scheduler whose clock starts at start.
func NewScheduler(start time.Time) *Scheduler {
	return &Scheduler{now: start}
}

func (s *Scheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *Scheduler) AfterFunc(d time.Duration, f func()) websocket.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &timer{s: s, at: s.now.Add(d), seq: s.seq, fn: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *timer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.fired || t.dead {
		return false
	}
	t.dead = true
	return true
}

// Advance moves the clock forward by d, firing every timer that comes due in
// deadline order. Callbacks run on the caller's goroutine without the
// scheduler lock, and timers they schedule fire too when due within d.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.popDue(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		if next.at.After(s.now) {
			s.now = next.at
		}
		next.fired = true
		s.mu.Unlock()

		next.fn()
	}
}

// Pending returns the number of armed timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.fired && !t.dead {
			n++
		}
	}
	return n
}

// NextDeadline returns the time until the earliest armed timer.
func (s *Scheduler) NextDeadline() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compact()
	if len(s.timers) == 0 {
		return 0, false
	}
	return s.timers[0].at.Sub(s.now), true
}

func (s *Scheduler) popDue(target time.Time) *timer {
	s.compact()
	if len(s.timers) == 0 || s.timers[0].at.After(target) {
		return nil
	}
	t := s.timers[0]
	s.timers = s.timers[1:]
	return t
}

func (s *Scheduler) compact() {
	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.fired && !t.dead {
			live = append(live, t)
		}
	}
	s.timers = live
	sort.SliceStable(s.timers, func(i, j int) bool {
		if s.timers[i].at.Equal(s.timers[j].at) {
			return s.timers[i].seq < s.timers[j].seq
		}
		return s.timers[i].at.Before(s.timers[j].at)
	})
}
