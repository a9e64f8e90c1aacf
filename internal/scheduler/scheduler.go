// Package scheduler runs one-shot in-process tasks at a given time. Tasks
// are keyed by id, can be replaced or cancelled, and are lost on restart.
package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Task is the work run when a timer fires. A returned error is logged and
// not retried.
type Task func() error

type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
	now    func() time.Time
}

func New() *Scheduler {
	return &Scheduler{timers: map[string]*time.Timer{}, now: time.Now}
}

// Schedule arranges for task to run at `at`, replacing any pending task with
// the same id. A time in the past runs the task immediately.
func (s *Scheduler) Schedule(id string, at time.Time, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if t, ok := s.timers[id]; ok {
		t.Stop()
	}
	delay := at.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		// a replaced timer that already fired must not drop its successor
		if s.timers[id] == timer {
			delete(s.timers, id)
		}
		s.mu.Unlock()
		if err := task(); err != nil {
			log.Error().Err(err).Str("task", id).Msg("scheduled task failed")
		}
	})
	s.timers[id] = timer
}

// Cancel stops a pending task and reports whether one was pending.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[id]
	if !ok {
		return false
	}
	delete(s.timers, id)
	return t.Stop()
}

// Pending is the number of tasks waiting to run.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every pending task; later Schedule calls are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.closed = true
}
