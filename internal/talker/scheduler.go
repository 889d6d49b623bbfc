package talker

import (
	"sort"
	"sync"
	"time"
)

// TaskID identifies a scheduled continuation.
type TaskID uint64

// Scheduler defers work to a later tick of the host's update loop.
// Tasks are keyed by owner so a talker can cancel everything it scheduled.
type Scheduler interface {
	Schedule(owner any, delay time.Duration, fn func()) TaskID
	Cancel(owner any) int
}

type task struct {
	id        TaskID
	owner     any
	due       time.Duration
	fn        func()
	cancelled bool
}

// TickScheduler runs tasks from the host's update loop. It never runs a task
// from inside Schedule, even with a zero delay: the earliest a task can run
// is the next call to Advance.
type TickScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	nextID TaskID
	tasks  []*task

	// running holds the batch Advance is working through, so Cancel can
	// reach tasks that are already due.
	running []*task
}

// NewTickScheduler creates an empty scheduler at time zero.
func NewTickScheduler() *TickScheduler {
	return &TickScheduler{}
}

// Schedule runs fn once delay has elapsed on the scheduler clock.
func (s *TickScheduler) Schedule(owner any, delay time.Duration, fn func()) TaskID {
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.tasks = append(s.tasks, &task{id: s.nextID, owner: owner, due: s.now + delay, fn: fn})
	return s.nextID
}

// Cancel drops every pending task of owner and returns how many were dropped.
func (s *TickScheduler) Cancel(owner any) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.owner == owner {
			t.cancelled = true
			n++
			continue
		}
		kept = append(kept, t)
	}
	clear(s.tasks[len(kept):])
	s.tasks = kept
	for _, t := range s.running {
		if t.owner == owner && !t.cancelled {
			t.cancelled = true
			n++
		}
	}
	return n
}

// Pending returns how many tasks owner has scheduled. A nil owner counts all tasks.
func (s *TickScheduler) Pending(owner any) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner == nil {
		return len(s.tasks)
	}
	n := 0
	for _, t := range s.tasks {
		if t.owner == owner {
			n++
		}
	}
	return n
}

// Now returns the scheduler clock.
func (s *TickScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Advance moves the clock forward by dt and runs every task that became due,
// earliest first, ties in scheduling order. Tasks scheduled while running wait
// for the next Advance. Returns the number of tasks run.
func (s *TickScheduler) Advance(dt time.Duration) int {
	s.mu.Lock()
	if dt > 0 {
		s.now += dt
	}
	var due []*task
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.due <= s.now {
			due = append(due, t)
			continue
		}
		kept = append(kept, t)
	}
	clear(s.tasks[len(kept):])
	s.tasks = kept
	sort.SliceStable(due, func(i, j int) bool { return due[i].due < due[j].due })
	s.running = due
	s.mu.Unlock()

	ran := 0
	for _, t := range due {
		s.mu.Lock()
		cancelled := t.cancelled
		s.mu.Unlock()
		if cancelled {
			continue
		}
		t.fn()
		ran++
	}
	s.mu.Lock()
	s.running = nil
	s.mu.Unlock()
	return ran
}
