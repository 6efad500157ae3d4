// Package scheduler runs one-shot delayed tasks with an explicit lifetime.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by After once the scheduler has been closed.
var ErrClosed = errors.New("scheduler closed")

// Func is a delayed task. The context is cancelled when the scheduler closes.
type Func func(ctx context.Context)

// Scheduler owns a set of pending timers. Close cancels everything still
// pending and waits for running tasks to return.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[*Task]struct{}
	closed  bool
	wg      sync.WaitGroup

	onChange func(pending int)
}

// Task is a handle to a scheduled function.
type Task struct {
	s     *Scheduler
	timer *time.Timer
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPendingHook reports the number of pending tasks after every change.
func WithPendingHook(fn func(pending int)) Option {
	return func(s *Scheduler) { s.onChange = fn }
}

// New creates a scheduler.
func New(opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[*Task]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// After runs fn once d has elapsed.
func (s *Scheduler) After(d time.Duration, fn Func) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	t := &Task{s: s}
	s.wg.Add(1)
	t.timer = time.AfterFunc(d, func() {
		if !s.remove(t) {
			return
		}
		defer s.wg.Done()
		fn(s.ctx)
	})
	s.pending[t] = struct{}{}
	s.notify()

	return t, nil
}

// Cancel stops the task if it has not started. It reports whether the
// task was stopped.
func (t *Task) Cancel() bool {
	if !t.s.remove(t) {
		return false
	}
	t.timer.Stop()
	t.s.wg.Done()
	return true
}

// Pending returns the number of tasks that have not run yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close cancels pending tasks, cancels the context of running ones and
// waits for them to finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	tasks := make([]*Task, 0, len(s.pending))
	for t := range s.pending {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	for _, t := range tasks {
		t.Cancel()
	}
	s.cancel()
	s.wg.Wait()
}

// remove claims t. Exactly one of the timer callback and Cancel wins.
func (s *Scheduler) remove(t *Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[t]; !ok {
		return false
	}
	delete(s.pending, t)
	s.notify()
	return true
}

func (s *Scheduler) notify() {
	if s.onChange != nil {
		s.onChange(len(s.pending))
	}
}
