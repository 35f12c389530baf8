// Package sched runs deferred and periodic work on a single worker
// goroutine. Tasks with equal due times execute in submission order, so a
// burst of immediate tasks is a FIFO queue.
package sched

import (
	"container/heap"
	"sync"
	"time"
)

// Task is a unit of deferred work.
type Task func()

// #region entries
type entry struct {
	due    time.Time
	seq    uint64
	period time.Duration // 0 for one-shot
	task   Task

	canceled  bool
	started   bool // a run was dispatched; set before the task executes
	triggered bool
	done      chan struct{}
}

// taskHeap orders entries by due time, breaking ties by submission order.
type taskHeap []*entry

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}
func (h taskHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)        { *h = append(*h, x.(*entry)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// #endregion entries

// #region handle
// Handle tracks one scheduled task.
type Handle struct {
	s *Scheduler
	e *entry
}

// Cancel prevents future runs and reports whether it landed before the
// task ever started. A run already in progress completes; Cancel returns
// false for it.
func (h *Handle) Cancel() bool {
	h.s.mu.Lock()
	h.e.canceled = true
	ok := !h.e.started
	h.s.mu.Unlock()
	h.s.poke()
	return ok
}

// Triggered reports whether the task has run at least once.
func (h *Handle) Triggered() bool {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.e.triggered
}

// Done returns a channel closed after the task's first run.
func (h *Handle) Done() <-chan struct{} { return h.e.done }

// #endregion handle

// #region scheduler
// Scheduler owns the worker goroutine and the pending-task heap.
type Scheduler struct {
	mu      sync.Mutex
	pq      taskHeap
	seq     uint64
	wake    chan struct{}
	stopped chan struct{}

	stopNow  bool // exit after the current task
	draining bool // run everything due by cutoff, then exit
	cutoff   time.Time
	down     bool
}

// New starts a scheduler with an idle worker.
func New() *Scheduler {
	s := &Scheduler{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Schedule queues task to run after delay. A non-zero period reschedules
// it after each run until canceled.
func (s *Scheduler) Schedule(task Task, delay, period time.Duration) *Handle {
	s.mu.Lock()
	e := &entry{
		due:    time.Now().Add(delay),
		seq:    s.seq,
		period: period,
		task:   task,
		done:   make(chan struct{}),
	}
	s.seq++
	if s.down || s.stopNow || s.draining {
		e.canceled = true
		s.mu.Unlock()
		return &Handle{s: s, e: e}
	}
	heap.Push(&s.pq, e)
	s.mu.Unlock()
	s.poke()
	return &Handle{s: s, e: e}
}

// Shutdown stops the worker. When synchronous, every task already due at
// the call runs before the worker exits; otherwise only a task in progress
// completes. Pending tasks are canceled either way. Safe to call twice.
func (s *Scheduler) Shutdown(synchronous bool) {
	s.mu.Lock()
	if s.down {
		s.mu.Unlock()
		<-s.stopped
		return
	}
	s.down = true
	if synchronous {
		s.draining = true
		s.cutoff = time.Now()
	} else {
		s.stopNow = true
	}
	s.mu.Unlock()
	s.poke()
	<-s.stopped

	s.mu.Lock()
	for _, e := range s.pq {
		e.canceled = true
	}
	s.pq = nil
	s.mu.Unlock()
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop() {
	defer close(s.stopped)
	for {
		s.mu.Lock()
		if s.stopNow {
			s.mu.Unlock()
			return
		}
		if s.pq.Len() == 0 {
			if s.draining {
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
			<-s.wake
			continue
		}
		e := s.pq[0]
		if e.canceled {
			heap.Pop(&s.pq)
			s.mu.Unlock()
			continue
		}
		now := time.Now()
		if s.draining && e.due.After(s.cutoff) {
			s.mu.Unlock()
			return
		}
		if e.due.After(now) {
			s.mu.Unlock()
			t := time.NewTimer(e.due.Sub(now))
			select {
			case <-s.wake:
				t.Stop()
			case <-t.C:
			}
			continue
		}
		heap.Pop(&s.pq)
		e.started = true
		s.mu.Unlock()

		e.task()

		s.mu.Lock()
		if !e.triggered {
			e.triggered = true
			close(e.done)
		}
		if e.period > 0 && !e.canceled && !s.draining && !s.stopNow {
			e.due = time.Now().Add(e.period)
			e.seq = s.seq
			s.seq++
			heap.Push(&s.pq, e)
		}
		s.mu.Unlock()
	}
}

// #endregion scheduler
