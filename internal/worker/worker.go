// Package worker runs one cancellable background task at a time and exposes
// its running flag and status text to the UI.
//
// Cancellation is cooperative: Stop flips the flag and cancels the run's
// context but never waits. Tasks observe the flag through Control at every
// suspension point. Each run carries a generation number so that a run which
// has been superseded by a restart can no longer change the worker's state.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	StatusIdle      = "Idle"
	StatusRunning   = "Running"
	StatusStopped   = "Stopped"
	StatusCompleted = "Completed"
)

// Task is the body of a background run
type Task func(ctl *Control)

// Worker owns the shared running flag and status of one tool
type Worker struct {
	mu         sync.Mutex
	running    bool
	status     string
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
}

// New creates an idle worker
func New() *Worker {
	done := make(chan struct{})
	close(done)
	return &Worker{status: StatusIdle, done: done}
}

// Start launches task on its own goroutine. A run still in progress is
// stopped first and loses the ability to touch the worker's state.
func (w *Worker) Start(task Task) {
	w.mu.Lock()
	if w.running {
		w.stopLocked()
	}
	w.generation++
	ctx, cancel := context.WithCancel(context.Background())
	ctl := &Control{worker: w, generation: w.generation, ctx: ctx}
	done := make(chan struct{})
	w.running = true
	w.status = StatusRunning
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				ctl.Finish(fmt.Sprintf("Error: task panicked: %v", r))
			}
		}()

		task(ctl)
		ctl.exit()
	}()
}

// Stop requests cancellation of the current run and returns immediately
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		w.stopLocked()
	}
}

func (w *Worker) stopLocked() {
	w.running = false
	w.status = StatusStopped
	if w.cancel != nil {
		w.cancel()
	}
}

// IsRunning reports whether a run is active
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Status returns the latest status text. It persists after the run ends.
func (w *Worker) Status() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Wait blocks until the most recent run's goroutine has exited or the
// timeout elapses. It reports whether the goroutine exited.
func (w *Worker) Wait(timeout time.Duration) bool {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// Control is the handle a task uses to observe cancellation and report status
type Control struct {
	worker     *Worker
	generation uint64
	ctx        context.Context
}

// Context is cancelled when the run is stopped or superseded
func (c *Control) Context() context.Context {
	return c.ctx
}

// Running reports whether this run should keep going
func (c *Control) Running() bool {
	c.worker.mu.Lock()
	defer c.worker.mu.Unlock()
	return c.current() && c.worker.running
}

// SetStatus publishes progress text. Ignored once the run is stopped.
func (c *Control) SetStatus(status string) {
	c.worker.mu.Lock()
	defer c.worker.mu.Unlock()
	if c.current() && c.worker.running {
		c.worker.status = status
	}
}

// Finish ends the run with a terminal status
func (c *Control) Finish(status string) {
	c.worker.mu.Lock()
	defer c.worker.mu.Unlock()
	if c.current() && c.worker.running {
		c.worker.running = false
		c.worker.status = status
	}
}

// Sleep pauses for d, waking early if the run is stopped. It reports
// whether the run is still active afterwards.
func (c *Control) Sleep(d time.Duration) bool {
	if d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-c.ctx.Done():
			timer.Stop()
		}
	}
	return c.Running()
}

// exit clears the running flag when a task returns without calling Finish
func (c *Control) exit() {
	c.worker.mu.Lock()
	defer c.worker.mu.Unlock()
	if c.current() {
		c.worker.running = false
	}
}

func (c *Control) current() bool {
	return c.generation == c.worker.generation
}
