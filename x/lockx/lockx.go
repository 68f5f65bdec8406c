// Package lockx provides a mutual-exclusion guard whose acquisition gives up
// after a fixed wait instead of blocking indefinitely.
package lockx

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"gravimeter-go/errcode"
)

// Tick is the scheduler tick the wait budget is expressed in.
const Tick = time.Millisecond

// DefaultWait is the budget used by queues and stores: ten scheduler ticks.
const DefaultWait = 10 * Tick

// Mutex is a binary semaphore with a bounded Lock.
type Mutex struct {
	sem  *semaphore.Weighted
	wait time.Duration
}

// New returns a Mutex whose Lock waits at most wait. A non-positive wait
// selects DefaultWait.
func New(wait time.Duration) *Mutex {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Mutex{sem: semaphore.NewWeighted(1), wait: wait}
}

// Lock acquires the guard or returns errcode.LockTimeout once the wait
// budget is spent.
func (m *Mutex) Lock() error {
	if m.sem.TryAcquire(1) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.wait)
	defer cancel()
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return errcode.LockTimeout
	}
	return nil
}

// TryLock acquires the guard only if it is free. It never blocks.
func (m *Mutex) TryLock() bool { return m.sem.TryAcquire(1) }

func (m *Mutex) Unlock() { m.sem.Release(1) }

// Wait reports the configured acquisition budget.
func (m *Mutex) Wait() time.Duration { return m.wait }

// Do runs fn while holding the guard.
func (m *Mutex) Do(fn func()) error {
	if err := m.Lock(); err != nil {
		return err
	}
	defer m.Unlock()
	fn()
	return nil
}
