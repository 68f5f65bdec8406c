package store

import (
	"sync/atomic"
	"time"

	"gravimeter-go/errcode"
	"gravimeter-go/metrics"
	"gravimeter-go/x/lockx"
)

// Emergency is the safety latch. Task-context access goes through the
// guard; ActivateFromISR only touches the atomic flag and never blocks.
type Emergency struct {
	mu     *lockx.Mutex
	active atomic.Bool
	closed atomic.Bool
}

func NewEmergency(wait time.Duration) *Emergency {
	metrics.EmergencyActive.Set(0)
	return &Emergency{mu: lockx.New(wait)}
}

// ActivateFromISR sets the latch from an edge handler. It reports true on
// the inactive to active edge.
func (e *Emergency) ActivateFromISR() bool {
	if !e.active.CompareAndSwap(false, true) {
		return false
	}
	metrics.EmergencyActive.Set(1)
	return true
}

func (e *Emergency) lock(op string) error {
	if e.closed.Load() {
		return errcode.Wrap(errcode.Closed, op, "emergency")
	}
	if err := e.mu.Lock(); err != nil {
		metrics.LockTimeouts.WithLabelValues("store/emergency").Inc()
		return errcode.Wrap(errcode.LockTimeout, op, "emergency")
	}
	return nil
}

// Activate sets the latch from task context (operator emergency stop).
func (e *Emergency) Activate() (bool, error) {
	if err := e.lock("activate"); err != nil {
		return false, err
	}
	defer e.mu.Unlock()
	return e.ActivateFromISR(), nil
}

// Clear resets the latch. It reports false when the latch was not set.
func (e *Emergency) Clear() (bool, error) {
	if err := e.lock("clear"); err != nil {
		return false, err
	}
	defer e.mu.Unlock()
	if !e.active.CompareAndSwap(true, false) {
		return false, nil
	}
	metrics.EmergencyActive.Set(0)
	return true, nil
}

func (e *Emergency) Read() (bool, error) {
	if err := e.lock("read"); err != nil {
		return false, err
	}
	defer e.mu.Unlock()
	return e.active.Load(), nil
}

func (e *Emergency) Close() { e.closed.Store(true) }
