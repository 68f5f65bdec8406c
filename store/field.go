// Package store holds the lock-guarded records shared between the periodic
// tasks. Each field has its own guard, so a reader sees every field
// atomically but never several fields as one snapshot.
package store

import (
	"sync/atomic"
	"time"

	"gravimeter-go/errcode"
	"gravimeter-go/metrics"
	"gravimeter-go/x/lockx"
)

// Field is one guarded value.
type Field[T any] struct {
	name   string
	mu     *lockx.Mutex
	v      T
	closed atomic.Bool
}

func newField[T any](name string, v T, wait time.Duration) *Field[T] {
	return &Field[T]{name: name, mu: lockx.New(wait), v: v}
}

func (f *Field[T]) Name() string { return f.name }

func (f *Field[T]) lock(op string) error {
	if f.closed.Load() {
		return errcode.Wrap(errcode.Closed, op, f.name)
	}
	if err := f.mu.Lock(); err != nil {
		metrics.LockTimeouts.WithLabelValues("store/" + f.name).Inc()
		return errcode.Wrap(errcode.LockTimeout, op, f.name)
	}
	return nil
}

func (f *Field[T]) Read() (T, error) {
	if err := f.lock("read"); err != nil {
		var zero T
		return zero, err
	}
	defer f.mu.Unlock()
	return f.v, nil
}

func (f *Field[T]) Write(v T) error {
	if err := f.lock("write"); err != nil {
		return err
	}
	f.v = v
	f.mu.Unlock()
	return nil
}

// Take returns the value and resets the field to its zero value.
func (f *Field[T]) Take() (T, error) {
	var zero T
	if err := f.lock("take"); err != nil {
		return zero, err
	}
	defer f.mu.Unlock()
	v := f.v
	f.v = zero
	return v, nil
}

func (f *Field[T]) close() { f.closed.Store(true) }
