// Package queue provides the fixed-capacity sample FIFO that links the
// pipeline stages. Every operation takes the queue's timed guard, so a
// congested queue reports LockTimeout instead of stalling the caller.
package queue

import (
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"gravimeter-go/errcode"
	"gravimeter-go/metrics"
	"gravimeter-go/x/lockx"
)

// Queue is a circular buffer of samples. head is the next write slot and
// tail the next read slot; count entries lie between them in push order.
type Queue struct {
	label string
	mu    *lockx.Mutex
	buf   []float64
	head  int
	tail  int
	count int
	done  bool

	log  *slog.Logger
	warn rate.Sometimes
}

// Option customises a Queue at creation.
type Option func(*Queue)

// WithLockWait overrides the guard's wait budget.
func WithLockWait(d time.Duration) Option {
	return func(q *Queue) { q.mu = lockx.New(d) }
}

// WithLogger sets the logger used for throttled diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.log = l }
}

// New allocates a queue of the given capacity. label names it in logs and
// metrics.
func New(capacity int, label string, opts ...Option) (*Queue, error) {
	if capacity <= 0 {
		return nil, errcode.Wrap(errcode.ResourceCreation, "queue.new", label)
	}
	q := &Queue{
		label: label,
		mu:    lockx.New(lockx.DefaultWait),
		buf:   make([]float64, capacity),
		log:   slog.Default(),
		warn:  rate.Sometimes{Interval: 5 * time.Second},
	}
	for _, o := range opts {
		o(q)
	}
	q.log = q.log.With("queue", label)
	metrics.QueueDepth.WithLabelValues(label).Set(0)
	return q, nil
}

func (q *Queue) Label() string { return q.label }
func (q *Queue) Cap() int      { return len(q.buf) }

func (q *Queue) lock(op string) error {
	if err := q.mu.Lock(); err != nil {
		metrics.LockTimeouts.WithLabelValues("queue/" + q.label).Inc()
		return err
	}
	if q.done {
		q.mu.Unlock()
		return errcode.Wrap(errcode.Closed, op, q.label)
	}
	return nil
}

// Push appends v. A full queue keeps its contents and v is discarded.
func (q *Queue) Push(v float64) error {
	if err := q.lock("queue.push"); err != nil {
		q.reject(err)
		return err
	}
	defer q.mu.Unlock()
	if q.count == len(q.buf) {
		q.reject(errcode.QueueFull)
		return errcode.QueueFull
	}
	q.buf[q.head] = v
	q.head = (q.head + 1) % len(q.buf)
	q.count++
	metrics.QueueDepth.WithLabelValues(q.label).Set(float64(q.count))
	return nil
}

// Pop removes and returns the oldest sample.
func (q *Queue) Pop() (float64, error) {
	if err := q.lock("queue.pop"); err != nil {
		return 0, err
	}
	defer q.mu.Unlock()
	if q.count == 0 {
		return 0, errcode.QueueEmpty
	}
	v := q.buf[q.tail]
	q.tail = (q.tail + 1) % len(q.buf)
	q.count--
	metrics.QueueDepth.WithLabelValues(q.label).Set(float64(q.count))
	return v, nil
}

// Len reports the number of queued samples.
func (q *Queue) Len() (int, error) {
	if err := q.lock("queue.len"); err != nil {
		return 0, err
	}
	defer q.mu.Unlock()
	return q.count, nil
}

func (q *Queue) IsFull() (bool, error) {
	n, err := q.Len()
	return n == len(q.buf), err
}

func (q *Queue) IsEmpty() (bool, error) {
	n, err := q.Len()
	return n == 0, err
}

// Clear discards every queued sample and returns how many were dropped.
func (q *Queue) Clear() (int, error) {
	if err := q.lock("queue.clear"); err != nil {
		return 0, err
	}
	defer q.mu.Unlock()
	n := q.count
	q.head, q.tail, q.count = 0, 0, 0
	if n > 0 {
		metrics.QueueClears.WithLabelValues(q.label).Add(float64(n))
		metrics.QueueDepth.WithLabelValues(q.label).Set(0)
	}
	return n, nil
}

// Close releases the queue. Later operations report errcode.Closed.
func (q *Queue) Close() error {
	if err := q.lock("queue.close"); err != nil {
		return err
	}
	defer q.mu.Unlock()
	q.done = true
	q.count = 0
	metrics.QueueDepth.DeleteLabelValues(q.label)
	return nil
}

func (q *Queue) reject(err error) {
	reason := string(errcode.Of(err))
	metrics.QueueRejects.WithLabelValues(q.label, reason).Inc()
	q.warn.Do(func() {
		q.log.Warn("sample discarded", "reason", reason)
	})
}

// Drain pops up to max samples, or all of them when max <= 0, and passes
// each to fn in FIFO order. It stops at the first non-empty error.
func (q *Queue) Drain(max int, fn func(float64)) (int, error) {
	n := 0
	for max <= 0 || n < max {
		v, err := q.Pop()
		if errors.Is(err, errcode.QueueEmpty) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		fn(v)
		n++
	}
	return n, nil
}
