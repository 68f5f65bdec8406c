// Package emergency wires the asynchronous emergency inputs (panic button,
// overflow sensor) to the emergency latch.
package emergency

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"gravimeter-go/hal"
	"gravimeter-go/metrics"
	"gravimeter-go/store"
)

// Event is one edge handed from interrupt context to the worker.
type Event struct {
	Source string
	Rising bool // latch went from inactive to active on this edge
	TS     time.Time
}

// Monitor sets the latch inside the edge handler and defers everything
// else (logging, metrics, display) to a worker goroutine.
type Monitor struct {
	latch   *store.Emergency
	display hal.Display
	log     *slog.Logger
	notify  *rate.Limiter

	// Written by the edge handler; MUST NOT block it.
	isrQ    chan Event
	drops   atomic.Uint32
	stopped chan struct{}

	mu      sync.Mutex
	cancels []func()
}

// New builds a monitor. Display notifications are limited to one per
// debounce interval; a zero debounce notifies on every edge.
func New(latch *store.Emergency, display hal.Display, debounce time.Duration, log *slog.Logger) *Monitor {
	if log == nil {
		log = slog.Default()
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if debounce > 0 {
		lim = rate.NewLimiter(rate.Every(debounce), 1)
	}
	return &Monitor{
		latch:   latch,
		display: display,
		log:     log.With("task", "emergency"),
		notify:  lim,
		isrQ:    make(chan Event, 16),
		stopped: make(chan struct{}),
	}
}

// Register arms src. The handler activates the latch lock-free before
// anything else.
func (m *Monitor) Register(src hal.EdgeSource) error {
	name := src.Name()
	cancel, err := src.OnEdge(func() {
		rose := m.latch.ActivateFromISR()
		select {
		case m.isrQ <- Event{Source: name, Rising: rose, TS: time.Now()}:
		default:
			m.drops.Add(1)
			metrics.EmergencyISRDrops.Inc()
		}
	})
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.cancels = append(m.cancels, cancel)
	m.mu.Unlock()
	return nil
}

// Start runs the worker until ctx is done, then disarms every source.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		defer close(m.stopped)
		defer m.disarm()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-m.isrQ:
				m.handle(ev)
			}
		}
	}()
}

func (m *Monitor) handle(ev Event) {
	metrics.EmergencyEdges.WithLabelValues(ev.Source).Inc()
	if !ev.Rising {
		m.log.Debug("emergency edge while latched", "source", ev.Source)
		return
	}
	m.log.Warn("emergency stop", "source", ev.Source, "isr_drops", m.drops.Load())
	if m.display != nil && m.notify.Allow() {
		m.display.Emergency(true)
	}
}

func (m *Monitor) disarm() {
	m.mu.Lock()
	cs := m.cancels
	m.cancels = nil
	m.mu.Unlock()
	for _, c := range cs {
		c()
	}
}

// Done is closed once the worker has stopped.
func (m *Monitor) Done() <-chan struct{} { return m.stopped }

// ISRDrops counts edges whose hand-off to the worker was dropped.
func (m *Monitor) ISRDrops() uint32 { return m.drops.Load() }
