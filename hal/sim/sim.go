// Package sim is a host model of the weighed tank, its actuators and the
// asynchronous edge inputs.
package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gravimeter-go/errcode"
)

// Params are rates in level units per second.
type Params struct {
	InitialLevel  float64
	FillRate      float64
	DrainRate     float64
	BurnRate      float64
	OverflowLevel float64
}

// Tank integrates level from actuator state. Mass rises while the pump runs
// with the fill valve open, falls while the drain valve is open and always
// falls by the burn rate.
type Tank struct {
	p Params

	mu         sync.Mutex
	level      float64
	pump       bool
	fill       bool
	drain      bool
	overflowed bool

	request  atomic.Bool
	overflow *Edge
	button   *Edge
}

func New(p Params) *Tank {
	return &Tank{
		p:        p,
		level:    p.InitialLevel,
		overflow: &Edge{name: "overflow"},
		button:   &Edge{name: "panic_button"},
	}
}

// Scale

func (t *Tank) Read() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.level
}

// SetLevel forces the level, for bench scenarios.
func (t *Tank) SetLevel(v float64) {
	t.mu.Lock()
	t.level = v
	t.mu.Unlock()
}

// Actuators

func (t *Tank) SetPump(on bool) {
	t.mu.Lock()
	t.pump = on
	t.mu.Unlock()
}

func (t *Tank) SetFillValve(open bool) {
	t.mu.Lock()
	t.fill = open
	t.mu.Unlock()
}

func (t *Tank) SetDrainValve(open bool) {
	t.mu.Lock()
	t.drain = open
	t.mu.Unlock()
}

// Actuators reports pump, fill valve and drain valve state.
func (t *Tank) Actuators() (pump, fill, drain bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pump, t.fill, t.drain
}

// Advance integrates dt of simulated time and fires the overflow edge when
// the level rises through the overflow mark.
func (t *Tank) Advance(dt time.Duration) {
	s := dt.Seconds()
	t.mu.Lock()
	d := -t.p.BurnRate
	if t.pump && t.fill {
		d += t.p.FillRate
	}
	if t.drain {
		d -= t.p.DrainRate
	}
	t.level += d * s
	if t.level < 0 {
		t.level = 0
	}
	fire := false
	if t.p.OverflowLevel > 0 {
		above := t.level >= t.p.OverflowLevel
		fire = above && !t.overflowed
		t.overflowed = above
	}
	t.mu.Unlock()
	if fire {
		t.overflow.Fire()
	}
}

// Run advances the model every tick until ctx is done.
func (t *Tank) Run(ctx context.Context, tick time.Duration) {
	tk := time.NewTicker(tick)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			t.Advance(tick)
		}
	}
}

// Request line

// RequestLine is the remote system's measurement-request input.
type RequestLine struct{ t *Tank }

func (r RequestLine) Read() bool { return r.t.request.Load() }

func (t *Tank) RequestLine() RequestLine { return RequestLine{t} }
func (t *Tank) SetRequest(on bool)       { t.request.Store(on) }

// Edges

func (t *Tank) Overflow() *Edge    { return t.overflow }
func (t *Tank) PanicButton() *Edge { return t.button }

// Edge is a simulated interrupt line. Fire runs the handler synchronously
// on the caller's goroutine, the way an ISR preempts its context.
type Edge struct {
	name    string
	mu      sync.Mutex
	handler func()
}

func (e *Edge) Name() string { return e.name }

func (e *Edge) OnEdge(h func()) (func(), error) {
	if h == nil {
		return nil, errcode.Wrap(errcode.InvalidParams, "edge.on_edge", e.name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handler != nil {
		return nil, errcode.Wrap(errcode.Rejected, "edge.on_edge", e.name+" already armed")
	}
	e.handler = h
	return func() {
		e.mu.Lock()
		e.handler = nil
		e.mu.Unlock()
	}, nil
}

func (e *Edge) Fire() {
	e.mu.Lock()
	h := e.handler
	e.mu.Unlock()
	if h != nil {
		h()
	}
}
