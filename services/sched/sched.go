// Package sched runs the fixed set of periodic tasks. Each task wakes at
// absolute release times: the next release is the previous scheduled one
// plus the period, so per-cycle jitter does not accumulate.
package sched

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"gravimeter-go/errcode"
	"gravimeter-go/metrics"
	"gravimeter-go/x/timex"
)

// Stage is one task body. Step runs a bounded amount of work; a non-nil
// error is fatal for the task.
type Stage interface {
	Step(ctx context.Context) error
}

// Initer is implemented by stages that must put hardware in a known state
// before their first activation.
type Initer interface {
	Init(ctx context.Context) error
}

// StageFunc adapts a function to Stage.
type StageFunc func(ctx context.Context) error

func (f StageFunc) Step(ctx context.Context) error { return f(ctx) }

// Task is the static scheduling descriptor. Counters are diagnostic.
type Task struct {
	Tag    string
	Period time.Duration

	activations atomic.Uint64
	active      atomic.Bool
}

func NewTask(tag string, period time.Duration) *Task {
	return &Task{Tag: tag, Period: period}
}

func (t *Task) Activations() uint64 { return t.activations.Load() }
func (t *Task) Active() bool        { return t.active.Load() }

// Run executes s every Period until ctx is done or Step fails. It returns
// nil on cancellation and the Step error on abort.
func (t *Task) Run(ctx context.Context, s Stage, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("task", t.Tag)
	if t.Period <= 0 {
		return errcode.Wrap(errcode.InvalidParams, "sched.run", t.Tag+": period")
	}

	t.active.Store(true)
	metrics.TaskActive.WithLabelValues(t.Tag).Set(1)
	defer func() {
		t.active.Store(false)
		metrics.TaskActive.WithLabelValues(t.Tag).Set(0)
	}()

	if in, ok := s.(Initer); ok {
		if err := in.Init(ctx); err != nil {
			return t.abort(log, err)
		}
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	next := time.Now()
	log.Debug("task started", "period", t.Period)
	for {
		start := time.Now()
		t.activations.Add(1)
		metrics.TaskActivations.WithLabelValues(t.Tag).Inc()
		if err := s.Step(ctx); err != nil {
			return t.abort(log, err)
		}
		metrics.TaskCycleDuration.WithLabelValues(t.Tag).Observe(time.Since(start).Seconds())

		next = next.Add(t.Period)
		wait := time.Until(next)
		if wait <= -t.Period {
			metrics.TaskOverruns.WithLabelValues(t.Tag).Inc()
		}
		if wait <= 0 {
			if ctx.Err() != nil {
				log.Debug("task stopped")
				return nil
			}
			continue
		}
		timex.ResetTimer(timer, wait)
		select {
		case <-ctx.Done():
			log.Debug("task stopped")
			return nil
		case <-timer.C:
		}
	}
}

func (t *Task) abort(log *slog.Logger, err error) error {
	metrics.TaskAborts.WithLabelValues(t.Tag).Inc()
	log.Error("task aborted", "code", errcode.Of(err), "err", err, "activations", t.activations.Load())
	return err
}

// Info is a diagnostic copy of a task descriptor.
type Info struct {
	Tag         string
	Period      time.Duration
	Activations uint64
	Active      bool
}

type entry struct {
	task  *Task
	stage Stage
}

// Group owns the task set. Tasks are not supervised: an aborted task stays
// stopped while the others keep running.
type Group struct {
	log     *slog.Logger
	entries []entry
}

func NewGroup(log *slog.Logger) *Group {
	if log == nil {
		log = slog.Default()
	}
	return &Group{log: log}
}

// Add registers a task. It must be called before Run.
func (g *Group) Add(t *Task, s Stage) {
	g.entries = append(g.entries, entry{task: t, stage: s})
}

// Run starts every task and waits for all of them to stop. It returns the
// first task abort, if any.
func (g *Group) Run(ctx context.Context) error {
	var eg errgroup.Group
	for _, e := range g.entries {
		eg.Go(func() error { return e.task.Run(ctx, e.stage, g.log) })
	}
	return eg.Wait()
}

func (g *Group) Snapshot() []Info {
	out := make([]Info, 0, len(g.entries))
	for _, e := range g.entries {
		out = append(out, Info{
			Tag:         e.task.Tag,
			Period:      e.task.Period,
			Activations: e.task.Activations(),
			Active:      e.task.Active(),
		})
	}
	return out
}
