// Package consumption turns pairs of raw readings into consumption rates
// and routes them to the console or remote queue by measurement mode.
package consumption

import (
	"context"
	"log/slog"
	"time"

	"gravimeter-go/metrics"
	"gravimeter-go/queue"
	"gravimeter-go/store"
	"gravimeter-go/types"
)

// Rate is the consumption rate of two readings taken one sample period
// apart, in the given unit: (m1+m2) / (period_ms * 1000 * unit_seconds).
func Rate(m1, m2 float64, period time.Duration, unit types.RateUnit) float64 {
	periodMs := float64(period) / float64(time.Millisecond)
	return (m1 + m2) / (periodMs * 1000 * unit.Seconds())
}

type Deps struct {
	Config  *store.Config
	State   *store.State
	Raw     *queue.Queue
	Console *queue.Queue
	Remote  *queue.Queue
	Log     *slog.Logger
}

type Stage struct {
	d      Deps
	period time.Duration
	primed bool
}

func New(d Deps) *Stage {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &Stage{d: d}
}

func (s *Stage) Step(ctx context.Context) error {
	d := s.d
	period, err := d.Config.Period.Read()
	if err != nil {
		return err
	}
	if s.primed && period != s.period {
		s.period = period
		return s.flush()
	}
	s.period, s.primed = period, true

	mode, err := d.State.Mode.Read()
	if err != nil {
		return err
	}
	unit, err := d.Config.RateUnit.Read()
	if err != nil {
		return err
	}
	dst := d.Console
	if !mode.Console() {
		dst = d.Remote
	}

	for {
		n, err := d.Raw.Len()
		if err != nil {
			return err
		}
		if n < 2 {
			return nil
		}
		m1, err := d.Raw.Pop()
		if err != nil {
			return err
		}
		m2, err := d.Raw.Pop()
		if err != nil {
			return err
		}
		r := Rate(m1, m2, period, unit)
		if err := dst.Push(r); err != nil {
			d.Log.Error("consumer stalled", "queue", dst.Label(), "err", err)
			return err
		}
		metrics.ConsumptionRate.WithLabelValues(dst.Label()).Set(r)
	}
}

// flush empties both output queues so no rate computed under the old
// period is published.
func (s *Stage) flush() error {
	c, err := s.d.Console.Clear()
	if err != nil {
		return err
	}
	r, err := s.d.Remote.Clear()
	if err != nil {
		return err
	}
	s.d.Log.Info("sample period changed, outputs flushed", "period", s.period, "console", c, "remote", r)
	return nil
}
