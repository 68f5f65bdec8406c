// Package measure is the weighing and level-check task. It classifies each
// reading against the level thresholds, runs the stabilization wait after
// fill/drain, and feeds the raw-measurement queue once per sample period
// while the tank is at rest.
package measure

import (
	"context"
	"log/slog"
	"time"

	"gravimeter-go/hal"
	"gravimeter-go/queue"
	"gravimeter-go/store"
	"gravimeter-go/types"
	"gravimeter-go/x/timex"
)

type Deps struct {
	Config     *store.Config
	State      *store.State
	Emergency  *store.Emergency
	Raw        *queue.Queue
	Scale      hal.Scale
	TaskPeriod time.Duration
	Log        *slog.Logger
}

type Stage struct {
	d Deps

	period time.Duration // sample period seen last cycle
	primed bool
	sample timex.Countdown
	stab   timex.Countdown
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
	if !s.primed || period != s.period {
		if s.primed {
			d.Log.Info("sample period changed", "from", s.period, "to", period)
		}
		s.period, s.primed = period, true
		s.sample.Start(period, d.TaskPeriod)
		if _, err := d.Raw.Clear(); err != nil {
			return err
		}
	}
	wait, err := d.Config.StabilizationWait.Read()
	if err != nil {
		return err
	}

	emergency, err := d.Emergency.Read()
	if err != nil {
		return err
	}
	var reading float64
	if !emergency {
		reading = d.Scale.Read()
		if err := s.checkLevel(reading); err != nil {
			return err
		}
	}

	phase, err := s.stabilize(wait)
	if err != nil {
		return err
	}

	tank, err := d.State.Tank.Read()
	if err != nil {
		return err
	}
	withhold := emergency || tank != types.TankNormal || phase == types.StabInProgress
	switch {
	case withhold:
		n, err := d.Raw.Clear()
		if err != nil {
			return err
		}
		if n > 0 {
			d.Log.Debug("stale samples cleared", "n", n, "emergency", emergency, "tank", tank, "stab", phase)
		}
	case s.sample.Expired():
		if err := d.Raw.Push(reading); err != nil {
			return err
		}
		s.sample.Start(period, d.TaskPeriod)
	}

	s.sample.Next()
	s.stab.Next()
	return nil
}

func (s *Stage) checkLevel(v float64) error {
	min, err := s.d.Config.MinLevel.Read()
	if err != nil {
		return err
	}
	max, err := s.d.Config.MaxLevel.Read()
	if err != nil {
		return err
	}
	return s.d.State.Level.Write(types.ClassifyLevel(v, min, max))
}

// stabilize advances the stabilization phase and returns the phase in
// effect for this cycle.
func (s *Stage) stabilize(wait time.Duration) (types.StabPhase, error) {
	phase, err := s.d.State.Stabilization.Read()
	if err != nil {
		return phase, err
	}
	switch phase {
	case types.StabInProgress:
		if !s.stab.Expired() {
			return phase, nil
		}
		s.d.Log.Info("stabilization complete")
		return types.StabIdle, s.d.State.Stabilization.Write(types.StabIdle)
	case types.StabJustStarted:
		s.stab.Start(wait, s.d.TaskPeriod)
		s.d.Log.Info("stabilization wait", "wait", wait, "ticks", s.stab.Left())
		return types.StabInProgress, s.d.State.Stabilization.Write(types.StabInProgress)
	}
	return phase, nil
}
