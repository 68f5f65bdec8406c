// Package display feeds the operator console: state changes, the emergency
// notice and consumption rates according to the measurement mode.
package display

import (
	"context"
	"errors"
	"log/slog"

	"gravimeter-go/errcode"
	"gravimeter-go/hal"
	"gravimeter-go/queue"
	"gravimeter-go/store"
	"gravimeter-go/types"
)

// DefaultCap bounds how many rates one continuous-mode cycle delivers.
const DefaultCap = 10

type Deps struct {
	Config    *store.Config
	State     *store.State
	Emergency *store.Emergency
	Console   *queue.Queue
	Display   hal.Display
	Cap       int
	Log       *slog.Logger
}

type Stage struct {
	d Deps

	primed    bool
	emergency bool
	mode      types.Mode
	tank      types.TankState
	level     types.LevelAlarm
}

func New(d Deps) *Stage {
	if d.Cap <= 0 {
		d.Cap = DefaultCap
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &Stage{d: d}
}

func (s *Stage) Step(ctx context.Context) error {
	d := s.d
	emergency, err := d.Emergency.Read()
	if err != nil {
		return err
	}
	mode, err := d.State.Mode.Read()
	if err != nil {
		return err
	}
	if err := s.report(emergency, mode); err != nil {
		return err
	}

	if emergency || mode == types.ModeOff || mode == types.ModeRemote {
		_, err := d.Console.Clear()
		return err
	}

	unit, err := d.Config.RateUnit.Read()
	if err != nil {
		return err
	}
	switch mode {
	case types.ModeSingleShot:
		v, err := d.Console.Pop()
		if errors.Is(err, errcode.QueueEmpty) {
			return nil
		}
		if err != nil {
			return err
		}
		d.Display.Consumption(v, unit)
		if err := d.State.Mode.Write(types.ModeOff); err != nil {
			return err
		}
		s.mode = types.ModeOff
		d.Display.Mode(types.ModeOff)
	case types.ModeContinuous:
		_, err := d.Console.Drain(d.Cap, func(v float64) { d.Display.Consumption(v, unit) })
		return err
	}
	return nil
}

// report publishes the emergency edge and any change in mode, tank state
// or level alarm since the previous cycle.
func (s *Stage) report(emergency bool, mode types.Mode) error {
	d := s.d
	tank, err := d.State.Tank.Read()
	if err != nil {
		return err
	}
	level, err := d.State.Level.Read()
	if err != nil {
		return err
	}
	first := !s.primed
	s.primed = true

	if first || emergency != s.emergency {
		if emergency {
			d.Log.Warn("emergency stop active")
		} else if !first {
			d.Log.Info("emergency cleared")
		}
		d.Display.Emergency(emergency)
		s.emergency = emergency
	}
	if first || mode != s.mode {
		d.Display.Mode(mode)
		s.mode = mode
	}
	if first || tank != s.tank {
		d.Display.Tank(tank)
		s.tank = tank
	}
	if first || level != s.level {
		d.Display.Level(level)
		s.level = level
	}
	return nil
}
