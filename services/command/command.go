// Package command polls the operator console and applies each command to
// the stores, subject to the manual-mode and emergency interlocks.
package command

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"gravimeter-go/errcode"
	"gravimeter-go/hal"
	"gravimeter-go/metrics"
	"gravimeter-go/store"
	"gravimeter-go/types"
)

type Deps struct {
	Config    *store.Config
	State     *store.State
	Emergency *store.Emergency
	Source    hal.CommandSource
	Manual    bool // start in manual mode
	Log       *slog.Logger
}

type Stage struct {
	d      Deps
	manual bool
	warn   rate.Sometimes
}

func New(d Deps) *Stage {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &Stage{d: d, manual: d.Manual, warn: rate.Sometimes{Interval: time.Second}}
}

// Manual reports whether the handler is in manual mode.
func (s *Stage) Manual() bool { return s.manual }

// Init selects the measurement mode matching the initial manual flag.
func (s *Stage) Init(ctx context.Context) error {
	return s.d.State.Mode.Write(modeFor(s.manual))
}

func modeFor(manual bool) types.Mode {
	if manual {
		return types.ModeOff
	}
	return types.ModeRemote
}

func (s *Stage) Step(ctx context.Context) error {
	emergency, err := s.d.Emergency.Read()
	if err != nil {
		return err
	}
	if emergency && !s.manual {
		s.manual = true
		s.d.Log.Warn("emergency active, forcing manual mode")
		if err := s.d.State.Mode.Write(types.ModeOff); err != nil {
			return err
		}
	}

	cmd, ok := s.d.Source.Last()
	if !ok {
		return nil
	}
	reason, err := s.apply(cmd, emergency)
	if err != nil && errcode.Of(err) != errcode.InvalidParams {
		return err
	}
	outcome := "applied"
	switch {
	case err != nil:
		outcome = "invalid"
		s.reject(cmd, err.Error())
	case reason != "":
		outcome = "rejected"
		s.reject(cmd, reason)
	default:
		s.d.Log.Info("command applied", "cmd", cmd.String(), "manual", s.manual)
	}
	metrics.CommandsHandled.WithLabelValues(cmd.Kind.String(), outcome).Inc()
	return nil
}

func (s *Stage) reject(cmd types.Command, reason string) {
	s.warn.Do(func() {
		s.d.Log.Warn("command rejected", "cmd", cmd.String(), "reason", reason)
	})
}

// apply returns a non-empty reason when an interlock refuses cmd.
func (s *Stage) apply(cmd types.Command, emergency bool) (string, error) {
	st := s.d.State
	switch cmd.Kind {
	case types.CmdEmergencyStop:
		_, err := s.d.Emergency.Activate()
		return "", err
	case types.CmdToggleManual:
		if emergency {
			return "emergency forces manual mode", nil
		}
		s.manual = !s.manual
		return "", st.Mode.Write(modeFor(s.manual))
	case types.CmdClearEmergency:
		if !s.manual || !emergency {
			return "clear needs manual mode and an active emergency", nil
		}
		_, err := s.d.Emergency.Clear()
		return "", err
	}

	if !s.manual {
		return "automatic mode", nil
	}
	if cmd.Kind.IsConfig() {
		return "", s.configure(cmd)
	}
	if emergency {
		return "emergency active", nil
	}

	switch cmd.Kind {
	case types.CmdSingleMeasurement:
		return "", st.Mode.Write(types.ModeSingleShot)
	case types.CmdStartContinuous:
		return "", st.Mode.Write(types.ModeContinuous)
	case types.CmdStopContinuous:
		return "", st.Mode.Write(types.ModeOff)
	case types.CmdStartFill:
		return "", st.TankRequest.Write(types.TankReqFill)
	case types.CmdStartDrain:
		return "", st.TankRequest.Write(types.TankReqDrain)
	case types.CmdStopFill:
		return s.stopIf(types.TankFilling, types.TankReqStopFill)
	case types.CmdStopDrain:
		return s.stopIf(types.TankDraining, types.TankReqStopDrain)
	}
	return "", errcode.Wrap(errcode.InvalidParams, "command", "unknown kind "+cmd.Kind.String())
}

func (s *Stage) stopIf(want types.TankState, req types.TankRequest) (string, error) {
	cur, err := s.d.State.Tank.Read()
	if err != nil {
		return "", err
	}
	if cur != want {
		return "tank is " + cur.String(), nil
	}
	return "", s.d.State.TankRequest.Write(req)
}

func (s *Stage) configure(cmd types.Command) error {
	c := s.d.Config
	v := cmd.Value
	switch cmd.Kind {
	case types.CmdSetPeriod:
		if v > float64(time.Hour/time.Millisecond) || float64(int64(v)) != v {
			return errcode.Wrap(errcode.InvalidParams, "config", "period")
		}
		d := time.Duration(v) * time.Millisecond
		if err := store.CheckPeriod(d); err != nil {
			return err
		}
		return c.Period.Write(d)
	case types.CmdSetStabilization:
		d := time.Duration(v * float64(time.Second))
		if err := store.CheckStabilization(d); err != nil {
			return err
		}
		return c.StabilizationWait.Write(d)
	case types.CmdSetMaxConsumption:
		if err := store.CheckMaxConsumption(v); err != nil {
			return err
		}
		return c.MaxConsumption.Write(v)
	case types.CmdSetMinLevel:
		if err := store.CheckLevel(v); err != nil {
			return err
		}
		return c.MinLevel.Write(v)
	case types.CmdSetMaxLevel:
		if err := store.CheckLevel(v); err != nil {
			return err
		}
		return c.MaxLevel.Write(v)
	case types.CmdSetRateUnit:
		u := types.RateUnit(v)
		if u < types.PerHour || u > types.PerSecond || float64(u) != v {
			return errcode.Wrap(errcode.InvalidParams, "config", "rate_unit")
		}
		return c.RateUnit.Write(u)
	}
	return errcode.Wrap(errcode.InvalidParams, "command", "unknown kind "+cmd.Kind.String())
}
