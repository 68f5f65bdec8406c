// Package tank is the fill/drain controller. It is a table-driven state
// machine whose highest-priority input is the emergency latch.
package tank

import (
	"context"
	"log/slog"

	"gravimeter-go/fsm"
	"gravimeter-go/hal"
	"gravimeter-go/metrics"
	"gravimeter-go/store"
	"gravimeter-go/types"
)

const (
	Normal   = fsm.State(types.TankNormal)
	Filling  = fsm.State(types.TankFilling)
	Draining = fsm.State(types.TankDraining)
)

// cycle is the parameter block the guards and actions see for one
// activation. Actions record the first store failure in err.
type cycle struct {
	emergency bool
	level     types.LevelAlarm
	req       types.TankRequest

	act   hal.Actuators
	state *store.State
	err   error
}

func (c *cycle) setTank(s types.TankState) {
	if c.err == nil {
		c.err = c.state.Tank.Write(s)
	}
}

func (c *cycle) settle() {
	if c.err == nil {
		c.err = c.state.Stabilization.Write(types.StabJustStarted)
	}
}

func startFill(c *cycle) {
	c.act.SetPump(true)
	c.act.SetFillValve(true)
	c.setTank(types.TankFilling)
}

func startDrain(c *cycle) {
	c.act.SetDrainValve(true)
	c.setTank(types.TankDraining)
}

func stopFill(c *cycle) {
	c.act.SetPump(false)
	c.act.SetFillValve(false)
}

var table = []fsm.Transition[*cycle]{
	{
		From: Normal,
		Guard: func(c *cycle) bool {
			return !c.emergency && (c.req == types.TankReqFill || c.level == types.LevelAtMin)
		},
		To:     Filling,
		Action: startFill,
	},
	{
		From:   Normal,
		Guard:  func(c *cycle) bool { return !c.emergency && c.req == types.TankReqDrain },
		To:     Draining,
		Action: startDrain,
	},
	{
		From: Filling,
		Guard: func(c *cycle) bool {
			return c.emergency || c.req == types.TankReqStopFill || c.level == types.LevelAtMax
		},
		To: Normal,
		Action: func(c *cycle) {
			stopFill(c)
			c.setTank(types.TankNormal)
			c.settle()
		},
	},
	{
		From:  Filling,
		Guard: func(c *cycle) bool { return c.req == types.TankReqDrain },
		To:    Draining,
		Action: func(c *cycle) {
			stopFill(c)
			startDrain(c)
			c.settle()
		},
	},
	{
		From:  Draining,
		Guard: func(c *cycle) bool { return c.emergency || c.req == types.TankReqStopDrain },
		To:    Normal,
		Action: func(c *cycle) {
			c.act.SetDrainValve(false)
			c.setTank(types.TankNormal)
		},
	},
	{
		From:  Draining,
		Guard: func(c *cycle) bool { return c.req == types.TankReqFill },
		To:    Filling,
		Action: func(c *cycle) {
			c.act.SetDrainValve(false)
			startFill(c)
		},
	},
	{From: fsm.End},
}

type Deps struct {
	State     *store.State
	Emergency *store.Emergency
	Actuators hal.Actuators
	Log       *slog.Logger
}

type Stage struct {
	d Deps
	m *fsm.Machine[*cycle]
}

func New(d Deps) *Stage {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &Stage{d: d, m: fsm.New(Normal, table)}
}

// Init switches the pump off, closes both valves and records NORMAL.
func (s *Stage) Init(ctx context.Context) error {
	s.d.Actuators.SetPump(false)
	s.d.Actuators.SetFillValve(false)
	s.d.Actuators.SetDrainValve(false)
	return s.d.State.Tank.Write(types.TankNormal)
}

func (s *Stage) State() types.TankState { return types.TankState(s.m.State()) }

func (s *Stage) Step(ctx context.Context) error {
	c := &cycle{act: s.d.Actuators, state: s.d.State}
	var err error
	if c.emergency, err = s.d.Emergency.Read(); err != nil {
		return err
	}
	if c.level, err = s.d.State.Level.Read(); err != nil {
		return err
	}
	if c.req, err = s.d.State.TankRequest.Take(); err != nil {
		return err
	}

	from := s.State()
	if _, ok := s.m.Update(c); ok {
		to := s.State()
		metrics.TankTransitions.WithLabelValues(from.String(), to.String()).Inc()
		s.d.Log.Info("tank transition", "from", from, "to", to,
			"emergency", c.emergency, "level", c.level, "request", c.req)
	}
	return c.err
}
