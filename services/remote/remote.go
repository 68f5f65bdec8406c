// Package remote feeds the remote analog interface while the remote system
// requests measurements.
package remote

import (
	"context"
	"log/slog"

	"gravimeter-go/hal"
	"gravimeter-go/queue"
	"gravimeter-go/store"
	"gravimeter-go/types"
	"gravimeter-go/x/mathx"
)

// DefaultVMax is the analog full-scale voltage.
const DefaultVMax = 10.0

type Deps struct {
	Config    *store.Config
	State     *store.State
	Emergency *store.Emergency
	Remote    *queue.Queue
	Request   hal.DigitalInput
	Output    hal.AnalogOutput
	VMax      float64
	Log       *slog.Logger
}

type Stage struct {
	d Deps
}

func New(d Deps) *Stage {
	if d.VMax <= 0 {
		d.VMax = DefaultVMax
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &Stage{d: d}
}

// Volts maps a consumption rate onto [0, vmax] relative to maxConsumption.
// A non-positive maxConsumption drives 0 V.
func Volts(consumption, maxConsumption, vmax float64) float64 {
	return mathx.ScaleClamped(consumption, maxConsumption, vmax)
}

func (s *Stage) Step(ctx context.Context) error {
	d := s.d
	requested := d.Request.Read()
	maxC, err := d.Config.MaxConsumption.Read()
	if err != nil {
		return err
	}
	emergency, err := d.Emergency.Read()
	if err != nil {
		return err
	}
	mode, err := d.State.Mode.Read()
	if err != nil {
		return err
	}

	if emergency || mode != types.ModeRemote || !requested {
		_, err := d.Remote.Clear()
		return err
	}
	_, err = d.Remote.Drain(0, func(v float64) {
		d.Output.Drive(Volts(v, maxC, d.VMax))
	})
	return err
}
