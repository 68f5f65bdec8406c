// Package report implements the display and remote analog outputs on the
// bus. Consumption and analog values are events; mode, tank, level and
// emergency are retained so late subscribers see the current state.
package report

import (
	"gravimeter-go/bus"
	"gravimeter-go/metrics"
	"gravimeter-go/types"
	"gravimeter-go/x/timex"
)

var (
	TopicConsumption = bus.Topic{"display", "consumption"}
	TopicMode        = bus.Topic{"display", "mode"}
	TopicTank        = bus.Topic{"display", "tank"}
	TopicLevel       = bus.Topic{"display", "level"}
	TopicEmergency   = bus.Topic{"display", "emergency"}
	TopicAnalog      = bus.Topic{"remote", "analog"}
)

// Display publishes console reports.
type Display struct {
	conn *bus.Connection
}

func NewDisplay(conn *bus.Connection) *Display { return &Display{conn: conn} }

func (d *Display) Consumption(v float64, unit types.RateUnit) {
	d.conn.Publish(d.conn.NewMessage(TopicConsumption, types.ConsumptionReport{Value: v, Unit: unit, TS: timex.NowMs()}, false))
}

func (d *Display) Mode(m types.Mode) {
	d.conn.Publish(d.conn.NewMessage(TopicMode, m, true))
}

func (d *Display) Tank(s types.TankState) {
	d.conn.Publish(d.conn.NewMessage(TopicTank, s, true))
}

func (d *Display) Level(l types.LevelAlarm) {
	d.conn.Publish(d.conn.NewMessage(TopicLevel, l, true))
}

func (d *Display) Emergency(active bool) {
	d.conn.Publish(d.conn.NewMessage(TopicEmergency, types.EmergencyReport{Active: active, TS: timex.NowMs()}, true))
}

// Analog publishes the remote analog level.
type Analog struct {
	conn *bus.Connection
}

func NewAnalog(conn *bus.Connection) *Analog { return &Analog{conn: conn} }

func (a *Analog) Drive(volts float64) {
	metrics.AnalogVolts.Set(volts)
	a.conn.Publish(a.conn.NewMessage(TopicAnalog, types.AnalogReport{Volts: volts, TS: timex.NowMs()}, false))
}
