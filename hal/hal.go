// Package hal declares the hardware-facing collaborators the control core
// depends on. Implementations live outside the core: hal/sim for the host
// simulator, report for bus-backed outputs.
package hal

import "gravimeter-go/types"

// Scale returns the latest calibrated weight reading. It must not block.
type Scale interface {
	Read() float64
}

// DigitalInput is a sampled logic line such as the remote request signal.
type DigitalInput interface {
	Read() bool
}

// AnalogOutput drives a voltage in [0, Vmax].
type AnalogOutput interface {
	Drive(volts float64)
}

// Actuators switch the fill pump and the two valves.
type Actuators interface {
	SetPump(on bool)
	SetFillValve(open bool)
	SetDrainValve(open bool)
}

// EdgeSource delivers asynchronous edges (panic button, overflow sensor).
// The handler runs in interrupt context and must return promptly.
type EdgeSource interface {
	Name() string
	OnEdge(handler func()) (cancel func(), err error)
}

// Display is the one-way reporting boundary.
type Display interface {
	Consumption(v float64, unit types.RateUnit)
	Mode(m types.Mode)
	Tank(s types.TankState)
	Level(l types.LevelAlarm)
	Emergency(active bool)
}

// CommandSource yields the last operator command, consuming it.
type CommandSource interface {
	Last() (types.Command, bool)
}
