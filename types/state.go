package types

import "fmt"

// ---- Measurement-request mode ----

type Mode int

const (
	ModeOff Mode = iota
	ModeSingleShot
	ModeContinuous
	ModeRemote
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeSingleShot:
		return "single_shot"
	case ModeContinuous:
		return "continuous"
	case ModeRemote:
		return "remote"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Console reports whether consumption rates in this mode go to the console
// queue rather than the remote one.
func (m Mode) Console() bool { return m != ModeRemote }

// ---- Stabilization wait phase ----

type StabPhase int

const (
	StabIdle StabPhase = iota
	StabJustStarted
	StabInProgress
)

func (p StabPhase) String() string {
	switch p {
	case StabIdle:
		return "idle"
	case StabJustStarted:
		return "just_started"
	case StabInProgress:
		return "in_progress"
	}
	return fmt.Sprintf("stab(%d)", int(p))
}

// ---- Level alarm ----

type LevelAlarm int

const (
	LevelNormal LevelAlarm = iota
	LevelAtMin
	LevelAtMax
)

func (l LevelAlarm) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelAtMin:
		return "at_min"
	case LevelAtMax:
		return "at_max"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ClassifyLevel compares a reading against the thresholds. The maximum
// wins when both are met.
func ClassifyLevel(v, min, max float64) LevelAlarm {
	switch {
	case v >= max:
		return LevelAtMax
	case v <= min:
		return LevelAtMin
	}
	return LevelNormal
}

// ---- Tank operational state ----

// TankState values double as FSM state ids and start at 1.
type TankState int

const (
	TankNormal   TankState = 1
	TankFilling  TankState = 2
	TankDraining TankState = 3
)

func (s TankState) String() string {
	switch s {
	case TankNormal:
		return "normal"
	case TankFilling:
		return "filling"
	case TankDraining:
		return "draining"
	}
	return fmt.Sprintf("tank(%d)", int(s))
}

// TankRequest is a one-shot operator request for the tank controller.
type TankRequest int

const (
	TankReqNone TankRequest = iota
	TankReqFill
	TankReqStopFill
	TankReqDrain
	TankReqStopDrain
)

func (r TankRequest) String() string {
	switch r {
	case TankReqNone:
		return "none"
	case TankReqFill:
		return "fill"
	case TankReqStopFill:
		return "stop_fill"
	case TankReqDrain:
		return "drain"
	case TankReqStopDrain:
		return "stop_drain"
	}
	return fmt.Sprintf("tankreq(%d)", int(r))
}

// ---- Rate unit ----

type RateUnit int

const (
	PerHour RateUnit = iota
	PerMinute
	PerSecond
)

func (u RateUnit) String() string {
	switch u {
	case PerHour:
		return "hour"
	case PerMinute:
		return "minute"
	case PerSecond:
		return "second"
	}
	return fmt.Sprintf("unit(%d)", int(u))
}

// ParseRateUnit accepts the String forms.
func ParseRateUnit(s string) (RateUnit, bool) {
	switch s {
	case "hour", "h":
		return PerHour, true
	case "minute", "min", "m":
		return PerMinute, true
	case "second", "sec", "s":
		return PerSecond, true
	}
	return PerHour, false
}

// Seconds is the length of one unit in seconds.
func (u RateUnit) Seconds() float64 {
	switch u {
	case PerMinute:
		return 60
	case PerSecond:
		return 1
	}
	return 3600
}
