package types

import "fmt"

// CommandKind enumerates operator console commands.
type CommandKind int

const (
	CmdNone CommandKind = iota
	CmdToggleManual
	CmdClearEmergency
	CmdEmergencyStop
	CmdSingleMeasurement
	CmdStartContinuous
	CmdStopContinuous
	CmdStartFill
	CmdStopFill
	CmdStartDrain
	CmdStopDrain
	CmdSetPeriod
	CmdSetStabilization
	CmdSetMaxConsumption
	CmdSetMinLevel
	CmdSetMaxLevel
	CmdSetRateUnit
)

var commandNames = [...]string{
	CmdNone:              "none",
	CmdToggleManual:      "toggle_manual",
	CmdClearEmergency:    "clear_emergency",
	CmdEmergencyStop:     "emergency_stop",
	CmdSingleMeasurement: "single_measurement",
	CmdStartContinuous:   "start_continuous",
	CmdStopContinuous:    "stop_continuous",
	CmdStartFill:         "start_fill",
	CmdStopFill:          "stop_fill",
	CmdStartDrain:        "start_drain",
	CmdStopDrain:         "stop_drain",
	CmdSetPeriod:         "set_period",
	CmdSetStabilization:  "set_stabilization",
	CmdSetMaxConsumption: "set_max_consumption",
	CmdSetMinLevel:       "set_min_level",
	CmdSetMaxLevel:       "set_max_level",
	CmdSetRateUnit:       "set_rate_unit",
}

func (k CommandKind) String() string {
	if k >= 0 && int(k) < len(commandNames) {
		return commandNames[k]
	}
	return fmt.Sprintf("cmd(%d)", int(k))
}

// IsConfig reports whether k writes the configuration store.
func (k CommandKind) IsConfig() bool { return k >= CmdSetPeriod && k <= CmdSetRateUnit }

// Command is one operator request with its optional numeric argument.
type Command struct {
	Kind  CommandKind
	Value float64
}

func (c Command) String() string {
	if c.Kind.IsConfig() {
		return fmt.Sprintf("%s %g", c.Kind, c.Value)
	}
	return c.Kind.String()
}
