// Package console turns operator input into commands and holds the most
// recent one until the command handler polls it.
package console

import (
	"strconv"
	"strings"
	"sync"

	"github.com/google/shlex"

	"gravimeter-go/errcode"
	"gravimeter-go/metrics"
	"gravimeter-go/types"
)

// Mailbox is a single-slot command register: the last Post wins and Last
// consumes it.
type Mailbox struct {
	mu   sync.Mutex
	cmd  types.Command
	full bool
	lost int
}

func (m *Mailbox) Post(c types.Command) {
	m.mu.Lock()
	if m.full {
		m.lost++
		metrics.CommandsOverwritten.Inc()
	}
	m.cmd, m.full = c, true
	m.mu.Unlock()
}

func (m *Mailbox) Last() (types.Command, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.full {
		return types.Command{}, false
	}
	m.full = false
	return m.cmd, true
}

// Overwritten reports how many commands were replaced before being read.
func (m *Mailbox) Overwritten() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lost
}

var setKinds = map[string]types.CommandKind{
	"period":          types.CmdSetPeriod,
	"stabilization":   types.CmdSetStabilization,
	"stab":            types.CmdSetStabilization,
	"max_consumption": types.CmdSetMaxConsumption,
	"maxc":            types.CmdSetMaxConsumption,
	"min":             types.CmdSetMinLevel,
	"min_level":       types.CmdSetMinLevel,
	"max":             types.CmdSetMaxLevel,
	"max_level":       types.CmdSetMaxLevel,
	"unit":            types.CmdSetRateUnit,
}

var startStop = map[string][2]types.CommandKind{
	"measure": {types.CmdStartContinuous, types.CmdStopContinuous},
	"fill":    {types.CmdStartFill, types.CmdStopFill},
	"drain":   {types.CmdStartDrain, types.CmdStopDrain},
}

// Parse reads one console line:
//
//	manual                        toggle manual/automatic
//	emergency stop|clear
//	measure once|start|stop
//	fill start|stop
//	drain start|stop
//	set period <ms>
//	set stabilization <s>
//	set maxc|min|max <value>
//	set unit hour|minute|second
func Parse(line string) (types.Command, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return types.Command{}, &errcode.E{C: errcode.InvalidCommand, Op: "console.parse", Msg: line, Err: err}
	}
	return ParseArgs(args)
}

func ParseArgs(args []string) (types.Command, error) {
	bad := func(msg string) (types.Command, error) {
		return types.Command{}, errcode.Wrap(errcode.InvalidCommand, "console.parse", msg)
	}
	if len(args) == 0 {
		return bad("empty line")
	}
	for i := range args {
		args[i] = strings.ToLower(args[i])
	}
	verb, rest := args[0], args[1:]

	switch verb {
	case "manual", "auto", "toggle":
		return types.Command{Kind: types.CmdToggleManual}, nil
	case "emergency":
		if len(rest) != 1 {
			return bad("usage: emergency stop|clear")
		}
		switch rest[0] {
		case "stop":
			return types.Command{Kind: types.CmdEmergencyStop}, nil
		case "clear":
			return types.Command{Kind: types.CmdClearEmergency}, nil
		}
		return bad("usage: emergency stop|clear")
	case "set":
		if len(rest) != 2 {
			return bad("usage: set <field> <value>")
		}
		k, ok := setKinds[rest[0]]
		if !ok {
			return bad("unknown field " + rest[0])
		}
		if k == types.CmdSetRateUnit {
			u, ok := types.ParseRateUnit(rest[1])
			if !ok {
				return bad("unknown unit " + rest[1])
			}
			return types.Command{Kind: k, Value: float64(u)}, nil
		}
		v, err := strconv.ParseFloat(rest[1], 64)
		if err != nil {
			return bad("not a number: " + rest[1])
		}
		return types.Command{Kind: k, Value: v}, nil
	}

	pair, ok := startStop[verb]
	if !ok {
		return bad("unknown command " + verb)
	}
	if len(rest) != 1 {
		return bad("usage: " + verb + " start|stop")
	}
	switch rest[0] {
	case "start":
		return types.Command{Kind: pair[0]}, nil
	case "stop":
		return types.Command{Kind: pair[1]}, nil
	case "once":
		if verb == "measure" {
			return types.Command{Kind: types.CmdSingleMeasurement}, nil
		}
	}
	return bad("usage: " + verb + " start|stop")
}
