package store

import (
	"time"

	"gravimeter-go/types"
)

// State is the cross-task coordination record.
//
//	Mode          command handler, display feed (single-shot reset)
//	Stabilization tank controller (JustStarted), measurement (InProgress, Idle)
//	Level         measurement
//	Tank          tank controller
//	TankRequest   command handler posts, tank controller takes
type State struct {
	Mode          *Field[types.Mode]
	Stabilization *Field[types.StabPhase]
	Level         *Field[types.LevelAlarm]
	Tank          *Field[types.TankState]
	TankRequest   *Field[types.TankRequest]
}

func NewState(mode types.Mode, wait time.Duration) *State {
	return &State{
		Mode:          newField("state.mode", mode, wait),
		Stabilization: newField("state.stabilization", types.StabIdle, wait),
		Level:         newField("state.level", types.LevelNormal, wait),
		Tank:          newField("state.tank", types.TankNormal, wait),
		TankRequest:   newField("state.tank_request", types.TankReqNone, wait),
	}
}

func (s *State) Close() {
	s.Mode.close()
	s.Stabilization.close()
	s.Level.close()
	s.Tank.close()
	s.TankRequest.close()
}
