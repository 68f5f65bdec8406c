package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyLevel_MaxWins(t *testing.T) {
	assert.Equal(t, LevelAtMax, ClassifyLevel(100, 5, 100))
	assert.Equal(t, LevelAtMin, ClassifyLevel(5, 5, 100))
	assert.Equal(t, LevelNormal, ClassifyLevel(50, 5, 100))
	// degenerate thresholds: both met, max takes precedence
	assert.Equal(t, LevelAtMax, ClassifyLevel(50, 60, 40))
}

func TestRateUnit(t *testing.T) {
	u, ok := ParseRateUnit("minute")
	assert.True(t, ok)
	assert.Equal(t, PerMinute, u)
	assert.Equal(t, 60.0, u.Seconds())
	_, ok = ParseRateUnit("fortnight")
	assert.False(t, ok)
	assert.Equal(t, "second", PerSecond.String())
}

func TestCommandKinds(t *testing.T) {
	assert.True(t, CmdSetPeriod.IsConfig())
	assert.True(t, CmdSetRateUnit.IsConfig())
	assert.False(t, CmdStartFill.IsConfig())
	assert.Equal(t, "set_period 250", Command{Kind: CmdSetPeriod, Value: 250}.String())
	assert.Equal(t, "cmd(99)", CommandKind(99).String())
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "filling", TankFilling.String())
	assert.Equal(t, "remote", ModeRemote.String())
	assert.False(t, ModeRemote.Console())
	assert.True(t, ModeSingleShot.Console())
	assert.Equal(t, "in_progress", StabInProgress.String())
}
