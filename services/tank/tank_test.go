package tank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gravimeter-go/store"
	"gravimeter-go/types"
)

// recorder counts actuator calls and tracks the resulting outputs.
type recorder struct {
	pump, fill, drain bool
	calls             []string
}

func (r *recorder) SetPump(on bool) {
	r.pump = on
	r.calls = append(r.calls, onOff("pump", on))
}

func (r *recorder) SetFillValve(open bool) {
	r.fill = open
	r.calls = append(r.calls, onOff("fill", open))
}

func (r *recorder) SetDrainValve(open bool) {
	r.drain = open
	r.calls = append(r.calls, onOff("drain", open))
}

func onOff(name string, v bool) string {
	if v {
		return name + "+"
	}
	return name + "-"
}

type rig struct {
	st    *store.State
	em    *store.Emergency
	act   *recorder
	stage *Stage
}

func newRig(t *testing.T) *rig {
	r := &rig{st: store.NewState(types.ModeOff, 0), em: store.NewEmergency(0), act: &recorder{pump: true, fill: true, drain: true}}
	r.stage = New(Deps{State: r.st, Emergency: r.em, Actuators: r.act})
	require.NoError(t, r.stage.Init(context.Background()))
	r.act.calls = nil
	return r
}

func (r *rig) step(t *testing.T) {
	t.Helper()
	require.NoError(t, r.stage.Step(context.Background()))
}

func (r *rig) tank(t *testing.T) types.TankState {
	v, err := r.st.Tank.Read()
	require.NoError(t, err)
	return v
}

func TestInit_ForcesSafeOutputs(t *testing.T) {
	r := newRig(t)
	assert.False(t, r.act.pump)
	assert.False(t, r.act.fill)
	assert.False(t, r.act.drain)
	assert.Equal(t, types.TankNormal, r.tank(t))
}

func TestFillThenEmergency(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.st.TankRequest.Write(types.TankReqFill))
	r.step(t)
	assert.Equal(t, Filling, r.stage.m.State())
	assert.Equal(t, types.TankFilling, r.tank(t))
	assert.Equal(t, []string{"pump+", "fill+"}, r.act.calls)

	r.act.calls = nil
	r.em.ActivateFromISR()
	require.NoError(t, r.st.TankRequest.Write(types.TankReqDrain)) // emergency dominates
	r.step(t)
	assert.Equal(t, types.TankNormal, r.tank(t))
	assert.Equal(t, []string{"pump-", "fill-"}, r.act.calls)
	ph, _ := r.st.Stabilization.Read()
	assert.Equal(t, types.StabJustStarted, ph)
}

func TestAtMaxAloneStopsFill(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.st.Level.Write(types.LevelAtMin))
	r.step(t)
	require.Equal(t, types.TankFilling, r.tank(t))

	require.NoError(t, r.st.Level.Write(types.LevelAtMax))
	r.step(t)
	assert.Equal(t, types.TankNormal, r.tank(t))
	assert.False(t, r.act.pump)
}

func TestEmergencyBlocksStart(t *testing.T) {
	r := newRig(t)
	r.em.ActivateFromISR()
	require.NoError(t, r.st.Level.Write(types.LevelAtMin))
	require.NoError(t, r.st.TankRequest.Write(types.TankReqFill))
	r.step(t)
	assert.Equal(t, types.TankNormal, r.tank(t))
	assert.Empty(t, r.act.calls)
}

func TestFillToDrainAndBack(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.st.TankRequest.Write(types.TankReqFill))
	r.step(t)

	r.act.calls = nil
	require.NoError(t, r.st.TankRequest.Write(types.TankReqDrain))
	r.step(t)
	assert.Equal(t, types.TankDraining, r.tank(t))
	assert.Equal(t, []string{"pump-", "fill-", "drain+"}, r.act.calls)
	ph, _ := r.st.Stabilization.Read()
	assert.Equal(t, types.StabJustStarted, ph)

	r.act.calls = nil
	require.NoError(t, r.st.TankRequest.Write(types.TankReqFill))
	r.step(t)
	assert.Equal(t, types.TankFilling, r.tank(t))
	assert.Equal(t, []string{"drain-", "pump+", "fill+"}, r.act.calls)
}

func TestDrainStops(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.st.TankRequest.Write(types.TankReqDrain))
	r.step(t)
	require.Equal(t, types.TankDraining, r.tank(t))

	require.NoError(t, r.st.TankRequest.Write(types.TankReqStopDrain))
	r.step(t)
	assert.Equal(t, types.TankNormal, r.tank(t))
	assert.False(t, r.act.drain)
}

func TestRequestIsOneShot(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.st.TankRequest.Write(types.TankReqStopFill))
	r.step(t) // not applicable in NORMAL, consumed anyway
	req, _ := r.st.TankRequest.Read()
	assert.Equal(t, types.TankReqNone, req)
	assert.Equal(t, types.TankNormal, r.tank(t))
}

func TestStoreFailureIsReturned(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.st.TankRequest.Write(types.TankReqFill))
	r.st.Close()
	require.Error(t, r.stage.Step(context.Background()))
}
