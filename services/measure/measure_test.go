package measure

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gravimeter-go/errcode"
	"gravimeter-go/queue"
	"gravimeter-go/store"
	"gravimeter-go/types"
)

type fakeScale struct{ v float64 }

func (f *fakeScale) Read() float64 { return f.v }

type rig struct {
	cfg   *store.Config
	st    *store.State
	em    *store.Emergency
	raw   *queue.Queue
	scale *fakeScale
	stage *Stage
}

func newRig(t *testing.T, period time.Duration) *rig {
	t.Helper()
	raw, err := queue.New(100, "raw-"+t.Name())
	require.NoError(t, err)
	r := &rig{
		cfg: store.NewConfig(store.ConfigValues{
			Period:            period,
			StabilizationWait: 2 * time.Second,
			MaxConsumption:    10,
			MinLevel:          5,
			MaxLevel:          100,
		}, 0),
		st:    store.NewState(types.ModeOff, 0),
		em:    store.NewEmergency(0),
		raw:   raw,
		scale: &fakeScale{v: 50},
	}
	r.stage = New(Deps{
		Config: r.cfg, State: r.st, Emergency: r.em, Raw: r.raw,
		Scale: r.scale, TaskPeriod: 500 * time.Millisecond,
	})
	return r
}

func (r *rig) step(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, r.stage.Step(context.Background()))
	}
}

func (r *rig) queued(t *testing.T) int {
	t.Helper()
	n, err := r.raw.Len()
	require.NoError(t, err)
	return n
}

func TestMeasure_OneSamplePerPeriod(t *testing.T) {
	r := newRig(t, time.Second) // two task periods per sample
	r.step(t, 1)
	assert.Equal(t, 0, r.queued(t))
	r.step(t, 4)
	assert.Equal(t, 2, r.queued(t))
	v, err := r.raw.Pop()
	require.NoError(t, err)
	assert.Equal(t, 50.0, v)
}

func TestMeasure_LevelAlarm(t *testing.T) {
	r := newRig(t, 500*time.Millisecond)
	cases := []struct {
		v    float64
		want types.LevelAlarm
	}{
		{50, types.LevelNormal},
		{100, types.LevelAtMax},
		{4, types.LevelAtMin},
		{5, types.LevelAtMin},
	}
	for _, c := range cases {
		r.scale.v = c.v
		r.step(t, 1)
		got, err := r.st.Level.Read()
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "reading %v", c.v)
	}
}

func TestMeasure_MaxWinsOnDegenerateThresholds(t *testing.T) {
	r := newRig(t, 500*time.Millisecond)
	require.NoError(t, r.cfg.MinLevel.Write(80))
	require.NoError(t, r.cfg.MaxLevel.Write(20))
	r.step(t, 1)
	got, _ := r.st.Level.Read()
	assert.Equal(t, types.LevelAtMax, got)
}

func TestMeasure_EmergencySkipsReadingAndClears(t *testing.T) {
	r := newRig(t, 500*time.Millisecond)
	r.step(t, 3)
	require.Positive(t, r.queued(t))

	r.em.ActivateFromISR()
	r.scale.v = 200
	r.step(t, 1)
	assert.Equal(t, 0, r.queued(t))
	lvl, _ := r.st.Level.Read()
	assert.Equal(t, types.LevelNormal, lvl, "no reading is taken during emergency")
}

func TestMeasure_WithheldWhileFilling(t *testing.T) {
	r := newRig(t, 500*time.Millisecond)
	r.step(t, 3)
	require.NoError(t, r.st.Tank.Write(types.TankFilling))
	r.step(t, 3)
	assert.Equal(t, 0, r.queued(t))
}

func TestMeasure_StabilizationWait(t *testing.T) {
	r := newRig(t, 500*time.Millisecond)
	require.NoError(t, r.st.Stabilization.Write(types.StabJustStarted))

	// 2 s wait at a 500 ms task period is four activations in progress.
	for i := 0; i < 4; i++ {
		r.step(t, 1)
		ph, _ := r.st.Stabilization.Read()
		require.Equal(t, types.StabInProgress, ph, "cycle %d", i)
		require.Equal(t, 0, r.queued(t))
	}
	r.step(t, 1)
	ph, _ := r.st.Stabilization.Read()
	assert.Equal(t, types.StabIdle, ph)
	assert.Equal(t, 1, r.queued(t))
}

func TestMeasure_PeriodChangeRestartsAndClears(t *testing.T) {
	r := newRig(t, 500*time.Millisecond)
	r.step(t, 4)
	require.Equal(t, 3, r.queued(t))

	require.NoError(t, r.cfg.Period.Write(time.Second))
	r.step(t, 1)
	assert.Equal(t, 0, r.queued(t))
	r.step(t, 2)
	assert.Equal(t, 1, r.queued(t))
}

func TestMeasure_FullQueueIsFatal(t *testing.T) {
	r := newRig(t, 500*time.Millisecond)
	small, err := queue.New(1, "raw-small")
	require.NoError(t, err)
	r.stage.d.Raw = small
	r.step(t, 2)
	err = r.stage.Step(context.Background())
	require.ErrorIs(t, err, errcode.QueueFull)
}
