package system

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gravimeter-go/bus"
	"gravimeter-go/errcode"
	"gravimeter-go/report"
	"gravimeter-go/services/config"
	"gravimeter-go/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fastProfile runs every task at 10 ms with a 20 ms sample period.
func fastProfile(t *testing.T) config.Profile {
	p, err := config.Load(config.Env{Profile: "bench"})
	require.NoError(t, err)
	p.System.PeriodMs = 20
	p.System.StabilizationWaitS = 0.05
	p.Tasks = config.Tasks{MeasureMs: 10, ConsumptionMs: 10, TankMs: 10, CommandMs: 10, DisplayMs: 10, RemoteMs: 10}
	p.Heartbeat.IntervalS = 0.05
	p.Sim.BurnRate = 1
	return p
}

func start(t *testing.T, p config.Profile) (*System, context.CancelFunc, <-chan error) {
	t.Helper()
	log, boot := NewLogger(config.Env{LogLevel: "error"}, io.Discard)
	require.NotEmpty(t, boot)
	s, err := New(p, log)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return s, cancel, done
}

func stop(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("system did not stop")
	}
}

func TestSystem_ContinuousMeasurementReachesDisplay(t *testing.T) {
	s, cancel, done := start(t, fastProfile(t))
	sub := s.Bus.NewConnection("test").Subscribe(report.TopicConsumption)

	s.Post(types.Command{Kind: types.CmdStartContinuous})

	select {
	case m := <-sub.Channel():
		r, ok := m.Payload.(types.ConsumptionReport)
		require.True(t, ok)
		assert.Greater(t, r.Value, 0.0)
		assert.Equal(t, types.PerHour, r.Unit)
	case <-time.After(2 * time.Second):
		t.Fatal("no consumption published")
	}
	stop(t, cancel, done)
}

func TestSystem_RemoteModeDrivesAnalog(t *testing.T) {
	p := fastProfile(t)
	p.StartManual = false
	s, cancel, done := start(t, p)
	s.Tank.SetRequest(true)
	sub := s.Bus.NewConnection("test").Subscribe(report.TopicAnalog)

	select {
	case m := <-sub.Channel():
		r, ok := m.Payload.(types.AnalogReport)
		require.True(t, ok)
		assert.GreaterOrEqual(t, r.Volts, 0.0)
		assert.LessOrEqual(t, r.Volts, p.AnalogVMax)
	case <-time.After(2 * time.Second):
		t.Fatal("no analog output")
	}
	stop(t, cancel, done)
}

func TestSystem_PanicButtonStopsFill(t *testing.T) {
	s, cancel, done := start(t, fastProfile(t))
	em := s.Bus.NewConnection("test").Subscribe(report.TopicEmergency)

	s.Post(types.Command{Kind: types.CmdStartFill})
	require.Eventually(t, func() bool {
		pump, fill, _ := s.Tank.Actuators()
		return pump && fill
	}, 2*time.Second, 5*time.Millisecond)

	s.Tank.PanicButton().Fire()
	require.Eventually(t, func() bool {
		pump, fill, drain := s.Tank.Actuators()
		return !pump && !fill && !drain
	}, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		select {
		case m := <-em.Channel():
			r, ok := m.Payload.(types.EmergencyReport)
			return ok && r.Active
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)

	for _, q := range []interface{ Len() (int, error) }{s.Raw, s.Console, s.Remote} {
		require.Eventually(t, func() bool { n, _ := q.Len(); return n == 0 }, time.Second, 5*time.Millisecond)
	}
	stop(t, cancel, done)
}

func TestSystem_BootIDOnEveryLine(t *testing.T) {
	var buf bytes.Buffer
	log, boot := NewLogger(config.Env{LogLevel: "info", LogFormat: "json"}, &buf)
	log.Info("hello")
	assert.Contains(t, buf.String(), `"boot":"`+boot+`"`)
}

func TestSystem_InvalidProfile(t *testing.T) {
	p := fastProfile(t)
	p.System.RateUnit = "fortnight"
	_, err := New(p, nil)
	require.Error(t, err)
}

func TestSystem_SetHeartbeatPublishesRetained(t *testing.T) {
	s, err := New(fastProfile(t), nil)
	require.NoError(t, err)

	require.ErrorIs(t, s.SetHeartbeat(0), errcode.InvalidParams)
	require.NoError(t, s.SetHeartbeat(2*time.Second))

	sub := s.Bus.NewConnection("test").Subscribe(bus.Topic{"config", "heartbeat"})
	select {
	case m := <-sub.Channel():
		h, ok := m.Payload.(config.Heartbeat)
		require.True(t, ok)
		assert.Equal(t, 2.0, h.IntervalS)
	case <-time.After(time.Second):
		t.Fatal("no retained heartbeat config")
	}
}
