package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gravimeter-go/bus"
	"gravimeter-go/errcode"
	"gravimeter-go/types"
)

func TestConfig_EmbeddedProfilesValidate(t *testing.T) {
	for name := range embeddedConfigs {
		p, err := Load(Env{Profile: name})
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name)
	}
}

func TestConfig_BenchDefaults(t *testing.T) {
	p, err := Load(Env{Profile: "bench"})
	require.NoError(t, err)

	v, err := p.System.Values()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, v.Period)
	assert.Equal(t, 5*time.Second, v.StabilizationWait)
	assert.Equal(t, 10.0, v.MaxConsumption)
	assert.Equal(t, 5.0, v.MinLevel)
	assert.Equal(t, 100.0, v.MaxLevel)
	assert.Equal(t, types.PerHour, v.RateUnit)

	assert.Equal(t, 100, p.QueueCapacity)
	assert.Equal(t, 10*time.Millisecond, p.LockWait())
	assert.Equal(t, 500*time.Millisecond, p.Tasks.Measure())
	assert.Equal(t, 10.0, p.AnalogVMax)
	assert.Equal(t, 2*time.Second, p.HeartbeatInterval())
}

func TestConfig_FileOverlay(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "override.yaml")
	require.NoError(t, os.WriteFile(f, []byte("system:\n  period_ms: 250\n  rate_unit: minute\nconsole_cap: 3\n"), 0o600))

	p, err := Load(Env{Profile: "bench", ConfigFile: f})
	require.NoError(t, err)
	assert.Equal(t, 250, p.System.PeriodMs)
	assert.Equal(t, "minute", p.System.RateUnit)
	assert.Equal(t, 3, p.ConsoleCap)
	// untouched keys keep the embedded value
	assert.Equal(t, 100.0, p.System.MaxLevel)
}

func TestConfig_InvalidOverlayRejected(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(f, []byte("system:\n  period_ms: 0\n"), 0o600))

	_, err := Load(Env{Profile: "bench", ConfigFile: f})
	require.ErrorIs(t, err, errcode.InvalidParams)
}

func TestConfig_UnknownProfile(t *testing.T) {
	_, err := Load(Env{Profile: "nope"})
	require.ErrorIs(t, err, errcode.InvalidParams)
}

func TestConfig_LookupOverride(t *testing.T) {
	old := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(string) ([]byte, bool) { return nil, false }
	t.Cleanup(func() { EmbeddedConfigLookup = old })

	_, err := Load(Env{Profile: "bench"})
	require.Error(t, err)
}

func TestConfig_EnvDefaults(t *testing.T) {
	t.Setenv("GRAVIMETER_PROFILE", "rig")
	t.Setenv("GRAVIMETER_LOG_LEVEL", "debug")
	e, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "rig", e.Profile)
	assert.Equal(t, "text", e.LogFormat)
	assert.Equal(t, slog.LevelDebug, e.SlogLevel())

	assert.Equal(t, slog.LevelInfo, Env{LogLevel: "loud"}.SlogLevel())
}

func TestConfig_PublishRetainedPerSection(t *testing.T) {
	p, err := Load(Env{Profile: "bench"})
	require.NoError(t, err)

	b := bus.NewBus(16)
	conn := b.NewConnection("test-config")
	svc := NewConfigService(p)
	svc.Start(context.Background(), conn)

	sub := conn.Subscribe(bus.Topic{configPrefix, "#"})
	got := map[string]any{}
	deadline := time.Now().Add(600 * time.Millisecond)
	for len(got) < 4 && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			require.Len(t, m.Topic, 2)
			got[m.Topic[1]] = m.Payload
		case <-time.After(10 * time.Millisecond):
		}
	}
	require.Len(t, got, 4)
	hb, ok := got["heartbeat"].(Heartbeat)
	require.True(t, ok)
	assert.Equal(t, 2.0, hb.IntervalS)
}
