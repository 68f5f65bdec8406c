package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gravimeter-go/bus"
	"gravimeter-go/hal"
	"gravimeter-go/types"
)

var (
	_ hal.Display      = (*Display)(nil)
	_ hal.AnalogOutput = (*Analog)(nil)
)

func recv(t *testing.T, s *bus.Subscription) *bus.Message {
	t.Helper()
	select {
	case m := <-s.Channel():
		return m
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for report")
	}
	return nil
}

func TestDisplay_StateIsRetained(t *testing.T) {
	b := bus.NewBus(8)
	c := b.NewConnection("test")
	d := NewDisplay(c)

	d.Mode(types.ModeContinuous)
	d.Tank(types.TankFilling)
	d.Level(types.LevelAtMax)
	d.Emergency(true)

	s := c.Subscribe(bus.Topic{"display", "+"})
	got := map[string]any{}
	for i := 0; i < 4; i++ {
		m := recv(t, s)
		got[m.Topic.String()] = m.Payload
	}
	assert.Equal(t, types.ModeContinuous, got["display/mode"])
	assert.Equal(t, types.TankFilling, got["display/tank"])
	assert.Equal(t, types.LevelAtMax, got["display/level"])
	em, ok := got["display/emergency"].(types.EmergencyReport)
	require.True(t, ok)
	assert.True(t, em.Active)
}

func TestDisplay_ConsumptionNotRetained(t *testing.T) {
	b := bus.NewBus(8)
	c := b.NewConnection("test")
	d := NewDisplay(c)
	d.Consumption(1.5, types.PerMinute)

	s := c.Subscribe(TopicConsumption)
	select {
	case m := <-s.Channel():
		t.Fatalf("unexpected replay %#v", m)
	case <-time.After(30 * time.Millisecond):
	}

	d.Consumption(2.5, types.PerMinute)
	r, ok := recv(t, s).Payload.(types.ConsumptionReport)
	require.True(t, ok)
	assert.Equal(t, 2.5, r.Value)
	assert.Equal(t, types.PerMinute, r.Unit)
}

func TestAnalog_Drive(t *testing.T) {
	b := bus.NewBus(8)
	c := b.NewConnection("test")
	s := c.Subscribe(TopicAnalog)
	NewAnalog(c).Drive(7.5)

	r, ok := recv(t, s).Payload.(types.AnalogReport)
	require.True(t, ok)
	assert.Equal(t, 7.5, r.Volts)
}
