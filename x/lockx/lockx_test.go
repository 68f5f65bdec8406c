package lockx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gravimeter-go/errcode"
)

func TestLockUnlock(t *testing.T) {
	m := New(0)
	assert.Equal(t, DefaultWait, m.Wait())

	require.NoError(t, m.Lock())
	m.Unlock()
	require.NoError(t, m.Lock())
	m.Unlock()
}

func TestLockTimesOutWhenHeld(t *testing.T) {
	m := New(5 * time.Millisecond)
	require.True(t, m.TryLock())
	defer m.Unlock()

	start := time.Now()
	err := m.Lock()
	require.ErrorIs(t, err, errcode.LockTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	assert.False(t, m.TryLock())
}

func TestLockAcquiresAfterRelease(t *testing.T) {
	m := New(200 * time.Millisecond)
	require.NoError(t, m.Lock())
	go func() {
		time.Sleep(10 * time.Millisecond)
		m.Unlock()
	}()
	require.NoError(t, m.Lock())
	m.Unlock()
}

func TestDo(t *testing.T) {
	m := New(time.Millisecond)
	ran := false
	require.NoError(t, m.Do(func() { ran = true }))
	assert.True(t, ran)

	require.True(t, m.TryLock())
	err := m.Do(func() { t.Fatal("must not run") })
	require.ErrorIs(t, err, errcode.LockTimeout)
	m.Unlock()
}
