package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// Ticks returns how many whole activations of period fit in d.
// A non-positive period is coerced to 1 ms to avoid division by zero.
func Ticks(d, period time.Duration) int {
	if period <= 0 {
		period = time.Millisecond
	}
	if d <= 0 {
		return 0
	}
	return int(d / period)
}

// ResetTimer safely stops, drains, and resets a timer.
func ResetTimer(t *time.Timer, d time.Duration) {
	if d < 0 {
		d = 0
	}
	if !t.Stop() {
		DrainTimer(t)
	}
	t.Reset(d)
}

func DrainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}
