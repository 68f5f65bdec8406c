// Package heartbeat periodically logs task diagnostics and samples queue
// depths. Its interval follows the retained config/heartbeat section.
package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"gravimeter-go/bus"
	"gravimeter-go/metrics"
	"gravimeter-go/queue"
	"gravimeter-go/services/config"
	"gravimeter-go/services/sched"
)

var topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}

// Tasks exposes scheduler diagnostics.
type Tasks interface {
	Snapshot() []sched.Info
}

// Losses exposes counters of inputs dropped before they were handled.
type Losses interface {
	Overwritten() int
	ISRDrops() uint32
}

type Service struct {
	Tasks    Tasks
	Losses   Losses
	Queues   []*queue.Queue
	Interval time.Duration
	Log      *slog.Logger

	stopped chan struct{}
}

func (s *Service) beat() {
	for _, q := range s.Queues {
		n, err := q.Len()
		if err != nil {
			s.Log.Warn("queue unavailable", "queue", q.Label(), "err", err)
			continue
		}
		metrics.QueueDepth.WithLabelValues(q.Label()).Set(float64(n))
	}
	stopped := 0
	if s.Tasks != nil {
		for _, t := range s.Tasks.Snapshot() {
			if !t.Active {
				stopped++
				s.Log.Warn("task not running", "tag", t.Tag, "activations", t.Activations)
				continue
			}
			s.Log.Debug("task", "tag", t.Tag, "period", t.Period, "activations", t.Activations)
		}
	}
	if s.Losses == nil {
		s.Log.Info("heartbeat", "stopped_tasks", stopped)
		return
	}
	s.Log.Info("heartbeat", "stopped_tasks", stopped,
		"commands_overwritten", s.Losses.Overwritten(), "isr_drops", s.Losses.ISRDrops())
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	defer close(s.stopped)
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(s.Interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Log.Debug("heartbeat stopping")
			return
		case <-tick.C:
			s.beat()
		case msg := <-cfgSub.Channel():
			h, ok := msg.Payload.(config.Heartbeat)
			if !ok || h.IntervalS <= 0 {
				continue
			}
			iv := time.Duration(h.IntervalS * float64(time.Second))
			if iv != s.Interval {
				s.Interval = iv
				tick.Reset(iv)
				s.Log.Info("heartbeat interval set", "interval", iv)
			}
		}
	}
}

// Start launches the heartbeat loop.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if s.Interval <= 0 {
		s.Interval = time.Second
	}
	if s.Log == nil {
		s.Log = slog.Default()
	}
	s.Log = s.Log.With("task", "heartbeat")
	s.stopped = make(chan struct{})
	go s.serviceLoop(ctx, conn)
	return nil
}

// Done is closed when the loop exits.
func (s *Service) Done() <-chan struct{} { return s.stopped }
