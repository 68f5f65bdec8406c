// Package system assembles stores, queues, stages and services for one
// profile over the tank simulator.
package system

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gravimeter-go/bus"
	"gravimeter-go/console"
	"gravimeter-go/errcode"
	"gravimeter-go/hal/sim"
	"gravimeter-go/queue"
	"gravimeter-go/report"
	"gravimeter-go/services/command"
	"gravimeter-go/services/config"
	"gravimeter-go/services/consumption"
	"gravimeter-go/services/display"
	"gravimeter-go/services/emergency"
	"gravimeter-go/services/heartbeat"
	"gravimeter-go/services/measure"
	"gravimeter-go/services/remote"
	"gravimeter-go/services/sched"
	"gravimeter-go/services/tank"
	"gravimeter-go/store"
	"gravimeter-go/types"
)

const simTick = 50 * time.Millisecond

type System struct {
	Profile config.Profile
	Bus     *bus.Bus
	Tank    *sim.Tank
	Mailbox *console.Mailbox

	Config    *store.Config
	State     *store.State
	Emergency *store.Emergency

	Raw, Console, Remote *queue.Queue

	log       *slog.Logger
	group     *sched.Group
	monitor   *emergency.Monitor
	heartbeat *heartbeat.Service
	cfgSvc    *config.ConfigService
	cfgConn   *bus.Connection
}

// New builds every component. Nothing runs until Run.
func New(p config.Profile, log *slog.Logger) (*System, error) {
	if log == nil {
		log = slog.Default()
	}
	values, err := p.System.Values()
	if err != nil {
		return nil, err
	}
	wait := p.LockWait()
	s := &System{
		Profile: p,
		Bus:     bus.NewBus(32),
		Tank: sim.New(sim.Params{
			InitialLevel:  p.Sim.InitialLevel,
			FillRate:      p.Sim.FillRate,
			DrainRate:     p.Sim.DrainRate,
			BurnRate:      p.Sim.BurnRate,
			OverflowLevel: p.Sim.OverflowLevel,
		}),
		Mailbox: &console.Mailbox{},
		log:     log,
		group:   sched.NewGroup(log),
	}
	s.Config = store.NewConfig(values, wait)
	mode := types.ModeRemote
	if p.StartManual {
		mode = types.ModeOff
	}
	s.State = store.NewState(mode, wait)
	s.Emergency = store.NewEmergency(wait)

	for _, q := range []struct {
		dst   **queue.Queue
		label string
	}{
		{&s.Raw, "raw"},
		{&s.Console, "console"},
		{&s.Remote, "remote"},
	} {
		if *q.dst, err = queue.New(p.QueueCapacity, q.label, queue.WithLockWait(wait), queue.WithLogger(log)); err != nil {
			return nil, err
		}
	}

	conn := s.Bus.NewConnection("report")
	screen := report.NewDisplay(conn)
	tasks := p.Tasks

	s.group.Add(sched.NewTask("measure", tasks.Measure()), measure.New(measure.Deps{
		Config: s.Config, State: s.State, Emergency: s.Emergency, Raw: s.Raw,
		Scale: s.Tank, TaskPeriod: tasks.Measure(), Log: log.With("task", "measure"),
	}))
	s.group.Add(sched.NewTask("consumption", tasks.Consumption()), consumption.New(consumption.Deps{
		Config: s.Config, State: s.State, Raw: s.Raw, Console: s.Console, Remote: s.Remote,
		Log: log.With("task", "consumption"),
	}))
	s.group.Add(sched.NewTask("tank", tasks.Tank()), tank.New(tank.Deps{
		State: s.State, Emergency: s.Emergency, Actuators: s.Tank, Log: log.With("task", "tank"),
	}))
	s.group.Add(sched.NewTask("command", tasks.Command()), command.New(command.Deps{
		Config: s.Config, State: s.State, Emergency: s.Emergency, Source: s.Mailbox,
		Manual: p.StartManual, Log: log.With("task", "command"),
	}))
	s.group.Add(sched.NewTask("display", tasks.Display()), display.New(display.Deps{
		Config: s.Config, State: s.State, Emergency: s.Emergency, Console: s.Console,
		Display: screen, Cap: p.ConsoleCap, Log: log.With("task", "display"),
	}))
	s.group.Add(sched.NewTask("remote", tasks.Remote()), remote.New(remote.Deps{
		Config: s.Config, State: s.State, Emergency: s.Emergency, Remote: s.Remote,
		Request: s.Tank.RequestLine(), Output: report.NewAnalog(conn), VMax: p.AnalogVMax,
		Log: log.With("task", "remote"),
	}))

	s.monitor = emergency.New(s.Emergency, screen, p.EmergencyDebounce(), log)
	for _, src := range []*sim.Edge{s.Tank.PanicButton(), s.Tank.Overflow()} {
		if err := s.monitor.Register(src); err != nil {
			return nil, err
		}
	}
	s.heartbeat = &heartbeat.Service{
		Tasks:    s.group,
		Losses:   s,
		Queues:   []*queue.Queue{s.Raw, s.Console, s.Remote},
		Interval: p.HeartbeatInterval(),
		Log:      log,
	}
	s.cfgSvc = config.NewConfigService(p)
	s.cfgConn = s.Bus.NewConnection("config")
	return s, nil
}

// Tasks reports scheduler diagnostics.
func (s *System) Tasks() []sched.Info { return s.group.Snapshot() }

// Overwritten counts operator commands replaced before the command task
// read them.
func (s *System) Overwritten() int { return s.Mailbox.Overwritten() }

// ISRDrops counts emergency edges the monitor worker never saw.
func (s *System) ISRDrops() uint32 { return s.monitor.ISRDrops() }

// Post hands an operator command to the command task.
func (s *System) Post(c types.Command) { s.Mailbox.Post(c) }

// SetHeartbeat republishes the heartbeat section; the heartbeat service
// picks the new interval up from the bus.
func (s *System) SetHeartbeat(interval time.Duration) error {
	if interval <= 0 {
		return errcode.Wrap(errcode.InvalidParams, "heartbeat", "interval")
	}
	s.cfgSvc.UpdateHeartbeat(s.cfgConn, config.Heartbeat{IntervalS: interval.Seconds()})
	return nil
}

// Run starts everything and blocks until ctx is done and all tasks have
// stopped. It returns the first task abort, if any.
func (s *System) Run(ctx context.Context) error {
	s.log.Info("system starting", "profile", s.Profile.Name, "manual", s.Profile.StartManual)
	s.cfgSvc.Start(ctx, s.cfgConn)
	s.monitor.Start(ctx)
	if err := s.heartbeat.Start(ctx, s.Bus.NewConnection("heartbeat")); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Tank.Run(ctx, simTick)
	}()

	err := s.group.Run(ctx)
	wg.Wait()
	<-s.monitor.Done()
	<-s.heartbeat.Done()
	s.close()
	s.log.Info("system stopped")
	return err
}

func (s *System) close() {
	for _, q := range []*queue.Queue{s.Raw, s.Console, s.Remote} {
		_ = q.Close()
	}
	s.Config.Close()
	s.State.Close()
	s.Emergency.Close()
}
