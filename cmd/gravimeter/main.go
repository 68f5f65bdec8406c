package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/abiosoft/ishell/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gravimeter-go/bus"
	"gravimeter-go/console"
	"gravimeter-go/services/config"
	"gravimeter-go/system"
	"gravimeter-go/types"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load environment", "error", err)
		os.Exit(1)
	}
	logger, boot := system.NewLogger(env, os.Stderr)
	slog.SetDefault(logger)

	profile, err := config.Load(env)
	if err != nil {
		logger.Error("failed to load profile", "profile", env.Profile, "error", err)
		os.Exit(1)
	}
	sys, err := system.New(profile, logger)
	if err != nil {
		logger.Error("failed to build system", "error", err)
		os.Exit(1)
	}
	logger.Info("starting gravimeter", "profile", profile.Name, "boot", boot, "metrics", env.MetricsAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if env.MetricsAddr != "" {
		go func() {
			if err := runMetricsServer(ctx, env.MetricsAddr, logger); err != nil {
				logger.Error("metrics server", "error", err)
			}
		}()
	}

	shell := newShell(sys, stop)
	go watchReports(ctx, sys.Bus, shell)
	go func() {
		<-ctx.Done()
		shell.Close()
	}()
	go shell.Run()

	if err := sys.Run(ctx); err != nil {
		logger.Error("system stopped with aborted task", "error", err)
		os.Exit(1)
	}
}

func newShell(sys *system.System, stop context.CancelFunc) *ishell.Shell {
	shell := ishell.New()
	shell.SetPrompt("gravimeter> ")
	shell.Println("Gravimetric consumption meter console. Type help for commands.")
	shell.Interrupt(func(c *ishell.Context, count int, input string) {
		if count >= 2 {
			stop()
			return
		}
		c.Println("Input Ctrl-c once more to exit")
	})
	shell.EOF(func(c *ishell.Context) { stop() })

	post := func(name string) func(c *ishell.Context) {
		return func(c *ishell.Context) {
			cmd, err := console.ParseArgs(append([]string{name}, c.Args...))
			if err != nil {
				c.Err(err)
				return
			}
			sys.Post(cmd)
			c.Println("queued:", cmd)
		}
	}
	for _, cmd := range []*ishell.Cmd{
		{Name: "manual", Help: "toggle manual/automatic mode"},
		{Name: "emergency", Help: "emergency stop|clear"},
		{Name: "measure", Help: "measure once|start|stop"},
		{Name: "fill", Help: "fill start|stop"},
		{Name: "drain", Help: "drain start|stop"},
		{Name: "set", Help: "set period <ms> | stabilization <s> | maxc|min|max <value> | unit hour|minute|second"},
	} {
		cmd.Func = post(cmd.Name)
		shell.AddCmd(cmd)
	}

	shell.AddCmd(&ishell.Cmd{
		Name: "status",
		Help: "show configuration, state and task diagnostics",
		Func: func(c *ishell.Context) {
			cfg, err := sys.Config.Snapshot()
			if err != nil {
				c.Err(err)
				return
			}
			mode, _ := sys.State.Mode.Read()
			tank, _ := sys.State.Tank.Read()
			level, _ := sys.State.Level.Read()
			em, _ := sys.Emergency.Read()
			c.Printf("period=%s stab=%s maxc=%g min=%g max=%g unit=%s\n",
				cfg.Period, cfg.StabilizationWait, cfg.MaxConsumption, cfg.MinLevel, cfg.MaxLevel, cfg.RateUnit)
			c.Printf("mode=%s tank=%s level=%s emergency=%t scale=%.2f\n", mode, tank, level, em, sys.Tank.Read())
			c.Printf("commands_overwritten=%d isr_drops=%d\n", sys.Overwritten(), sys.ISRDrops())
			for _, t := range sys.Tasks() {
				c.Printf("  %-12s period=%-6s activations=%-8d active=%t\n", t.Tag, t.Period, t.Activations, t.Active)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "heartbeat",
		Help: "heartbeat <seconds> (diagnostics interval)",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Println("usage: heartbeat <seconds>")
				return
			}
			v, err := strconv.ParseFloat(c.Args[0], 64)
			if err != nil {
				c.Err(err)
				return
			}
			if err := sys.SetHeartbeat(time.Duration(v * float64(time.Second))); err != nil {
				c.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "press",
		Help: "press the panic button",
		Func: func(c *ishell.Context) { sys.Tank.PanicButton().Fire() },
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "request",
		Help: "request on|off (remote measurement-request line)",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 || (c.Args[0] != "on" && c.Args[0] != "off") {
				c.Println("usage: request on|off")
				return
			}
			sys.Tank.SetRequest(c.Args[0] == "on")
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "level",
		Help: "level <value> (force the simulated scale)",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Println("usage: level <value>")
				return
			}
			v, err := strconv.ParseFloat(c.Args[0], 64)
			if err != nil {
				c.Err(err)
				return
			}
			sys.Tank.SetLevel(v)
		},
	})
	return shell
}

// watchReports prints display and remote traffic on the console.
func watchReports(ctx context.Context, b *bus.Bus, shell *ishell.Shell) {
	conn := b.NewConnection("console")
	defer conn.Disconnect()
	display := conn.Subscribe(bus.Topic{"display", "#"})
	remote := conn.Subscribe(bus.Topic{"remote", "#"})
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-display.Channel():
			shell.Println(formatReport(m))
		case m := <-remote.Channel():
			shell.Println(formatReport(m))
		}
	}
}

func formatReport(m *bus.Message) string {
	switch p := m.Payload.(type) {
	case types.ConsumptionReport:
		return fmt.Sprintf("[%s] %.6g per %s", m.Topic, p.Value, p.Unit)
	case types.AnalogReport:
		return fmt.Sprintf("[%s] %.3f V", m.Topic, p.Volts)
	case types.EmergencyReport:
		if p.Active {
			return fmt.Sprintf("[%s] EMERGENCY STOP", m.Topic)
		}
		return fmt.Sprintf("[%s] clear", m.Topic)
	}
	return fmt.Sprintf("[%s] %v", m.Topic, m.Payload)
}

func runMetricsServer(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown error", "error", err)
		}
	}()

	logger.Info("metrics server started", "addr", addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
