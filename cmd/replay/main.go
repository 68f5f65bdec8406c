// Command replay drives the meter from a script on stdin, one console line
// per line, and prints the display and remote traffic it produces.
//
// Besides console commands a script may use:
//
//	wait <ms>          let the tasks run
//	press              press the panic button
//	request on|off     set the remote request line
//	level <value>      force the simulated scale
//	# ...              comment
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/shlex"

	"gravimeter-go/bus"
	"gravimeter-go/console"
	"gravimeter-go/errcode"
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
	logger, _ := system.NewLogger(env, os.Stderr)
	slog.SetDefault(logger)

	profile, err := config.Load(env)
	if err != nil {
		logger.Error("failed to load profile", "error", err)
		os.Exit(1)
	}
	sys, err := system.New(profile, logger)
	if err != nil {
		logger.Error("failed to build system", "error", err)
		os.Exit(1)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		printReports(ctx, sys.Bus, os.Stdout)
	}()

	done := make(chan error, 1)
	go func() { done <- sys.Run(ctx) }()

	if err := play(ctx, os.Stdin, sys, logger); err != nil {
		logger.Error("replay failed", "error", err)
	}
	// Give the pipeline a couple of periods to flush the last command.
	settle(ctx, 2*profile.Tasks.Display())
	cancel()
	<-printed
	if err := <-done; err != nil {
		logger.Error("task aborted during replay", "error", err)
		os.Exit(1)
	}
}

func play(ctx context.Context, r io.Reader, sys *system.System, log *slog.Logger) error {
	// A posted command must be polled before the next one overwrites it.
	gap := 2 * sys.Profile.Tasks.Command()
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		args, err := shlex.Split(line)
		if err != nil {
			log.Warn("skipping line", "line", n, "error", err)
			continue
		}
		if err := directive(ctx, sys, args); err == nil {
			continue
		} else if !errors.Is(err, errNotDirective) {
			log.Warn("skipping line", "line", n, "error", err)
			continue
		}
		cmd, err := console.ParseArgs(args)
		if err != nil {
			log.Warn("skipping line", "line", n, "error", err)
			continue
		}
		sys.Post(cmd)
		if !settle(ctx, gap) {
			return ctx.Err()
		}
	}
	return sc.Err()
}

var errNotDirective = errors.New("not a directive")

func parseOnOff(args []string) (bool, error) {
	if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
		return false, errcode.Wrap(errcode.InvalidCommand, args[0], "usage: request on|off")
	}
	return args[1] == "on", nil
}

func directive(ctx context.Context, sys *system.System, args []string) error {
	switch args[0] {
	case "wait":
		if len(args) != 2 {
			return fmt.Errorf("usage: wait <ms>")
		}
		ms, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		settle(ctx, time.Duration(ms)*time.Millisecond)
	case "press":
		sys.Tank.PanicButton().Fire()
	case "request":
		on, err := parseOnOff(args)
		if err != nil {
			return err
		}
		sys.Tank.SetRequest(on)
	case "level":
		if len(args) != 2 {
			return fmt.Errorf("usage: level <value>")
		}
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return err
		}
		sys.Tank.SetLevel(v)
	default:
		return errNotDirective
	}
	return nil
}

func settle(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func printReports(ctx context.Context, b *bus.Bus, w io.Writer) {
	conn := b.NewConnection("replay")
	defer conn.Disconnect()
	sub := conn.Subscribe(bus.Topic{"#"})
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-sub.Channel():
			if len(m.Topic) > 0 && m.Topic[0] == "config" {
				continue
			}
			fmt.Fprintf(w, "%d %s %s\n", time.Now().UnixMilli(), m.Topic, payload(m.Payload))
		}
	}
}

func payload(p any) string {
	switch v := p.(type) {
	case types.ConsumptionReport:
		return fmt.Sprintf("%.6g/%s", v.Value, v.Unit)
	case types.AnalogReport:
		return fmt.Sprintf("%.3fV", v.Volts)
	case types.EmergencyReport:
		return strconv.FormatBool(v.Active)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(p)
}
