package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"gravimeter-go/bus"
	"gravimeter-go/errcode"
	"gravimeter-go/store"
	"gravimeter-go/types"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

// EmbeddedConfigLookup allows overriding how profiles are resolved.
var EmbeddedConfigLookup = func(name string) ([]byte, bool) {
	b, ok := embeddedConfigs[name]
	return b, ok
}

// -----------------------------------------------------------------------------
// Environment
// -----------------------------------------------------------------------------

type Env struct {
	Profile     string `env:"GRAVIMETER_PROFILE" envDefault:"bench"`
	ConfigFile  string `env:"GRAVIMETER_CONFIG"`
	LogLevel    string `env:"GRAVIMETER_LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"GRAVIMETER_LOG_FORMAT" envDefault:"text"`
	MetricsAddr string `env:"GRAVIMETER_METRICS_ADDR"`
}

func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return e, &errcode.E{C: errcode.InvalidParams, Op: "config.env", Err: err, Msg: err.Error()}
	}
	return e, nil
}

// SlogLevel maps LogLevel onto slog; unknown names select info.
func (e Env) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// -----------------------------------------------------------------------------
// Profile
// -----------------------------------------------------------------------------

type System struct {
	PeriodMs           int     `yaml:"period_ms"`
	StabilizationWaitS float64 `yaml:"stabilization_wait_s"`
	MaxConsumption     float64 `yaml:"max_consumption"`
	MinLevel           float64 `yaml:"min_level"`
	MaxLevel           float64 `yaml:"max_level"`
	RateUnit           string  `yaml:"rate_unit"`
}

type Tasks struct {
	MeasureMs     int `yaml:"measure_ms"`
	ConsumptionMs int `yaml:"consumption_ms"`
	TankMs        int `yaml:"tank_ms"`
	CommandMs     int `yaml:"command_ms"`
	DisplayMs     int `yaml:"display_ms"`
	RemoteMs      int `yaml:"remote_ms"`
}

type Heartbeat struct {
	IntervalS float64 `yaml:"interval_s"`
}

type Sim struct {
	InitialLevel  float64 `yaml:"initial_level"`
	FillRate      float64 `yaml:"fill_rate"`
	DrainRate     float64 `yaml:"drain_rate"`
	BurnRate      float64 `yaml:"burn_rate"`
	OverflowLevel float64 `yaml:"overflow_level"`
}

type Profile struct {
	Name                string    `yaml:"-"`
	System              System    `yaml:"system"`
	Tasks               Tasks     `yaml:"tasks"`
	QueueCapacity       int       `yaml:"queue_capacity"`
	LockWaitMs          int       `yaml:"lock_wait_ms"`
	ConsoleCap          int       `yaml:"console_cap"`
	AnalogVMax          float64   `yaml:"analog_vmax"`
	EmergencyDebounceMs int       `yaml:"emergency_debounce_ms"`
	StartManual         bool      `yaml:"start_manual"`
	Heartbeat           Heartbeat `yaml:"heartbeat"`
	Sim                 Sim       `yaml:"sim"`
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (p Profile) LockWait() time.Duration          { return ms(p.LockWaitMs) }
func (p Profile) EmergencyDebounce() time.Duration { return ms(p.EmergencyDebounceMs) }
func (p Profile) HeartbeatInterval() time.Duration {
	return time.Duration(p.Heartbeat.IntervalS * float64(time.Second))
}

func (t Tasks) Measure() time.Duration     { return ms(t.MeasureMs) }
func (t Tasks) Consumption() time.Duration { return ms(t.ConsumptionMs) }
func (t Tasks) Tank() time.Duration        { return ms(t.TankMs) }
func (t Tasks) Command() time.Duration     { return ms(t.CommandMs) }
func (t Tasks) Display() time.Duration     { return ms(t.DisplayMs) }
func (t Tasks) Remote() time.Duration      { return ms(t.RemoteMs) }

// Values converts the system section into initial store values.
func (s System) Values() (store.ConfigValues, error) {
	u, ok := types.ParseRateUnit(s.RateUnit)
	if !ok {
		return store.ConfigValues{}, errcode.Wrap(errcode.InvalidParams, "config.system", "rate_unit "+s.RateUnit)
	}
	v := store.ConfigValues{
		Period:            ms(s.PeriodMs),
		StabilizationWait: time.Duration(s.StabilizationWaitS * float64(time.Second)),
		MaxConsumption:    s.MaxConsumption,
		MinLevel:          s.MinLevel,
		MaxLevel:          s.MaxLevel,
		RateUnit:          u,
	}
	return v, v.Validate()
}

// Validate checks every section of the profile.
func (p Profile) Validate() error {
	if _, err := p.System.Values(); err != nil {
		return err
	}
	for name, d := range map[string]int{
		"tasks.measure_ms":     p.Tasks.MeasureMs,
		"tasks.consumption_ms": p.Tasks.ConsumptionMs,
		"tasks.tank_ms":        p.Tasks.TankMs,
		"tasks.command_ms":     p.Tasks.CommandMs,
		"tasks.display_ms":     p.Tasks.DisplayMs,
		"tasks.remote_ms":      p.Tasks.RemoteMs,
		"queue_capacity":       p.QueueCapacity,
		"lock_wait_ms":         p.LockWaitMs,
		"console_cap":          p.ConsoleCap,
	} {
		if d <= 0 {
			return errcode.Wrap(errcode.InvalidParams, "config.profile", name)
		}
	}
	if !(p.AnalogVMax > 0) {
		return errcode.Wrap(errcode.InvalidParams, "config.profile", "analog_vmax")
	}
	if p.EmergencyDebounceMs < 0 {
		return errcode.Wrap(errcode.InvalidParams, "config.profile", "emergency_debounce_ms")
	}
	return nil
}

// Load resolves the embedded profile named by e, overlays e.ConfigFile when
// set, and validates the result.
func Load(e Env) (Profile, error) {
	var p Profile
	raw, ok := EmbeddedConfigLookup(e.Profile)
	if !ok || len(raw) == 0 {
		return p, errcode.Wrap(errcode.InvalidParams, "config.load", "no embedded profile "+e.Profile)
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return p, &errcode.E{C: errcode.Error, Op: "config.load", Msg: e.Profile, Err: err}
	}
	if e.ConfigFile != "" {
		b, err := os.ReadFile(e.ConfigFile)
		if err != nil {
			return p, &errcode.E{C: errcode.Error, Op: "config.load", Msg: e.ConfigFile, Err: err}
		}
		if err := yaml.Unmarshal(b, &p); err != nil {
			return p, &errcode.E{C: errcode.InvalidParams, Op: "config.load", Msg: e.ConfigFile, Err: err}
		}
	}
	p.Name = e.Profile
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("profile %s: %w", p.Name, err)
	}
	return p, nil
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

// ConfigService publishes profile sections as retained messages on
// config/<section> so services can follow runtime changes.
type ConfigService struct {
	Name    string
	profile Profile
}

func NewConfigService(p Profile) *ConfigService {
	return &ConfigService{Name: serviceName, profile: p}
}

func (s *ConfigService) sections() map[string]any {
	p := s.profile
	return map[string]any{
		"system":    p.System,
		"tasks":     p.Tasks,
		"heartbeat": p.Heartbeat,
		"sim":       p.Sim,
	}
}

// Start publishes the profile in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	secs := s.sections()
	go func() {
		if ctx.Err() != nil {
			return
		}
		for k, v := range secs {
			conn.Publish(conn.NewMessage(bus.Topic{configPrefix, k}, v, true))
		}
	}()
}

// UpdateHeartbeat publishes a new heartbeat section.
func (s *ConfigService) UpdateHeartbeat(conn *bus.Connection, h Heartbeat) {
	s.profile.Heartbeat = h
	conn.Publish(conn.NewMessage(bus.Topic{configPrefix, "heartbeat"}, h, true))
}
