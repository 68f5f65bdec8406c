package store

import (
	"time"

	"gravimeter-go/errcode"
	"gravimeter-go/types"
	"gravimeter-go/x/mathx"
)

// ConfigValues is a plain copy of the tunable parameters.
type ConfigValues struct {
	Period            time.Duration
	StabilizationWait time.Duration
	MaxConsumption    float64
	MinLevel          float64
	MaxLevel          float64
	RateUnit          types.RateUnit
}

// Validate applies the physical bounds the command handler and the profile
// loader enforce before writing.
func (v ConfigValues) Validate() error {
	if err := CheckPeriod(v.Period); err != nil {
		return err
	}
	if err := CheckStabilization(v.StabilizationWait); err != nil {
		return err
	}
	if err := CheckMaxConsumption(v.MaxConsumption); err != nil {
		return err
	}
	if err := CheckLevel(v.MinLevel); err != nil {
		return err
	}
	if err := CheckLevel(v.MaxLevel); err != nil {
		return err
	}
	if v.RateUnit < types.PerHour || v.RateUnit > types.PerSecond {
		return errcode.Wrap(errcode.InvalidParams, "config", "rate_unit")
	}
	return nil
}

func CheckPeriod(d time.Duration) error {
	if !mathx.Between(d, time.Millisecond, time.Hour) {
		return errcode.Wrap(errcode.InvalidParams, "config", "period")
	}
	return nil
}

func CheckStabilization(d time.Duration) error {
	if !mathx.Between(d, 0, time.Hour) {
		return errcode.Wrap(errcode.InvalidParams, "config", "stabilization_wait")
	}
	return nil
}

func CheckMaxConsumption(v float64) error {
	if !(v > 0) {
		return errcode.Wrap(errcode.InvalidParams, "config", "max_consumption")
	}
	return nil
}

func CheckLevel(v float64) error {
	if !(v >= 0) {
		return errcode.Wrap(errcode.InvalidParams, "config", "level")
	}
	return nil
}

// Config is the shared configuration store. The command handler is the only
// writer.
type Config struct {
	Period            *Field[time.Duration]
	StabilizationWait *Field[time.Duration]
	MaxConsumption    *Field[float64]
	MinLevel          *Field[float64]
	MaxLevel          *Field[float64]
	RateUnit          *Field[types.RateUnit]
}

// NewConfig builds the store from initial values; wait is each field's lock
// budget.
func NewConfig(v ConfigValues, wait time.Duration) *Config {
	return &Config{
		Period:            newField("config.period", v.Period, wait),
		StabilizationWait: newField("config.stabilization_wait", v.StabilizationWait, wait),
		MaxConsumption:    newField("config.max_consumption", v.MaxConsumption, wait),
		MinLevel:          newField("config.min_level", v.MinLevel, wait),
		MaxLevel:          newField("config.max_level", v.MaxLevel, wait),
		RateUnit:          newField("config.rate_unit", v.RateUnit, wait),
	}
}

// Snapshot reads every field in turn. Fields are not read atomically as a
// group.
func (c *Config) Snapshot() (ConfigValues, error) {
	var (
		v   ConfigValues
		err error
	)
	if v.Period, err = c.Period.Read(); err != nil {
		return v, err
	}
	if v.StabilizationWait, err = c.StabilizationWait.Read(); err != nil {
		return v, err
	}
	if v.MaxConsumption, err = c.MaxConsumption.Read(); err != nil {
		return v, err
	}
	if v.MinLevel, err = c.MinLevel.Read(); err != nil {
		return v, err
	}
	if v.MaxLevel, err = c.MaxLevel.Read(); err != nil {
		return v, err
	}
	v.RateUnit, err = c.RateUnit.Read()
	return v, err
}

// Close destroys the store; later accesses report errcode.Closed.
func (c *Config) Close() {
	c.Period.close()
	c.StabilizationWait.close()
	c.MaxConsumption.close()
	c.MinLevel.close()
	c.MaxLevel.close()
	c.RateUnit.close()
}
