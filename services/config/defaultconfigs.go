package config

// -----------------------------------------------------------------------------
// Embedded profiles
//
// Key: profile name (GRAVIMETER_PROFILE)
// Val: YAML document for that profile. Fields left out of a file override
// keep these values.
// -----------------------------------------------------------------------------

const cfgBench = `
system:
  period_ms: 500
  stabilization_wait_s: 5
  max_consumption: 10
  min_level: 5
  max_level: 100
  rate_unit: hour
tasks:
  measure_ms: 500
  consumption_ms: 500
  tank_ms: 500
  command_ms: 500
  display_ms: 500
  remote_ms: 500
queue_capacity: 100
lock_wait_ms: 10
console_cap: 10
analog_vmax: 10.0
emergency_debounce_ms: 250
start_manual: true
heartbeat:
  interval_s: 2
sim:
  initial_level: 50
  fill_rate: 4
  drain_rate: 6
  burn_rate: 0.05
  overflow_level: 110
`

const cfgRig = `
system:
  period_ms: 1000
  stabilization_wait_s: 30
  max_consumption: 40
  min_level: 10
  max_level: 180
  rate_unit: hour
tasks:
  measure_ms: 100
  consumption_ms: 200
  tank_ms: 100
  command_ms: 100
  display_ms: 250
  remote_ms: 250
queue_capacity: 100
lock_wait_ms: 10
console_cap: 10
analog_vmax: 10.0
emergency_debounce_ms: 100
start_manual: false
heartbeat:
  interval_s: 10
sim:
  initial_level: 120
  fill_rate: 8
  drain_rate: 12
  burn_rate: 0.2
  overflow_level: 200
`

var embeddedConfigs = map[string][]byte{
	"bench": []byte(cfgBench),
	"rig":   []byte(cfgRig),
}
