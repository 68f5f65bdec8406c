package types

// ---- Reporting payloads (published on the bus) ----

type ConsumptionReport struct {
	Value float64  `json:"value"`
	Unit  RateUnit `json:"unit"`
	TS    int64    `json:"ts_ms"`
}

type AnalogReport struct {
	Volts float64 `json:"volts"`
	TS    int64   `json:"ts_ms"`
}

type EmergencyReport struct {
	Active bool  `json:"active"`
	TS     int64 `json:"ts_ms"`
}
