// Package scoring holds the rule-based anomaly engine and the weighted
// health score calculator. All bands, penalties, weights and breakpoints
// live in this file.
package scoring

// Health score weights per channel. They sum to 1.0.
const (
	WeightTemperature      = 0.25
	WeightVibration        = 0.35
	WeightPressure         = 0.20
	WeightPowerConsumption = 0.10
	WeightOperatingHours   = 0.10
)

const MaxHealthScore = 100.0

// Health penalty bands. Each penalty is multiplied by the channel weight.
const (
	TempHighBand     = 80.0
	TempElevatedBand = 60.0
	TempHighPenalty  = 30.0
	TempElevPenalty  = 15.0

	VibrationHighBand     = 5.0
	VibrationElevatedBand = 3.0
	VibrationHighPenalty  = 40.0
	VibrationElevPenalty  = 20.0

	PressureHighBand      = 15.0
	PressureLowBand       = 2.0
	PressureElevatedHigh  = 12.0
	PressureElevatedLow   = 3.0
	PressureSeverePenalty = 25.0
	PressureElevPenalty   = 10.0

	PowerHighBand    = 50.0
	PowerHighPenalty = 15.0

	HoursHighBand     = 10000.0
	HoursElevatedBand = 5000.0
	HoursHighPenalty  = 20.0
	HoursElevPenalty  = 10.0
)

// Status breakpoints, inclusive lower bounds.
const (
	HealthyFloor  = 80.0
	WarningFloor  = 60.0
	CriticalFloor = 30.0
)

// Anomaly rule thresholds and additive penalties.
const (
	AnomalyTempHigh        = 80.0
	AnomalyTempLow         = 10.0
	AnomalyTempHighPenalty = 0.3
	AnomalyTempLowPenalty  = 0.2

	AnomalyVibrationHigh    = 5.0
	AnomalyVibrationPenalty = 0.4

	AnomalyPressureHigh    = 15.0
	AnomalyPressureLow     = 2.0
	AnomalyPressurePenalty = 0.3

	AnomalyPowerHigh    = 50.0
	AnomalyPowerPenalty = 0.2

	MaxAnomalyScore = 1.0
)

// Severity breakpoints, exclusive lower bounds.
const (
	SeverityCriticalAbove = 0.7
	SeverityWarningAbove  = 0.4
)

// Recommended actions per anomaly severity.
const (
	ActionCritical = "Immediate shutdown and inspection required"
	ActionWarning  = "Schedule preventive maintenance within 24 hours"
	ActionNormal   = "Continue normal operation with monitoring"
	ActionUnknown  = "Monitor equipment"
)
