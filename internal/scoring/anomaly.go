package scoring

import "github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"

// Anomaly is the result of the rule engine for one reading.
type Anomaly struct {
	Score    float64
	Severity domain.Severity
	// Factors lists the rules that fired, in rule order.
	Factors []string
}

// DetectAnomaly evaluates every channel rule independently and sums the
// penalties of those that fire. Within a channel only one band applies.
func DetectAnomaly(fv domain.FeatureVector) Anomaly {
	var (
		score   float64
		factors []string
	)

	switch temp := fv.Temperature(); {
	case temp > AnomalyTempHigh:
		score += AnomalyTempHighPenalty
		factors = append(factors, "High temperature")
	case temp < AnomalyTempLow:
		score += AnomalyTempLowPenalty
		factors = append(factors, "Low temperature")
	}

	if fv.Vibration() > AnomalyVibrationHigh {
		score += AnomalyVibrationPenalty
		factors = append(factors, "High vibration")
	}

	if p := fv.Pressure(); p > AnomalyPressureHigh || p < AnomalyPressureLow {
		score += AnomalyPressurePenalty
		factors = append(factors, "Abnormal pressure")
	}

	if fv.PowerConsumption() > AnomalyPowerHigh {
		score += AnomalyPowerPenalty
		factors = append(factors, "High power consumption")
	}

	if score > MaxAnomalyScore {
		score = MaxAnomalyScore
	}

	return Anomaly{
		Score:    score,
		Severity: ClassifySeverity(score),
		Factors:  factors,
	}
}

// ClassifySeverity maps an anomaly score to a severity.
func ClassifySeverity(score float64) domain.Severity {
	switch {
	case score > SeverityCriticalAbove:
		return domain.SeverityCritical
	case score > SeverityWarningAbove:
		return domain.SeverityWarning
	default:
		return domain.SeverityNormal
	}
}

// RecommendedAction returns the fixed action text for a severity.
func RecommendedAction(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical:
		return ActionCritical
	case domain.SeverityWarning:
		return ActionWarning
	case domain.SeverityNormal:
		return ActionNormal
	default:
		return ActionUnknown
	}
}
