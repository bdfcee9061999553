package scoring

import "github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"

// HealthScore starts from MaxHealthScore and subtracts one weighted penalty
// per channel. Bands are checked from most to least severe; the first match
// wins. The result is clamped to [0, 100].
func HealthScore(fv domain.FeatureVector) float64 {
	score := MaxHealthScore

	switch temp := fv.Temperature(); {
	case temp > TempHighBand:
		score -= TempHighPenalty * WeightTemperature
	case temp > TempElevatedBand:
		score -= TempElevPenalty * WeightTemperature
	}

	switch vib := fv.Vibration(); {
	case vib > VibrationHighBand:
		score -= VibrationHighPenalty * WeightVibration
	case vib > VibrationElevatedBand:
		score -= VibrationElevPenalty * WeightVibration
	}

	switch p := fv.Pressure(); {
	case p > PressureHighBand || p < PressureLowBand:
		score -= PressureSeverePenalty * WeightPressure
	case p > PressureElevatedHigh || p < PressureElevatedLow:
		score -= PressureElevPenalty * WeightPressure
	}

	if fv.PowerConsumption() > PowerHighBand {
		score -= PowerHighPenalty * WeightPowerConsumption
	}

	switch h := fv.OperatingHours(); {
	case h > HoursHighBand:
		score -= HoursHighPenalty * WeightOperatingHours
	case h > HoursElevatedBand:
		score -= HoursElevPenalty * WeightOperatingHours
	}

	return clamp(score, 0, MaxHealthScore)
}

// ClassifyStatus is the only mapping from health score to equipment status.
func ClassifyStatus(score float64) domain.Status {
	switch {
	case score >= HealthyFloor:
		return domain.StatusHealthy
	case score >= WarningFloor:
		return domain.StatusWarning
	case score >= CriticalFloor:
		return domain.StatusCritical
	default:
		return domain.StatusDown
	}
}

// Assess runs both scorers on one vector.
func Assess(fv domain.FeatureVector) domain.HealthAssessment {
	health := HealthScore(fv)
	anomaly := DetectAnomaly(fv)
	return domain.HealthAssessment{
		HealthScore:     health,
		Status:          ClassifyStatus(health),
		AnomalyScore:    anomaly.Score,
		AnomalySeverity: anomaly.Severity,
		Action:          RecommendedAction(anomaly.Severity),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
