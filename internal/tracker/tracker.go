// Package tracker turns one scored reading into the next derived state of an
// equipment record and the prediction appended alongside it.
package tracker

import (
	"errors"
	"time"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
)

// ErrStaleReading is returned when a reading is not newer than the
// equipment's last_reading_time.
var ErrStaleReading = errors.New("reading is not newer than equipment state")

// TopFactorCount is the number of channels recorded in Prediction.TopFactors.
const TopFactorCount = 3

// Mode selects the timestamp guard.
type Mode int

const (
	// Strict accepts only readings strictly newer than last_reading_time.
	Strict Mode = iota
	// Rescore also accepts the reading already reflected in the equipment
	// state, so the latest reading can be scored again.
	Rescore
)

func (m Mode) String() string {
	if m == Rescore {
		return "rescore"
	}
	return "strict"
}

// Input is everything the tracker needs for one reading.
type Input struct {
	Equipment    domain.Equipment
	ReadingTime  time.Time
	Assessment   domain.HealthAssessment
	Outcome      domain.PredictionOutcome
	ModelVersion string
	Now          time.Time
}

// Transition is the accepted next state. Previous is the last_reading_time
// the transition was computed against; persistence must re-check it.
type Transition struct {
	Equipment  domain.Equipment
	Prediction domain.Prediction
	Previous   *time.Time
	Mode       Mode
}

// Accepts reports whether a reading at ts may update an equipment whose
// last_reading_time is last.
func (m Mode) Accepts(last *time.Time, ts time.Time) bool {
	if last == nil {
		return true
	}
	if m == Rescore {
		return !ts.Before(*last)
	}
	return ts.After(*last)
}

// Apply computes the transition for in. It returns ErrStaleReading and no
// transition when the guard rejects the reading.
func Apply(in Input, mode Mode) (Transition, error) {
	eq := in.Equipment
	if !mode.Accepts(eq.LastReadingTime, in.ReadingTime) {
		return Transition{}, ErrStaleReading
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var previous *time.Time
	if eq.LastReadingTime != nil {
		p := *eq.LastReadingTime
		previous = &p
	}

	ts := in.ReadingTime
	eq.HealthScore, eq.Status = in.Assessment.HealthScore, in.Assessment.Status
	eq.LastReadingTime = &ts
	eq.UpdatedAt = now

	importance := in.Outcome.FeatureImportance
	if importance == nil {
		importance = domain.FeatureImportance{}
	}

	pred := domain.Prediction{
		EquipmentID:         eq.EquipmentID,
		FailureProbability:  in.Outcome.FailureProbability,
		RULDays:             in.Outcome.RULDays,
		ExpectedFailureDate: now.AddDate(0, 0, in.Outcome.RULDays),
		ConfidenceScore:     in.Outcome.Confidence,
		TopFactors:          importance.Top(TopFactorCount),
		FeatureImportance:   importance,
		ModelVersion:        in.ModelVersion,
		PredictionTimestamp: now,
	}

	return Transition{Equipment: eq, Prediction: pred, Previous: previous, Mode: mode}, nil
}

// Event builds the broadcast payload for an accepted transition.
func (t Transition) Event(a domain.HealthAssessment) domain.BroadcastEvent {
	return domain.BroadcastEvent{
		Type:               domain.EventSensorUpdate,
		EquipmentID:        t.Equipment.EquipmentID,
		Location:           t.Equipment.Location,
		HealthScore:        a.HealthScore,
		Status:             a.Status,
		AnomalySeverity:    a.AnomalySeverity,
		FailureProbability: t.Prediction.FailureProbability,
		RULDays:            t.Prediction.RULDays,
		Timestamp:          t.Prediction.PredictionTimestamp,
	}
}
