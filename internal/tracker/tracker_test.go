package tracker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func input(last *time.Time, ts time.Time) Input {
	return Input{
		Equipment: domain.Equipment{
			ID:              7,
			EquipmentID:     "PUMP-001",
			Status:          domain.StatusHealthy,
			HealthScore:     95,
			LastReadingTime: last,
		},
		ReadingTime: ts,
		Assessment: domain.HealthAssessment{
			HealthScore:     55,
			Status:          domain.StatusCritical,
			AnomalyScore:    0.4,
			AnomalySeverity: domain.SeverityNormal,
		},
		Outcome: domain.PredictionOutcome{
			FailureProbability: 0.5,
			RULDays:            15,
			Confidence:         0.5,
			FeatureImportance:  domain.RankImportance([]float64{0.1, 0.4, 0.2, 0.25, 0.05}),
		},
		ModelVersion: "v1.0-bootstrap",
		Now:          base.Add(time.Minute),
	}
}

func ptr(t time.Time) *time.Time { return &t }

func TestModeAccepts(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		last *time.Time
		ts   time.Time
		want bool
	}{
		{"strict first reading", Strict, nil, base, true},
		{"strict newer", Strict, ptr(base), base.Add(time.Second), true},
		{"strict equal", Strict, ptr(base), base, false},
		{"strict older", Strict, ptr(base), base.Add(-time.Second), false},
		{"rescore equal", Rescore, ptr(base), base, true},
		{"rescore older", Rescore, ptr(base), base.Add(-time.Nanosecond), false},
		{"rescore first reading", Rescore, nil, base, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.mode.Accepts(tc.last, tc.ts))
		})
	}
}

func TestApply_RejectsStaleReading(t *testing.T) {
	in := input(ptr(base), base)

	tr, err := Apply(in, Strict)

	require.ErrorIs(t, err, ErrStaleReading)
	assert.Equal(t, Transition{}, tr)
	assert.Equal(t, 95.0, in.Equipment.HealthScore)
	assert.Equal(t, base, *in.Equipment.LastReadingTime)
}

func TestApply_UpdatesStatusAndScoreTogether(t *testing.T) {
	ts := base.Add(time.Hour)
	in := input(ptr(base), ts)

	tr, err := Apply(in, Strict)
	require.NoError(t, err)

	assert.Equal(t, 55.0, tr.Equipment.HealthScore)
	assert.Equal(t, domain.StatusCritical, tr.Equipment.Status)
	assert.Equal(t, ts, *tr.Equipment.LastReadingTime)
	assert.Equal(t, base, *tr.Previous)
	assert.Equal(t, in.Now, tr.Equipment.UpdatedAt)

	// the caller's record is untouched
	assert.Equal(t, 95.0, in.Equipment.HealthScore)
	assert.Equal(t, base, *in.Equipment.LastReadingTime)
}

func TestApply_BuildsPrediction(t *testing.T) {
	in := input(nil, base)

	tr, err := Apply(in, Strict)
	require.NoError(t, err)

	p := tr.Prediction
	assert.Nil(t, tr.Previous)
	assert.Equal(t, "PUMP-001", p.EquipmentID)
	assert.Equal(t, 0.5, p.FailureProbability)
	assert.Equal(t, 15, p.RULDays)
	assert.Equal(t, 0.5, p.ConfidenceScore)
	assert.Equal(t, "v1.0-bootstrap", p.ModelVersion)
	assert.Equal(t, in.Now, p.PredictionTimestamp)
	assert.Equal(t, in.Now.AddDate(0, 0, 15), p.ExpectedFailureDate)
	assert.Equal(t, "vibration,power_consumption,pressure", p.TopFactors)
}

func TestApply_NeutralOutcome(t *testing.T) {
	in := input(nil, base)
	in.Outcome = domain.PredictionOutcome{RULDays: 30, Fallback: true}

	tr, err := Apply(in, Strict)
	require.NoError(t, err)

	assert.Equal(t, domain.FeatureImportance{}, tr.Prediction.FeatureImportance)
	assert.Equal(t, "", tr.Prediction.TopFactors)
	assert.Equal(t, 30, tr.Prediction.RULDays)
}

func TestTransitionEvent(t *testing.T) {
	in := input(nil, base)
	tr, err := Apply(in, Strict)
	require.NoError(t, err)

	ev := tr.Event(in.Assessment)

	assert.Equal(t, domain.EventSensorUpdate, ev.Type)
	assert.Equal(t, "PUMP-001", ev.EquipmentID)
	assert.Equal(t, 55.0, ev.HealthScore)
	assert.Equal(t, domain.StatusCritical, ev.Status)
	assert.Equal(t, domain.SeverityNormal, ev.AnomalySeverity)
	assert.Equal(t, 0.5, ev.FailureProbability)
	assert.Equal(t, in.Now, ev.Timestamp)
}

func TestKeyedMutex_SerialisesPerKey(t *testing.T) {
	k := NewKeyedMutex()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  = map[string]int{}
		maxSeen = map[string]int{}
	)
	for i := 0; i < 50; i++ {
		key := []string{"a", "b"}[i%2]
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(key)
			defer unlock()

			mu.Lock()
			active[key]++
			if active[key] > maxSeen[key] {
				maxSeen[key] = active[key]
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active[key]--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen["a"])
	assert.Equal(t, 1, maxSeen["b"])
	assert.Equal(t, 0, k.Len())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	k := NewKeyedMutex()
	unlockA := k.Lock("a")

	done := make(chan struct{})
	go func() {
		unlock := k.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
	unlockA()
}
