package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
)

type fakeStore struct {
	alerts []domain.Alert
	err    error
}

func (f *fakeStore) CreateAlert(_ context.Context, a domain.Alert) error {
	f.alerts = append(f.alerts, a)
	return f.err
}

type fakePublisher struct {
	subjects []string
	err      error
}

func (f *fakePublisher) SendAlert(_ context.Context, subject, _ string) (string, error) {
	f.subjects = append(f.subjects, subject)
	return "m-1", f.err
}

func newNotifier(store *fakeStore, pub *fakePublisher) *Notifier {
	n := NewNotifier(store, pub, 0.7, zerolog.Nop())
	n.now = func() time.Time { return time.Unix(1700000000, 0) }
	return n
}

func TestEvaluate(t *testing.T) {
	n := newNotifier(&fakeStore{}, &fakePublisher{})

	tests := []struct {
		name     string
		ev       domain.BroadcastEvent
		wantType string
	}{
		{"below threshold", domain.BroadcastEvent{FailureProbability: 0.69, AnomalySeverity: domain.SeverityWarning}, ""},
		{"at threshold", domain.BroadcastEvent{FailureProbability: 0.7}, domain.AlertFailureRisk},
		{"critical anomaly", domain.BroadcastEvent{FailureProbability: 0.1, AnomalySeverity: domain.SeverityCritical}, domain.AlertCriticalAnomaly},
		{"risk wins over anomaly", domain.BroadcastEvent{FailureProbability: 0.95, AnomalySeverity: domain.SeverityCritical}, domain.AlertFailureRisk},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			alert, ok := n.Evaluate(tc.ev)
			assert.Equal(t, tc.wantType != "", ok)
			assert.Equal(t, tc.wantType, alert.Type)
		})
	}
}

func TestDeliver_RecordsAndPublishes(t *testing.T) {
	store, pub := &fakeStore{}, &fakePublisher{}
	n := newNotifier(store, pub)

	err := n.Deliver(context.Background(), domain.BroadcastEvent{
		EquipmentID:        "PUMP-001",
		FailureProbability: 0.9,
		RULDays:            3,
	})

	require.NoError(t, err)
	require.Len(t, store.alerts, 1)
	a := store.alerts[0]
	assert.NotEmpty(t, a.AlertID)
	assert.Equal(t, DefaultFacility, a.FacilityID)
	assert.Equal(t, int64(1700000000), a.Timestamp)
	assert.Equal(t, 3, a.RULDays)
	assert.Equal(t, []string{"Predictive Maintenance Alert: PUMP-001"}, pub.subjects)
}

func TestDeliver_NothingToRaise(t *testing.T) {
	store, pub := &fakeStore{}, &fakePublisher{}
	n := newNotifier(store, pub)

	require.NoError(t, n.Deliver(context.Background(), domain.BroadcastEvent{FailureProbability: 0.2}))
	assert.Empty(t, store.alerts)
	assert.Empty(t, pub.subjects)
}

func TestDeliver_StoreFailureStillPublishes(t *testing.T) {
	store := &fakeStore{err: errors.New("table missing")}
	pub := &fakePublisher{}
	n := newNotifier(store, pub)

	err := n.Deliver(context.Background(), domain.BroadcastEvent{
		EquipmentID:     "FAN-2",
		Location:        "plant-1",
		AnomalySeverity: domain.SeverityCritical,
	})

	assert.ErrorContains(t, err, "table missing")
	assert.Len(t, pub.subjects, 1)
	assert.Equal(t, "plant-1", store.alerts[0].FacilityID)
}
