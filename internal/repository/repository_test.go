package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/tracker"
)

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, *Repos) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, New(sqlx.NewDb(db, "pgx"))
}

var (
	t0  = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	now = t0.Add(time.Minute)
)

func f(v float64) *float64 { return &v }

func equipmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "equipment_id", "name", "type", "location", "manufacturer", "model", "criticality",
		"status", "health_score", "last_reading_time", "last_maintenance", "installed_at", "created_at", "updated_at",
	})
}

func TestGetEquipment_Success(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM equipment WHERE equipment_id = \$1`).
		WithArgs("PUMP-001").
		WillReturnRows(equipmentRows().AddRow(
			1, "PUMP-001", "Main pump", "pump", "Hall A", "Grundfos", "CR-10", "high",
			"warning", 72.5, t0, nil, t0.AddDate(-2, 0, 0), t0, t0,
		))

	eq, err := repo.GetEquipment(context.Background(), "PUMP-001")

	require.NoError(t, err)
	assert.Equal(t, int64(1), eq.ID)
	assert.Equal(t, domain.StatusWarning, eq.Status)
	assert.Equal(t, 72.5, eq.HealthScore)
	require.NotNil(t, eq.LastReadingTime)
	assert.True(t, eq.LastReadingTime.Equal(t0))
	assert.Nil(t, eq.LastMaintenance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEquipment_NotFound(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery(`SELECT`).WithArgs("NOPE").WillReturnError(sql.ErrNoRows)

	eq, err := repo.GetEquipment(context.Background(), "NOPE")

	assert.Nil(t, eq)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListEquipment_Empty(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM equipment ORDER BY equipment_id`).WillReturnRows(equipmentRows())

	items, err := repo.ListEquipment(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestCreateEquipment(t *testing.T) {
	mock, repo := setupMockDB(t)
	eq := &domain.Equipment{
		EquipmentID: "FAN-7", Name: "Cooling fan", Type: "fan",
		Status: domain.StatusHealthy, HealthScore: 100, InstalledAt: t0,
	}

	mock.ExpectQuery(`INSERT INTO equipment`).
		WithArgs("FAN-7", "Cooling fan", "fan", "", "", "", "", "healthy", 100.0, nil, t0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(42, now, now))

	require.NoError(t, repo.CreateEquipment(context.Background(), eq))
	assert.Equal(t, int64(42), eq.ID)
	assert.Equal(t, now, eq.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEquipment_Duplicate(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery(`INSERT INTO equipment`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	err := repo.CreateEquipment(context.Background(), &domain.Equipment{EquipmentID: "FAN-7"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLatestReading(t *testing.T) {
	mock, repo := setupMockDB(t)

	rows := sqlmock.NewRows([]string{
		"id", "equipment_id", "temperature", "vibration", "pressure", "power_consumption",
		"operating_hours", "anomaly_score", "raw_data", "timestamp", "created_at",
	}).AddRow(9, "PUMP-001", 85.0, 2.0, nil, 20.0, 100.0, 0.3, []byte(`{"temperature":85}`), t0, t0)

	mock.ExpectQuery(`FROM sensor_readings\s+WHERE equipment_id = \$1 ORDER BY timestamp DESC`).
		WithArgs("PUMP-001").
		WillReturnRows(rows)

	rd, err := repo.LatestReading(context.Background(), "PUMP-001")

	require.NoError(t, err)
	assert.Equal(t, int64(9), rd.ID)
	require.NotNil(t, rd.Temperature)
	assert.Equal(t, 85.0, *rd.Temperature)
	assert.Nil(t, rd.Pressure)
	assert.JSONEq(t, `{"temperature":85}`, string(rd.RawData))
}

func TestLatestReading_None(t *testing.T) {
	mock, repo := setupMockDB(t)
	mock.ExpectQuery(`FROM sensor_readings`).WillReturnError(sql.ErrNoRows)

	_, err := repo.LatestReading(context.Background(), "PUMP-002")
	assert.ErrorIs(t, err, ErrNotFound)
}

func predictionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "equipment_id", "failure_probability", "rul_days", "expected_failure_date",
		"confidence_score", "top_factors", "feature_importance", "model_version", "prediction_timestamp", "created_at",
	})
}

func TestListPredictions_DefaultLimit(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery(`FROM predictions\s+WHERE equipment_id = \$1 ORDER BY prediction_timestamp DESC, id DESC LIMIT \$2`).
		WithArgs("PUMP-001", DefaultHistoryLimit).
		WillReturnRows(predictionRows().
			AddRow(2, "PUMP-001", 0.8, 6, t0.AddDate(0, 0, 6), 0.8, "vibration,temperature,pressure",
				`{"temperature":0.3,"vibration":0.4,"pressure":0.2,"power_consumption":0.1,"operating_hours":0}`,
				"v1.0-bootstrap", t0, t0).
			AddRow(1, "PUMP-001", 0.1, 27, t0.AddDate(0, 0, 27), 0.9, "", `{}`, "v1.0-bootstrap", t0.Add(-time.Hour), t0))

	preds, err := repo.ListPredictions(context.Background(), "PUMP-001", 0)

	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, 6, preds[0].RULDays)
	require.Len(t, preds[0].FeatureImportance, domain.FeatureCount)
	assert.Equal(t, domain.ChannelVibration, preds[0].FeatureImportance[0].Channel)
	assert.Empty(t, preds[1].FeatureImportance)
}

func TestLatestPrediction_None(t *testing.T) {
	mock, repo := setupMockDB(t)
	mock.ExpectQuery(`FROM predictions`).WithArgs("PUMP-001", 1).WillReturnRows(predictionRows())

	_, err := repo.LatestPrediction(context.Background(), "PUMP-001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func commit(mode tracker.Mode, withReading bool) *Commit {
	ts := t0
	c := &Commit{
		Transition: tracker.Transition{
			Equipment: domain.Equipment{
				EquipmentID:     "PUMP-001",
				Status:          domain.StatusHealthy,
				HealthScore:     92.5,
				LastReadingTime: &ts,
				UpdatedAt:       now,
			},
			Prediction: domain.Prediction{
				EquipmentID:         "PUMP-001",
				FailureProbability:  0.2,
				RULDays:             24,
				ExpectedFailureDate: now.AddDate(0, 0, 24),
				ConfidenceScore:     0.8,
				TopFactors:          "vibration,temperature,pressure",
				FeatureImportance:   domain.RankImportance([]float64{0.3, 0.4, 0.2, 0.1, 0}),
				ModelVersion:        "v1.0-bootstrap",
				PredictionTimestamp: now,
			},
			Mode: mode,
		},
	}
	if withReading {
		c.Reading = &domain.SensorReading{
			EquipmentID:  "PUMP-001",
			SensorValues: domain.SensorValues{Temperature: f(85), Vibration: f(2)},
			AnomalyScore: 0.3,
			RawData:      types.JSONText(`{"temperature":85,"vibration":2}`),
			Timestamp:    t0,
		}
	}
	return c
}

func TestCommitIngestion_Success(t *testing.T) {
	mock, repo := setupMockDB(t)
	c := commit(tracker.Strict, true)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE equipment\s+SET status = \$1, health_score = \$2, last_reading_time = \$3, updated_at = \$4\s+WHERE equipment_id = \$5 AND \(last_reading_time IS NULL OR last_reading_time < \$3\)`).
		WithArgs("healthy", 92.5, t0, now, "PUMP-001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO sensor_readings`).
		WithArgs("PUMP-001", 85.0, 2.0, nil, nil, nil, 0.3, `{"temperature":85,"vibration":2}`, t0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(11, now))
	mock.ExpectQuery(`INSERT INTO predictions`).
		WithArgs("PUMP-001", 0.2, 24, now.AddDate(0, 0, 24), 0.8, "vibration,temperature,pressure",
			sqlmock.AnyArg(), "v1.0-bootstrap", now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(21, now))
	mock.ExpectCommit()

	require.NoError(t, repo.CommitIngestion(context.Background(), c))

	assert.Equal(t, int64(11), c.Reading.ID)
	assert.Equal(t, int64(21), c.Transition.Prediction.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitIngestion_LostRaceIsStale(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE equipment`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CommitIngestion(context.Background(), commit(tracker.Strict, true))

	assert.ErrorIs(t, err, tracker.ErrStaleReading)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitIngestion_RescoreSkipsReading(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`last_reading_time <= \$3`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO predictions`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(5, now))
	mock.ExpectCommit()

	require.NoError(t, repo.CommitIngestion(context.Background(), commit(tracker.Rescore, false)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitIngestion_PredictionFailureRollsBack(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE equipment`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO sensor_readings`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(11, now))
	mock.ExpectQuery(`INSERT INTO predictions`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.CommitIngestion(context.Background(), commit(tracker.Strict, true))

	assert.ErrorContains(t, err, "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}
