package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/tracker"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// DefaultHistoryLimit is the number of predictions returned by history
// queries when the caller gives no limit.
const DefaultHistoryLimit = 10

// DefaultUpcomingLimit caps the upcoming maintenance list.
const DefaultUpcomingLimit = 50

const uniqueViolation = "23505"

const equipmentColumns = `id, equipment_id, name, type, location, manufacturer, model, criticality,
	status, health_score, last_reading_time, last_maintenance, installed_at, created_at, updated_at`

const readingColumns = `id, equipment_id, temperature, vibration, pressure, power_consumption,
	operating_hours, anomaly_score, raw_data, timestamp, created_at`

const predictionColumns = `id, equipment_id, failure_probability, rul_days, expected_failure_date,
	confidence_score, top_factors, feature_importance, model_version, prediction_timestamp, created_at`

type Repos struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repos { return &Repos{db: db} }

func (r *Repos) ListEquipment(ctx context.Context) ([]domain.Equipment, error) {
	out := []domain.Equipment{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+equipmentColumns+` FROM equipment ORDER BY equipment_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	return out, nil
}

func (r *Repos) GetEquipment(ctx context.Context, equipmentID string) (*domain.Equipment, error) {
	var eq domain.Equipment
	err := r.db.GetContext(ctx, &eq, `SELECT `+equipmentColumns+` FROM equipment WHERE equipment_id = $1`, equipmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("equipment %s: %w", equipmentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get equipment: %w", err)
	}
	return &eq, nil
}

// CreateEquipment inserts eq and fills its generated columns.
func (r *Repos) CreateEquipment(ctx context.Context, eq *domain.Equipment) error {
	row := r.db.QueryRowxContext(ctx, `
		INSERT INTO equipment (equipment_id, name, type, location, manufacturer, model, criticality,
			status, health_score, last_maintenance, installed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		eq.EquipmentID, eq.Name, eq.Type, eq.Location, eq.Manufacturer, eq.Model, eq.Criticality,
		eq.Status, eq.HealthScore, eq.LastMaintenance, eq.InstalledAt)

	if err := row.Scan(&eq.ID, &eq.CreatedAt, &eq.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("equipment %s: %w", eq.EquipmentID, ErrConflict)
		}
		return fmt.Errorf("failed to create equipment: %w", err)
	}
	return nil
}

func (r *Repos) LatestReading(ctx context.Context, equipmentID string) (*domain.SensorReading, error) {
	var rd domain.SensorReading
	err := r.db.GetContext(ctx, &rd, `SELECT `+readingColumns+` FROM sensor_readings
		WHERE equipment_id = $1 ORDER BY timestamp DESC, id DESC LIMIT 1`, equipmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest reading of %s: %w", equipmentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest reading: %w", err)
	}
	return &rd, nil
}

// ListPredictions returns up to limit predictions, newest first.
func (r *Repos) ListPredictions(ctx context.Context, equipmentID string, limit int) ([]domain.Prediction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	out := []domain.Prediction{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+predictionColumns+` FROM predictions
		WHERE equipment_id = $1 ORDER BY prediction_timestamp DESC, id DESC LIMIT $2`, equipmentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	return out, nil
}

func (r *Repos) LatestPrediction(ctx context.Context, equipmentID string) (*domain.Prediction, error) {
	preds, err := r.ListPredictions(ctx, equipmentID, 1)
	if err != nil {
		return nil, err
	}
	if len(preds) == 0 {
		return nil, fmt.Errorf("latest prediction of %s: %w", equipmentID, ErrNotFound)
	}
	return &preds[0], nil
}

// Commit is everything persisted for one accepted reading.
type Commit struct {
	// Reading is appended when set; a re-score of an existing reading
	// leaves it nil.
	Reading    *domain.SensorReading
	Transition tracker.Transition
}

// CommitIngestion writes the equipment transition, the reading and the
// prediction in one transaction. The timestamp guard is re-checked in the
// UPDATE so a concurrent writer in another process cannot regress the
// equipment state; a lost race returns tracker.ErrStaleReading.
func (r *Repos) CommitIngestion(ctx context.Context, c *Commit) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := updateEquipmentState(ctx, tx, c.Transition); err != nil {
		return err
	}

	if c.Reading != nil {
		if err := insertReading(ctx, tx, c.Reading); err != nil {
			return err
		}
	}

	if err := insertPrediction(ctx, tx, &c.Transition.Prediction); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ingestion: %w", err)
	}
	return nil
}

func updateEquipmentState(ctx context.Context, tx *sqlx.Tx, t tracker.Transition) error {
	cmp := "<"
	if t.Mode == tracker.Rescore {
		cmp = "<="
	}
	eq := t.Equipment
	res, err := tx.ExecContext(ctx, `
		UPDATE equipment
		SET status = $1, health_score = $2, last_reading_time = $3, updated_at = $4
		WHERE equipment_id = $5 AND (last_reading_time IS NULL OR last_reading_time `+cmp+` $3)`,
		eq.Status, eq.HealthScore, eq.LastReadingTime, eq.UpdatedAt, eq.EquipmentID)
	if err != nil {
		return fmt.Errorf("failed to update equipment state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update equipment state: %w", err)
	}
	if n == 0 {
		return tracker.ErrStaleReading
	}
	return nil
}

func insertReading(ctx context.Context, tx *sqlx.Tx, rd *domain.SensorReading) error {
	row := tx.QueryRowxContext(ctx, `
		INSERT INTO sensor_readings (equipment_id, temperature, vibration, pressure, power_consumption,
			operating_hours, anomaly_score, raw_data, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		rd.EquipmentID, rd.Temperature, rd.Vibration, rd.Pressure, rd.PowerConsumption,
		rd.OperatingHours, rd.AnomalyScore, nullJSON(rd.RawData), rd.Timestamp)
	if err := row.Scan(&rd.ID, &rd.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

func insertPrediction(ctx context.Context, tx *sqlx.Tx, p *domain.Prediction) error {
	row := tx.QueryRowxContext(ctx, `
		INSERT INTO predictions (equipment_id, failure_probability, rul_days, expected_failure_date,
			confidence_score, top_factors, feature_importance, model_version, prediction_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		p.EquipmentID, p.FailureProbability, p.RULDays, p.ExpectedFailureDate,
		p.ConfidenceScore, p.TopFactors, p.FeatureImportance, p.ModelVersion, p.PredictionTimestamp)
	if err := row.Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

func nullJSON(j types.JSONText) any {
	if len(j) == 0 {
		return nil
	}
	return string(j)
}
