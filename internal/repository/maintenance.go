package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
)

const foreignKeyViolation = "23503"

const maintenanceColumns = `id, equipment_id, maintenance_type, status, description, scheduled_date,
	completed_date, estimated_duration, actual_duration, parts_required, technician_assigned, cost,
	notes, created_at, updated_at`

// CreateMaintenance inserts ev and fills its generated columns. An event
// recorded as already completed advances the equipment's last_maintenance
// in the same transaction.
func (r *Repos) CreateMaintenance(ctx context.Context, ev *domain.MaintenanceEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowxContext(ctx, `
		INSERT INTO maintenance_events (equipment_id, maintenance_type, status, description,
			scheduled_date, completed_date, estimated_duration, actual_duration, parts_required,
			technician_assigned, cost, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`,
		ev.EquipmentID, ev.MaintenanceType, ev.Status, ev.Description,
		ev.ScheduledDate, ev.CompletedDate, ev.EstimatedDuration, ev.ActualDuration, ev.PartsRequired,
		ev.TechnicianAssigned, ev.Cost, ev.Notes)

	if err := row.Scan(&ev.ID, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return fmt.Errorf("equipment %s: %w", ev.EquipmentID, ErrNotFound)
		}
		return fmt.Errorf("failed to create maintenance event: %w", err)
	}

	if ev.Status == domain.MaintenanceCompleted && ev.CompletedDate != nil {
		if err := advanceLastMaintenance(ctx, tx, ev.EquipmentID, *ev.CompletedDate, ev.UpdatedAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit maintenance event: %w", err)
	}
	return nil
}

// CompleteMaintenance closes an open event and advances the equipment's
// last_maintenance. Closing an event that is already completed or cancelled
// returns ErrConflict.
func (r *Repos) CompleteMaintenance(ctx context.Context, id int64, c domain.MaintenanceCompletion, now time.Time) (*domain.MaintenanceEvent, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var ev domain.MaintenanceEvent
	err = tx.GetContext(ctx, &ev, `
		UPDATE maintenance_events
		SET status = $2, completed_date = $3, actual_duration = $4,
			notes = COALESCE(NULLIF($5, ''), notes), updated_at = $6
		WHERE id = $1 AND status IN ('scheduled', 'in_progress')
		RETURNING `+maintenanceColumns,
		id, domain.MaintenanceCompleted, c.CompletedDate, c.ActualDuration, c.Notes, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, closedMaintenanceError(ctx, tx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete maintenance event: %w", err)
	}

	if err := advanceLastMaintenance(ctx, tx, ev.EquipmentID, c.CompletedDate, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit maintenance completion: %w", err)
	}
	return &ev, nil
}

// closedMaintenanceError explains why no open event matched id.
func closedMaintenanceError(ctx context.Context, tx *sqlx.Tx, id int64) error {
	var status domain.MaintenanceStatus
	err := tx.GetContext(ctx, &status, `SELECT status FROM maintenance_events WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("maintenance event %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get maintenance event: %w", err)
	}
	return fmt.Errorf("maintenance event %d is %s: %w", id, status, ErrConflict)
}

// advanceLastMaintenance never moves last_maintenance backwards.
func advanceLastMaintenance(ctx context.Context, tx *sqlx.Tx, equipmentID string, at, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE equipment
		SET last_maintenance = $2, updated_at = $3
		WHERE equipment_id = $1 AND (last_maintenance IS NULL OR last_maintenance < $2)`,
		equipmentID, at, now)
	if err != nil {
		return fmt.Errorf("failed to update last maintenance: %w", err)
	}
	return nil
}

// UpcomingMaintenance returns open events scheduled at or after from,
// soonest first.
func (r *Repos) UpcomingMaintenance(ctx context.Context, from time.Time, limit int) ([]domain.MaintenanceEvent, error) {
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}
	out := []domain.MaintenanceEvent{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+maintenanceColumns+` FROM maintenance_events
		WHERE status IN ('scheduled', 'in_progress') AND scheduled_date >= $1
		ORDER BY scheduled_date, id LIMIT $2`, from, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming maintenance: %w", err)
	}
	return out, nil
}
