package database

const (
	EquipmentTableSQL = `
		CREATE TABLE IF NOT EXISTS equipment (
			id                BIGSERIAL PRIMARY KEY,
			equipment_id      TEXT NOT NULL UNIQUE,
			name              TEXT NOT NULL,
			type              TEXT NOT NULL,
			location          TEXT NOT NULL DEFAULT '',
			manufacturer      TEXT NOT NULL DEFAULT '',
			model             TEXT NOT NULL DEFAULT '',
			criticality       TEXT NOT NULL DEFAULT '',
			status            TEXT NOT NULL DEFAULT 'healthy',
			health_score      DOUBLE PRECISION NOT NULL DEFAULT 100,
			last_reading_time TIMESTAMPTZ,
			last_maintenance  TIMESTAMPTZ,
			installed_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`

	SensorReadingsTableSQL = `
		CREATE TABLE IF NOT EXISTS sensor_readings (
			id                BIGSERIAL PRIMARY KEY,
			equipment_id      TEXT NOT NULL REFERENCES equipment(equipment_id),
			temperature       DOUBLE PRECISION,
			vibration         DOUBLE PRECISION,
			pressure          DOUBLE PRECISION,
			power_consumption DOUBLE PRECISION,
			operating_hours   DOUBLE PRECISION,
			anomaly_score     DOUBLE PRECISION NOT NULL DEFAULT 0,
			raw_data          JSONB,
			timestamp         TIMESTAMPTZ NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`

	SensorReadingsIndexSQL = `
		CREATE INDEX IF NOT EXISTS sensor_readings_equipment_ts
		ON sensor_readings (equipment_id, timestamp DESC)
	`

	PredictionsTableSQL = `
		CREATE TABLE IF NOT EXISTS predictions (
			id                    BIGSERIAL PRIMARY KEY,
			equipment_id          TEXT NOT NULL REFERENCES equipment(equipment_id),
			failure_probability   DOUBLE PRECISION NOT NULL,
			rul_days              INTEGER NOT NULL,
			expected_failure_date TIMESTAMPTZ NOT NULL,
			confidence_score      DOUBLE PRECISION NOT NULL,
			top_factors           TEXT NOT NULL DEFAULT '',
			feature_importance    JSONB NOT NULL DEFAULT '{}',
			model_version         TEXT NOT NULL,
			prediction_timestamp  TIMESTAMPTZ NOT NULL,
			created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`

	PredictionsIndexSQL = `
		CREATE INDEX IF NOT EXISTS predictions_equipment_ts
		ON predictions (equipment_id, prediction_timestamp DESC)
	`

	MaintenanceEventsTableSQL = `
		CREATE TABLE IF NOT EXISTS maintenance_events (
			id                  BIGSERIAL PRIMARY KEY,
			equipment_id        TEXT NOT NULL REFERENCES equipment(equipment_id),
			maintenance_type    TEXT NOT NULL,
			status              TEXT NOT NULL DEFAULT 'scheduled',
			description         TEXT NOT NULL DEFAULT '',
			scheduled_date      TIMESTAMPTZ NOT NULL,
			completed_date      TIMESTAMPTZ,
			estimated_duration  INTEGER,
			actual_duration     INTEGER,
			parts_required      TEXT NOT NULL DEFAULT '',
			technician_assigned TEXT NOT NULL DEFAULT '',
			cost                DOUBLE PRECISION,
			notes               TEXT NOT NULL DEFAULT '',
			created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`

	MaintenanceEventsIndexSQL = `
		CREATE INDEX IF NOT EXISTS maintenance_events_scheduled
		ON maintenance_events (scheduled_date)
		WHERE status IN ('scheduled', 'in_progress')
	`
)

// AllTables returns the schema statements in dependency order.
func AllTables() []string {
	return []string{
		EquipmentTableSQL,
		SensorReadingsTableSQL,
		SensorReadingsIndexSQL,
		PredictionsTableSQL,
		PredictionsIndexSQL,
		MaintenanceEventsTableSQL,
		MaintenanceEventsIndexSQL,
	}
}
