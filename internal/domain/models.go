package domain

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Status is the operating status of a piece of equipment. It is derived
// from the health score only.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusDown     Status = "down"
)

// Severity classifies an anomaly score.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Equipment struct {
	ID              int64      `db:"id" json:"id"`
	EquipmentID     string     `db:"equipment_id" json:"equipment_id"`
	Name            string     `db:"name" json:"name"`
	Type            string     `db:"type" json:"type"`
	Location        string     `db:"location" json:"location"`
	Manufacturer    string     `db:"manufacturer" json:"manufacturer"`
	Model           string     `db:"model" json:"model"`
	Criticality     string     `db:"criticality" json:"criticality"`
	Status          Status     `db:"status" json:"status"`
	HealthScore     float64    `db:"health_score" json:"health_score"`
	LastReadingTime *time.Time `db:"last_reading_time" json:"last_reading_time"`
	LastMaintenance *time.Time `db:"last_maintenance" json:"last_maintenance,omitempty"`
	InstalledAt     time.Time  `db:"installed_at" json:"installed_at"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// SensorReading is one ingestion event. It is never updated once stored.
type SensorReading struct {
	ID          int64  `db:"id" json:"id"`
	EquipmentID string `db:"equipment_id" json:"equipment_id"`
	SensorValues
	AnomalyScore float64        `db:"anomaly_score" json:"anomaly_score"`
	RawData      types.JSONText `db:"raw_data" json:"raw_data,omitempty"`
	Timestamp    time.Time      `db:"timestamp" json:"timestamp"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// HealthAssessment is derived fresh for every reading.
type HealthAssessment struct {
	HealthScore     float64  `json:"health_score"`
	Status          Status   `json:"status"`
	AnomalyScore    float64  `json:"anomaly_score"`
	AnomalySeverity Severity `json:"anomaly_severity"`
	Action          string   `json:"recommended_action"`
}

type Prediction struct {
	ID                  int64             `db:"id" json:"id"`
	EquipmentID         string            `db:"equipment_id" json:"equipment_id"`
	FailureProbability  float64           `db:"failure_probability" json:"failure_probability"`
	RULDays             int               `db:"rul_days" json:"rul_days"`
	ExpectedFailureDate time.Time         `db:"expected_failure_date" json:"expected_failure_date"`
	ConfidenceScore     float64           `db:"confidence_score" json:"confidence_score"`
	TopFactors          string            `db:"top_factors" json:"top_factors"`
	FeatureImportance   FeatureImportance `db:"feature_importance" json:"feature_importance"`
	ModelVersion        string            `db:"model_version" json:"model_version"`
	PredictionTimestamp time.Time         `db:"prediction_timestamp" json:"prediction_timestamp"`
	CreatedAt           time.Time         `db:"created_at" json:"created_at"`
}

// PredictionOutcome is what the failure model returns for one feature vector.
type PredictionOutcome struct {
	FailureProbability float64
	RULDays            int
	Confidence         float64
	FeatureImportance  FeatureImportance
	// Fallback is set when the neutral outcome was returned instead of a
	// classifier result.
	Fallback bool
}

// BroadcastEvent is fanned out to sinks after every accepted ingestion.
type BroadcastEvent struct {
	Type               string    `json:"type"`
	EquipmentID        string    `json:"equipment_id"`
	Location           string    `json:"location,omitempty"`
	HealthScore        float64   `json:"health_score"`
	Status             Status    `json:"status"`
	AnomalySeverity    Severity  `json:"anomaly_severity"`
	FailureProbability float64   `json:"failure_probability"`
	RULDays            int       `json:"rul_days"`
	Timestamp          time.Time `json:"timestamp"`
}

const EventSensorUpdate = "sensor_update"

type IngestionResult struct {
	Reading    SensorReading    `json:"reading"`
	Prediction Prediction       `json:"prediction"`
	Assessment HealthAssessment `json:"assessment"`
	Event      BroadcastEvent   `json:"event"`
}

type BatchResult struct {
	Predictions    []Prediction `json:"predictions"`
	ProcessedCount int          `json:"processed_count"`
	FailedCount    int          `json:"failed_count"`
	Timestamp      time.Time    `json:"timestamp"`
}

// HealthStatus is the read model served for one equipment.
type HealthStatus struct {
	EquipmentID        string         `json:"equipment_id"`
	Name               string         `json:"name"`
	Status             Status         `json:"status"`
	HealthScore        float64        `json:"health_score"`
	RULDays            *int           `json:"rul_days"`
	FailureProbability *float64       `json:"failure_probability"`
	LastUpdate         *time.Time     `json:"last_update"`
	SensorData         *SensorReading `json:"sensor_data"`
	LatestPrediction   *Prediction    `json:"latest_prediction"`
}
