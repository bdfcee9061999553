package domain

import "time"

type MaintenanceStatus string

const (
	MaintenanceScheduled  MaintenanceStatus = "scheduled"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

// Open reports whether work is still pending.
func (s MaintenanceStatus) Open() bool {
	return s == MaintenanceScheduled || s == MaintenanceInProgress
}

// MaintenanceEvent is a planned or performed service of one equipment.
// Completing one advances the equipment's last_maintenance.
type MaintenanceEvent struct {
	ID                 int64             `db:"id" json:"id"`
	EquipmentID        string            `db:"equipment_id" json:"equipment_id"`
	MaintenanceType    string            `db:"maintenance_type" json:"maintenance_type"`
	Status             MaintenanceStatus `db:"status" json:"status"`
	Description        string            `db:"description" json:"description,omitempty"`
	ScheduledDate      time.Time         `db:"scheduled_date" json:"scheduled_date"`
	CompletedDate      *time.Time        `db:"completed_date" json:"completed_date"`
	EstimatedDuration  *int              `db:"estimated_duration" json:"estimated_duration"`
	ActualDuration     *int              `db:"actual_duration" json:"actual_duration"`
	PartsRequired      string            `db:"parts_required" json:"parts_required,omitempty"`
	TechnicianAssigned string            `db:"technician_assigned" json:"technician_assigned,omitempty"`
	Cost               *float64          `db:"cost" json:"cost"`
	Notes              string            `db:"notes" json:"notes,omitempty"`
	CreatedAt          time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updated_at"`
}

// MaintenanceCompletion closes an open maintenance event.
type MaintenanceCompletion struct {
	CompletedDate  time.Time `json:"completed_date"`
	ActualDuration *int      `json:"actual_duration"`
	Notes          string    `json:"notes"`
}
