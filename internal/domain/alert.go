package domain

// Alert types raised by the notifier.
const (
	AlertFailureRisk     = "failure_risk"
	AlertCriticalAnomaly = "critical_anomaly"
)

// Alert is a notification record kept outside the core store.
type Alert struct {
	AlertID            string  `dynamodbav:"alertId" json:"alert_id"`
	FacilityID         string  `dynamodbav:"facilityId" json:"facility_id"`
	EquipmentID        string  `dynamodbav:"equipmentId" json:"equipment_id"`
	Timestamp          int64   `dynamodbav:"timestamp" json:"timestamp"`
	Severity           string  `dynamodbav:"severity" json:"severity"`
	Type               string  `dynamodbav:"type" json:"type"`
	Message            string  `dynamodbav:"message" json:"message"`
	FailureProbability float64 `dynamodbav:"failureProbability" json:"failure_probability"`
	RULDays            int     `dynamodbav:"rulDays" json:"rul_days"`
	Acknowledged       bool    `dynamodbav:"acknowledged" json:"acknowledged"`
	AcknowledgedAt     int64   `dynamodbav:"acknowledgedAt,omitempty" json:"acknowledged_at,omitempty"`
}
