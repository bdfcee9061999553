// Package alerting raises alerts for broadcast events that cross a risk
// threshold. It sits outside the scoring core and only reacts to events.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
)

// DefaultFacility is used for equipment without a location.
const DefaultFacility = "unassigned"

type AlertRecorder interface {
	CreateAlert(ctx context.Context, alert domain.Alert) error
}

type MessagePublisher interface {
	SendAlert(ctx context.Context, subject, message string) (string, error)
}

// Notifier is a broadcast sink that records and publishes alerts.
type Notifier struct {
	store     AlertRecorder
	publisher MessagePublisher
	threshold float64
	now       func() time.Time
	log       zerolog.Logger
}

func NewNotifier(store AlertRecorder, publisher MessagePublisher, threshold float64, logger zerolog.Logger) *Notifier {
	return &Notifier{
		store:     store,
		publisher: publisher,
		threshold: threshold,
		now:       time.Now,
		log:       logger.With().Str("component", "alerting").Logger(),
	}
}

func (n *Notifier) Name() string { return "alerting" }

// Evaluate returns the alert ev warrants, if any. A failure risk at or
// above the threshold takes precedence over a critical anomaly.
func (n *Notifier) Evaluate(ev domain.BroadcastEvent) (domain.Alert, bool) {
	var alertType, msg string
	switch {
	case ev.FailureProbability >= n.threshold:
		alertType = domain.AlertFailureRisk
		msg = fmt.Sprintf("Failure probability %.0f%%, estimated %d days of useful life left",
			ev.FailureProbability*100, ev.RULDays)
	case ev.AnomalySeverity == domain.SeverityCritical:
		alertType = domain.AlertCriticalAnomaly
		msg = fmt.Sprintf("Critical sensor anomaly, health score %.1f (%s)", ev.HealthScore, ev.Status)
	default:
		return domain.Alert{}, false
	}

	facility := ev.Location
	if facility == "" {
		facility = DefaultFacility
	}
	return domain.Alert{
		AlertID:            uuid.NewString(),
		FacilityID:         facility,
		EquipmentID:        ev.EquipmentID,
		Timestamp:          n.now().Unix(),
		Severity:           string(domain.SeverityCritical),
		Type:               alertType,
		Message:            msg,
		FailureProbability: ev.FailureProbability,
		RULDays:            ev.RULDays,
	}, true
}

// Deliver records and publishes the alert for ev. Both are attempted even
// when one fails.
func (n *Notifier) Deliver(ctx context.Context, ev domain.BroadcastEvent) error {
	alert, ok := n.Evaluate(ev)
	if !ok {
		return nil
	}

	var errs []error
	if n.store != nil {
		if err := n.store.CreateAlert(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	if n.publisher != nil {
		subject := fmt.Sprintf("Predictive Maintenance Alert: %s", alert.EquipmentID)
		body := fmt.Sprintf(
			"Equipment ID: %s\nFacility: %s\nType: %s\n%s\nTime: %s",
			alert.EquipmentID, alert.FacilityID, alert.Type, alert.Message,
			time.Unix(alert.Timestamp, 0).UTC().Format(time.RFC3339),
		)
		if id, err := n.publisher.SendAlert(ctx, subject, body); err != nil {
			errs = append(errs, err)
		} else {
			n.log.Info().Str("message_id", id).Str("alert_id", alert.AlertID).Msg("alert published")
		}
	}
	return errors.Join(errs...)
}
