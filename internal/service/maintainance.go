package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/maintenance"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/ml"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/repository"
)

// hoursPerDay is the assumed duty cycle when no operating hours were
// reported.
const hoursPerDay = 20

// MaintenanceService plans the next service of an equipment from its latest
// prediction and records the maintenance events that reset its service clock.
type MaintenanceService struct {
	store    Store
	interval time.Duration
	now      func() time.Time
}

type MaintenancePlan struct {
	EquipmentID        string    `json:"equipment_id"`
	CurrentHealth      float64   `json:"current_health"`
	FailureProbability float64   `json:"failure_probability"`
	LastService        time.Time `json:"last_service"`
	FailureRatePerYear float64   `json:"failure_rate_per_year"`
	FailureRisk30Days  float64   `json:"failure_risk_30_days"`
	FailureRisk90Days  float64   `json:"failure_risk_90_days"`
	NextServiceDate    time.Time `json:"next_service_date"`
	DaysUntilService   int       `json:"days_until_service"`
	Recommendation     string    `json:"recommendation"`
}

func (s *MaintenanceService) Plan(ctx context.Context, equipmentID string) (*MaintenancePlan, error) {
	eq, err := s.store.GetEquipment(ctx, equipmentID)
	if err != nil {
		return nil, err
	}

	var p float64
	pred, err := s.store.LatestPrediction(ctx, equipmentID)
	switch {
	case err == nil:
		p = pred.FailureProbability
	case errors.Is(err, repository.ErrNotFound):
		pred = nil
	default:
		return nil, err
	}

	now := s.now()
	hours := float64(hoursPerDay) * now.Sub(eq.InstalledAt).Hours() / 24
	if rd, err := s.store.LatestReading(ctx, equipmentID); err == nil && rd.OperatingHours != nil {
		hours = *rd.OperatingHours
	}

	lastService := eq.InstalledAt
	if eq.LastMaintenance != nil {
		lastService = *eq.LastMaintenance
	}

	interval := s.interval
	if interval <= 0 {
		interval = 365 * 24 * time.Hour
	}

	assetHealth := maintenance.AssetHealth{
		HoursRun:           math.Max(0, hours),
		FailureRatePerYear: AnnualFailureRate(p),
		LastService:        lastService,
		ServiceInterval:    interval,
	}

	risk30 := maintenance.FailureRisk(assetHealth.FailureRatePerYear, 30*24*time.Hour)
	risk90 := maintenance.FailureRisk(assetHealth.FailureRatePerYear, 90*24*time.Hour)

	nextService := maintenance.NextServiceDate(assetHealth)
	if pred != nil && pred.ExpectedFailureDate.Before(nextService) {
		nextService = pred.ExpectedFailureDate
	}

	return &MaintenancePlan{
		EquipmentID:        eq.EquipmentID,
		CurrentHealth:      eq.HealthScore,
		FailureProbability: p,
		LastService:        lastService,
		FailureRatePerYear: assetHealth.FailureRatePerYear,
		FailureRisk30Days:  risk30 * 100,
		FailureRisk90Days:  risk90 * 100,
		NextServiceDate:    nextService,
		DaysUntilService:   max(0, int(nextService.Sub(now).Hours()/24)),
		Recommendation:     generateRecommendation(p, eq.HealthScore),
	}, nil
}

// Schedule records a maintenance event. Events logged as completed take
// effect on the equipment's last maintenance right away.
func (s *MaintenanceService) Schedule(ctx context.Context, ev domain.MaintenanceEvent) (*domain.MaintenanceEvent, error) {
	ev.EquipmentID = strings.TrimSpace(ev.EquipmentID)
	ev.MaintenanceType = strings.TrimSpace(ev.MaintenanceType)
	switch {
	case ev.EquipmentID == "":
		return nil, fmt.Errorf("%w: equipment_id is required", ErrInvalidInput)
	case ev.MaintenanceType == "":
		return nil, fmt.Errorf("%w: maintenance_type is required", ErrInvalidInput)
	case ev.ScheduledDate.IsZero():
		return nil, fmt.Errorf("%w: scheduled_date is required", ErrInvalidInput)
	case negative(ev.EstimatedDuration), negative(ev.ActualDuration):
		return nil, fmt.Errorf("%w: durations must not be negative", ErrInvalidInput)
	case ev.Cost != nil && (*ev.Cost < 0 || math.IsNaN(*ev.Cost)):
		return nil, fmt.Errorf("%w: cost must not be negative", ErrInvalidInput)
	}

	switch ev.Status {
	case "":
		ev.Status = domain.MaintenanceScheduled
		ev.CompletedDate = nil
	case domain.MaintenanceScheduled, domain.MaintenanceInProgress:
		ev.CompletedDate = nil
	case domain.MaintenanceCompleted:
		if ev.CompletedDate == nil {
			done := ev.ScheduledDate
			ev.CompletedDate = &done
		}
		if ev.CompletedDate.After(s.now()) {
			return nil, fmt.Errorf("%w: completed_date is in the future", ErrInvalidInput)
		}
	default:
		return nil, fmt.Errorf("%w: status %q cannot be scheduled", ErrInvalidInput, ev.Status)
	}

	if _, err := s.store.GetEquipment(ctx, ev.EquipmentID); err != nil {
		return nil, err
	}
	if err := s.store.CreateMaintenance(ctx, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Complete closes an open event. The completion date defaults to now.
func (s *MaintenanceService) Complete(ctx context.Context, id int64, c domain.MaintenanceCompletion) (*domain.MaintenanceEvent, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: maintenance id must be positive", ErrInvalidInput)
	}
	if negative(c.ActualDuration) {
		return nil, fmt.Errorf("%w: actual_duration must not be negative", ErrInvalidInput)
	}
	now := s.now()
	if c.CompletedDate.IsZero() {
		c.CompletedDate = now
	}
	if c.CompletedDate.After(now) {
		return nil, fmt.Errorf("%w: completed_date is in the future", ErrInvalidInput)
	}
	c.Notes = strings.TrimSpace(c.Notes)
	return s.store.CompleteMaintenance(ctx, id, c, now)
}

// Upcoming lists open events from now on, soonest first.
func (s *MaintenanceService) Upcoming(ctx context.Context, limit int) ([]domain.MaintenanceEvent, error) {
	return s.store.UpcomingMaintenance(ctx, s.now(), limit)
}

func negative(v *int) bool { return v != nil && *v < 0 }

// AnnualFailureRate converts a failure probability over the RUL horizon
// into an exponential failure rate per year.
func AnnualFailureRate(p float64) float64 {
	if p <= 0 || math.IsNaN(p) {
		return 0
	}
	p = math.Min(p, 0.999)
	horizonYears := float64(ml.RULHorizonDays) / 365
	return -math.Log(1-p) / horizonYears
}

func generateRecommendation(risk float64, health float64) string {
	if risk > 0.5 || health < 60 {
		return "URGENT: Schedule immediate maintenance inspection"
	} else if risk > 0.3 || health < 75 {
		return "Schedule maintenance within next 30 days"
	} else if risk > 0.15 || health < 85 {
		return "Plan maintenance within next 90 days"
	}
	return "Equipment operating normally"
}
