package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/repository"
)

// EquipmentService serves the equipment registry and its read models.
type EquipmentService struct {
	store Store
	now   func() time.Time
}

func (s *EquipmentService) List(ctx context.Context) ([]domain.Equipment, error) {
	return s.store.ListEquipment(ctx)
}

func (s *EquipmentService) Get(ctx context.Context, equipmentID string) (*domain.Equipment, error) {
	return s.store.GetEquipment(ctx, equipmentID)
}

// Create registers new equipment. Derived fields start at their healthy
// defaults regardless of the input.
func (s *EquipmentService) Create(ctx context.Context, eq domain.Equipment) (*domain.Equipment, error) {
	eq.EquipmentID = strings.TrimSpace(eq.EquipmentID)
	eq.Name = strings.TrimSpace(eq.Name)
	eq.Type = strings.TrimSpace(eq.Type)
	switch {
	case eq.EquipmentID == "":
		return nil, fmt.Errorf("%w: equipment_id is required", ErrInvalidInput)
	case eq.Name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case eq.Type == "":
		return nil, fmt.Errorf("%w: type is required", ErrInvalidInput)
	}

	eq.Status = domain.StatusHealthy
	eq.HealthScore = 100
	eq.LastReadingTime = nil
	if eq.InstalledAt.IsZero() {
		eq.InstalledAt = s.now()
	}

	if err := s.store.CreateEquipment(ctx, &eq); err != nil {
		return nil, err
	}
	return &eq, nil
}

// Health assembles the current state of one equipment with its latest
// reading and prediction. Either may be missing.
func (s *EquipmentService) Health(ctx context.Context, equipmentID string) (*domain.HealthStatus, error) {
	eq, err := s.store.GetEquipment(ctx, equipmentID)
	if err != nil {
		return nil, err
	}

	hs := &domain.HealthStatus{
		EquipmentID: eq.EquipmentID,
		Name:        eq.Name,
		Status:      eq.Status,
		HealthScore: eq.HealthScore,
		LastUpdate:  eq.LastReadingTime,
	}

	rd, err := s.store.LatestReading(ctx, equipmentID)
	switch {
	case err == nil:
		hs.SensorData = rd
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	pred, err := s.store.LatestPrediction(ctx, equipmentID)
	switch {
	case err == nil:
		hs.LatestPrediction = pred
		hs.RULDays = &pred.RULDays
		hs.FailureProbability = &pred.FailureProbability
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	return hs, nil
}

// Predictions returns the most recent predictions, newest first.
func (s *EquipmentService) Predictions(ctx context.Context, equipmentID string, limit int) ([]domain.Prediction, error) {
	if _, err := s.store.GetEquipment(ctx, equipmentID); err != nil {
		return nil, err
	}
	return s.store.ListPredictions(ctx, equipmentID, limit)
}
