package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/features"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/metrics"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/repository"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/scoring"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/tracker"
)

// IngestionService scores readings and persists the resulting state. Work
// for one equipment is serialised; different equipment run in parallel.
type IngestionService struct {
	store       Store
	model       Predictor
	broadcaster Broadcaster
	locks       *tracker.KeyedMutex
	workers     int
	now         func() time.Time
	log         zerolog.Logger
}

// Ingest scores rd, appends it with its prediction and advances the
// equipment state. A reading not newer than the equipment's
// last_reading_time persists nothing and returns tracker.ErrStaleReading.
func (s *IngestionService) Ingest(ctx context.Context, rd domain.SensorReading) (*domain.IngestionResult, error) {
	if rd.EquipmentID == "" {
		return nil, fmt.Errorf("%w: equipment_id is required", ErrInvalidInput)
	}
	if rd.Timestamp.IsZero() {
		rd.Timestamp = s.now()
	}

	start := time.Now()
	res, err := s.process(ctx, rd.EquipmentID, func() (*domain.SensorReading, tracker.Mode, error) {
		return &rd, tracker.Strict, nil
	})
	metrics.IngestionLatency.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.ReadingsIngested.WithLabelValues("accepted").Inc()
	case errors.Is(err, tracker.ErrStaleReading):
		metrics.ReadingsIngested.WithLabelValues("stale").Inc()
	default:
		metrics.ReadingsIngested.WithLabelValues("failed").Inc()
	}
	return res, err
}

// Rescore runs the latest stored reading of an equipment through the
// pipeline again and appends a fresh prediction.
func (s *IngestionService) Rescore(ctx context.Context, equipmentID string) (*domain.IngestionResult, error) {
	return s.process(ctx, equipmentID, func() (*domain.SensorReading, tracker.Mode, error) {
		rd, err := s.store.LatestReading(ctx, equipmentID)
		if err != nil {
			return nil, tracker.Rescore, err
		}
		return rd, tracker.Rescore, nil
	})
}

type readingSource func() (*domain.SensorReading, tracker.Mode, error)

func (s *IngestionService) process(ctx context.Context, equipmentID string, source readingSource) (*domain.IngestionResult, error) {
	unlock := s.locks.Lock(equipmentID)
	res, err := s.apply(ctx, equipmentID, source)
	unlock()
	if err != nil {
		return nil, err
	}

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(ctx, res.Event)
	}
	metrics.HealthScore.Observe(res.Assessment.HealthScore)
	metrics.FailureProbability.Observe(res.Prediction.FailureProbability)
	metrics.AnomalySeverity.WithLabelValues(string(res.Assessment.AnomalySeverity)).Inc()
	return res, nil
}

// apply runs with the equipment lock held.
func (s *IngestionService) apply(ctx context.Context, equipmentID string, source readingSource) (*domain.IngestionResult, error) {
	eq, err := s.store.GetEquipment(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	rd, mode, err := source()
	if err != nil {
		return nil, err
	}

	fv := features.Build(rd.SensorValues)
	assessment := scoring.Assess(fv)
	outcome := s.model.Predict(fv)
	if outcome.Fallback {
		metrics.PredictionFallbacks.Inc()
	}

	tr, err := tracker.Apply(tracker.Input{
		Equipment:    *eq,
		ReadingTime:  rd.Timestamp,
		Assessment:   assessment,
		Outcome:      outcome,
		ModelVersion: s.model.Version(),
		Now:          s.now(),
	}, mode)
	if err != nil {
		s.logStale(eq, rd, mode)
		return nil, err
	}

	commit := &repository.Commit{Transition: tr}
	if mode == tracker.Strict {
		rd.AnomalyScore = assessment.AnomalyScore
		commit.Reading = rd
	}
	if err := s.store.CommitIngestion(ctx, commit); err != nil {
		if errors.Is(err, tracker.ErrStaleReading) {
			s.logStale(eq, rd, mode)
		}
		return nil, err
	}

	return &domain.IngestionResult{
		Reading:    *rd,
		Prediction: commit.Transition.Prediction,
		Assessment: assessment,
		Event:      tr.Event(assessment),
	}, nil
}

func (s *IngestionService) logStale(eq *domain.Equipment, rd *domain.SensorReading, mode tracker.Mode) {
	ev := s.log.Warn().
		Str("equipment_id", eq.EquipmentID).
		Time("reading_time", rd.Timestamp).
		Str("mode", mode.String())
	if eq.LastReadingTime != nil {
		ev = ev.Time("last_reading_time", *eq.LastReadingTime)
	}
	ev.Msg("out-of-order reading ignored")
}

// IngestBatch re-scores the latest reading of every equipment id. Items are
// processed by a bounded pool; one failure never stops the others.
// Predictions are reported in input order.
func (s *IngestionService) IngestBatch(ctx context.Context, equipmentIDs []string) domain.BatchResult {
	results := make([]*domain.IngestionResult, len(equipmentIDs))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, id := range equipmentIDs {
		g.Go(func() error {
			res, err := s.Rescore(ctx, id)
			if err != nil {
				metrics.BatchItems.WithLabelValues("failed").Inc()
				// stale readings were already logged at warn by apply
				if !errors.Is(err, tracker.ErrStaleReading) {
					s.log.Error().Err(err).Str("equipment_id", id).Msg("batch prediction failed")
				}
				return nil
			}
			metrics.BatchItems.WithLabelValues("processed").Inc()
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	out := domain.BatchResult{Predictions: []domain.Prediction{}, Timestamp: s.now()}
	for _, res := range results {
		if res == nil {
			out.FailedCount++
			continue
		}
		out.Predictions = append(out.Predictions, res.Prediction)
	}
	out.ProcessedCount = len(out.Predictions)
	return out
}
