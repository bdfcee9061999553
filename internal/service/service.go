package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/repository"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/tracker"
)

// ErrInvalidInput marks caller mistakes: malformed payloads and missing
// identifiers.
var ErrInvalidInput = errors.New("invalid input")

// Store is the persistence the services need. *repository.Repos
// implements it.
type Store interface {
	ListEquipment(ctx context.Context) ([]domain.Equipment, error)
	GetEquipment(ctx context.Context, equipmentID string) (*domain.Equipment, error)
	CreateEquipment(ctx context.Context, eq *domain.Equipment) error
	LatestReading(ctx context.Context, equipmentID string) (*domain.SensorReading, error)
	ListPredictions(ctx context.Context, equipmentID string, limit int) ([]domain.Prediction, error)
	LatestPrediction(ctx context.Context, equipmentID string) (*domain.Prediction, error)
	CommitIngestion(ctx context.Context, c *repository.Commit) error
	CreateMaintenance(ctx context.Context, ev *domain.MaintenanceEvent) error
	CompleteMaintenance(ctx context.Context, id int64, c domain.MaintenanceCompletion, now time.Time) (*domain.MaintenanceEvent, error)
	UpcomingMaintenance(ctx context.Context, from time.Time, limit int) ([]domain.MaintenanceEvent, error)
}

// Predictor is the failure model as seen by the orchestrator.
type Predictor interface {
	Predict(fv domain.FeatureVector) domain.PredictionOutcome
	Version() string
}

type Broadcaster interface {
	Broadcast(ctx context.Context, ev domain.BroadcastEvent) int
}

type Deps struct {
	Store           Store
	Model           Predictor
	Broadcaster     Broadcaster
	BatchWorkers    int
	ServiceInterval time.Duration
	Logger          zerolog.Logger
}

type Services struct {
	Equipment   *EquipmentService
	Ingestion   *IngestionService
	Readings    *ReadingService
	Maintenance *MaintenanceService
}

func New(d Deps) *Services {
	ingestion := &IngestionService{
		store:       d.Store,
		model:       d.Model,
		broadcaster: d.Broadcaster,
		locks:       tracker.NewKeyedMutex(),
		workers:     max(1, d.BatchWorkers),
		now:         func() time.Time { return time.Now().UTC() },
		log:         d.Logger.With().Str("component", "ingestion").Logger(),
	}
	return &Services{
		Equipment: &EquipmentService{store: d.Store, now: ingestion.now},
		Ingestion: ingestion,
		Readings:  &ReadingService{ingestion: ingestion, now: ingestion.now},
		Maintenance: &MaintenanceService{
			store:    d.Store,
			interval: d.ServiceInterval,
			now:      ingestion.now,
		},
	}
}
