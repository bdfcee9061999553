package http

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/cache"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/cloud"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/metrics"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/repository"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/service"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/tracker"
)

const (
	maxPredictionLimit = 100
	maxUpcomingLimit   = 200
)

type EquipmentAPI interface {
	List(ctx context.Context) ([]domain.Equipment, error)
	Get(ctx context.Context, equipmentID string) (*domain.Equipment, error)
	Create(ctx context.Context, eq domain.Equipment) (*domain.Equipment, error)
	Health(ctx context.Context, equipmentID string) (*domain.HealthStatus, error)
	Predictions(ctx context.Context, equipmentID string, limit int) ([]domain.Prediction, error)
}

type ReadingAPI interface {
	FromJSON(ctx context.Context, payload []byte) (*domain.IngestionResult, error)
}

type BatchAPI interface {
	IngestBatch(ctx context.Context, equipmentIDs []string) domain.BatchResult
}

type MaintenanceAPI interface {
	Plan(ctx context.Context, equipmentID string) (*service.MaintenancePlan, error)
	Schedule(ctx context.Context, ev domain.MaintenanceEvent) (*domain.MaintenanceEvent, error)
	Complete(ctx context.Context, id int64, c domain.MaintenanceCompletion) (*domain.MaintenanceEvent, error)
	Upcoming(ctx context.Context, limit int) ([]domain.MaintenanceEvent, error)
}

// LiveAPI reads the snapshot cache.
type LiveAPI interface {
	Get(ctx context.Context, equipmentID string) (*domain.BroadcastEvent, error)
	Recent(ctx context.Context, equipmentID string, limit int) ([]domain.BroadcastEvent, error)
}

type AlertAPI interface {
	GetAlerts(ctx context.Context, facilityID, severity string) ([]domain.Alert, error)
	AcknowledgeAlert(ctx context.Context, alertID string) error
}

type ModelStatus interface {
	Version() string
}

// Handlers groups what the routes call. Live and Alerts are optional; their
// routes are only mounted when set.
type Handlers struct {
	Equipment   EquipmentAPI
	Readings    ReadingAPI
	Batch       BatchAPI
	Maintenance MaintenanceAPI
	Live        LiveAPI
	Alerts      AlertAPI
	Model       ModelStatus
	Log         zerolog.Logger
}

// FromServices wires the service layer into handlers.
func FromServices(svcs *service.Services) Handlers {
	return Handlers{
		Equipment:   svcs.Equipment,
		Readings:    svcs.Readings,
		Batch:       svcs.Ingestion,
		Maintenance: svcs.Maintenance,
	}
}

type batchRequest struct {
	EquipmentIDs []string `json:"equipment_ids"`
}

func Register(app *fiber.App, h Handlers) {
	app.Use(instrument)

	app.Get("/health", func(c *fiber.Ctx) error {
		body := fiber.Map{"status": "healthy", "timestamp": time.Now().UTC()}
		if h.Model != nil {
			body["model_version"] = h.Model.Version()
		}
		return c.JSON(body)
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	g := app.Group("/")
	g.Get("equipment", func(c *fiber.Ctx) error {
		items, err := h.Equipment.List(c.UserContext())
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(items)
	})
	g.Post("equipment", func(c *fiber.Ctx) error {
		var eq domain.Equipment
		if err := c.BodyParser(&eq); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		created, err := h.Equipment.Create(c.UserContext(), eq)
		if err != nil {
			return h.fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})
	g.Get("equipment/:id", func(c *fiber.Ctx) error {
		eq, err := h.Equipment.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(eq)
	})
	g.Get("equipment/:id/health", func(c *fiber.Ctx) error {
		hs, err := h.Equipment.Health(c.UserContext(), c.Params("id"))
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(hs)
	})
	g.Get("predictions/:id", func(c *fiber.Ctx) error {
		limit := queryLimit(c, repository.DefaultHistoryLimit, maxPredictionLimit)
		items, err := h.Equipment.Predictions(c.UserContext(), c.Params("id"), limit)
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(items)
	})

	g.Post("sensor/reading", func(c *fiber.Ctx) error {
		res, err := h.Readings.FromJSON(c.UserContext(), c.Body())
		if err != nil {
			return h.fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})
	g.Post("predict/batch", func(c *fiber.Ctx) error {
		var req batchRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		return c.JSON(h.Batch.IngestBatch(c.UserContext(), req.EquipmentIDs))
	})
	g.Get("maintenance/:id/plan", func(c *fiber.Ctx) error {
		plan, err := h.Maintenance.Plan(c.UserContext(), c.Params("id"))
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(plan)
	})
	g.Post("maintenance", func(c *fiber.Ctx) error {
		var ev domain.MaintenanceEvent
		if err := c.BodyParser(&ev); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		created, err := h.Maintenance.Schedule(c.UserContext(), ev)
		if err != nil {
			return h.fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})
	g.Get("maintenance/upcoming", func(c *fiber.Ctx) error {
		limit := queryLimit(c, repository.DefaultUpcomingLimit, maxUpcomingLimit)
		items, err := h.Maintenance.Upcoming(c.UserContext(), limit)
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(items)
	})
	g.Post("maintenance/:id/complete", func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid maintenance id"})
		}
		// an empty body completes the event now
		var done domain.MaintenanceCompletion
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&done); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
			}
		}
		ev, err := h.Maintenance.Complete(c.UserContext(), int64(id), done)
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(ev)
	})

	if h.Live != nil {
		g.Get("equipment/:id/live", func(c *fiber.Ctx) error {
			ev, err := h.Live.Get(c.UserContext(), c.Params("id"))
			if err != nil {
				return h.fail(c, err)
			}
			return c.JSON(ev)
		})
		g.Get("equipment/:id/events", func(c *fiber.Ctx) error {
			limit := queryLimit(c, repository.DefaultHistoryLimit, cache.HistoryLength)
			items, err := h.Live.Recent(c.UserContext(), c.Params("id"), limit)
			if err != nil {
				return h.fail(c, err)
			}
			return c.JSON(items)
		})
	}

	if h.Alerts != nil {
		g.Get("alerts/:facility", func(c *fiber.Ctx) error {
			items, err := h.Alerts.GetAlerts(c.UserContext(), c.Params("facility"), c.Query("severity"))
			if err != nil {
				return h.fail(c, err)
			}
			return c.JSON(items)
		})
		g.Post("alerts/:id/ack", func(c *fiber.Ctx) error {
			if err := h.Alerts.AcknowledgeAlert(c.UserContext(), c.Params("id")); err != nil {
				return h.fail(c, err)
			}
			return c.JSON(fiber.Map{"alert_id": c.Params("id"), "acknowledged": true})
		})
	}
}

// fail maps service errors onto status codes. Unexpected errors are logged
// and reported without detail.
func (h Handlers) fail(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	if status == fiber.StatusInternalServerError {
		h.Log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, cache.ErrMiss),
		errors.Is(err, cloud.ErrAlertNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, tracker.ErrStaleReading),
		errors.Is(err, repository.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrInvalidInput):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func queryLimit(c *fiber.Ctx, def, upper int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, upper)
}

func instrument(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}
	route := c.Route().Path
	metrics.RequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
	metrics.RequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
	return err
}
