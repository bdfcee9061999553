package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// ReadingsIngested counts readings by outcome: accepted, stale, failed.
	ReadingsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readings_ingested_total",
			Help: "Total number of sensor readings processed",
		},
		[]string{"result"},
	)

	IngestionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingestion_duration_seconds",
			Help:    "Time to score and persist one reading",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	PredictionFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prediction_fallbacks_total",
			Help: "Predictions answered with the neutral outcome",
		},
	)

	AnomalySeverity = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomaly_severity_total",
			Help: "Scored readings by anomaly severity",
		},
		[]string{"severity"},
	)

	BatchItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_items_total",
			Help: "Batch re-score items by result",
		},
		[]string{"result"},
	)

	// Per-equipment values live in the Redis live snapshot; these only keep
	// the fleet-wide distribution so label cardinality stays fixed.
	HealthScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "equipment_health_score",
			Help:    "Distribution of health scores of accepted readings",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)

	FailureProbability = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "equipment_failure_probability",
			Help:    "Distribution of predicted failure probabilities",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)

	SinkDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_deliveries_total",
			Help: "Broadcast sink deliveries by sink and result",
		},
		[]string{"sink", "result"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Connected WebSocket clients",
		},
	)
)
