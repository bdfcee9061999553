package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/alerting"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/broadcast"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/cache"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/cloud"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/config"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/database"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/logging"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/ml"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/repository"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/service"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/tracker"
)

const ingestTimeout = 10 * time.Second

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logger := logging.Setup(config.LogLevel(), config.LogFormat())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	fanout := broadcast.NewFanout(logger)

	var artifacts ml.ArtifactStore = ml.NewFileStore(config.ModelDir())
	if config.UseCloudServices() {
		awsCfg, err := cloud.LoadConfig(ctx, config.AWSRegion())
		if err != nil {
			log.Fatal().Err(err).Msg("aws config failed")
		}
		artifacts = cloud.NewS3ArtifactStore(awsCfg, config.S3Bucket())
		fanout.Add(alerting.NewNotifier(
			cloud.NewAlertStore(awsCfg, config.AlertsTable()),
			cloud.NewSNSClient(awsCfg, config.SNSTopicArn()),
			config.AlertFailureProbability(),
			logger,
		))
	}

	model := ml.New(ml.Options{Version: config.ModelVersion(), Store: artifacts, Logger: logger})
	if err := model.Init(ctx); err != nil {
		log.Error().Err(err).Msg("failure model unavailable")
	}

	if rdb, err := cache.NewRedisClient(ctx, config.RedisAddr(), config.RedisPassword(), config.RedisDB()); err != nil {
		log.Warn().Err(err).Msg("redis unavailable; live snapshots disabled")
	} else {
		defer rdb.Close()
		fanout.Add(cache.NewSnapshotCache(rdb, config.SnapshotTTL()))
	}

	opts := mqtt.NewClientOptions().
		AddBroker(config.MQTTBroker()).
		SetClientID(config.MQTTClientID()).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)
	fanout.Add(broadcast.NewMQTTSink(client, config.MQTTEventTopic()))

	svcs := service.New(service.Deps{
		Store:           repository.New(db),
		Model:           model,
		Broadcaster:     fanout,
		BatchWorkers:    config.BatchWorkers(),
		ServiceInterval: config.ServiceInterval(),
		Logger:          logger,
	})

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		msgCtx, cancel := context.WithTimeout(ctx, ingestTimeout)
		defer cancel()

		res, err := svcs.Readings.FromMQTT(msgCtx, msg.Topic(), msg.Payload())
		switch {
		case errors.Is(err, tracker.ErrStaleReading):
			// already logged by the ingestion service
		case errors.Is(err, service.ErrInvalidInput):
			log.Warn().Err(err).Str("topic", msg.Topic()).Msg("payload rejected")
		case err != nil:
			log.Error().Err(err).Str("topic", msg.Topic()).Msg("ingest failed")
		default:
			log.Debug().
				Str("equipment_id", res.Reading.EquipmentID).
				Float64("health_score", res.Assessment.HealthScore).
				Float64("failure_probability", res.Prediction.FailureProbability).
				Msg("reading ingested")
		}
	}

	topic := config.MQTTSensorTopic()
	if token := client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("subscribe failed")
	}

	log.Info().Str("topic", topic).Msg("ingestor running; Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("ingestor stopping")
}
