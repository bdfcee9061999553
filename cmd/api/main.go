package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/alerting"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/broadcast"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/cache"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/cloud"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/config"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/database"
	httpHandlers "github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/http"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/logging"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/ml"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/repository"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/service"
)

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
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("schema setup failed")
	}

	var (
		live   httpHandlers.LiveAPI
		alerts httpHandlers.AlertAPI
	)
	fanout := broadcast.NewFanout(logger)

	var artifacts ml.ArtifactStore = ml.NewFileStore(config.ModelDir())
	if config.UseCloudServices() {
		awsCfg, err := cloud.LoadConfig(ctx, config.AWSRegion())
		if err != nil {
			log.Fatal().Err(err).Msg("aws config failed")
		}
		artifacts = cloud.NewS3ArtifactStore(awsCfg, config.S3Bucket())

		alertStore := cloud.NewAlertStore(awsCfg, config.AlertsTable())
		notifier := alerting.NewNotifier(
			alertStore,
			cloud.NewSNSClient(awsCfg, config.SNSTopicArn()),
			config.AlertFailureProbability(),
			logger,
		)
		fanout.Add(notifier)
		alerts = alertStore
	}

	model := ml.New(ml.Options{
		Version: config.ModelVersion(),
		Store:   artifacts,
		Logger:  logger,
	})
	if err := model.Init(ctx); err != nil {
		// Predictions fall back to the neutral outcome until a restart.
		log.Error().Err(err).Msg("failure model unavailable")
	}

	rdb, err := cache.NewRedisClient(ctx, config.RedisAddr(), config.RedisPassword(), config.RedisDB())
	if err != nil {
		log.Warn().Err(err).Str("addr", config.RedisAddr()).Msg("redis unavailable; live snapshots disabled")
	} else {
		defer rdb.Close()
		snapshots := cache.NewSnapshotCache(rdb, config.SnapshotTTL())
		fanout.Add(snapshots)
		live = snapshots
	}

	opts := mqtt.NewClientOptions().
		AddBroker(config.MQTTBroker()).
		SetClientID(config.MQTTClientID() + "-api").
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(5*time.Second) && token.Error() == nil {
		defer client.Disconnect(250)
		fanout.Add(broadcast.NewMQTTSink(client, config.MQTTEventTopic()))
	} else {
		log.Warn().Err(token.Error()).Str("broker", config.MQTTBroker()).Msg("mqtt unavailable; events not published")
	}

	hub := broadcast.NewHub()
	go hub.Run(ctx)
	fanout.Add(hub)

	svcs := service.New(service.Deps{
		Store:           repository.New(db),
		Model:           model,
		Broadcaster:     fanout,
		BatchWorkers:    config.BatchWorkers(),
		ServiceInterval: config.ServiceInterval(),
		Logger:          logger,
	})

	h := httpHandlers.FromServices(svcs)
	h.Log = logger
	h.Model = model
	h.Live = live
	h.Alerts = alerts

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httpHandlers.Register(app, h)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	wsServer := &http.Server{Addr: config.WSAddr(), Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info().Str("addr", config.WSAddr()).Msg("websocket listening")
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("websocket server exit")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = wsServer.Shutdown(shutdownCtx)
		_ = app.ShutdownWithContext(shutdownCtx)
	}()

	log.Info().Str("addr", config.APIAddr()).Msg("api listening")
	if err := app.Listen(config.APIAddr()); err != nil {
		log.Error().Err(err).Msg("server exit")
	}
}
