package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/config"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/logging"
)

// Reading is the payload published on equipment/<id>/sensors.
type Reading struct {
	EquipmentID      string    `json:"equipment_id"`
	Timestamp        time.Time `json:"timestamp"`
	Temperature      float64   `json:"temperature"`
	Vibration        float64   `json:"vibration"`
	Pressure         float64   `json:"pressure"`
	PowerConsumption float64   `json:"power_consumption"`
	OperatingHours   float64   `json:"operating_hours"`
}

// unit wears out linearly at its own rate; wear 1.0 is a unit about to fail.
type unit struct {
	id    string
	wear  float64
	rate  float64
	hours float64
}

func (u *unit) next(rng *rand.Rand, now time.Time, step time.Duration) Reading {
	u.wear = min(1, u.wear+u.rate)
	u.hours += step.Seconds() // a second of wall time counts as an hour of duty
	noise := func(scale float64) float64 { return (rng.Float64()*2 - 1) * scale }

	return Reading{
		EquipmentID:      u.id,
		Timestamp:        now.UTC(),
		Temperature:      45 + 50*u.wear + noise(3),
		Vibration:        max(0, 1.2+6*u.wear+noise(0.3)),
		Pressure:         8 + 9*u.wear*u.wear + noise(0.5),
		PowerConsumption: 18 + 45*u.wear + noise(2),
		OperatingHours:   u.hours,
	}
}

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logging.Setup(config.LogLevel(), config.LogFormat())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 47))

	units := make([]*unit, config.SimulatorEquipmentCount())
	for i := range units {
		units[i] = &unit{
			id:    fmt.Sprintf("SIM-%03d", i+1),
			wear:  rng.Float64() * 0.3,
			rate:  0.0005 + rng.Float64()*0.003,
			hours: rng.Float64() * 8000,
		}
		register(units[i].id)
	}

	opts := mqtt.NewClientOptions().
		AddBroker(config.MQTTBroker()).
		SetClientID(config.MQTTClientID() + "-simulator")
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	interval := config.SimulatorInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; i < config.SimulatorIterations(); i++ {
		select {
		case <-ctx.Done():
			log.Info().Int("iterations", i).Msg("simulation interrupted")
			return
		case now := <-ticker.C:
			for _, u := range units {
				payload, err := json.Marshal(u.next(rng, now, interval))
				if err != nil {
					log.Error().Err(err).Msg("encode reading")
					continue
				}
				topic := fmt.Sprintf("equipment/%s/sensors", u.id)
				if token := client.Publish(topic, 1, false, payload); token.Wait() && token.Error() != nil {
					log.Warn().Err(token.Error()).Str("topic", topic).Msg("publish failed")
				}
			}
		}
	}
	log.Info().Msg("simulation done")
}

// register creates the equipment through the API. An existing entry is
// fine.
func register(id string) {
	eq := domain.Equipment{
		EquipmentID: id,
		Name:        "Simulated pump " + id,
		Type:        "pump",
		Location:    "sim-plant",
		Criticality: "medium",
	}
	code, body, errs := fiber.Post(config.SimulatorAPIURL() + "/equipment").JSON(eq).Bytes()
	switch {
	case len(errs) > 0:
		log.Warn().Errs("errors", errs).Str("equipment_id", id).Msg("equipment registration failed")
	case code == fiber.StatusCreated, code == fiber.StatusConflict:
		log.Info().Str("equipment_id", id).Int("status", code).Msg("equipment registered")
	default:
		log.Warn().Str("equipment_id", id).Int("status", code).Bytes("body", body).Msg("equipment registration rejected")
	}
}
