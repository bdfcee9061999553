package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
)

// Publisher is the part of mqtt.Client the sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSink publishes events to a per-equipment topic, e.g.
// "equipment/{equipment_id}/health".
type MQTTSink struct {
	client Publisher
	topic  string
	qos    byte
}

func NewMQTTSink(client Publisher, topicPattern string) *MQTTSink {
	return &MQTTSink{client: client, topic: topicPattern, qos: 1}
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Deliver(ctx context.Context, ev domain.BroadcastEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	token := s.client.Publish(FormatTopic(s.topic, ev.EquipmentID), s.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", ev.EquipmentID, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// FormatTopic substitutes the equipment id into a topic pattern.
func FormatTopic(pattern, equipmentID string) string {
	return strings.ReplaceAll(pattern, "{equipment_id}", equipmentID)
}
