package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/features"
)

// ReadingService accepts raw sensor payloads from MQTT and HTTP.
type ReadingService struct {
	ingestion *IngestionService
	now       func() time.Time
}

// FromMQTT ingests a payload received on a topic of the form
// equipment/<equipment_id>/sensors. An equipment_id in the payload wins
// over the topic.
func (s *ReadingService) FromMQTT(ctx context.Context, topic string, payload []byte) (*domain.IngestionResult, error) {
	rd, err := ParseReading(payload, EquipmentFromTopic(topic), s.now)
	if err != nil {
		return nil, err
	}
	return s.ingestion.Ingest(ctx, rd)
}

// FromJSON ingests a payload posted over HTTP.
func (s *ReadingService) FromJSON(ctx context.Context, payload []byte) (*domain.IngestionResult, error) {
	rd, err := ParseReading(payload, "", s.now)
	if err != nil {
		return nil, err
	}
	return s.ingestion.Ingest(ctx, rd)
}

// EquipmentFromTopic extracts the equipment id segment of
// equipment/<id>/sensors, or returns "".
func EquipmentFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) == 3 && parts[0] == "equipment" && parts[2] == "sensors" {
		return parts[1]
	}
	return ""
}

// ParseReading decodes a JSON object into a reading. Channel values are
// coerced leniently; the payload is kept verbatim as the raw blob, or the
// nested raw_data object when one is present.
func ParseReading(payload []byte, fallbackID string, now func() time.Time) (domain.SensorReading, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return domain.SensorReading{}, fmt.Errorf("%w: payload is not a JSON object: %v", ErrInvalidInput, err)
	}

	rd := domain.SensorReading{
		EquipmentID:  fallbackID,
		SensorValues: features.FromPayload(body),
		RawData:      types.JSONText(payload),
	}
	if id, ok := body["equipment_id"].(string); ok && id != "" {
		rd.EquipmentID = id
	}
	if rd.EquipmentID == "" {
		return domain.SensorReading{}, fmt.Errorf("%w: equipment_id is required", ErrInvalidInput)
	}
	if raw, ok := body["raw_data"]; ok && raw != nil {
		if b, err := json.Marshal(raw); err == nil {
			rd.RawData = types.JSONText(b)
		}
	}

	ts, err := parseTimestamp(body["timestamp"])
	if err != nil {
		return domain.SensorReading{}, err
	}
	if ts.IsZero() {
		ts = now()
	}
	rd.Timestamp = ts.UTC()
	return rd, nil
}

// maxUnixSeconds bounds numeric timestamps to what fits in int64
// nanoseconds.
const maxUnixSeconds = math.MaxInt64 / float64(time.Second)

// parseTimestamp accepts RFC 3339 strings and unix seconds.
func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case string:
		if t == "" {
			return time.Time{}, nil
		}
		ts, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: timestamp %q: %v", ErrInvalidInput, t, err)
		}
		return ts, nil
	case json.Number:
		secs, err := strconv.ParseFloat(t.String(), 64)
		if err != nil || math.IsNaN(secs) || math.Abs(secs) > maxUnixSeconds {
			return time.Time{}, fmt.Errorf("%w: timestamp %q out of range", ErrInvalidInput, t)
		}
		whole, frac := math.Modf(secs)
		return time.Unix(int64(whole), int64(frac*float64(time.Second))), nil
	default:
		return time.Time{}, fmt.Errorf("%w: timestamp has type %T", ErrInvalidInput, v)
	}
}
