// Package features turns raw channel values into the ordered feature vector
// consumed by the scoring pipeline. Missing channels become 0 here and
// nowhere else.
package features

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
)

// Build fills defaults and returns the vector in channel order.
func Build(v domain.SensorValues) domain.FeatureVector {
	fv := make(domain.FeatureVector, domain.FeatureCount)
	for i, p := range v.Slots() {
		if p != nil && !math.IsNaN(*p) && !math.IsInf(*p, 0) {
			fv[i] = *p
		}
	}
	return fv
}

// FromPayload picks the known channels out of a decoded JSON object.
// Numbers and numeric strings are accepted; any other value leaves the
// channel absent.
func FromPayload(payload map[string]any) domain.SensorValues {
	var v domain.SensorValues
	for _, name := range domain.Channels {
		raw, ok := payload[name]
		if !ok {
			continue
		}
		if f, ok := coerce(raw); ok {
			v.Set(name, f)
		}
	}
	return v
}

func coerce(raw any) (float64, bool) {
	switch x := raw.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
