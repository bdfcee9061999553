package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Channel names in feature order. The index of a channel in Channels is its
// index in every FeatureVector.
const (
	ChannelTemperature      = "temperature"
	ChannelVibration        = "vibration"
	ChannelPressure         = "pressure"
	ChannelPowerConsumption = "power_consumption"
	ChannelOperatingHours   = "operating_hours"
)

const (
	IdxTemperature = iota
	IdxVibration
	IdxPressure
	IdxPowerConsumption
	IdxOperatingHours

	FeatureCount
)

var Channels = [FeatureCount]string{
	ChannelTemperature,
	ChannelVibration,
	ChannelPressure,
	ChannelPowerConsumption,
	ChannelOperatingHours,
}

// ChannelIndex returns the feature index of name, or -1.
func ChannelIndex(name string) int {
	for i, c := range Channels {
		if c == name {
			return i
		}
	}
	return -1
}

// SensorValues holds the raw channels of a reading. A nil field means the
// channel was absent from the payload.
type SensorValues struct {
	Temperature      *float64 `db:"temperature" json:"temperature"`
	Vibration        *float64 `db:"vibration" json:"vibration"`
	Pressure         *float64 `db:"pressure" json:"pressure"`
	PowerConsumption *float64 `db:"power_consumption" json:"power_consumption"`
	OperatingHours   *float64 `db:"operating_hours" json:"operating_hours"`
}

// Slots returns the channel fields in feature order.
func (v SensorValues) Slots() [FeatureCount]*float64 {
	return [FeatureCount]*float64{
		v.Temperature,
		v.Vibration,
		v.Pressure,
		v.PowerConsumption,
		v.OperatingHours,
	}
}

// Set assigns a channel by name. Unknown names are ignored.
func (v *SensorValues) Set(name string, value float64) {
	val := value
	switch name {
	case ChannelTemperature:
		v.Temperature = &val
	case ChannelVibration:
		v.Vibration = &val
	case ChannelPressure:
		v.Pressure = &val
	case ChannelPowerConsumption:
		v.PowerConsumption = &val
	case ChannelOperatingHours:
		v.OperatingHours = &val
	}
}

// FeatureVector is the ordered numeric input of the scoring pipeline.
type FeatureVector []float64

// Valid reports whether the vector has the expected length and only finite
// values.
func (fv FeatureVector) Valid() bool {
	if len(fv) != FeatureCount {
		return false
	}
	for _, x := range fv {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func (fv FeatureVector) Temperature() float64      { return fv.at(IdxTemperature) }
func (fv FeatureVector) Vibration() float64        { return fv.at(IdxVibration) }
func (fv FeatureVector) Pressure() float64         { return fv.at(IdxPressure) }
func (fv FeatureVector) PowerConsumption() float64 { return fv.at(IdxPowerConsumption) }
func (fv FeatureVector) OperatingHours() float64   { return fv.at(IdxOperatingHours) }

func (fv FeatureVector) at(i int) float64 {
	if i < len(fv) {
		return fv[i]
	}
	return 0
}

// FactorWeight is one channel's global importance.
type FactorWeight struct {
	Channel string
	Weight  float64
}

// FeatureImportance is ordered by descending weight, ties in channel order.
// It serialises as a JSON object whose key order follows the slice.
type FeatureImportance []FactorWeight

// RankImportance builds a FeatureImportance from per-channel weights given
// in channel order. Negative weights are clamped to zero.
func RankImportance(weights []float64) FeatureImportance {
	out := make(FeatureImportance, 0, len(weights))
	for i, w := range weights {
		if i >= FeatureCount {
			break
		}
		if w < 0 || math.IsNaN(w) {
			w = 0
		}
		out = append(out, FactorWeight{Channel: Channels[i], Weight: w})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Weight > out[b].Weight })
	return out
}

// Top returns the names of the n most important channels joined by commas.
func (fi FeatureImportance) Top(n int) string {
	if n > len(fi) {
		n = len(fi)
	}
	names := make([]string, 0, n)
	for _, f := range fi[:n] {
		names = append(names, f.Channel)
	}
	return strings.Join(names, ",")
}

func (fi FeatureImportance) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fi {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Channel)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Weight)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (fi *FeatureImportance) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*fi = nil
		return nil
	}
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	weights := make([]float64, FeatureCount)
	seen := 0
	for name, w := range m {
		if idx := ChannelIndex(name); idx >= 0 {
			weights[idx] = w
			seen++
		}
	}
	if seen == 0 {
		*fi = FeatureImportance{}
		return nil
	}
	*fi = RankImportance(weights)
	return nil
}

// Value stores the importance as a JSON object.
func (fi FeatureImportance) Value() (driver.Value, error) {
	b, err := fi.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (fi *FeatureImportance) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*fi = FeatureImportance{}
		return nil
	case []byte:
		return fi.UnmarshalJSON(v)
	case string:
		return fi.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("feature importance: unsupported scan type %T", src)
	}
}
