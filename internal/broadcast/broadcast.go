// Package broadcast delivers ingestion events to best-effort sinks.
package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/metrics"
)

// DeliveryTimeout bounds a single sink delivery.
const DeliveryTimeout = 5 * time.Second

type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev domain.BroadcastEvent) error
}

// Fanout hands every event to each sink in turn. A failing sink is logged
// and never affects the others or the caller.
type Fanout struct {
	sinks []Sink
	log   zerolog.Logger
}

func NewFanout(logger zerolog.Logger, sinks ...Sink) *Fanout {
	f := &Fanout{log: logger.With().Str("component", "broadcast").Logger()}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Add registers another sink.
func (f *Fanout) Add(s Sink) { f.sinks = append(f.sinks, s) }

// Broadcast returns the number of sinks that accepted the event.
func (f *Fanout) Broadcast(ctx context.Context, ev domain.BroadcastEvent) int {
	delivered := 0
	for _, s := range f.sinks {
		if err := f.deliver(ctx, s, ev); err != nil {
			metrics.SinkDeliveries.WithLabelValues(s.Name(), "error").Inc()
			f.log.Warn().Err(err).
				Str("sink", s.Name()).
				Str("equipment_id", ev.EquipmentID).
				Msg("broadcast delivery failed")
			continue
		}
		metrics.SinkDeliveries.WithLabelValues(s.Name(), "ok").Inc()
		delivered++
	}
	return delivered
}

func (f *Fanout) deliver(ctx context.Context, s Sink, ev domain.BroadcastEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink %s panicked: %v", s.Name(), r)
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, DeliveryTimeout)
	defer cancel()
	return s.Deliver(ctx, ev)
}
