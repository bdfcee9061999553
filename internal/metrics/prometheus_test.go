package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreHistogramsCarryNoEquipmentLabel(t *testing.T) {
	HealthScore.Observe(92.5)
	HealthScore.Observe(41)
	FailureProbability.Observe(0.2)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	found := map[string]int{}
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, "equipment_") {
			continue
		}
		found[name] = len(mf.GetMetric())
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				assert.NotEqual(t, "equipment_id", l.GetName(), "%s is labelled per equipment", name)
			}
			assert.GreaterOrEqual(t, m.GetHistogram().GetSampleCount(), uint64(1))
		}
	}

	// one series each, however many equipment report
	assert.Equal(t, 1, found["equipment_health_score"])
	assert.Equal(t, 1, found["equipment_failure_probability"])
}

func TestNoMetricIsLabelledPerEquipment(t *testing.T) {
	ReadingsIngested.WithLabelValues("accepted").Inc()
	BatchItems.WithLabelValues("failed").Inc()
	SinkDeliveries.WithLabelValues("redis", "ok").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				assert.NotEqual(t, "equipment_id", l.GetName(), mf.GetName())
			}
		}
	}
}
