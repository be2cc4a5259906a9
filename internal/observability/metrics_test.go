package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestRecordRosterSetsGauges(t *testing.T) {
	RecordRoster("Gauge Club", 3, 12)

	require.Equal(t, 3.0, testutil.ToFloat64(rosterSizeGauge.WithLabelValues("Gauge Club")))
	require.Equal(t, 12.0, testutil.ToFloat64(rosterCapacityGauge.WithLabelValues("Gauge Club")))

	RecordRoster("Gauge Club", 2, 12)
	require.Equal(t, 2.0, testutil.ToFloat64(rosterSizeGauge.WithLabelValues("Gauge Club")))
}

func TestRecordRosterIgnoresEmptyName(t *testing.T) {
	before := testutil.CollectAndCount(rosterSizeGauge)
	RecordRoster("", 1, 1)
	require.Equal(t, before, testutil.CollectAndCount(rosterSizeGauge))
}

func TestRecordOperationIsGathered(t *testing.T) {
	RecordOperation("signup", "full")
	RecordOperation("signup", "full")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var found *dto.Metric
	for _, family := range families {
		if family.GetName() != "enrollment_service_roster_operations_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			if labelValue(metric, "operation") == "signup" && labelValue(metric, "outcome") == "full" {
				found = metric
			}
		}
	}
	require.NotNil(t, found, "operations counter not exported")
	require.GreaterOrEqual(t, found.GetCounter().GetValue(), 2.0)
}

func labelValue(metric *dto.Metric, name string) string {
	for _, pair := range metric.GetLabel() {
		if pair.GetName() == name {
			return pair.GetValue()
		}
	}
	return ""
}
