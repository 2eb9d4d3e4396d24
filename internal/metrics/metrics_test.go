package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistration(t *testing.T) {
	metrics := []prometheus.Collector{
		VotesTotal,
		ProposalsTotal,
		MergedFieldsTotal,
		RatingsTotal,
		ServiceErrorsTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CacheLookupsTotal,
		RateLimitedTotal,
		ActivityPublishedTotal,
		ActivityConsumedTotal,
	}

	for _, metric := range metrics {
		desc := make(chan *prometheus.Desc, 1)
		metric.Describe(desc)
		close(desc)

		require.NotNil(t, <-desc, "metric should have a valid descriptor")
	}
}

func TestCounterMetrics(t *testing.T) {
	before := testutil.ToFloat64(VotesTotal.WithLabelValues("film", "add", "ok"))
	VotesTotal.WithLabelValues("film", "add", "ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(VotesTotal.WithLabelValues("film", "add", "ok")))

	before = testutil.ToFloat64(MergedFieldsTotal)
	MergedFieldsTotal.Add(3)
	assert.Equal(t, before+3, testutil.ToFloat64(MergedFieldsTotal))
}
