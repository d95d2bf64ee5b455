package strapi_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
)

var errCompensationFailed = errors.New("compensation failed")

func TestPrometheusMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()

	metrics, err := strapi.NewPrometheusMetrics(registry)
	require.NoError(t, err)

	metrics.BatchCompleted(strapi.OutcomeCommitted, 3, 20*time.Millisecond)
	metrics.BatchCompleted(strapi.OutcomeCommitted, 2, 10*time.Millisecond)
	metrics.BatchCompleted(strapi.OutcomeRolledBack, 4, time.Second)
	metrics.CompensationIssued(strapi.OperationUpdate, nil)
	metrics.CompensationIssued(strapi.OperationCreate, errCompensationFailed)

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.Batches().WithLabelValues("committed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Batches().WithLabelValues("rolled_back")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Compensations().WithLabelValues("update", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Compensations().WithLabelValues("create", "error")), 0)

	count, err := testutil.GatherAndCount(registry, "strapi_atomic_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = strapi.NewPrometheusMetrics(registry)
	require.Error(t, err, "collectors cannot be registered twice")
}
