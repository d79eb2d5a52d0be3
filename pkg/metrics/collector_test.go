package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	c, err := NewCollector(nil)
	require.NoError(t, err)

	c.RecordTransition("SUCCESS", "GLACIER")
	c.RecordTransition("SUCCESS", "GLACIER")
	c.RecordTransition("FAILED", "GLACIER")
	c.RecordBatch(150 * time.Millisecond)
	c.RecordRun("SUCCEEDED")
	c.RecordAnalysis("logs", 42, 12.5)
	c.RecordRealizedSavings("logs", 3.25)
	c.RecordPersistenceFailure("migration_run")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.transitionCounter.WithLabelValues("SUCCESS", "GLACIER")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitionCounter.WithLabelValues("FAILED", "GLACIER")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.batchCounter))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runCounter.WithLabelValues("SUCCEEDED")))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.analyzedObjects.WithLabelValues("logs")))
	assert.Equal(t, 12.5, testutil.ToFloat64(c.potentialSavings.WithLabelValues("logs")))
	assert.Equal(t, 3.25, testutil.ToFloat64(c.realizedSavings.WithLabelValues("logs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.persistenceFailures.WithLabelValues("migration_run")))

	count, err := testutil.GatherAndCount(c.Registry(), "tier_optimizer_batch_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDisabledAndNilCollectorsAreNoops(t *testing.T) {
	disabled, err := NewCollector(&Config{Enabled: false})
	require.NoError(t, err)

	var nilCollector *Collector
	for _, c := range []*Collector{disabled, nilCollector} {
		assert.NotPanics(t, func() {
			c.RecordTransition("SUCCESS", "GLACIER")
			c.RecordBatch(time.Second)
			c.RecordRun("SUCCEEDED")
			c.RecordAnalysis("b", 1, 1)
			c.RecordRealizedSavings("b", 1)
			c.RecordPersistenceFailure("analysis")
		})
		assert.Nil(t, c.Registry())
		assert.NoError(t, c.WriteTextfile(filepath.Join(t.TempDir(), "unused.prom")))
	}
}

func TestWriteTextfile(t *testing.T) {
	c, err := NewCollector(&Config{Enabled: true, Namespace: "test"})
	require.NoError(t, err)
	c.RecordRun("PARTIAL_FAILURE")

	path := filepath.Join(t.TempDir(), "tier.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `test_bucket_runs_total{outcome="PARTIAL_FAILURE"} 1`))
}
