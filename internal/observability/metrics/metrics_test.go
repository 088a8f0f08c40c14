package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New("prober")

	m.RecordChain("checked-written")
	m.RecordChain("skipped")
	m.RecordChain("skipped")
	m.RecordProbe(true, "", true, 120*time.Millisecond)
	m.RecordProbe(false, "connectivity", false, 3*time.Second)
	m.RecordProbe(false, "rpc", false, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.chainsTotal.WithLabelValues("skipped")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.urlsCheckedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.urlsWorkingTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ipv6Total))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageFailuresTotal.WithLabelValues("connectivity")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordChain("skipped")
	m.RecordProbe(true, "", false, time.Second)
	assert.NotNil(t, m.Gatherer())
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New("prober")
	m.RecordProbe(true, "", false, 10*time.Millisecond)

	path := filepath.Join(t.TempDir(), "prober.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "prober_urls_checked_total 1")
}
