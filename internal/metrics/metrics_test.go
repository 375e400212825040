package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CorporateExcluded.Add(3)
	m.CollectorRequests.WithLabelValues("KR", "gaming", "ok").Inc()
	ObserveSince(m.RankDuration, time.Now().Add(-time.Second))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["playaura_corporate_excluded_total"])
	assert.True(t, names["playaura_collector_requests_total"])
	assert.True(t, names["playaura_rank_duration_seconds"])

	assert.Equal(t, 3.0, testutil.ToFloat64(m.CorporateExcluded))
}

func TestNew_NilRegistererIsUsable(t *testing.T) {
	m := New(nil)
	m.CreatorsRanked.Set(12)
	assert.Equal(t, 12.0, testutil.ToFloat64(m.CreatorsRanked))

	// a second unregistered set does not collide
	_ = New(nil)
}
