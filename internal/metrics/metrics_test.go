package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHubRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHub(reg)

	m.MessagesReceived.WithLabelValues("addIncident").Inc()
	m.PeersEvicted.Inc()

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 4, n, "two plain gauges, one counter, one labelled series")

	// A second hub on a fresh registry does not collide.
	assert.NotPanics(t, func() { NewHub(prometheus.NewRegistry()) })
	assert.Panics(t, func() { NewHub(reg) })
}
