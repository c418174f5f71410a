package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	before := testutil.ToFloat64(GeocodeRequests.WithLabelValues("found"))
	GeocodeRequests.WithLabelValues("found").Inc()
	assert.InDelta(t, before+1, testutil.ToFloat64(GeocodeRequests.WithLabelValues("found")), 1e-9)

	path := filepath.Join(t.TempDir(), "m", "restituiri.prom")
	require.NoError(t, WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `restituiri_geocode_total{status="found"}`)
}

func TestWriteTextfileEmptyPath(t *testing.T) {
	assert.NoError(t, WriteTextfile(""))
}
