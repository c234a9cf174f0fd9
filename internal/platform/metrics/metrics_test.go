package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ObserveRun(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	finished := time.Date(2021, 4, 2, 8, 0, 0, 0, time.UTC)

	r.ObserveRun("DONE", 2*time.Second, 120, 3, finished)
	r.ObserveRun("FAILED", time.Second, 0, 0, finished.Add(time.Hour))

	assert.InDelta(t, 1, testutil.ToFloat64(r.RunsTotal.WithLabelValues("DONE")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(r.RunsTotal.WithLabelValues("FAILED")), 1e-9)
	assert.InDelta(t, 120, testutil.ToFloat64(r.ReportRows), 1e-9)
	assert.InDelta(t, 3, testutil.ToFloat64(r.DatesRecorded), 1e-9)
	// failed runs leave the success timestamp alone
	assert.InDelta(t, float64(finished.Unix()), testutil.ToFloat64(r.LastSuccess), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(r.RunDuration))
}

func TestRegistry_Counters(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.SourceObjectRead()
	r.SourceObjectRead()
	r.WatermarkLookup("hit")
	r.ObserveStage("extract", 10*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(r.SourceObjects), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(r.WatermarkLookups.WithLabelValues("hit")), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(r.StageDuration))
}

func TestRegistry_Handler(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.ObserveRun("DONE", time.Second, 1, 1, time.Now())

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `xetra_etl_runs_total{state="DONE"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
