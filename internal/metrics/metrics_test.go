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

	"ideagraph/semnet/internal/network"
)

func TestCollector_BuildOutcomes(t *testing.T) {
	c := New()

	c.BuildCompleted(network.OutcomeSuccess, 120*time.Millisecond, 7, 9)
	c.BuildCompleted(network.OutcomeSuccess, 80*time.Millisecond, 3, 2)
	c.BuildCompleted(network.OutcomeSeedUnresolvable, time.Millisecond, 0, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.buildsTotal.WithLabelValues(network.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.buildsTotal.WithLabelValues(network.OutcomeSeedUnresolvable)))
	assert.Equal(t, 2, testutil.CollectAndCount(c.buildsTotal))
}

func TestCollector_Failures(t *testing.T) {
	c := New()

	c.QueryFailed("")
	c.QueryFailed("idea")
	c.QueryFailed("idea")
	c.SummaryFailed(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.queryFailures.WithLabelValues("all")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.queryFailures.WithLabelValues("idea")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.summaryFailures.WithLabelValues("2")))
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.ObserveHTTP("/api/network/{type}/{id}", http.StatusOK, 10*time.Millisecond)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `semnet_http_requests_total{route="/api/network/{type}/{id}",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
