package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()

	m.ObserveRequest(OutcomeSuccess)
	m.ObserveRequest(OutcomeSuccess)
	m.ObserveRequest(OutcomeInvalid)
	m.ObserveRank(150 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(OutcomeInvalid)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.rankDuration))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRequest(OutcomeRateLimited)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `clip_api_classify_requests_total{outcome="rate_limited"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
