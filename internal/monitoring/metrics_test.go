package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldCountsSeatsOnlyOnSuccess(t *testing.T) {
	before := testutil.ToFloat64(heldSeats)
	Hold(OutcomeOK, 3)
	Hold(OutcomeUnavailable, 5)
	assert.Equal(t, before+3, testutil.ToFloat64(heldSeats))
	assert.GreaterOrEqual(t, testutil.ToFloat64(holdRequests.WithLabelValues(OutcomeUnavailable)), 1.0)
}

func TestHandlerServesCollectors(t *testing.T) {
	Finalize(OutcomeOK)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "booking_finalize_requests_total")
}
