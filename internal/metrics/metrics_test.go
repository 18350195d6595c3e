package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTransition(t *testing.T) {
	before := testutil.ToFloat64(messageTransitions.WithLabelValues("sent"))
	RecordTransition("sent")
	assert.Equal(t, before+1, testutil.ToFloat64(messageTransitions.WithLabelValues("sent")))
}

func TestRecordSubscriptionUpdateLabels(t *testing.T) {
	RecordSubscriptionUpdate("active", true)
	RecordSubscriptionUpdate("active", false)
	assert.GreaterOrEqual(t, testutil.ToFloat64(subscriptionUpdates.WithLabelValues("active", "true")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(subscriptionUpdates.WithLabelValues("active", "false")), 1.0)
}

func TestHandlerExposesCounters(t *testing.T) {
	RecordWebhook("stripe", "invoice.paid", "ignored")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "helpflow_webhooks_events_total")
}
