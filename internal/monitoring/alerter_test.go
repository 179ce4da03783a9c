package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/place-enrich/internal/config"
	"github.com/sells-group/place-enrich/internal/enrich"
)

func testConfig() config.MonitoringConfig {
	return config.MonitoringConfig{
		FailureRateThreshold: 0.10,
		CostThresholdUSD:     25.0,
	}
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(testConfig())

	sum := &enrich.Summary{
		RunID:            "run-1",
		Addresses:        100,
		Resolved:         95,
		Unresolved:       4,
		Failed:           1,
		EstimatedCostUSD: 2.20,
	}

	assert.Empty(t, a.Evaluate(sum, nil))
}

func TestAlerter_Evaluate_FailureRate(t *testing.T) {
	a := NewAlerter(testConfig())

	sum := &enrich.Summary{RunID: "run-1", Addresses: 20, Resolved: 12, Failed: 8}

	alerts := a.Evaluate(sum, nil)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFailureRate, alerts[0].Type)
	assert.Equal(t, "run-1", alerts[0].RunID)
	assert.Contains(t, alerts[0].Message, "40.0%")
	assert.InDelta(t, 0.4, alerts[0].Details["failure_rate"], 0.001)
}

func TestAlerter_Evaluate_MinimumAddressesRequired(t *testing.T) {
	a := NewAlerter(testConfig())

	// 2 of 3 failed is above threshold, but too few addresses to judge.
	sum := &enrich.Summary{Addresses: 3, Resolved: 1, Failed: 2}

	assert.Empty(t, a.Evaluate(sum, nil))
}

func TestAlerter_Evaluate_RunAborted(t *testing.T) {
	a := NewAlerter(testConfig())

	sum := &enrich.Summary{RunID: "run-2", Addresses: 50, Resolved: 10}

	alerts := a.Evaluate(sum, errors.New("google: geocode: status REQUEST_DENIED"))
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertRunAborted, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "10 of 50")
	assert.Contains(t, alerts[0].Message, "REQUEST_DENIED")
}

func TestAlerter_Evaluate_CostOverrun(t *testing.T) {
	a := NewAlerter(testConfig())

	sum := &enrich.Summary{Addresses: 2000, Resolved: 2000, GeocodeCalls: 2000, PlaceCalls: 2000, EstimatedCostUSD: 44.0}

	alerts := a.Evaluate(sum, nil)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertCostOverrun, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "$44.00")
}

func TestAlerter_Evaluate_ZeroCostThreshold(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	sum := &enrich.Summary{Addresses: 10, Resolved: 10, EstimatedCostUSD: 9999}

	assert.Empty(t, a.Evaluate(sum, nil))
}

func TestAlerter_Evaluate_MultipleAlerts(t *testing.T) {
	a := NewAlerter(testConfig())

	sum := &enrich.Summary{Addresses: 10, Failed: 5, EstimatedCostUSD: 30}

	alerts := a.Evaluate(sum, errors.New("canceled"))
	require.Len(t, alerts, 3)
	assert.Equal(t, AlertRunAborted, alerts[0].Type)
	assert.Equal(t, AlertFailureRate, alerts[1].Type)
	assert.Equal(t, AlertCostOverrun, alerts[2].Type)
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		err := json.NewDecoder(r.Body).Decode(&alert)
		require.NoError(t, err)
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	alerts := []Alert{
		{Type: AlertFailureRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertCostOverrun, Severity: "medium", Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertRunAborted, Message: "test"}})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{WebhookURL: "http://example.com"})

	assert.Equal(t, 0, a.SendAlerts(context.Background(), nil))
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertRunAborted, Message: "test"}})
	assert.Equal(t, 0, sent)
}
