// Package monitoring raises webhook alerts when an enrichment run fails or
// misbehaves.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/place-enrich/internal/config"
	"github.com/sells-group/place-enrich/internal/enrich"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertRunAborted  AlertType = "run_aborted"
	AlertFailureRate AlertType = "address_failure_rate"
	AlertCostOverrun AlertType = "cost_overrun"
)

// minAddressesForRate keeps tiny runs from tripping the failure-rate alert.
const minAddressesForRate = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	RunID     string         `json:"run_id"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a run summary against configured thresholds and sends
// alerts via webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the summary of a finished or aborted run.
func (a *Alerter) Evaluate(sum *enrich.Summary, runErr error) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if runErr != nil {
		alerts = append(alerts, Alert{
			Type:     AlertRunAborted,
			Severity: "high",
			RunID:    sum.RunID,
			Message:  fmt.Sprintf("Enrichment run aborted after %d of %d addresses: %v", sum.Resolved+sum.Unresolved+sum.Failed, sum.Addresses, runErr),
			Details: map[string]any{
				"addresses": sum.Addresses,
				"resolved":  sum.Resolved,
			},
			Timestamp: now,
		})
	}

	if sum.Addresses >= minAddressesForRate && sum.Failed > 0 {
		rate := float64(sum.Failed) / float64(sum.Addresses)
		if rate > a.cfg.FailureRateThreshold {
			alerts = append(alerts, Alert{
				Type:     AlertFailureRate,
				Severity: "high",
				RunID:    sum.RunID,
				Message: fmt.Sprintf(
					"Address failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d addresses)",
					rate*100, a.cfg.FailureRateThreshold*100, sum.Failed, sum.Addresses,
				),
				Details: map[string]any{
					"failure_rate": rate,
					"threshold":    a.cfg.FailureRateThreshold,
					"failed":       sum.Failed,
					"addresses":    sum.Addresses,
				},
				Timestamp: now,
			})
		}
	}

	if a.cfg.CostThresholdUSD > 0 && sum.EstimatedCostUSD > a.cfg.CostThresholdUSD {
		alerts = append(alerts, Alert{
			Type:     AlertCostOverrun,
			Severity: "medium",
			RunID:    sum.RunID,
			Message: fmt.Sprintf(
				"Estimated API cost $%.2f exceeds threshold $%.2f",
				sum.EstimatedCostUSD, a.cfg.CostThresholdUSD,
			),
			Details: map[string]any{
				"cost_usd":      sum.EstimatedCostUSD,
				"threshold_usd": a.cfg.CostThresholdUSD,
				"geocode_calls": sum.GeocodeCalls,
				"place_calls":   sum.PlaceCalls,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("run_id", alert.RunID),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
