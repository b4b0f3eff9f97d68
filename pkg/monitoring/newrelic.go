package monitoring

import (
	"fmt"
	"net/http"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// Config holds New Relic configuration
type Config struct {
	LicenseKey string
	AppName    string
	Enabled    bool
	LogLevel   string
}

// NewRelicApp wraps the New Relic application
type NewRelicApp struct {
	*newrelic.Application
	enabled bool
}

// New creates a new New Relic application
func New(cfg Config) (*NewRelicApp, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		return Disabled(), nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigAppLogForwardingEnabled(true),
		newrelic.ConfigDistributedTracerEnabled(true),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create New Relic application: %w", err)
	}

	return &NewRelicApp{app, true}, nil
}

// Disabled returns an app that records nothing
func Disabled() *NewRelicApp {
	return &NewRelicApp{nil, false}
}

// StartTransaction starts a new transaction
func (nr *NewRelicApp) StartTransaction(name string) *newrelic.Transaction {
	if !nr.enabled || nr.Application == nil {
		return nil
	}
	return nr.Application.StartTransaction(name)
}

// RecordCustomEvent records a custom event
func (nr *NewRelicApp) RecordCustomEvent(eventType string, params map[string]interface{}) {
	if !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.RecordCustomEvent(eventType, params)
}

// RecordCustomMetric records a custom metric
func (nr *NewRelicApp) RecordCustomMetric(name string, value float64) {
	if !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.RecordCustomMetric(name, value)
}

// Shutdown gracefully shuts down the New Relic application
func (nr *NewRelicApp) Shutdown(timeout time.Duration) {
	if !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.Shutdown(timeout)
}

// Transport wraps base so outgoing backend calls show up as external
// segments of the transaction carried by the request context
func (nr *NewRelicApp) Transport(base http.RoundTripper) http.RoundTripper {
	if !nr.enabled || nr.Application == nil {
		return base
	}
	return newrelic.NewRoundTripper(base)
}

// Custom event helpers

// RecordLifecycleAction records a confirmed trip or join-request action
func (nr *NewRelicApp) RecordLifecycleAction(action string, tripID, requestID int64) {
	nr.RecordCustomEvent("TripLifecycleAction", map[string]interface{}{
		"action":     action,
		"trip_id":    tripID,
		"request_id": requestID,
		"timestamp":  time.Now().Unix(),
	})
}

// RecordSearch records a completed trip search
func (nr *NewRelicApp) RecordSearch(results int, latency time.Duration) {
	nr.RecordCustomEvent("TripSearch", map[string]interface{}{
		"results":    results,
		"latency_ms": latency.Milliseconds(),
	})
	nr.RecordCustomMetric("custom/trips/search_latency_ms", float64(latency.Milliseconds()))
}

// RecordTripPublished records trips created by a driver
func (nr *NewRelicApp) RecordTripPublished(dates int, seats int, price float64) {
	nr.RecordCustomEvent("TripPublished", map[string]interface{}{
		"dates": dates,
		"seats": seats,
		"price": price,
	})
}

// RecordStaleResponse records a response dropped because a newer call superseded it
func (nr *NewRelicApp) RecordStaleResponse(resource string) {
	nr.RecordCustomMetric(fmt.Sprintf("custom/stale_response/%s", resource), 1)
}

// IsEnabled returns whether New Relic is enabled
func (nr *NewRelicApp) IsEnabled() bool {
	return nr.enabled
}
