package prompt

import (
	"context"
	"sync"

	apperrors "github.com/karpool/karpool-client/pkg/errors"
	"github.com/karpool/karpool-client/pkg/logger"
	"github.com/karpool/karpool-client/pkg/monitoring"
)

// Level tells the UI how to style an alert
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Alert is a modal message the user must dismiss
type Alert struct {
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Alerter shows alerts to the user
type Alerter interface {
	Alert(ctx context.Context, a Alert)
}

// Confirmer asks the user a yes/no question before a destructive action
type Confirmer interface {
	Confirm(ctx context.Context, question string) bool
}

// AlertFunc adapts a function to Alerter
type AlertFunc func(ctx context.Context, a Alert)

func (f AlertFunc) Alert(ctx context.Context, a Alert) { f(ctx, a) }

// Static answers every confirmation with the same value
type Static bool

func (s Static) Confirm(context.Context, string) bool { return bool(s) }

type confirmKey struct{}

// WithConfirmation attaches the user's answer to ctx, for callers that
// collect it before invoking the action
func WithConfirmation(ctx context.Context, confirmed bool) context.Context {
	return context.WithValue(ctx, confirmKey{}, confirmed)
}

// FromContext answers with the value attached by WithConfirmation, or false
type FromContext struct{}

func (FromContext) Confirm(ctx context.Context, _ string) bool {
	confirmed, _ := ctx.Value(confirmKey{}).(bool)
	return confirmed
}

// Info raises an informational alert
func Info(ctx context.Context, a Alerter, title, message string) {
	monitoring.AlertsTotal.Inc()
	a.Alert(ctx, Alert{Level: LevelInfo, Title: title, Message: message})
}

// Report turns err into exactly one alert and one log line. Network and
// server failures show failureMsg; a missing token shows the credentials
// message; local validation errors show their own message.
func Report(ctx context.Context, a Alerter, log *logger.Logger, err error, failureMsg string) {
	appErr := apperrors.GetAppError(err)

	message := failureMsg
	switch appErr.Code {
	case apperrors.CodeMissingCredentials:
		message = appErr.Message
		log.Warn("Action blocked without credentials")
	case apperrors.CodeUpstream, apperrors.CodeTransport, apperrors.CodeDecode, apperrors.CodeInternal, apperrors.CodeUnavailable:
		log.Error(failureMsg, logger.Err(err), logger.Int("status", appErr.Status))
	default:
		message = appErr.Message
		log.Warn(failureMsg, logger.Err(err))
	}

	monitoring.AlertsTotal.Inc()
	a.Alert(ctx, Alert{Level: LevelError, Title: "Error", Message: message})
}

// Recorder keeps every alert it receives, for tests and headless runs
type Recorder struct {
	mu     sync.Mutex
	alerts []Alert
}

func (r *Recorder) Alert(_ context.Context, a Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
}

// Alerts returns the recorded alerts in order
func (r *Recorder) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.alerts...)
}
