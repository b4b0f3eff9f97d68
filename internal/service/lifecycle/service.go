package lifecycle

import (
	"context"
	"time"

	"github.com/karpool/karpool-client/internal/domain/request"
	"github.com/karpool/karpool-client/internal/domain/trip"
	"github.com/karpool/karpool-client/internal/domain/user"
	"github.com/karpool/karpool-client/internal/service/prompt"
	"github.com/karpool/karpool-client/internal/store"
	apperrors "github.com/karpool/karpool-client/pkg/errors"
	"github.com/karpool/karpool-client/pkg/logger"
	"github.com/karpool/karpool-client/pkg/monitoring"
)

// Button labels shown for a trip
const (
	LabelRequestRide  = "Request for Ride"
	LabelRequested    = "Requested"
	LabelStartTrip    = "Start Trip"
	LabelCompleteTrip = "Complete Trip"
)

// Actions, used for metrics and events
const (
	ActionJoin     = "join"
	ActionList     = "list_requests"
	ActionAccept   = "accept"
	ActionReject   = "reject"
	ActionStart    = "start"
	ActionComplete = "complete"
)

// Backend is the part of the backend API the orchestrator uses
type Backend interface {
	SubmitJoinRequest(ctx context.Context, tripID, passengerID int64) error
	TripRequests(ctx context.Context, tripID int64) ([]request.JoinRequest, error)
	AcceptRequest(ctx context.Context, tripID, requestID int64) error
	RejectRequest(ctx context.Context, tripID, requestID int64) error
	StartTrip(ctx context.Context, tripID int64) error
	CompleteTrip(ctx context.Context, tripID int64) error
}

// Service mediates the join / accept / reject / start / complete flow for
// the selected trip. The backend is the system of record; successful calls
// are mirrored into the request store without a re-fetch.
type Service struct {
	backend  Backend
	session  *store.Session
	trips    *store.Trips
	requests *store.Requests
	alerts   prompt.Alerter
	confirm  prompt.Confirmer
	nrApp    *monitoring.NewRelicApp
	logger   *logger.Logger
}

// NewService creates a new lifecycle service
func NewService(
	backend Backend,
	session *store.Session,
	trips *store.Trips,
	requests *store.Requests,
	alerts prompt.Alerter,
	confirm prompt.Confirmer,
	nrApp *monitoring.NewRelicApp,
	log *logger.Logger,
) *Service {
	if nrApp == nil {
		nrApp = monitoring.Disabled()
	}
	return &Service{
		backend:  backend,
		session:  session,
		trips:    trips,
		requests: requests,
		alerts:   alerts,
		confirm:  confirm,
		nrApp:    nrApp,
		logger:   log.Named("lifecycle"),
	}
}

// SubmitJoinRequest asks to join tripID. A passengerID of zero means the
// logged-in user. Once a request succeeded the trip stays "Requested" and
// further submissions do nothing.
func (s *Service) SubmitJoinRequest(ctx context.Context, tripID, passengerID int64) error {
	if s.session.Role() != user.RolePassenger {
		return s.fail(ctx, ActionJoin, apperrors.ErrPassengerOnly, "")
	}
	if passengerID == 0 {
		u, ok := s.session.User()
		if !ok {
			return s.fail(ctx, ActionJoin, apperrors.ErrNotLoggedIn, "")
		}
		passengerID = u.ID
	}
	if s.requests.Joined(tripID) {
		s.logger.Debug("Join request already sent", logger.Int64("trip_id", tripID))
		return nil
	}

	if err := s.backend.SubmitJoinRequest(ctx, tripID, passengerID); err != nil {
		return s.fail(ctx, ActionJoin, err, "Failed to request ride. Please try again.")
	}

	s.requests.MarkJoined(tripID)
	s.succeed(ActionJoin, tripID, 0)
	prompt.Info(ctx, s.alerts, "Request Sent", "Your request has gone to the driver!")
	return nil
}

// ListRequests replaces the local request list with the backend's list
// for tripID. On failure the previous list is kept.
func (s *Service) ListRequests(ctx context.Context, tripID int64) error {
	if s.session.Role() != user.RoleDriver {
		return s.fail(ctx, ActionList, apperrors.ErrDriverOnly, "")
	}

	gen := s.requests.ListGen.Next()
	start := time.Now()

	items, err := s.backend.TripRequests(ctx, tripID)
	if err != nil {
		monitoring.LifecycleActionsTotal.WithLabelValues(ActionList, "failure").Inc()
		if apperrors.HasCode(err, apperrors.CodeMissingCredentials) {
			prompt.Report(ctx, s.alerts, s.logger, err, "")
			return err
		}
		s.logger.Error("Failed to fetch trip requests",
			logger.Int64("trip_id", tripID),
			logger.Err(err),
		)
		return err
	}

	if !s.requests.Replace(gen, tripID, items) {
		s.stale("requests")
		return nil
	}

	monitoring.LifecycleActionsTotal.WithLabelValues(ActionList, "success").Inc()
	s.logger.Debug("Trip requests loaded",
		logger.Int64("trip_id", tripID),
		logger.Int("count", len(items)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Accept accepts a pending request after confirmation
func (s *Service) Accept(ctx context.Context, tripID, requestID int64) error {
	if err := s.checkRespond(tripID, requestID); err != nil {
		return s.fail(ctx, ActionAccept, err, "")
	}
	if !s.confirm.Confirm(ctx, "Are you sure you want to accept this passenger?") {
		return apperrors.ErrNotConfirmed
	}

	seq := s.requests.BeginMutation(requestID)
	if err := s.backend.AcceptRequest(ctx, tripID, requestID); err != nil {
		return s.fail(ctx, ActionAccept, err, "Failed to accept the request. Please try again.")
	}

	if !s.requests.MarkAccepted(requestID, seq) {
		s.stale("accept")
		return nil
	}
	s.succeed(ActionAccept, tripID, requestID)
	return nil
}

// Reject rejects a pending request after confirmation and hides it
func (s *Service) Reject(ctx context.Context, tripID, requestID int64) error {
	if err := s.checkRespond(tripID, requestID); err != nil {
		return s.fail(ctx, ActionReject, err, "")
	}
	if !s.confirm.Confirm(ctx, "Are you sure you want to reject this passenger?") {
		return apperrors.ErrNotConfirmed
	}

	seq := s.requests.BeginMutation(requestID)
	if err := s.backend.RejectRequest(ctx, tripID, requestID); err != nil {
		return s.fail(ctx, ActionReject, err, "Failed to reject the request. Please try again.")
	}

	if !s.requests.Remove(requestID, seq) {
		s.stale("reject")
		return nil
	}
	s.succeed(ActionReject, tripID, requestID)
	return nil
}

// StartTrip starts tripID once at least one passenger is accepted. A trip
// listed as ongoing or completed cannot be started again.
func (s *Service) StartTrip(ctx context.Context, tripID int64) error {
	if s.session.Role() != user.RoleDriver {
		return s.fail(ctx, ActionStart, apperrors.ErrDriverOnly, "")
	}
	if s.requests.Started(tripID) {
		return s.fail(ctx, ActionStart, apperrors.ErrInvalidStatus, "")
	}
	if t, ok := s.trips.Find(tripID); ok && !t.CanStart() {
		return s.fail(ctx, ActionStart, apperrors.ErrInvalidStatus, "")
	}
	if !s.requests.HasAccepted(tripID) {
		return s.fail(ctx, ActionStart, apperrors.ErrNoAcceptedPassenger, "")
	}
	if !s.confirm.Confirm(ctx, "Are you sure you want to start this trip?") {
		return apperrors.ErrNotConfirmed
	}

	if err := s.backend.StartTrip(ctx, tripID); err != nil {
		return s.fail(ctx, ActionStart, err, "Failed to start the trip. Please try again.")
	}

	s.requests.SetStarted(tripID, true)
	s.advance(tripID, trip.StatusOngoing)
	s.succeed(ActionStart, tripID, 0)
	return nil
}

// CompleteTrip completes a started trip after confirmation
func (s *Service) CompleteTrip(ctx context.Context, tripID int64) error {
	if s.session.Role() != user.RoleDriver {
		return s.fail(ctx, ActionComplete, apperrors.ErrDriverOnly, "")
	}
	if !s.requests.Started(tripID) {
		t, ok := s.trips.Find(tripID)
		if !ok || !t.CanComplete() {
			return s.fail(ctx, ActionComplete, apperrors.ErrInvalidStatus, "")
		}
	}
	if !s.confirm.Confirm(ctx, "Are you sure you want to complete this trip?") {
		return apperrors.ErrNotConfirmed
	}

	if err := s.backend.CompleteTrip(ctx, tripID); err != nil {
		return s.fail(ctx, ActionComplete, err, "Failed to complete the trip. Please try again.")
	}

	s.requests.SetStarted(tripID, false)
	s.advance(tripID, trip.StatusCompleted)
	s.succeed(ActionComplete, tripID, 0)
	return nil
}

// advance mirrors a confirmed start or complete into the listing. Trips
// that are not listed locally are left to the next fetch.
func (s *Service) advance(tripID int64, next trip.Status) {
	if err := s.trips.Advance(tripID, next); err != nil {
		s.logger.Debug("Trip status not advanced locally",
			logger.Int64("trip_id", tripID),
			logger.String("status", string(next)),
			logger.Err(err),
		)
	}
}

func (s *Service) checkRespond(tripID, requestID int64) error {
	if s.session.Role() != user.RoleDriver {
		return apperrors.ErrDriverOnly
	}
	r, ok := s.requests.Get(requestID)
	if !ok || r.TripID != tripID {
		return apperrors.ErrRequestNotFound
	}
	if !r.CanRespond() {
		return apperrors.ErrInvalidStatus
	}
	return nil
}

// fail reports err once and returns it. An empty failureMsg is used for
// local errors that carry their own message.
func (s *Service) fail(ctx context.Context, action string, err error, failureMsg string) error {
	monitoring.LifecycleActionsTotal.WithLabelValues(action, "failure").Inc()
	prompt.Report(ctx, s.alerts, s.logger.With(logger.String("action", action)), err, failureMsg)
	return err
}

func (s *Service) succeed(action string, tripID, requestID int64) {
	monitoring.LifecycleActionsTotal.WithLabelValues(action, "success").Inc()
	s.nrApp.RecordLifecycleAction(action, tripID, requestID)
	s.logger.Info("Trip action completed",
		logger.String("action", action),
		logger.Int64("trip_id", tripID),
		logger.Int64("request_id", requestID),
	)
}

func (s *Service) stale(resource string) {
	monitoring.StaleResponsesTotal.WithLabelValues(resource).Inc()
	s.nrApp.RecordStaleResponse(resource)
	s.logger.Debug("Discarded stale response", logger.String("resource", resource))
}

// JoinLabel returns the passenger's join button label for tripID
func (s *Service) JoinLabel(tripID int64) string {
	if s.requests.Joined(tripID) {
		return LabelRequested
	}
	return LabelRequestRide
}

// StartLabel returns the driver's start/complete button label for tripID
func (s *Service) StartLabel(tripID int64) string {
	if s.requests.Started(tripID) {
		return LabelCompleteTrip
	}
	return LabelStartTrip
}

// CanStart reports whether the start button is offered for tripID
func (s *Service) CanStart(tripID int64) bool {
	return !s.requests.Started(tripID) && s.requests.HasAccepted(tripID)
}

// RequestView is one request with the controls rendered for it
type RequestView struct {
	request.JoinRequest
	Actions []request.Action `json:"actions"`
}

// Requests returns the visible requests with their controls
func (s *Service) Requests() []RequestView {
	items := s.requests.Items()
	views := make([]RequestView, len(items))
	for i := range items {
		views[i] = RequestView{JoinRequest: items[i], Actions: items[i].Actions()}
	}
	return views
}

// TripView is everything the detail screen renders for one trip
type TripView struct {
	TripID     int64         `json:"tripId"`
	Status     trip.Status   `json:"status,omitempty"`
	SeatsLeft  int           `json:"seatsLeft"`
	JoinLabel  string        `json:"joinLabel"`
	StartLabel string        `json:"startLabel"`
	CanStart   bool          `json:"canStart"`
	Started    bool          `json:"started"`
	Requests   []RequestView `json:"requests"`
}

// View returns the detail view state for tripID
func (s *Service) View(tripID int64) TripView {
	view := TripView{
		TripID:     tripID,
		JoinLabel:  s.JoinLabel(tripID),
		StartLabel: s.StartLabel(tripID),
		CanStart:   s.CanStart(tripID),
		Started:    s.requests.Started(tripID),
		Requests:   []RequestView{},
	}
	if t, ok := s.trips.Find(tripID); ok {
		view.Status = t.Status
		view.SeatsLeft = t.SeatsLeft()
	}
	if s.requests.TripID() == tripID {
		view.Requests = s.Requests()
	}
	return view
}
