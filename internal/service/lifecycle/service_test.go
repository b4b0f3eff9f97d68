package lifecycle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/karpool/karpool-client/internal/backend"
	"github.com/karpool/karpool-client/internal/domain/request"
	"github.com/karpool/karpool-client/internal/domain/trip"
	"github.com/karpool/karpool-client/internal/domain/user"
	"github.com/karpool/karpool-client/internal/service/prompt"
	"github.com/karpool/karpool-client/internal/store"
	apperrors "github.com/karpool/karpool-client/pkg/errors"
	"github.com/karpool/karpool-client/pkg/logger"
	"github.com/karpool/karpool-client/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers every call with the configured error and counts calls
type fakeBackend struct {
	err      error
	requests []request.JoinRequest
	calls    map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: make(map[string]int)}
}

func (f *fakeBackend) SubmitJoinRequest(context.Context, int64, int64) error {
	f.calls[ActionJoin]++
	return f.err
}

func (f *fakeBackend) TripRequests(context.Context, int64) ([]request.JoinRequest, error) {
	f.calls[ActionList]++
	if f.err != nil {
		return nil, f.err
	}
	return f.requests, nil
}

func (f *fakeBackend) AcceptRequest(context.Context, int64, int64) error {
	f.calls[ActionAccept]++
	return f.err
}

func (f *fakeBackend) RejectRequest(context.Context, int64, int64) error {
	f.calls[ActionReject]++
	return f.err
}

func (f *fakeBackend) StartTrip(context.Context, int64) error {
	f.calls[ActionStart]++
	return f.err
}

func (f *fakeBackend) CompleteTrip(context.Context, int64) error {
	f.calls[ActionComplete]++
	return f.err
}

type fixture struct {
	svc      *Service
	backend  *fakeBackend
	session  *store.Session
	trips    *store.Trips
	requests *store.Requests
	alerts   *prompt.Recorder
}

func newFixture(t *testing.T, role user.Role, confirm bool) *fixture {
	t.Helper()

	driverID := int64(5)
	sess := store.NewSession()
	sess.SetUser(user.User{ID: 42, Name: "Sana", DriverID: &driverID})
	require.NoError(t, sess.SetRole(role))

	f := &fixture{
		backend:  newFakeBackend(),
		session:  sess,
		trips:    store.NewTrips(),
		requests: store.NewRequests(),
		alerts:   &prompt.Recorder{},
	}
	f.svc = NewService(f.backend, f.session, f.trips, f.requests, f.alerts, prompt.Static(confirm), nil, logger.NewNop())
	return f
}

// loadPending seeds trip 3 with one pending request from Ali
func (f *fixture) loadPending(t *testing.T) {
	t.Helper()
	f.backend.requests = []request.JoinRequest{
		{ID: 7, TripID: 3, PassengerID: 9, PassengerName: "Ali", Status: request.StatusPending},
	}
	require.NoError(t, f.svc.ListRequests(context.Background(), 3))
}

// TestAccept_EndToEnd tests accepting the only pending request
func TestAccept_EndToEnd(t *testing.T) {
	f := newFixture(t, user.RoleDriver, true)
	f.loadPending(t)

	require.NoError(t, f.svc.Accept(context.Background(), 3, 7))

	views := f.svc.Requests()
	require.Len(t, views, 1)
	assert.Equal(t, int64(7), views[0].ID)
	assert.Equal(t, request.StatusAccepted, views[0].Status)
	assert.NotContains(t, views[0].Actions, request.ActionAccept)
	assert.NotContains(t, views[0].Actions, request.ActionReject)
	assert.Equal(t, 1, f.backend.calls[ActionList], "accept must not re-fetch the list")
	assert.True(t, f.svc.CanStart(3))
}

// TestReject_EndToEnd tests rejecting the only pending request
func TestReject_EndToEnd(t *testing.T) {
	f := newFixture(t, user.RoleDriver, true)
	f.loadPending(t)

	require.NoError(t, f.svc.Reject(context.Background(), 3, 7))

	assert.Empty(t, f.svc.Requests())
	assert.Empty(t, f.alerts.Alerts())
}

// TestRequestStatus_Monotonic tests that no later action returns a
// settled request to PENDING
func TestRequestStatus_Monotonic(t *testing.T) {
	f := newFixture(t, user.RoleDriver, true)
	ctx := context.Background()
	f.backend.requests = []request.JoinRequest{
		{ID: 7, TripID: 3, Status: request.StatusPending},
		{ID: 8, TripID: 3, Status: request.StatusPending},
	}
	require.NoError(t, f.svc.ListRequests(ctx, 3))

	require.NoError(t, f.svc.Accept(ctx, 3, 7))
	require.NoError(t, f.svc.Reject(ctx, 3, 8))

	// A refresh that still reports both as pending
	require.NoError(t, f.svc.ListRequests(ctx, 3))

	views := f.svc.Requests()
	require.Len(t, views, 1)
	assert.Equal(t, request.StatusAccepted, views[0].Status)

	// Acting again on settled requests fails locally
	before := f.backend.calls[ActionAccept] + f.backend.calls[ActionReject]
	assert.ErrorIs(t, f.svc.Reject(ctx, 3, 7), apperrors.ErrInvalidStatus)
	assert.ErrorIs(t, f.svc.Accept(ctx, 3, 8), apperrors.ErrRequestNotFound)
	assert.Equal(t, before, f.backend.calls[ActionAccept]+f.backend.calls[ActionReject])
}

// TestSubmitJoinRequest_Idempotent tests the join label across repeated
// submissions
func TestSubmitJoinRequest_Idempotent(t *testing.T) {
	t.Run("Success then repeat", func(t *testing.T) {
		f := newFixture(t, user.RolePassenger, true)
		ctx := context.Background()

		require.NoError(t, f.svc.SubmitJoinRequest(ctx, 3, 0))
		assert.Equal(t, LabelRequested, f.svc.JoinLabel(3))

		require.NoError(t, f.svc.SubmitJoinRequest(ctx, 3, 0))
		assert.Equal(t, LabelRequested, f.svc.JoinLabel(3))
		assert.Equal(t, 1, f.backend.calls[ActionJoin])
	})

	t.Run("Failure then retry", func(t *testing.T) {
		f := newFixture(t, user.RolePassenger, true)
		ctx := context.Background()

		f.backend.err = apperrors.Upstream(http.StatusInternalServerError, "")
		assert.Error(t, f.svc.SubmitJoinRequest(ctx, 3, 0))
		assert.Equal(t, LabelRequestRide, f.svc.JoinLabel(3))

		alerts := f.alerts.Alerts()
		require.Len(t, alerts, 1)
		assert.Equal(t, "Failed to request ride. Please try again.", alerts[0].Message)

		f.backend.err = nil
		require.NoError(t, f.svc.SubmitJoinRequest(ctx, 3, 0))
		assert.Equal(t, LabelRequested, f.svc.JoinLabel(3))
		assert.Equal(t, 2, f.backend.calls[ActionJoin])
	})
}

// TestTokenGate tests that actions without a stored token make no network
// call and raise exactly one credentials alert each
func TestTokenGate(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	client := backend.NewClient(backend.Config{BaseURL: srv.URL}, session.NewMemoryStore(), logger.NewNop())

	actions := []struct {
		role user.Role
		run  func(*Service) error
	}{
		{role: user.RolePassenger, run: func(s *Service) error { return s.SubmitJoinRequest(context.Background(), 3, 42) }},
		{role: user.RoleDriver, run: func(s *Service) error { return s.ListRequests(context.Background(), 3) }},
	}

	for _, a := range actions {
		f := newFixture(t, a.role, true)
		f.svc.backend = client

		err := a.run(f.svc)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeMissingCredentials))

		alerts := f.alerts.Alerts()
		require.Len(t, alerts, 1)
		assert.Equal(t, "No token found. Please log in again.", alerts[0].Message)
	}

	// Driver actions on a seeded list
	f := newFixture(t, user.RoleDriver, true)
	gen := f.requests.ListGen.Next()
	f.requests.Replace(gen, 3, []request.JoinRequest{
		{ID: 7, Status: request.StatusPending},
		{ID: 8, Status: request.StatusAccepted},
	})
	f.svc.backend = client

	assert.Error(t, f.svc.Accept(context.Background(), 3, 7))
	assert.Error(t, f.svc.Reject(context.Background(), 3, 7))
	assert.Error(t, f.svc.StartTrip(context.Background(), 3))
	assert.Len(t, f.alerts.Alerts(), 3)

	_, stillPending := f.requests.Get(7)
	assert.True(t, stillPending)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestAccept_RequiresConfirmation(t *testing.T) {
	f := newFixture(t, user.RoleDriver, false)
	f.loadPending(t)

	err := f.svc.Accept(context.Background(), 3, 7)
	assert.ErrorIs(t, err, apperrors.ErrNotConfirmed)
	assert.Zero(t, f.backend.calls[ActionAccept])
	assert.Empty(t, f.alerts.Alerts())

	got, _ := f.requests.Get(7)
	assert.Equal(t, request.StatusPending, got.Status)
}

func TestAccept_FailureLeavesState(t *testing.T) {
	f := newFixture(t, user.RoleDriver, true)
	f.loadPending(t)

	f.backend.err = apperrors.Transport(errors.New("connection reset"))
	assert.Error(t, f.svc.Accept(context.Background(), 3, 7))

	got, _ := f.requests.Get(7)
	assert.Equal(t, request.StatusPending, got.Status)
	assert.Len(t, f.alerts.Alerts(), 1)
}

func TestListRequests_FailureKeepsList(t *testing.T) {
	f := newFixture(t, user.RoleDriver, true)
	f.loadPending(t)

	f.backend.err = apperrors.Upstream(http.StatusBadGateway, "")
	assert.Error(t, f.svc.ListRequests(context.Background(), 3))

	assert.Len(t, f.svc.Requests(), 1)
	assert.Empty(t, f.alerts.Alerts(), "list failures are only logged")
}

func TestRoleGating(t *testing.T) {
	passenger := newFixture(t, user.RolePassenger, true)
	assert.ErrorIs(t, passenger.svc.ListRequests(context.Background(), 3), apperrors.ErrDriverOnly)
	assert.ErrorIs(t, passenger.svc.StartTrip(context.Background(), 3), apperrors.ErrDriverOnly)

	driver := newFixture(t, user.RoleDriver, true)
	assert.ErrorIs(t, driver.svc.SubmitJoinRequest(context.Background(), 3, 0), apperrors.ErrPassengerOnly)
	assert.Zero(t, driver.backend.calls[ActionJoin])
}

func TestStartAndCompleteTrip(t *testing.T) {
	f := newFixture(t, user.RoleDriver, true)
	ctx := context.Background()
	f.loadPending(t)

	assert.False(t, f.svc.CanStart(3))
	assert.ErrorIs(t, f.svc.StartTrip(ctx, 3), apperrors.ErrNoAcceptedPassenger)
	assert.ErrorIs(t, f.svc.CompleteTrip(ctx, 3), apperrors.ErrInvalidStatus)

	require.NoError(t, f.svc.Accept(ctx, 3, 7))
	assert.Equal(t, LabelStartTrip, f.svc.StartLabel(3))

	require.NoError(t, f.svc.StartTrip(ctx, 3))
	assert.Equal(t, LabelCompleteTrip, f.svc.StartLabel(3))
	assert.False(t, f.svc.CanStart(3))

	require.NoError(t, f.svc.CompleteTrip(ctx, 3))
	assert.Equal(t, LabelStartTrip, f.svc.StartLabel(3))
	assert.Equal(t, 1, f.backend.calls[ActionStart])
	assert.Equal(t, 1, f.backend.calls[ActionComplete])
}

func TestCompleteTrip_OngoingWithoutLocalFlag(t *testing.T) {
	f := newFixture(t, user.RoleDriver, true)
	f.trips.SelectTrip(trip.Trip{ID: 3, Status: trip.StatusOngoing})

	require.NoError(t, f.svc.CompleteTrip(context.Background(), 3))
	assert.Equal(t, 1, f.backend.calls[ActionComplete])
}

func TestView(t *testing.T) {
	f := newFixture(t, user.RoleDriver, true)
	f.loadPending(t)

	view := f.svc.View(3)
	assert.Equal(t, int64(3), view.TripID)
	assert.Equal(t, LabelRequestRide, view.JoinLabel)
	require.Len(t, view.Requests, 1)
	assert.Equal(t, []request.Action{request.ActionAccept, request.ActionReject}, view.Requests[0].Actions)

	assert.Empty(t, f.svc.View(4).Requests, "requests belong to the listed trip only")
}

// racingBackend holds an accept open until released and fails every reject
type racingBackend struct {
	*fakeBackend
	acceptEntered chan struct{}
	releaseAccept chan struct{}
}

func (b *racingBackend) AcceptRequest(context.Context, int64, int64) error {
	close(b.acceptEntered)
	<-b.releaseAccept
	return nil
}

func (b *racingBackend) RejectRequest(context.Context, int64, int64) error {
	return apperrors.Transport(errors.New("connection reset"))
}

// TestAccept_SurvivesFailedLaterReject tests that a reject failing while an
// accept is in flight does not discard the accept
func TestAccept_SurvivesFailedLaterReject(t *testing.T) {
	f := newFixture(t, user.RoleDriver, true)
	f.loadPending(t)
	ctx := context.Background()

	rb := &racingBackend{
		fakeBackend:   f.backend,
		acceptEntered: make(chan struct{}),
		releaseAccept: make(chan struct{}),
	}
	svc := NewService(rb, f.session, f.trips, f.requests, f.alerts, prompt.Static(true), nil, logger.NewNop())

	done := make(chan error, 1)
	go func() { done <- svc.Accept(ctx, 3, 7) }()
	<-rb.acceptEntered

	assert.Error(t, svc.Reject(ctx, 3, 7))
	close(rb.releaseAccept)
	require.NoError(t, <-done)

	got, ok := f.requests.Get(7)
	require.True(t, ok)
	assert.Equal(t, request.StatusAccepted, got.Status)
	assert.Len(t, f.alerts.Alerts(), 1, "only the failed reject alerts")
}

func TestStartTrip_FollowsListedStatus(t *testing.T) {
	f := newFixture(t, user.RoleDriver, true)
	ctx := context.Background()
	f.loadPending(t)
	require.NoError(t, f.svc.Accept(ctx, 3, 7))

	gen := f.trips.SearchGen.Next()
	f.trips.ReplaceResults(gen, []trip.Trip{{ID: 3, TotalSeats: 3, NumberOfPassengers: 1}})

	require.NoError(t, f.svc.StartTrip(ctx, 3))
	listed, ok := f.trips.Find(3)
	require.True(t, ok)
	assert.Equal(t, trip.StatusOngoing, listed.Status)
	assert.Equal(t, 2, f.svc.View(3).SeatsLeft)

	require.NoError(t, f.svc.CompleteTrip(ctx, 3))
	listed, _ = f.trips.Find(3)
	assert.Equal(t, trip.StatusCompleted, listed.Status)

	assert.ErrorIs(t, f.svc.StartTrip(ctx, 3), apperrors.ErrInvalidStatus, "completed trips cannot restart")
	assert.Equal(t, 1, f.backend.calls[ActionStart])
}
