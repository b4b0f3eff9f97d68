package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/karpool/karpool-client/internal/domain/geo"
	"github.com/karpool/karpool-client/internal/domain/request"
	"github.com/karpool/karpool-client/internal/domain/trip"
	apperrors "github.com/karpool/karpool-client/pkg/errors"
	"github.com/karpool/karpool-client/pkg/logger"
	"github.com/karpool/karpool-client/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) (*Client, *int32) {
	t.Helper()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	tokens := session.NewMemoryStore()
	if token != "" {
		require.NoError(t, tokens.Save(context.Background(), token))
	}

	return NewClient(Config{BaseURL: srv.URL + "/"}, tokens, logger.NewNop()), &calls
}

// TestClient_SendsHeaders tests the headers attached to authenticated calls
func TestClient_SendsHeaders(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "mobile", r.Header.Get("X-Platform"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "/passenger/tripJoinReq", r.URL.Path)

		var body map[string]int64
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(3), body["tripId"])
		assert.Equal(t, int64(42), body["passengerId"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}, "tok-123")

	require.NoError(t, client.SubmitJoinRequest(context.Background(), 3, 42))
}

// TestClient_NoTokenNoNetwork tests that every authenticated call is
// blocked before reaching the network when no token is stored
func TestClient_NoTokenNoNetwork(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, "")
	ctx := context.Background()

	actions := map[string]func() error{
		"search": func() error {
			_, err := client.SearchTrips(ctx, SearchCriteria{})
			return err
		},
		"create":   func() error { return client.CreateTrip(ctx, CreateTripRequest{}) },
		"join":     func() error { return client.SubmitJoinRequest(ctx, 1, 2) },
		"accept":   func() error { return client.AcceptRequest(ctx, 1, 7) },
		"reject":   func() error { return client.RejectRequest(ctx, 1, 7) },
		"start":    func() error { return client.StartTrip(ctx, 1) },
		"complete": func() error { return client.CompleteTrip(ctx, 1) },
		"requests": func() error {
			_, err := client.TripRequests(ctx, 1)
			return err
		},
		"bookmarks": func() error {
			_, err := client.Bookmarks(ctx)
			return err
		},
		"delete user": func() error { return client.DeleteUser(ctx, 1) },
	}

	for name, action := range actions {
		t.Run(name, func(t *testing.T) {
			err := action()
			assert.True(t, apperrors.HasCode(err, apperrors.CodeMissingCredentials), "got %v", err)
		})
	}
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestClient_LoginNeedsNoToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "/user/login", r.URL.Path)
		_, _ = w.Write([]byte(`{"token":"abc","user":{"userid":8,"username":"Ali","driverid":5}}`))
	}, "")

	resp, err := client.Login(context.Background(), "ali@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.Token)
	assert.Equal(t, int64(8), resp.User.ID)
	assert.True(t, resp.User.CanDrive())
}

func TestClient_NonSuccessStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}, "tok")

	err := client.AcceptRequest(context.Background(), 3, 7)
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.CodeUpstream, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, "Server returned status: 500", appErr.Message)
}

func TestClient_TransportFailure(t *testing.T) {
	tokens := session.NewMemoryStore()
	require.NoError(t, tokens.Save(context.Background(), "tok"))
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, tokens, logger.NewNop())

	err := client.StartTrip(context.Background(), 3)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTransport), "got %v", err)
}

func TestClient_TripRequestsEnvelopes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "Wrapped", body: `{"tripRequests":[{"requestId":7,"passengerName":"Ali","status":"PENDING"}]}`, want: 1},
		{name: "Bare array", body: `[{"requestId":7,"status":"PENDING"},{"requestId":8,"status":"ACCEPTED"}]`, want: 2},
		{name: "Wrapped empty", body: `{"tripRequests":[]}`, want: 0},
		{name: "Null list", body: `{"tripRequests":null}`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/driver/trips/3/requests", r.URL.Path)
				assert.Equal(t, http.MethodGet, r.Method)
				_, _ = w.Write([]byte(tt.body))
			}, "tok")

			items, err := client.TripRequests(context.Background(), 3)
			require.NoError(t, err)
			assert.NotNil(t, items)
			assert.Len(t, items, tt.want)
			if tt.want > 0 {
				assert.Equal(t, int64(7), items[0].ID)
				assert.Equal(t, request.StatusPending, items[0].Status)
			}
		})
	}
}

func TestClient_UpcomingTripsEnvelopes(t *testing.T) {
	for _, body := range []string{
		`{"upcomingTrips":[{"tripid":1,"status":"upcoming","totalseats":3}]}`,
		`[{"tripid":1,"status":"upcoming","totalseats":3}]`,
	} {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}, "tok")

		trips, err := client.UpcomingTrips(context.Background())
		require.NoError(t, err)
		require.Len(t, trips, 1)
		assert.Equal(t, int64(1), trips[0].ID)
		assert.Equal(t, trip.StatusUpcoming, trips[0].Status)
	}
}

// TestClient_DropsInvalidTrips tests that trips breaking the seat or status
// invariants never leave the client
func TestClient_DropsInvalidTrips(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"trips":[
			{"tripid":1,"status":"upcoming","totalseats":3,"numberofpassengers":2},
			{"tripid":2,"status":"upcoming","totalseats":2,"numberofpassengers":5},
			{"tripid":3,"status":"teleported","totalseats":4},
			{"tripid":4,"totalseats":1}]}`))
	}, "tok")

	trips, err := client.SearchTrips(context.Background(), SearchCriteria{Date: "2026-10-20"})
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, int64(1), trips[0].ID)
	assert.Equal(t, int64(4), trips[1].ID)
	assert.Equal(t, trip.StatusUpcoming, trips[1].Status, "missing status reads as upcoming")
}

func TestClient_SearchTripsBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.JSONEq(t, `{
			"locationMarker":{"latitude":24.86,"longitude":67.01},
			"destinationMarker":{"latitude":24.9,"longitude":67.1},
			"time":"08:30","date":"2026-10-20"}`, string(raw))
		_, _ = w.Write([]byte(`[]`))
	}, "tok")

	trips, err := client.SearchTrips(context.Background(), SearchCriteria{
		LocationMarker:    geo.Coordinate{Latitude: 24.86, Longitude: 67.01},
		DestinationMarker: geo.Coordinate{Latitude: 24.9, Longitude: 67.1},
		Time:              "08:30",
		Date:              "2026-10-20",
	})
	require.NoError(t, err)
	assert.Empty(t, trips)
}

func TestDecodeList_UnknownShape(t *testing.T) {
	_, err := decodeList[trip.Trip]([]byte(`{"data":[]}`), "trips")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDecode))

	_, err = decodeList[trip.Trip]([]byte(`"nope"`), "trips")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDecode))

	list, err := decodeList[trip.Trip](nil, "trips")
	require.NoError(t, err)
	assert.Empty(t, list)
}
