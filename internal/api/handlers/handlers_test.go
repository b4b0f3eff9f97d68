package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karpool/karpool-client/internal/api/handlers"
	"github.com/karpool/karpool-client/internal/api/routes"
	"github.com/karpool/karpool-client/internal/backend"
	"github.com/karpool/karpool-client/internal/domain/geo"
	"github.com/karpool/karpool-client/internal/domain/user"
	"github.com/karpool/karpool-client/internal/service/auth"
	"github.com/karpool/karpool-client/internal/service/lifecycle"
	"github.com/karpool/karpool-client/internal/service/location"
	"github.com/karpool/karpool-client/internal/service/prompt"
	"github.com/karpool/karpool-client/internal/service/search"
	"github.com/karpool/karpool-client/internal/store"
	"github.com/karpool/karpool-client/pkg/chat"
	"github.com/karpool/karpool-client/pkg/logger"
	"github.com/karpool/karpool-client/pkg/maps"
	"github.com/karpool/karpool-client/pkg/session"
	"github.com/karpool/karpool-client/pkg/websocket"
)

type noMaps struct{}

func (noMaps) Search(context.Context, string) ([]maps.Place, error) { return nil, nil }

func (noMaps) Reverse(context.Context, maps.LatLng) (*maps.Place, error) {
	return nil, maps.ErrNoResult
}

func (noMaps) WalkingRoute(context.Context, maps.LatLng, maps.LatLng) (*maps.Route, error) {
	return nil, maps.ErrNoRoute
}

type fixture struct {
	router  *gin.Engine
	tokens  *session.MemoryStore
	session *store.Session
	alerts  *prompt.Recorder

	mu   sync.Mutex
	hits map[string]int
}

func (f *fixture) hit(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{hits: make(map[string]int)}

	mux := http.NewServeMux()
	mux.HandleFunc("/driver/trips/7/requests", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tripRequests":[{"requestId":1,"tripId":7,"passengerId":3,"passengerName":"Sara","status":"PENDING"}]}`))
	})
	mux.HandleFunc("/driver/acceptPassengerReq", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/passenger/getTrips", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/user/login", func(w http.ResponseWriter, r *http.Request) {
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{UserID: 21}).SignedString([]byte("k"))
		json.NewEncoder(w).Encode(map[string]interface{}{"token": token, "user": map[string]string{"username": "sara"}})
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	log := logger.NewNop()
	f.tokens = session.NewMemoryStore()
	f.session = store.NewSession()
	f.alerts = &prompt.Recorder{}
	geoStore := store.NewGeo(geo.Coordinate{Latitude: 24.8607, Longitude: 67.1011})
	schedule := store.NewSchedule(f.session.Role, time.Now)
	trips := store.NewTrips()
	requests := store.NewRequests()
	chats := chat.NewMemoryStore(nil)
	hub := websocket.NewHub(log)

	api := backend.NewClient(backend.Config{BaseURL: srv.URL}, f.tokens, log)
	confirm := prompt.FromContext{}

	h := &handlers.Handlers{
		Auth: auth.NewService(api, f.tokens, auth.Stores{
			Session: f.session, Geo: geoStore, Schedule: schedule, Trips: trips, Requests: requests,
		}, f.alerts, confirm, nil, log),
		Lifecycle: lifecycle.NewService(api, f.session, trips, requests, f.alerts, confirm, nil, log),
		Search:    search.NewService(api, f.session, geoStore, schedule, trips, f.alerts, nil, log),
		Location:  location.NewService(api, noMaps{}, noMaps{}, geoStore, f.alerts, log),
		Chat:      chats,
		Session:   f.session,
		Geo:       geoStore,
		Schedule:  schedule,
		Trips:     trips,
		Requests:  requests,
		Hub:       hub,
		Logger:    log,
	}

	f.router = gin.New()
	routes.SetupRoutes(f.router, h, nil, nil)
	return f
}

func (f *fixture) loginAsDriver(t *testing.T) {
	t.Helper()
	driverID := int64(5)
	f.session.SetUser(user.User{ID: 1, DriverID: &driverID})
	require.NoError(t, f.session.SetRole(user.RoleDriver))
	require.NoError(t, f.tokens.Save(context.Background(), "tok"))
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

// TestAcceptRequest tests the driver flow through the local API: list,
// refuse without confirmation, accept with it
func TestAcceptRequest(t *testing.T) {
	f := newFixture(t)
	f.loginAsDriver(t)

	w := f.do(t, http.MethodGet, "/v1/trips/7/requests", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reqs := decode(t, w)["requests"].([]interface{})
	require.Len(t, reqs, 1)
	assert.Equal(t, []interface{}{"accept", "reject"}, reqs[0].(map[string]interface{})["actions"])

	w = f.do(t, http.MethodPost, "/v1/trips/7/requests/1/accept", "")
	assert.Equal(t, http.StatusPreconditionRequired, w.Code)
	assert.Equal(t, 0, f.hit("/driver/acceptPassengerReq"))

	w = f.do(t, http.MethodPost, "/v1/trips/7/requests/1/accept", `{"confirm":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, f.hit("/driver/acceptPassengerReq"))

	view := decode(t, w)
	req := view["requests"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "ACCEPTED", req["status"])
	assert.Equal(t, true, view["canStart"])
}

// TestMissingToken tests that an authenticated action without a token
// fails locally with zero backend calls
func TestMissingToken(t *testing.T) {
	f := newFixture(t)
	f.session.SetUser(user.User{ID: 1})

	w := f.do(t, http.MethodPost, "/v1/trips/search",
		`{"locationMarker":{"latitude":24.86,"longitude":67.0},"destinationMarker":{"latitude":24.9,"longitude":67.1},"date":"2026-10-20","time":"09:30"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "MISSING_CREDENTIALS", decode(t, w)["error"].(map[string]interface{})["code"])
	assert.Equal(t, 0, f.hit("/passenger/getTrips"))
	require.Len(t, f.alerts.Alerts(), 1)
}

func TestSearchEmptyResult(t *testing.T) {
	f := newFixture(t)
	f.session.SetUser(user.User{ID: 1})
	require.NoError(t, f.tokens.Save(context.Background(), "tok"))

	w := f.do(t, http.MethodPost, "/v1/schedule/dates", `{"date":"2026-10-20"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/v1/trips/search", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, store.EmptyTripsMessage, decode(t, w)["emptyMessage"])
}

func TestLoginAndRoleSwitch(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/session/login", `{"email":"sara@example.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	u := decode(t, w)["user"].(map[string]interface{})
	assert.Equal(t, float64(21), u["userid"])

	w = f.do(t, http.MethodPut, "/v1/session/role", `{"role":"driver"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPut, "/v1/session/role", `{"role":"pilot"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBadInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"malformed json", http.MethodPost, "/v1/session/login", `{"email":`, http.StatusBadRequest},
		{"invalid date", http.MethodPost, "/v1/schedule/dates", `{"date":"20/10/2026"}`, http.StatusBadRequest},
		{"invalid time", http.MethodPut, "/v1/schedule/time", `{"time":"9pm"}`, http.StatusBadRequest},
		{"invalid target", http.MethodPut, "/v1/geo/target", `{"target":2}`, http.StatusBadRequest},
		{"invalid trip id", http.MethodGet, "/v1/trips/abc/requests", "", http.StatusBadRequest},
		{"unknown trip", http.MethodGet, "/v1/trips/99", "", http.StatusNotFound},
		{"chat without login", http.MethodGet, "/v1/chats", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestChat(t *testing.T) {
	f := newFixture(t)
	f.session.SetUser(user.User{ID: 1})

	w := f.do(t, http.MethodPost, "/v1/chats", `{"with":"2"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	chatID := decode(t, w)["chatId"].(string)

	w = f.do(t, http.MethodPost, "/v1/chats/"+chatID+"/messages", `{"text":" "}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodPost, "/v1/chats/"+chatID+"/messages", `{"text":"Running late"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1", decode(t, w)["senderId"])

	w = f.do(t, http.MethodGet, "/v1/chats/"+chatID+"/messages", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["messages"], 1)

	w = f.do(t, http.MethodDelete, "/v1/chats/"+chatID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, http.MethodGet, "/v1/chats/"+chatID+"/messages", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
