package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/application"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/navigation"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/events"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/apperr"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/provider"
)

type memoryRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]navigation.SessionRecord
}

func (r *memoryRepo) FindByID(_ context.Context, id uuid.UUID) (*navigation.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, apperr.NewNotFoundError("Session", id.String())
	}
	return &rec, nil
}

func (r *memoryRepo) List(_ context.Context, _, _ int) ([]*navigation.SessionRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*navigation.SessionRecord, 0, len(r.records))
	for _, rec := range r.records {
		rec := rec
		out = append(out, &rec)
	}
	return out, int64(len(out)), nil
}

func (r *memoryRepo) CountByState(_ context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int64{}
	for _, rec := range r.records {
		counts[rec.Snapshot.State.String()]++
	}
	return counts, nil
}

func (r *memoryRepo) Save(_ context.Context, rec *navigation.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = *rec
	return nil
}

func (r *memoryRepo) Update(_ context.Context, rec *navigation.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = *rec
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	router *gin.Engine
	hub    *events.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	hub := events.NewHub(logger)
	fanout := events.NewFanout(logger, hub)
	ctx, cancel := context.WithCancel(context.Background())
	go fanout.Run(ctx)

	calc := provider.CalculatorFunc(func(ctx context.Context, req navigation.RouteRequest) (navigation.RouteSolution, error) {
		return navigation.RouteSolution{Routes: []navigation.Route{{
			Distance: 2300,
			Duration: 410,
			Geometry: req.Coordinates(),
			Legs:     []navigation.RouteLeg{{Distance: 2300, Duration: 410}},
		}}}, nil
	})
	repo := &memoryRepo{records: map[uuid.UUID]navigation.SessionRecord{}}
	svc := application.NewSessionService(repo, calc, fanout, logger)

	t.Cleanup(func() {
		svc.Shutdown(context.Background())
		hub.Close()
		cancel()
	})

	router := gin.New()
	NewSessionHandler(svc, hub).RegisterRoutes(&router.RouterGroup)
	NewAdminSessionHandler(svc).RegisterRoutes(&router.RouterGroup)
	return &testServer{router: router, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decodeSession(t *testing.T, env envelope) application.SessionDTO {
	t.Helper()
	var dto application.SessionDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	return dto
}

func routableBody() map[string]interface{} {
	return map[string]interface{}{
		"name": "courier-12",
		"props": map[string]interface{}{
			"start_origin": map[string]float64{"latitude": 22.9548, "longitude": 88.4474},
			"destination":  map[string]float64{"latitude": 22.9750, "longitude": 88.4514},
			"travel_mode":  "walking",
		},
	}
}

func (s *testServer) waitForState(t *testing.T, id uuid.UUID, state navigation.SessionState) application.SessionDTO {
	t.Helper()
	var dto application.SessionDTO
	require.Eventually(t, func() bool {
		code, env := s.do(t, http.MethodGet, "/api/v1/sessions/"+id.String(), nil)
		if code != http.StatusOK {
			return false
		}
		dto = decodeSession(t, env)
		return dto.State == state.String()
	}, 2*time.Second, 5*time.Millisecond)
	return dto
}

func TestSessionHandler_CreateAndGuide(t *testing.T) {
	srv := newTestServer(t)

	code, env := srv.do(t, http.MethodPost, "/api/v1/sessions", routableBody())
	require.Equal(t, http.StatusCreated, code, env.Error)
	created := decodeSession(t, env)
	assert.Equal(t, "courier-12", created.Name)
	assert.Equal(t, navigation.TravelModeWalking, created.Config.TravelMode)

	guiding := srv.waitForState(t, created.ID, navigation.StateGuiding)
	require.NotNil(t, guiding.Route)
	assert.True(t, guiding.Presentation.Maneuver)

	code, env = srv.do(t, http.MethodPost, "/api/v1/sessions/"+created.ID.String()+"/progress", map[string]float64{
		"distance_remaining": 900,
		"duration_remaining": 150,
		"distance_traveled":  1400,
		"fraction_traveled":  0.6,
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	progressed := decodeSession(t, env)
	require.NotNil(t, progressed.Progress)
	assert.Equal(t, 0.6, progressed.Progress.FractionTraveled)

	code, env = srv.do(t, http.MethodPost, "/api/v1/sessions/"+created.ID.String()+"/arrival", nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, navigation.StateFinished.String(), decodeSession(t, env).State)
}

func TestSessionHandler_ToggleMuteAndCancel(t *testing.T) {
	srv := newTestServer(t)

	_, env := srv.do(t, http.MethodPost, "/api/v1/sessions", routableBody())
	id := decodeSession(t, env).ID
	srv.waitForState(t, id, navigation.StateGuiding)

	code, env := srv.do(t, http.MethodPost, "/api/v1/sessions/"+id.String()+"/mute/toggle", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decodeSession(t, env).Config.Muted)

	code, env = srv.do(t, http.MethodPost, "/api/v1/sessions/"+id.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, navigation.StateCanceled.String(), decodeSession(t, env).State)

	code, env = srv.do(t, http.MethodPost, "/api/v1/sessions/"+id.String()+"/route", nil)
	require.Equal(t, http.StatusAccepted, code, env.Error)
	srv.waitForState(t, id, navigation.StateGuiding)
}

func TestSessionHandler_UpdatePropsStartsRoute(t *testing.T) {
	srv := newTestServer(t)

	code, env := srv.do(t, http.MethodPost, "/api/v1/sessions", map[string]interface{}{})
	require.Equal(t, http.StatusCreated, code, env.Error)
	id := decodeSession(t, env).ID
	assert.Equal(t, navigation.StateIdle.String(), decodeSession(t, env).State)

	code, env = srv.do(t, http.MethodPost, "/api/v1/sessions/"+id.String()+"/location", map[string]float64{
		"latitude": 22.9548, "longitude": 88.4474, "bearing": 93,
	})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = srv.do(t, http.MethodPatch, "/api/v1/sessions/"+id.String()+"/props", map[string]interface{}{
		"destination": map[string]float64{"latitude": 22.9750, "longitude": 88.4514},
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	srv.waitForState(t, id, navigation.StateGuiding)
}

func TestSessionHandler_Errors(t *testing.T) {
	srv := newTestServer(t)

	_, env := srv.do(t, http.MethodPost, "/api/v1/sessions", map[string]interface{}{})
	idle := decodeSession(t, env).ID

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"malformed id", http.MethodGet, "/api/v1/sessions/not-a-uuid", nil, http.StatusBadRequest},
		{"unknown session", http.MethodGet, "/api/v1/sessions/" + uuid.NewString(), nil, http.StatusNotFound},
		{"unknown session cancel", http.MethodPost, "/api/v1/sessions/" + uuid.NewString() + "/cancel", nil, http.StatusNotFound},
		{
			"latitude out of range", http.MethodPost, "/api/v1/sessions/" + idle.String() + "/location",
			map[string]float64{"latitude": 91, "longitude": 10}, http.StatusBadRequest,
		},
		{
			"invalid destination", http.MethodPatch, "/api/v1/sessions/" + idle.String() + "/props",
			map[string]interface{}{"destination": map[string]float64{"latitude": 10, "longitude": 181}}, http.StatusBadRequest,
		},
		{"route without destination", http.MethodPost, "/api/v1/sessions/" + idle.String() + "/route", nil, http.StatusBadRequest},
		{
			"progress without guidance", http.MethodPost, "/api/v1/sessions/" + idle.String() + "/progress",
			map[string]float64{"fraction_traveled": 0.1}, http.StatusConflict,
		},
		{"arrival without guidance", http.MethodPost, "/api/v1/sessions/" + idle.String() + "/arrival", nil, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := srv.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestSessionHandler_CloseAndStats(t *testing.T) {
	srv := newTestServer(t)

	_, env := srv.do(t, http.MethodPost, "/api/v1/sessions", routableBody())
	closing := decodeSession(t, env).ID
	_, _ = srv.do(t, http.MethodPost, "/api/v1/sessions", map[string]interface{}{})

	code, env := srv.do(t, http.MethodDelete, "/api/v1/sessions/"+closing.String(), nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	closed := decodeSession(t, env)
	assert.True(t, closed.Closed)
	assert.False(t, closed.Live)

	code, env = srv.do(t, http.MethodGet, "/api/v1/sessions/"+closing.String(), nil)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, decodeSession(t, env).Live)

	code, _ = srv.do(t, http.MethodDelete, "/api/v1/sessions/"+closing.String(), nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = srv.do(t, http.MethodGet, "/api/v1/admin/stats/sessions", nil)
	require.Equal(t, http.StatusOK, code)
	var stats application.SessionStatsDTO
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(2), stats.TotalSessions)
	assert.Equal(t, 1, stats.LiveSessions)

	code, env = srv.do(t, http.MethodGet, "/api/v1/sessions?page=1&limit=500", nil)
	require.Equal(t, http.StatusOK, code)
	var list []application.SessionDTO
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 2)
}

func TestSessionHandler_StreamEvents(t *testing.T) {
	srv := newTestServer(t)

	_, env := srv.do(t, http.MethodPost, "/api/v1/sessions", routableBody())
	id := decodeSession(t, env).ID
	srv.waitForState(t, id, navigation.StateGuiding)

	httpSrv := httptest.NewServer(srv.router)
	t.Cleanup(httpSrv.Close)

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/api/v1/sessions/" + id.String() + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return srv.hub.Subscribers(id) == 1 }, time.Second, time.Millisecond)

	code, _ := srv.do(t, http.MethodPost, "/api/v1/sessions/"+id.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, code)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    string `json:"type"`
		Payload struct {
			Reason string `json:"reason"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, string(navigation.EventNavigationCanceled), msg.Type)
	assert.Equal(t, string(navigation.CancelReasonUser), msg.Payload.Reason)
}

func TestSessionHandler_StreamEventsUnknownSession(t *testing.T) {
	srv := newTestServer(t)

	code, env := srv.do(t, http.MethodGet, "/api/v1/sessions/"+uuid.NewString()+"/events", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.NotEmpty(t, env.Error)
}
