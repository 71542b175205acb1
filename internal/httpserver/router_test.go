package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alarmhub/internal/auth"
	"alarmhub/internal/catalog"
	"alarmhub/internal/hub"
	"alarmhub/internal/incidents"
	"alarmhub/internal/metrics"
)

func newTestRouter(t *testing.T, withAuth bool) (*gin.Engine, *hub.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	h := hub.New(incidents.NewStore(incidents.Seed(time.Now())), catalog.Default(), logger,
		hub.Options{Metrics: metrics.NewHub(reg)})

	d := Deps{Logger: logger, Hub: h, Gatherer: reg, DefaultAssignee: "user-1"}
	if withAuth {
		store := auth.NewStore()
		_, err := store.Create(context.Background(), "ops", "s3cret")
		require.NoError(t, err)
		d.Auth = auth.NewService(store, "test-secret")
	}
	return NewRouter(d), h
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t, false)
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 4.0, body["incidents"])
	assert.Equal(t, 0.0, body["peers"])
}

func TestMetricsEndpoint(t *testing.T) {
	r, h := newTestRouter(t, false)
	h.HandleMessage(h.Join(), []byte(`junk`))

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `alarmhub_hub_messages_dropped_total{reason="malformed"} 1`)
	assert.Contains(t, rec.Body.String(), "alarmhub_hub_peers_connected 1")
	assert.Contains(t, rec.Body.String(), "alarmhub_store_incidents 4")
}

func TestOpenAPIWithoutAuth(t *testing.T) {
	r, _ := newTestRouter(t, false)
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/incidents?bucket=new", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "inc-1001")

	rec = serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newTestRouter(t, false)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/incidents", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)

	rec := serve(r, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func login(t *testing.T, r http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return serve(r, req)
}

func TestAuthFlow(t *testing.T) {
	r, _ := newTestRouter(t, true)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, login(t, r, `{"username":"ops","password":"nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, login(t, r, `{"username":"ops"}`).Code)

	rec = login(t, r, `{"username":"ops","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	// A drop without an assignee goes to the logged-in operator.
	req = httptest.NewRequest(http.MethodPatch, "/api/v1/incidents/inc-1001", strings.NewReader(`{"target":"active"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rec = serve(r, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var moved incidents.Incident
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &moved))
	assert.Equal(t, "ops", moved.AssignedTo)

	// Health stays open for probes.
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

func TestWebSocketRequiresToken(t *testing.T) {
	r, h := newTestRouter(t, true)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	rec := login(t, r, `{"username":"ops","password":"s3cret"}`)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+out.Token, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"init"`)
}
