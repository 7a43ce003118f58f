package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questdeck/questdeck/internal/app"
	"github.com/questdeck/questdeck/internal/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		Addr:                ":0",
		SessionSecret:       "test-secret",
		HeartbeatInterval:   time.Hour,
		PingTimeout:         time.Hour,
		MissedPingThreshold: 3,
	}

	ctx, cancel := context.WithCancel(context.Background())
	deps, err := app.New(ctx, cfg)
	require.NoError(t, err)

	srv := New(cfg, deps, app.NewModules(deps))
	require.NoError(t, srv.Bootstrap(ctx))

	ts := httptest.NewServer(srv.E)
	t.Cleanup(func() {
		ts.Close()
		cancel()
		deps.Close(context.Background())
	})
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, userID, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIdentityCookieIssuedToAnonymousClients(t *testing.T) {
	ts := newTestServer(t)
	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == "qd_session" {
			found = true
		}
	}
	assert.True(t, found, "first visit should set the identity cookie")
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, ts, http.MethodPost, "/api/game/encounters", "gm-1", `{
		"participants": [
			{"userId": "gm-1", "role": "gm"},
			{"userId": "p1", "role": "player"}
		],
		"tokens": [
			{"id": "tok-p1", "characterId": "p1", "hp": 10, "maxHp": 10}
		]
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var enc struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Version int64  `json:"version"`
	}
	decodeBody(t, resp, &enc)
	assert.NotEmpty(t, enc.ID)
	assert.Equal(t, "ready", enc.Status)
	assert.EqualValues(t, 1, enc.Version)

	resp = doJSON(t, ts, http.MethodPost, "/api/game/sessions", "gm-1",
		`{"encounterId": "`+enc.ID+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sess struct {
		SessionID string `json:"sessionId"`
		GMUserID  string `json:"gmUserId"`
		System    string `json:"system"`
	}
	decodeBody(t, resp, &sess)
	assert.NotEmpty(t, sess.SessionID)
	assert.Equal(t, "gm-1", sess.GMUserID)
	assert.Equal(t, "srd5", sess.System)

	resp = doJSON(t, ts, http.MethodGet, "/api/game/sessions/"+sess.SessionID, "gm-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats struct {
		Mode          string `json:"mode"`
		QueuedActions int    `json:"queuedActions"`
	}
	decodeBody(t, resp, &stats)
	assert.Equal(t, "live", stats.Mode)
	assert.Zero(t, stats.QueuedActions)

	resp = doJSON(t, ts, http.MethodDelete, "/api/game/sessions/"+sess.SessionID, "gm-1", "")
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The actor unwinds asynchronously after Stop.
	require.Eventually(t, func() bool {
		resp := doJSON(t, ts, http.MethodGet, "/api/game/sessions/"+sess.SessionID, "gm-1", "")
		resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	}, time.Second, 10*time.Millisecond)
}

func TestCreateSessionForUnknownEncounter(t *testing.T) {
	ts := newTestServer(t)
	resp := doJSON(t, ts, http.MethodPost, "/api/game/sessions", "gm-1",
		`{"encounterId": "enc-missing"}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateEncounterRequiresParticipants(t *testing.T) {
	ts := newTestServer(t)
	resp := doJSON(t, ts, http.MethodPost, "/api/game/encounters", "gm-1", `{"tokens": []}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
