package ops

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/weapon-watch/domain/detection"
	"github.com/soocke/weapon-watch/metrics"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRouter_Healthz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter(nil, discardLogger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_Status(t *testing.T) {
	active := false
	status := func() (detection.Stats, bool) {
		return detection.Stats{SessionID: "s-1", Ticks: 12, Dispatched: 3, Detected: true}, active
	}
	r := NewRouter(status, discardLogger)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	var idle statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &idle))
	assert.False(t, idle.Active)
	assert.Empty(t, idle.SessionID)

	active = true
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	var got statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Active)
	assert.Equal(t, "s-1", got.SessionID)
	assert.EqualValues(t, 12, got.Ticks)
	assert.EqualValues(t, 3, got.Dispatched)
	assert.True(t, got.Detected)
}

func TestRouter_Metrics(t *testing.T) {
	metrics.FramesReadTotal.Inc()
	rec := httptest.NewRecorder()
	NewRouter(nil, discardLogger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "weaponwatch_frames_read_total")
}

func TestServer_StartShutdown(t *testing.T) {
	s, err := Start("127.0.0.1:0", nil, discardLogger)
	require.NoError(t, err)

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Shutdown(context.Background()))
}
