package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/printguard/internal/server"
	"github.com/ogulcanaydogan/printguard/pkg/metrics"
	"github.com/ogulcanaydogan/printguard/pkg/model"
	"github.com/ogulcanaydogan/printguard/pkg/monitor"
)

type fakeSource struct {
	state  model.State
	err    error
	last   *monitor.Summary
	resets []string
}

func (f *fakeSource) State(context.Context) (model.State, error) { return f.state, f.err }
func (f *fakeSource) LastRun() *monitor.Summary                  { return f.last }

func (f *fakeSource) Reset(_ context.Context, address, supplyName string) error {
	if err := monitor.ResetDevice(f.state, address, supplyName); err != nil {
		return err
	}
	f.resets = append(f.resets, address+"/"+supplyName)
	return nil
}

func setupServer(t *testing.T, src *fakeSource) *server.Server {
	t.Helper()
	if src.state == nil && src.err == nil {
		src.state = model.State{
			"192.168.0.105": {Name: "HP LaserJet M507", LastSeen: model.NewDate(2026, 2, 20), OfflineAlerted: true},
			"192.168.0.102": {
				Name:         "Brother HL-L8360CDW",
				LastSeen:     model.NewDate(2026, 3, 2),
				TonerAlerted: map[string]model.Date{"Black Toner": model.NewDate(2026, 3, 1)},
			},
		}
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return server.NewServer(src, metrics.NewRecorder().Handler(), logger)
}

func TestServer_Health(t *testing.T) {
	srv := setupServer(t, &fakeSource{})

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp["status"])
	assert.NotContains(t, resp, "last_run")
}

func TestServer_Health_WithLastRun(t *testing.T) {
	finished := time.Date(2026, 3, 2, 9, 0, 5, 0, time.UTC)
	srv := setupServer(t, &fakeSource{last: &monitor.Summary{RunID: "abc", Finished: finished}})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "2026-03-02T09:00:05Z", resp["last_run"])
}

func TestServer_Devices(t *testing.T) {
	srv := setupServer(t, &fakeSource{})

	req := httptest.NewRequest("GET", "/api/v1/devices", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var devices []server.DeviceView
	err := json.NewDecoder(w.Body).Decode(&devices)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "192.168.0.102", devices[0].Address)
	assert.Equal(t, model.NewDate(2026, 3, 1), devices[0].TonerAlerted["Black Toner"])
	assert.True(t, devices[1].OfflineAlerted)
}

func TestServer_Device(t *testing.T) {
	srv := setupServer(t, &fakeSource{})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/devices/192.168.0.105", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
	assert.Equal(t, "192.168.0.105", raw["address"])
	assert.Equal(t, "2026-02-20", raw["last_seen"])

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/devices/10.0.0.1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_StateError(t *testing.T) {
	srv := setupServer(t, &fakeSource{err: errors.New("database is locked")})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/devices", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServer_BusyWhileChecking(t *testing.T) {
	busy := fmt.Errorf("wait for run: %w", context.DeadlineExceeded)
	srv := setupServer(t, &fakeSource{err: busy})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/devices/192.168.0.105", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_LastRun(t *testing.T) {
	srv := setupServer(t, &fakeSource{})
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/runs/last", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	srv = setupServer(t, &fakeSource{last: &monitor.Summary{RunID: "run-7", Alerts: 2}})
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/runs/last", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var summary monitor.Summary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.Equal(t, "run-7", summary.RunID)
	assert.Equal(t, 2, summary.Alerts)
}

func TestServer_Metrics(t *testing.T) {
	srv := setupServer(t, &fakeSource{})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "printguard_runs_total")
}

func TestServer_Reset(t *testing.T) {
	src := &fakeSource{}
	srv := setupServer(t, src)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/devices/192.168.0.102/reset?supply=Black%20Toner", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"192.168.0.102/Black Toner"}, src.resets)
	assert.Empty(t, src.state["192.168.0.102"].TonerAlerted)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/devices/192.168.0.102/reset?supply=Black%20Toner", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/devices/10.0.0.1/reset", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/devices/10.0.0.1/reset", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
