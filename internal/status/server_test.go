package status

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/waitgate/internal/gate"
	"github.com/psantana5/waitgate/internal/logging"
	"github.com/psantana5/waitgate/internal/probe"
	"github.com/psantana5/waitgate/internal/report"
)

func serve(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decodeReady(t *testing.T, w *httptest.ResponseRecorder) ReadyResponse {
	t.Helper()
	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthz(t *testing.T) {
	s := NewServer("127.0.0.1:0", NewState("http://db:81", nil), nil, logging.Nop())

	w := serve(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
}

func TestReadyz_Lifecycle(t *testing.T) {
	failures := report.NewFailureLog(10)
	state := NewState("http://db:81", failures)
	s := NewServer("127.0.0.1:0", state, nil, logging.Nop())

	w := serve(t, s, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeReady(t, w)
	assert.Equal(t, PhaseWaiting, resp.Status)
	assert.Equal(t, 0, resp.Attempts)

	failed := probe.Result{Target: "http://db:81", Err: errors.New("connection refused"), CheckedAt: time.Now()}
	for i := 1; i <= 2; i++ {
		state.ObserveProbe(i, failed)
		failures.ObserveProbe(i, failed)
	}

	w = serve(t, s, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp = decodeReady(t, w)
	assert.Equal(t, PhaseWaiting, resp.Status)
	assert.Equal(t, 2, resp.Attempts)
	require.Len(t, resp.RecentFailures, 2)
	assert.Equal(t, 2, resp.RecentFailures[0].Attempt)
	assert.Equal(t, "connection refused", resp.RecentFailures[0].Error)

	state.ObserveProbe(3, probe.Result{Target: "http://db:81", OK: true})
	state.ObserveOutcome(gate.Outcome{Ready: true, Attempts: 3})

	w = serve(t, s, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)
	resp = decodeReady(t, w)
	assert.Equal(t, PhaseReady, resp.Status)
	assert.Equal(t, 3, resp.Attempts)
	assert.Empty(t, resp.RecentFailures)
}

func TestReadyz_ReportsLastTenFailures(t *testing.T) {
	failures := report.NewFailureLog(report.DefaultFailureLogSize)
	state := NewState("http://db:81", failures)
	s := NewServer("127.0.0.1:0", state, nil, logging.Nop())

	failed := probe.Result{Target: "http://db:81", Err: errors.New("connection refused"), CheckedAt: time.Now()}
	for i := 1; i <= 12; i++ {
		state.ObserveProbe(i, failed)
		failures.ObserveProbe(i, failed)
	}

	w := serve(t, s, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeReady(t, w)
	assert.Equal(t, 12, resp.Attempts)
	require.Len(t, resp.RecentFailures, 10)
	assert.Equal(t, 12, resp.RecentFailures[0].Attempt)
	assert.Equal(t, 3, resp.RecentFailures[9].Attempt)
}

func TestReadyz_NotReady(t *testing.T) {
	state := NewState("http://db:81", nil)
	state.ObserveOutcome(gate.Outcome{Ready: false, Attempts: 30})
	s := NewServer("127.0.0.1:0", state, nil, logging.Nop())

	w := serve(t, s, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeReady(t, w)
	assert.Equal(t, PhaseNotReady, resp.Status)
	assert.Equal(t, 30, resp.Attempts)
}

func TestMetricsRoute(t *testing.T) {
	m := report.NewMetrics()
	m.ObserveOutcome(gate.Outcome{Ready: true, Attempts: 1})
	s := NewServer("127.0.0.1:0", NewState("x", nil), m.Registry(), logging.Nop())

	w := serve(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "waitgate_ready 1")
}

func TestMetricsRoute_Disabled(t *testing.T) {
	s := NewServer("127.0.0.1:0", NewState("x", nil), nil, logging.Nop())

	w := serve(t, s, "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_StartShutdown(t *testing.T) {
	s := NewServer("127.0.0.1:0", NewState("x", nil), nil, logging.Nop())
	require.NoError(t, s.Start())

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "alive")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	_, err = http.Get("http://" + s.Addr() + "/healthz")
	assert.Error(t, err)
}

func TestServer_StartBindError(t *testing.T) {
	first := NewServer("127.0.0.1:0", NewState("x", nil), nil, logging.Nop())
	require.NoError(t, first.Start())
	defer first.Shutdown(context.Background())

	second := NewServer(first.Addr(), NewState("x", nil), nil, logging.Nop())
	assert.Error(t, second.Start())
}

func TestServer_ShutdownNeverStarted(t *testing.T) {
	s := NewServer("127.0.0.1:0", NewState("x", nil), nil, nil)
	assert.NoError(t, s.Shutdown(context.Background()))
}
