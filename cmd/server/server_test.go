package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etcdbeat/internal/beater"
	"github.com/etcdbeat/pkg/config"
)

type fakeReporter struct {
	state beater.State
}

func (f *fakeReporter) State() beater.State { return f.state }

func (f *fakeReporter) Status() beater.Status {
	return beater.Status{State: f.state.String(), AgentID: "agent-1", Version: "dev", Collectors: []string{"etcd-stats"}}
}

func newTestServer(state beater.State) (*Server, *fakeReporter) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{Name: "etcdbeat_test_gauge", Help: "test"}))
	rep := &fakeReporter{state: state}
	cfg := config.NewDefaultConfig().Server
	cfg.Addr = "127.0.0.1:0"
	return NewHTTPServer(&cfg, reg, rep), rep
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthFollowsState(t *testing.T) {
	s, rep := newTestServer(beater.StateInitializing)

	rec := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "initializing", rec.Body.String())

	rep.state = beater.StateRunning
	rec = get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	rep.state = beater.StateTerminating
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s.Handler(), "/health").Code)
}

func TestStatusEndpoint(t *testing.T) {
	s, _ := newTestServer(beater.StateRunning)

	rec := get(t, s.Handler(), "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var st beater.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "running", st.State)
	assert.Equal(t, "agent-1", st.AgentID)
	assert.Equal(t, []string{"etcd-stats"}, st.Collectors)
}

func TestIndexAndMetrics(t *testing.T) {
	s, _ := newTestServer(beater.StateRunning)

	rec := get(t, s.Handler(), "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/metrics")
	assert.Contains(t, rec.Body.String(), "running")

	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/nope").Code)

	rec = get(t, s.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "etcdbeat_test_gauge")
}

func TestStartAndShutdown(t *testing.T) {
	s, _ := newTestServer(beater.StateRunning)
	assert.Empty(t, s.Addr())
	require.NoError(t, s.Start())

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "OK", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}

func TestStartPortInUse(t *testing.T) {
	a, _ := newTestServer(beater.StateRunning)
	require.NoError(t, a.Start())
	defer func() { _ = a.Shutdown(context.Background()) }()

	b, _ := newTestServer(beater.StateRunning)
	b.cfg.Addr = a.Addr()
	assert.Error(t, b.Start())
}
