package beater

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etcdbeat/pkg/config"
	"github.com/etcdbeat/pkg/etcd"
)

func TestStateTransitions(t *testing.T) {
	var m stateMachine
	assert.Equal(t, StateInitializing, m.load())

	assert.Error(t, m.advance(StateTerminating))
	assert.Error(t, m.advance(StateExited))

	require.NoError(t, m.advance(StateRunning))
	assert.Error(t, m.advance(StateRunning))
	assert.Error(t, m.advance(StateInitializing))
	require.NoError(t, m.advance(StateTerminating))
	require.NoError(t, m.advance(StateExited))
	assert.Error(t, m.advance(StateRunning))

	assert.Equal(t, "exited", m.load().String())
	assert.Equal(t, "state(9)", State(9).String())
}

func fakeEtcd(t *testing.T) (host, port string) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(etcd.LeaderPath, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"leader":"8e9e05c52164694d","followers":{}}`))
	})
	mux.HandleFunc(etcd.SelfPath, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"default","id":"8e9e05c52164694d","state":"StateLeader"}`))
	})
	mux.HandleFunc(etcd.StorePath, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"getsSuccess":1,"watchers":0}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, port, err = net.SplitHostPort(u.Host)
	require.NoError(t, err)
	return host, port
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	host, port := fakeEtcd(t)
	cfg := config.NewDefaultConfig()
	cfg.Input.Host, cfg.Input.Port = host, port
	cfg.Input.Period = 20 * time.Millisecond
	cfg.Output.File.Path = t.TempDir()
	cfg.Server.Enable = false
	cfg.Monitor.Enable = false
	return cfg
}

type fakeService struct {
	started, stopped bool
	startErr         error
}

func (f *fakeService) Start() error { f.started = true; return f.startErr }

func (f *fakeService) Shutdown(context.Context) error { f.stopped = true; return nil }

func TestRunLifecycle(t *testing.T) {
	cfg := testConfig(t)
	b, err := New(cfg)
	require.NoError(t, err)
	svc := &fakeService{}
	b.Attach(svc)

	assert.Equal(t, StateInitializing, b.State())
	assert.NotEmpty(t, b.Info().ID)

	errCh := make(chan error, 1)
	go func() { errCh <- b.Run(context.Background()) }()

	require.Eventually(t, func() bool { return b.State() == StateRunning }, 2*time.Second, 5*time.Millisecond)

	// 事件写入 file output
	require.Eventually(t, func() bool {
		files, _ := filepath.Glob(filepath.Join(cfg.Output.File.Path, "etcdbeat-*.ndjson"))
		if len(files) == 0 {
			return false
		}
		data, _ := os.ReadFile(files[0])
		return len(data) > 0
	}, 3*time.Second, 20*time.Millisecond)

	st := b.Status()
	assert.Equal(t, "running", st.State)
	assert.Equal(t, []string{"etcd-stats"}, st.Collectors)
	assert.False(t, st.StartedAt.IsZero())

	b.Stop()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.Equal(t, StateExited, b.State())
	assert.True(t, svc.started)
	assert.True(t, svc.stopped)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	b, err := New(testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- b.Run(ctx) }()

	require.Eventually(t, func() bool { return b.State() == StateRunning }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)
	assert.Equal(t, StateExited, b.State())
}

func TestNewWithoutUsableOutput(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.File.Enable = false
	cfg.Output.Redis.Enable = true
	cfg.Output.Redis.URL = "redis://127.0.0.1:1/0"
	cfg.Output.Redis.Timeout = 200 * time.Millisecond

	_, err := New(cfg)
	assert.ErrorContains(t, err, "no usable output")
}

func TestRunStartFailureSkipsRunning(t *testing.T) {
	cfg := testConfig(t)
	b, err := New(cfg)
	require.NoError(t, err)
	svc := &fakeService{startErr: errors.New("address already in use")}
	b.Attach(svc)

	err = b.Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "start service")
	assert.Equal(t, StateInitializing, b.State())
	assert.True(t, b.Status().StartedAt.IsZero())
	assert.True(t, svc.stopped)

	files, _ := filepath.Glob(filepath.Join(cfg.Output.File.Path, "etcdbeat-*.ndjson"))
	for _, f := range files {
		data, _ := os.ReadFile(f)
		assert.Empty(t, data, "no collection before start succeeds")
	}
}

type failingCollector struct{}

func (failingCollector) Name() string                  { return "failing" }
func (failingCollector) Init(context.Context) error    { return errors.New("boom") }
func (failingCollector) Collect(context.Context) error { return nil }
func (failingCollector) Close() error                  { return nil }

func TestRunCollectorInitFailure(t *testing.T) {
	b, err := New(testConfig(t))
	require.NoError(t, err)
	b.agent.Register(failingCollector{})

	err = b.Run(context.Background())
	assert.ErrorContains(t, err, "init collectors")
	assert.ErrorContains(t, err, "failing")
	assert.Equal(t, StateInitializing, b.State())
}

func TestStopBeforeRun(t *testing.T) {
	b, err := New(testConfig(t))
	require.NoError(t, err)
	b.Stop()
	b.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- b.Run(context.Background()) }()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run blocked after an early Stop")
	}
	assert.Equal(t, StateExited, b.State())
}
