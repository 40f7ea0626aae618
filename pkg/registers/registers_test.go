package registers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etcdbeat/pkg/config"
	"github.com/etcdbeat/pkg/etcd"
	"github.com/etcdbeat/pkg/metrics"
	"github.com/etcdbeat/pkg/publisher"
)

type countingCollector struct {
	name     string
	initErr  error
	closeErr error

	inits    atomic.Int32
	collects atomic.Int32
	closed   atomic.Bool
}

func (c *countingCollector) Name() string { return c.name }

func (c *countingCollector) Init(context.Context) error {
	c.inits.Add(1)
	return c.initErr
}

func (c *countingCollector) Collect(context.Context) error {
	c.collects.Add(1)
	return nil
}

func (c *countingCollector) Close() error {
	c.closed.Store(true)
	return c.closeErr
}

func TestAgentCollectsImmediatelyAndPeriodically(t *testing.T) {
	c := &countingCollector{name: "counting"}
	a := NewAgent(10 * time.Millisecond)
	a.Register(c)

	require.NoError(t, a.Start(context.Background()))
	require.Eventually(t, func() bool { return c.collects.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, a.Shutdown(context.Background()))
	assert.True(t, c.closed.Load())

	// 关闭后不再采集
	n := c.collects.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, c.collects.Load())
}

func TestAgentFirstCollectBeforeTick(t *testing.T) {
	c := &countingCollector{name: "counting"}
	a := NewAgent(time.Hour)
	a.Register(c)

	require.NoError(t, a.Start(context.Background()))
	require.Eventually(t, func() bool { return c.collects.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, a.Shutdown(context.Background()))
}

func TestAgentInitFailure(t *testing.T) {
	ok := &countingCollector{name: "ok"}
	bad := &countingCollector{name: "bad", initErr: errors.New("boom")}
	a := NewAgent(time.Second)
	a.Register(ok)
	a.Register(bad)

	err := a.Start(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "bad")
	assert.Equal(t, int32(0), ok.collects.Load())

	assert.Error(t, a.Start(context.Background()), "second start")
}

func TestAgentInitAllOnce(t *testing.T) {
	c := &countingCollector{name: "counting"}
	a := NewAgent(time.Hour)
	a.Register(c)

	require.NoError(t, a.InitAll(context.Background()))
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, a.Shutdown(context.Background()))
	assert.Equal(t, int32(1), c.inits.Load())
}

func TestAgentStopsOnContextCancel(t *testing.T) {
	c := &countingCollector{name: "counting"}
	a := NewAgent(5 * time.Millisecond)
	a.Register(c)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, a.Start(ctx))
	cancel()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector loop did not stop")
	}
	require.NoError(t, a.Shutdown(context.Background()))
}

func TestAgentCloseAllJoinsErrors(t *testing.T) {
	a := NewAgent(time.Second)
	a.Register(&countingCollector{name: "a", closeErr: errors.New("x")})
	b := &countingCollector{name: "b"}
	a.Register(b)

	err := a.CloseAll()
	require.Error(t, err)
	assert.ErrorContains(t, err, "close a")
	assert.True(t, b.closed.Load())
}

type memPublisher struct {
	mu     sync.Mutex
	events []publisher.Event
}

func (m *memPublisher) PublishEvent(e publisher.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memPublisher) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func newDeps(t *testing.T, cfg *config.Config) (Deps, *memPublisher) {
	t.Helper()
	pub := &memPublisher{}
	mf := metrics.NewMetricFactory(metrics.NewPromRegistry(metrics.NewRegistry(false)))
	return Deps{Config: cfg, Publisher: pub, Agent: publisher.AgentInfo{ID: "id"}, Factory: mf}, pub
}

func TestRegisterCollectorsHonoursSwitches(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Monitor.Enable = false
	d, _ := newDeps(t, cfg)

	a := NewAgent(time.Second)
	got, err := RegisterCollectors(a, Modules(d))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "etcd-stats", got[0].Name())
}

func TestRegisterCollectorsNothingEnabled(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Monitor.Enable = false
	cfg.Input.Statistics = config.StatisticsConfig{}
	d, _ := newDeps(t, cfg)

	_, err := RegisterCollectors(NewAgent(time.Second), Modules(d))
	assert.Error(t, err)
}

func TestNewStatsClientOnlySendsCredentialsWhenEnabled(t *testing.T) {
	var gotAuth atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		gotAuth.Store(ok)
		_, _ = w.Write([]byte(`{"watchers":1}`))
	}))
	t.Cleanup(srv.Close)
	u, _ := url.Parse(srv.URL)
	host, port, _ := net.SplitHostPort(u.Host)

	in := config.NewDefaultConfig().Input
	in.Host, in.Port = host, port
	in.Authentication = config.AuthenticationConfig{Enable: false, Username: "root", Password: "x"}

	_, err := NewStatsClient(&in).Store(context.Background())
	require.NoError(t, err)
	assert.False(t, gotAuth.Load())

	in.Authentication.Enable = true
	_, err = NewStatsClient(&in).Store(context.Background())
	require.NoError(t, err)
	assert.True(t, gotAuth.Load())
}

func TestCollectorAgentEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(etcd.LeaderPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc(etcd.SelfPath, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"node1","id":"8e9e05c52164694d","state":"StateFollower"}`))
	})
	mux.HandleFunc(etcd.StorePath, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"getsSuccess":3,"watchers":0}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	u, _ := url.Parse(srv.URL)
	host, port, _ := net.SplitHostPort(u.Host)

	cfg := config.NewDefaultConfig()
	cfg.Input.Host, cfg.Input.Port = host, port
	cfg.Input.Period = 20 * time.Millisecond
	cfg.Monitor.Enable = false
	d, pub := newDeps(t, cfg)

	a, err := NewCollectorAgent(d)
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	// leader 403 被跳过，每轮 self + store 两条
	require.Eventually(t, func() bool { return pub.len() >= 4 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, a.Shutdown(context.Background()))
}
