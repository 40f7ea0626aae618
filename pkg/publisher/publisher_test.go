package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etcdbeat/pkg/config"
	"github.com/etcdbeat/pkg/metrics"
)

type recordingOutput struct {
	name string
	err  error

	mu     sync.Mutex
	events []Event
	closed bool
}

func (r *recordingOutput) Name() string { return r.name }

func (r *recordingOutput) Publish(_ context.Context, events []Event) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *recordingOutput) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func testFactory() *metrics.MetricFactory {
	return metrics.NewMetricFactory(metrics.NewPromRegistry(metrics.NewRegistry(false)))
}

var testAgent = AgentInfo{ID: "agent-1", Hostname: "host-a", Version: "test"}

func TestEventMarshalJSON(t *testing.T) {
	e := NewEvent("etcdbeat", testAgent, "store", map[string]int{"watchers": 3})
	e.Timestamp = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	b, err := json.Marshal(e)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "2024-01-02T03:04:05Z", got["@timestamp"])
	assert.Equal(t, "etcdbeat", got["type"])
	assert.Equal(t, "agent-1", got["agent"].(map[string]any)["id"])
	assert.Equal(t, float64(3), got["store"].(map[string]any)["watchers"])
}

func TestPipelineFansOutAndDrainsOnClose(t *testing.T) {
	a := &recordingOutput{name: "a"}
	b := &recordingOutput{name: "b"}
	p := NewPipeline([]Output{a, b}, 16, testFactory())

	for i := 0; i < 10; i++ {
		require.NoError(t, p.PublishEvent(NewEvent("etcdbeat", testAgent, "n", i)))
	}
	require.NoError(t, p.Close(context.Background()))

	assert.Len(t, a.events, 10)
	assert.Len(t, b.events, 10)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	// 顺序保持
	assert.Equal(t, 9, a.events[9].Fields["n"])

	assert.ErrorIs(t, p.PublishEvent(NewEvent("etcdbeat", testAgent, "n", 0)), ErrClosed)
	assert.NoError(t, p.Close(context.Background()))
}

func TestPipelineCountsOutputFailures(t *testing.T) {
	bad := &recordingOutput{name: "bad", err: errors.New("boom")}
	good := &recordingOutput{name: "good"}
	p := NewPipeline([]Output{bad, good}, 4, testFactory())

	require.NoError(t, p.PublishEvent(NewEvent("etcdbeat", testAgent, "k", "v")))
	require.NoError(t, p.Close(context.Background()))

	assert.Len(t, good.events, 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(p.failed.WithLabelValues("bad")))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.published.WithLabelValues("good")))
}

type blockingOutput struct {
	recordingOutput
	release chan struct{}

	inFlight       atomic.Int32
	closedInFlight atomic.Bool
}

func (b *blockingOutput) Publish(ctx context.Context, events []Event) error {
	b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return b.recordingOutput.Publish(ctx, events)
}

func (b *blockingOutput) Close() error {
	if b.inFlight.Load() > 0 {
		b.closedInFlight.Store(true)
	}
	return b.recordingOutput.Close()
}

func TestPipelineDropsWhenFull(t *testing.T) {
	out := &blockingOutput{recordingOutput: recordingOutput{name: "slow"}, release: make(chan struct{})}
	p := NewPipeline([]Output{out}, 1, testFactory())

	// worker 取走第一条后阻塞在 output 上，队列容量 1，之后的事件必然有丢弃
	var dropped int
	for i := 0; i < 5; i++ {
		if err := p.PublishEvent(NewEvent("etcdbeat", testAgent, "n", i)); err != nil {
			dropped++
		}
	}
	assert.GreaterOrEqual(t, dropped, 3)
	assert.Equal(t, float64(dropped), testutil.ToFloat64(p.dropped))

	close(out.release)
	require.NoError(t, p.Close(context.Background()))
}

func TestPipelineCloseTimeout(t *testing.T) {
	out := &blockingOutput{recordingOutput: recordingOutput{name: "stuck"}, release: make(chan struct{})}
	defer close(out.release)
	p := NewPipeline([]Output{out}, 4, testFactory())
	require.NoError(t, p.PublishEvent(NewEvent("etcdbeat", testAgent, "n", 1)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := p.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, out.closed)
	assert.False(t, out.closedInFlight.Load(), "output closed while a publish was running")
	assert.Empty(t, out.events)
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	out := NewConsoleOutput(&buf, false)
	require.NoError(t, out.Publish(context.Background(), []Event{
		NewEvent("etcdbeat", testAgent, "self", map[string]string{"name": "node1"}),
		NewEvent("etcdbeat", testAgent, "self", map[string]string{"name": "node2"}),
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"name":"node2"`)
}

func TestFileOutput(t *testing.T) {
	dir := t.TempDir()
	out, err := NewFileOutput(config.FileOutputConfig{
		Enable:      true,
		Path:        dir,
		Filename:    "etcdbeat",
		RotateEvery: time.Hour,
		MaxAge:      time.Hour,
		MaxSize:     1,
	})
	require.NoError(t, err)

	require.NoError(t, out.Publish(context.Background(), []Event{
		NewEvent("etcdbeat", testAgent, "store", map[string]int{"watchers": 1}),
	}))
	require.NoError(t, out.Close())

	files, err := filepath.Glob(filepath.Join(dir, "etcdbeat-*.ndjson"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	b, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), `"watchers":1`)
	assert.True(t, strings.HasSuffix(string(b), "\n"))
}

func redisConfig(mr *miniredis.Miniredis, dataType string) config.RedisOutputConfig {
	return config.RedisOutputConfig{
		Enable:   true,
		URL:      "redis://" + mr.Addr() + "/0",
		Key:      "etcdbeat",
		DataType: dataType,
		Timeout:  time.Second,
	}
}

func TestRedisOutputList(t *testing.T) {
	mr := miniredis.RunT(t)

	out, err := NewRedisOutput(context.Background(), redisConfig(mr, "list"))
	require.NoError(t, err)
	defer out.Close()

	require.NoError(t, out.Publish(context.Background(), []Event{
		NewEvent("etcdbeat", testAgent, "self", map[string]string{"name": "node1"}),
		NewEvent("etcdbeat", testAgent, "self", map[string]string{"name": "node2"}),
	}))

	items, err := mr.List("etcdbeat")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Contains(t, items[0], `"name":"node1"`)
	assert.Contains(t, items[1], `"@timestamp"`)
}

func TestRedisOutputChannel(t *testing.T) {
	mr := miniredis.RunT(t)

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer sub.Close()
	ps := sub.Subscribe(context.Background(), "etcdbeat")
	defer ps.Close()
	_, err := ps.Receive(context.Background())
	require.NoError(t, err)

	out, err := NewRedisOutput(context.Background(), redisConfig(mr, "channel"))
	require.NoError(t, err)
	defer out.Close()

	require.NoError(t, out.Publish(context.Background(), []Event{
		NewEvent("etcdbeat", testAgent, "leader", map[string]string{"leader": "abc"}),
	}))

	select {
	case msg := <-ps.Channel():
		assert.Contains(t, msg.Payload, `"leader":"abc"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received on channel")
	}
}

func TestRedisOutputUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := redisConfig(mr, "list")
	mr.Close()

	_, err := NewRedisOutput(context.Background(), cfg)
	assert.Error(t, err)
}
