package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/etcdbeat/pkg/logger"
	"github.com/etcdbeat/pkg/metrics"
)

// ErrClosed 管道已关闭
var ErrClosed = errors.New("publisher: pipeline closed")

// Pipeline 有界队列 + 单 worker，按顺序写入所有 output
type Pipeline struct {
	outputs []Output
	queue   chan Event
	done    chan struct{}

	// 取消后 worker 丢弃剩余事件并中断正在进行的发送
	sendCtx    context.Context
	cancelSend context.CancelFunc

	mu     sync.RWMutex
	closed bool

	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	dropped   prometheus.Counter
}

// NewPipeline 创建并启动发布管道
func NewPipeline(outputs []Output, queueSize int, mf *metrics.MetricFactory) *Pipeline {
	if queueSize <= 0 {
		queueSize = 1
	}
	sendCtx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		outputs:    outputs,
		queue:      make(chan Event, queueSize),
		done:       make(chan struct{}),
		sendCtx:    sendCtx,
		cancelSend: cancel,
		published:  mf.NewEventsPublishedTotal(),
		failed:     mf.NewEventsFailedTotal(),
		dropped:    mf.NewEventsDroppedTotal(),
	}
	go p.run()
	return p
}

// PublishEvent 非阻塞入队，队列满时丢弃并计数
func (p *Pipeline) PublishEvent(e Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- e:
		return nil
	default:
		p.dropped.Inc()
		logger.Warn("publish queue full, event dropped", zap.String("type", e.Type))
		return fmt.Errorf("publisher: queue full (%d)", cap(p.queue))
	}
}

func (p *Pipeline) run() {
	defer close(p.done)
	for e := range p.queue {
		if p.sendCtx.Err() != nil {
			p.dropped.Inc()
			continue
		}
		p.send(e)
	}
}

func (p *Pipeline) send(e Event) {
	batch := []Event{e}
	for _, out := range p.outputs {
		if err := out.Publish(p.sendCtx, batch); err != nil {
			p.failed.WithLabelValues(out.Name()).Add(float64(len(batch)))
			logger.Error("output publish failed", zap.String("output", out.Name()), zap.Error(err))
			continue
		}
		p.published.WithLabelValues(out.Name()).Add(float64(len(batch)))
	}
}

// Close 停止接收新事件，等待队列排空后关闭所有 output；ctx 超时则放弃剩余事件，
// 并等 worker 退出后再关闭 output
func (p *Pipeline) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	var err error
	select {
	case <-p.done:
	case <-ctx.Done():
		err = fmt.Errorf("drain publish queue: %w", ctx.Err())
		p.cancelSend()
		<-p.done
	}
	p.cancelSend()

	for _, out := range p.outputs {
		if cerr := out.Close(); cerr != nil {
			logger.Error("failed to close output", zap.String("output", out.Name()), zap.Error(cerr))
			err = errors.Join(err, cerr)
		}
	}
	return err
}
