package registers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/etcdbeat/pkg/logger"
)

// AgentImpl 实现 registers.Agent 接口：按 period 周期调用所有已注册采集器
type AgentImpl struct {
	collectors []Collector
	interval   time.Duration
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	started    bool
	inited     bool
}

// NewAgent 创建采集器调度器
func NewAgent(interval time.Duration) *AgentImpl {
	return &AgentImpl{
		collectors: make([]Collector, 0),
		interval:   interval,
	}
}

// Register 注册采集器，需在 Start 之前调用
func (r *AgentImpl) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors = append(r.collectors, c)
}

// Collectors 返回已注册采集器（副本）
func (r *AgentImpl) Collectors() []Collector {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make([]Collector, len(r.collectors))
	copy(copied, r.collectors)
	return copied
}

// InitAll 依次初始化，任一失败即返回；成功后再次调用（包括 Start 内部）不会重复初始化
func (r *AgentImpl) InitAll(ctx context.Context) error {
	r.mu.Lock()
	inited := r.inited
	r.mu.Unlock()
	if inited {
		return nil
	}

	for _, coll := range r.Collectors() {
		if err := coll.Init(ctx); err != nil {
			return fmt.Errorf("collector %s init failed: %w", coll.Name(), err)
		}
		logger.Debug("collector initialized successfully", zap.String("name", coll.Name()))
	}

	r.mu.Lock()
	r.inited = true
	r.mu.Unlock()
	return nil
}

// Start 初始化所有采集器并启动后台循环；ctx 取消或 Shutdown 都会终止循环
func (r *AgentImpl) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return errors.New("collector agent already started")
	}
	r.started = true
	r.mu.Unlock()

	if err := r.InitAll(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	ticker := time.NewTicker(r.interval)
	logger.Debug("collector loop started", zap.String("name", "collector-registry"),
		zap.Duration("interval", r.interval),
		zap.Int("registered-collectors-count", len(r.collectors)))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer ticker.Stop()

		// 首次采集（失败仅警告）
		if err := r.CollectAll(runCtx); err != nil {
			logger.Warn("first collection failed", zap.String("name", "collector-registry"), zap.Error(err))
		}

		for {
			select {
			case <-ticker.C:
				_ = r.CollectAll(runCtx) // 单采集器失败不影响整体
			case <-runCtx.Done():
				logger.Info("collector loop stopped", zap.String("name", "collector-registry"))
				return
			}
		}
	}()
	return nil
}

// Shutdown 停止循环并等待正在进行的采集返回，然后关闭所有采集器
func (r *AgentImpl) Shutdown(ctx context.Context) error {
	logger.Info("starting to shutdown collectors", zap.String("name", "collector-registry"))

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("wait collector loop: %w", ctx.Err())
	}

	return r.CloseAll()
}

// CollectAll 批量采集，返回所有采集器的错误
func (r *AgentImpl) CollectAll(ctx context.Context) error {
	var errs []error
	for _, collector := range r.Collectors() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := collector.Collect(ctx); err != nil {
			logger.Warn("collection failed", zap.String("name", collector.Name()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CloseAll 批量关闭采集器，单个失败不阻断整体关闭
func (r *AgentImpl) CloseAll() error {
	var errs []error
	for _, collector := range r.Collectors() {
		logger.Debug("closing collector", zap.String("name", collector.Name()))
		if err := collector.Close(); err != nil {
			logger.Error("failed to close collector", zap.String("name", collector.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", collector.Name(), err))
		}
	}
	return errors.Join(errs...)
}
