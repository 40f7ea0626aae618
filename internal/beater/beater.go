// Package beater 组装 etcdbeat 运行时：输出、发布管道、采集器与附加服务，
// 并按 Initializing → Running → Terminating → Exited 驱动其生命周期。
package beater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/etcdbeat/pkg/config"
	"github.com/etcdbeat/pkg/logger"
	"github.com/etcdbeat/pkg/metrics"
	"github.com/etcdbeat/pkg/publisher"
	"github.com/etcdbeat/pkg/registers"
	"github.com/etcdbeat/pkg/signal"
	"github.com/etcdbeat/pkg/util"
)

// Name beat 名称，同时作为事件 type
const Name = "etcdbeat"

// RunningMessage 启动成功后写入日志的就绪标记
const RunningMessage = "etcdbeat is running! Hit CTRL-C to stop it."

// Service 随 beat 一起启停的附加服务（如 HTTP server）
type Service interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// Status /status 返回的运行信息
type Status struct {
	State      string    `json:"state"`
	AgentID    string    `json:"agent_id"`
	Hostname   string    `json:"hostname"`
	Version    string    `json:"version"`
	StartedAt  time.Time `json:"started_at"`
	Uptime     string    `json:"uptime"`
	Collectors []string  `json:"collectors"`
}

// Etcdbeat 运行时实例
type Etcdbeat struct {
	cfg      *config.Config
	info     publisher.AgentInfo
	registry *prometheus.Registry
	pipeline *publisher.Pipeline
	agent    *registers.AgentImpl
	services []Service

	state     stateMachine
	startedAt time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// New 根据配置创建全部组件；任何一步失败都会释放已创建的资源
func New(cfg *config.Config) (*Etcdbeat, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	info := publisher.AgentInfo{
		ID:       uuid.NewString(),
		Hostname: hostname,
		Version:  util.Version,
	}

	registry := metrics.NewRegistry(true)
	mf := metrics.NewMetricFactory(metrics.NewPromRegistry(registry))

	outputs, err := newOutputs(&cfg.Output)
	if err != nil {
		return nil, err
	}
	pipeline := publisher.NewPipeline(outputs, cfg.Output.QueueSize, mf)

	agent, err := registers.NewCollectorAgent(registers.Deps{
		Config:    cfg,
		Publisher: pipeline,
		Agent:     info,
		Factory:   mf,
	})
	if err != nil {
		_ = pipeline.Close(context.Background())
		return nil, fmt.Errorf("create collectors: %w", err)
	}

	logger.Debug("etcdbeat created",
		zap.String("agent_id", info.ID),
		zap.String("hostname", info.Hostname),
		zap.Int("outputs", len(outputs)))

	return &Etcdbeat{
		cfg:      cfg,
		info:     info,
		registry: registry,
		pipeline: pipeline,
		agent:    agent,
		done:     make(chan struct{}),
	}, nil
}

// newOutputs 创建已启用的 output；redis 不可达时跳过，但至少要有一个可用 output
func newOutputs(cfg *config.OutputConfig) ([]publisher.Output, error) {
	var outputs []publisher.Output
	if cfg.Console.Enable {
		outputs = append(outputs, publisher.NewConsoleOutput(os.Stdout, cfg.Console.Pretty))
	}
	if cfg.File.Enable {
		f, err := publisher.NewFileOutput(cfg.File)
		if err != nil {
			closeOutputs(outputs)
			return nil, fmt.Errorf("create file output: %w", err)
		}
		outputs = append(outputs, f)
	}
	if cfg.Redis.Enable {
		r, err := publisher.NewRedisOutput(context.Background(), cfg.Redis)
		if err != nil {
			logger.Error("redis output disabled", zap.Error(err))
		} else {
			outputs = append(outputs, r)
		}
	}
	if len(outputs) == 0 {
		return nil, errors.New("no usable output")
	}
	return outputs, nil
}

func closeOutputs(outputs []publisher.Output) {
	for _, o := range outputs {
		_ = o.Close()
	}
}

// Registry 返回私有 Prometheus 注册器，供 /metrics 使用
func (b *Etcdbeat) Registry() *prometheus.Registry { return b.registry }

// Info 返回 agent 标识
func (b *Etcdbeat) Info() publisher.AgentInfo { return b.info }

// State 当前生命周期状态
func (b *Etcdbeat) State() State { return b.state.load() }

// Attach 注册随 beat 启停的服务，需在 Run 之前调用
func (b *Etcdbeat) Attach(svc Service) {
	b.services = append(b.services, svc)
}

// Status 运行信息快照
func (b *Etcdbeat) Status() Status {
	st := Status{
		State:    b.State().String(),
		AgentID:  b.info.ID,
		Hostname: b.info.Hostname,
		Version:  b.info.Version,
	}
	for _, c := range b.agent.Collectors() {
		st.Collectors = append(st.Collectors, c.Name())
	}
	if b.State() != StateInitializing {
		st.StartedAt = b.startedAt
		st.Uptime = time.Since(b.startedAt).Truncate(time.Second).String()
	}
	return st
}

// Run 完成启动（附加服务监听、采集器初始化）后写入就绪标记并阻塞，
// 直到 ctx 取消或调用 Stop，然后依次关闭附加服务、采集循环与发布管道。
// 启动失败时不写就绪标记，释放资源后返回错误；信号触发的退出返回 nil。
func (b *Etcdbeat) Run(ctx context.Context) error {
	// 服务启动前写入，之后只读
	b.startedAt = time.Now()
	if err := b.start(ctx); err != nil {
		if cerr := signal.Shutdown(signal.DefaultShutdownTimeout, b.shutdown); cerr != nil {
			logger.Warn("cleanup after failed start", zap.Error(cerr))
		}
		return err
	}

	if err := b.state.advance(StateRunning); err != nil {
		return err
	}
	logger.Info(RunningMessage)

	runErr := b.agent.Start(ctx)
	if runErr == nil {
		select {
		case <-ctx.Done():
		case <-b.done:
		}
	}

	_ = b.state.advance(StateTerminating)
	logger.Info("etcdbeat is stopping")

	err := signal.Shutdown(signal.DefaultShutdownTimeout, b.shutdown)
	_ = b.state.advance(StateExited)

	if runErr != nil {
		return fmt.Errorf("start collectors: %w", runErr)
	}
	if err != nil {
		logger.Warn("etcdbeat stopped with errors", zap.Error(err))
	} else {
		logger.Info("etcdbeat stopped")
	}
	return nil
}

// start 只做可能失败的准备工作，采集循环在就绪之后才启动
func (b *Etcdbeat) start(ctx context.Context) error {
	for _, svc := range b.services {
		if err := svc.Start(); err != nil {
			return fmt.Errorf("start service: %w", err)
		}
	}
	if err := b.agent.InitAll(ctx); err != nil {
		return fmt.Errorf("init collectors: %w", err)
	}
	logger.Debug("etcdbeat started",
		zap.Duration("period", b.cfg.Input.Period),
		zap.Int("services", len(b.services)))
	return nil
}

func (b *Etcdbeat) shutdown(ctx context.Context) error {
	var errs []error
	for i := len(b.services) - 1; i >= 0; i-- {
		errs = append(errs, b.services[i].Shutdown(ctx))
	}
	errs = append(errs, b.agent.Shutdown(ctx))
	errs = append(errs, b.pipeline.Close(ctx))
	return errors.Join(errs...)
}

// Stop 请求 Run 退出，可在任意 goroutine 调用；Run 之前调用时 Run 启动后立即退出
func (b *Etcdbeat) Stop() {
	b.stopOnce.Do(func() { close(b.done) })
}
