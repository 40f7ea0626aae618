package registers

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/etcdbeat/pkg/collector"
	"github.com/etcdbeat/pkg/config"
	"github.com/etcdbeat/pkg/etcd"
	"github.com/etcdbeat/pkg/logger"
	"github.com/etcdbeat/pkg/metrics"
	"github.com/etcdbeat/pkg/publisher"
)

// Module 采集器模块：开关 + 构造函数
type Module struct {
	Enabled bool
	Name    string
	NewFunc func() (Collector, error)
}

// Deps 构造采集器所需的共享依赖
type Deps struct {
	Config    *config.Config
	Publisher collector.Publisher
	Agent     publisher.AgentInfo
	Factory   *metrics.MetricFactory
}

// NewStatsClient 按 input 配置创建 v2 stats 客户端，未开启认证时不发送 BasicAuth
func NewStatsClient(in *config.InputConfig) *etcd.Client {
	opts := etcd.Options{
		Scheme:          in.Scheme,
		Host:            in.Host,
		Port:            in.Port,
		Timeout:         in.Timeout,
		MaxTries:        in.Retry.MaxTries,
		InitialInterval: in.Retry.InitialInterval,
	}
	if in.Authentication.Enable {
		opts.Username = in.Authentication.Username
		opts.Password = in.Authentication.Password
	}
	return etcd.NewClient(opts)
}

// Modules 返回全部采集器模块；新增数据源只需在这里添加一条
func Modules(d Deps) []Module {
	cfg := d.Config
	am := collector.NewAgentMetrics(d.Factory)
	stats := cfg.Input.Statistics

	return []Module{
		{
			Enabled: stats.Leader || stats.Self || stats.Store,
			Name:    "etcd-stats",
			NewFunc: func() (Collector, error) {
				return collector.NewStatsCollector(&cfg.Input, NewStatsClient(&cfg.Input), d.Publisher, d.Agent, am, d.Factory), nil
			},
		},
		{
			Enabled: cfg.Input.V3.Enable,
			Name:    "etcd-v3-status",
			NewFunc: func() (Collector, error) {
				opts := etcd.V3Options{
					Endpoints:   cfg.Input.V3.Endpoints,
					DialTimeout: cfg.Input.V3.DialTimeout,
				}
				if cfg.Input.Authentication.Enable {
					opts.Username = cfg.Input.Authentication.Username
					opts.Password = cfg.Input.Authentication.Password
				}
				src, err := etcd.NewStatusClient(opts)
				if err != nil {
					return nil, err
				}
				return collector.NewV3Collector(src, d.Publisher, d.Agent, am, d.Factory), nil
			},
		},
		{
			Enabled: cfg.Monitor.Enable,
			Name:    "self-monitor",
			NewFunc: func() (Collector, error) {
				return collector.NewSelfCollector(am, d.Factory), nil
			},
		},
	}
}

// RegisterCollectors 采集器注册统一入口：按开关构造并注册，返回所有已注册采集器
func RegisterCollectors(agent Agent, modules []Module) ([]Collector, error) {
	var registered []Collector
	for _, m := range modules {
		if !m.Enabled {
			logger.Debug("collector disabled", zap.String("name", m.Name))
			continue
		}
		c, err := m.NewFunc()
		if err != nil {
			return nil, fmt.Errorf("create collector %s: %w", m.Name, err)
		}
		agent.Register(c)
		registered = append(registered, c)
		logger.Debug("registered collector", zap.String("name", m.Name))
	}
	if len(registered) == 0 {
		return nil, fmt.Errorf("no collectors enabled; check input and monitor config")
	}

	names := make([]string, 0, len(registered))
	for _, c := range registered {
		names = append(names, c.Name())
	}
	logger.Debug("all enabled collectors registered", zap.Strings("enabled_collectors", names))
	return registered, nil
}

// NewCollectorAgent 创建调度器并注册 Deps 对应的全部模块
func NewCollectorAgent(d Deps) (*AgentImpl, error) {
	agent := NewAgent(d.Config.Input.Period)
	if _, err := RegisterCollectors(agent, Modules(d)); err != nil {
		return nil, err
	}
	return agent, nil
}
