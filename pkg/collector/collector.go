// Package collector 各类采集器实现，均满足 registers.Collector 接口。
package collector

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/etcdbeat/pkg/metrics"
	"github.com/etcdbeat/pkg/publisher"
)

// Publisher 事件发布端（publisher.Pipeline）
type Publisher interface {
	PublishEvent(e publisher.Event) error
}

// base 所有采集器共享的错误计数与耗时直方图
type base struct {
	name            string
	collectErrors   *prometheus.CounterVec
	collectDuration *prometheus.HistogramVec
}

func newBase(name string, errs *prometheus.CounterVec, dur *prometheus.HistogramVec) base {
	return base{name: name, collectErrors: errs, collectDuration: dur}
}

// Name 返回采集器名称
func (b *base) Name() string { return b.name }

func (b *base) incErr() {
	b.collectErrors.WithLabelValues(b.name).Inc()
}

// AgentMetrics 采集器共用的 agent 级指标（同一注册器只能创建一次）
type AgentMetrics struct {
	CollectErrors   *prometheus.CounterVec
	CollectDuration *prometheus.HistogramVec
}

func NewAgentMetrics(mf *metrics.MetricFactory) AgentMetrics {
	return AgentMetrics{
		CollectErrors:   mf.NewAgentCollectErrorsTotal(),
		CollectDuration: mf.NewAgentCollectDurationSeconds(),
	}
}
