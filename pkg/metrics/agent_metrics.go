package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NewAgentCollectErrorsTotal 创建「采集器错误总数」指标
// 指标类型：Counter - 仅支持单调递增，服务重启后会重置为0
// 标签说明：
// collector: 采集器名称（如 "etcd-stats"、"etcd-v3-status"、"self-monitor"）
func (f *MetricFactory) NewAgentCollectErrorsTotal() *prometheus.CounterVec {
	return promauto.With(f.reg).NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "agent_collect_errors_total",
		Help:      "Total collection errors",
	}, []string{"collector"})
}

// NewAgentCollectDurationSeconds 创建「采集器采集耗时分布」指标
// 分桶说明：0.01s ~ 5.12s，覆盖一次 HTTP 往返到多次重试
func (f *MetricFactory) NewAgentCollectDurationSeconds() *prometheus.HistogramVec {
	return promauto.With(f.reg).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "agent_collect_duration_seconds",
		Help:      "Collection duration per collector",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"collector"})
}

// NewEventsPublishedTotal 已成功写入 output 的事件数
func (f *MetricFactory) NewEventsPublishedTotal() *prometheus.CounterVec {
	return promauto.With(f.reg).NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "events_published_total",
		Help:      "Events successfully written per output",
	}, []string{"output"})
}

// NewEventsFailedTotal 写入 output 失败的事件数
func (f *MetricFactory) NewEventsFailedTotal() *prometheus.CounterVec {
	return promauto.With(f.reg).NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "events_failed_total",
		Help:      "Events that failed to be written per output",
	}, []string{"output"})
}

// NewEventsDroppedTotal 队列满被丢弃的事件数
func (f *MetricFactory) NewEventsDroppedTotal() prometheus.Counter {
	return promauto.With(f.reg).NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "events_dropped_total",
		Help:      "Events dropped because the publish queue was full",
	})
}

// NewProcessCPUPercent agent 进程 CPU 使用率
func (f *MetricFactory) NewProcessCPUPercent() prometheus.Gauge {
	return promauto.With(f.reg).NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "agent_cpu_percent",
		Help:      "CPU usage percent of the agent process",
	})
}

func (f *MetricFactory) NewProcessRSSBytes() prometheus.Gauge {
	return promauto.With(f.reg).NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "agent_memory_rss_bytes",
		Help:      "Resident set size of the agent process",
	})
}

func (f *MetricFactory) NewProcessOpenFDs() prometheus.Gauge {
	return promauto.With(f.reg).NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "agent_open_fds",
		Help:      "Open file descriptors of the agent process",
	})
}

// NewHostLoad 主机 1/5/15 分钟负载
func (f *MetricFactory) NewHostLoad() *prometheus.GaugeVec {
	return promauto.With(f.reg).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "host_load",
		Help:      "Host load average",
	}, []string{"period"})
}
