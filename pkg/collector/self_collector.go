package collector

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/etcdbeat/pkg/logger"
	"github.com/etcdbeat/pkg/metrics"
)

// SelfCollector agent 自身进程监控（CPU、RSS、fd）与主机负载
type SelfCollector struct {
	base
	pid     int32
	proc    *process.Process
	metrics SelfCollectorMetrics
}

func NewSelfCollector(am AgentMetrics, mf *metrics.MetricFactory) *SelfCollector {
	return &SelfCollector{
		base: newBase("self-monitor", am.CollectErrors, am.CollectDuration),
		pid:  int32(os.Getpid()),
		metrics: SelfCollectorMetrics{
			CPUPercent: mf.NewProcessCPUPercent(),
			RSSBytes:   mf.NewProcessRSSBytes(),
			OpenFDs:    mf.NewProcessOpenFDs(),
			HostLoad:   mf.NewHostLoad(),
		},
	}
}

// Init 预检查进程信息可读
func (c *SelfCollector) Init(ctx context.Context) error {
	p, err := process.NewProcessWithContext(ctx, c.pid)
	if err != nil {
		return fmt.Errorf("open agent process %d: %w", c.pid, err)
	}
	c.proc = p
	return nil
}

func (c *SelfCollector) Collect(ctx context.Context) error {
	start := time.Now()
	defer func() {
		c.collectDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
	}()

	// 首次调用以进程启动为基准，之后为两次采集之间的使用率
	cpu, err := c.proc.PercentWithContext(ctx, 0)
	if err != nil {
		c.incErr()
		return fmt.Errorf("get agent cpu percent: %w", err)
	}
	c.metrics.CPUPercent.Set(cpu)

	mem, err := c.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		c.incErr()
		return fmt.Errorf("get agent memory: %w", err)
	}
	c.metrics.RSSBytes.Set(float64(mem.RSS))

	// 部分平台不支持，降级为 debug
	if fds, err := c.proc.NumFDsWithContext(ctx); err == nil {
		c.metrics.OpenFDs.Set(float64(fds))
	} else {
		logger.Debug("open fds not available", zap.Error(err))
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		c.metrics.HostLoad.WithLabelValues("1m").Set(avg.Load1)
		c.metrics.HostLoad.WithLabelValues("5m").Set(avg.Load5)
		c.metrics.HostLoad.WithLabelValues("15m").Set(avg.Load15)
	} else {
		logger.Debug("host load not available", zap.Error(err))
	}

	logger.Debug("collected agent process metrics",
		zap.Float64("cpu_percent", cpu),
		zap.Uint64("rss", mem.RSS))
	return nil
}

func (c *SelfCollector) Close() error {
	return nil
}
