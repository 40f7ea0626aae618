package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/etcdbeat/pkg/config"
	"github.com/etcdbeat/pkg/etcd"
	"github.com/etcdbeat/pkg/logger"
	"github.com/etcdbeat/pkg/metrics"
	"github.com/etcdbeat/pkg/publisher"
)

// StatsAPI etcd v2 stats 读取接口（etcd.Client）
type StatsAPI interface {
	Leader(ctx context.Context) (*etcd.LeaderStats, error)
	Self(ctx context.Context) (*etcd.SelfStats, error)
	Store(ctx context.Context) (*etcd.StoreStats, error)
	CheckAuth(ctx context.Context) error
	Endpoint() string
}

// StatsCollector 轮询 /v2/stats/{leader,self,store}，每项一条事件
type StatsCollector struct {
	base
	cfg       *config.InputConfig
	api       StatsAPI
	pub       Publisher
	agent     publisher.AgentInfo
	eventType string
	metrics   StatsCollectorMetrics

	authorized  bool
	authChecked bool
}

// NewStatsCollector 创建 v2 stats 采集器
func NewStatsCollector(cfg *config.InputConfig, api StatsAPI, pub Publisher, agent publisher.AgentInfo,
	am AgentMetrics, mf *metrics.MetricFactory) *StatsCollector {
	return &StatsCollector{
		base:       newBase("etcd-stats", am.CollectErrors, am.CollectDuration),
		cfg:        cfg,
		api:        api,
		pub:        pub,
		agent:      agent,
		eventType:  "etcdbeat",
		authorized:  true,
		authChecked: !cfg.Authentication.Enable,
		metrics: StatsCollectorMetrics{
			FollowerLatency:  mf.NewLeaderFollowerLatency(),
			FollowerRequests: mf.NewLeaderFollowerRequests(),
			AppendRequests:   mf.NewSelfAppendRequests(),
			PkgRate:          mf.NewSelfPkgRate(),
			BandwidthRate:    mf.NewSelfBandwidthRate(),
			IsLeader:         mf.NewSelfIsLeader(),
			SelfInfo:         mf.NewSelfInfo(),
			StoreOperations:  mf.NewStoreOperations(),
			StoreWatchers:    mf.NewStoreWatchers(),
			StoreExpireCount: mf.NewStoreExpireCount(),
		},
	}
}

// Init 校验认证配置；认证失败不会阻断启动，只是不再采集。
// 凭据校验需要访问 etcd，放到首次 Collect 时进行。
func (c *StatsCollector) Init(_ context.Context) error {
	auth := c.cfg.Authentication
	logger.Debug("init etcd stats collector",
		zap.String("endpoint", c.api.Endpoint()),
		zap.Duration("period", c.cfg.Period),
		zap.Bool("leader", c.cfg.Statistics.Leader),
		zap.Bool("self", c.cfg.Statistics.Self),
		zap.Bool("store", c.cfg.Statistics.Store),
		zap.Bool("auth", auth.Enable))

	c.authorized = true
	c.authChecked = !auth.Enable
	if auth.Enable && (auth.Username == "" || auth.Password == "") {
		logger.Error("username or password is not set")
		c.authorized = false
		c.authChecked = true
	}
	return nil
}

func (c *StatsCollector) checkAuth(ctx context.Context) {
	c.authChecked = true
	username := c.cfg.Authentication.Username
	logger.Debug("checking etcd credentials", zap.String("username", username))
	switch err := c.api.CheckAuth(ctx); {
	case errors.Is(err, etcd.ErrUnauthorized):
		logger.Error("username or password is wrong", zap.String("username", username))
		c.authorized = false
	case err != nil:
		logger.Warn("could not verify etcd credentials, will try on every collect", zap.Error(err))
	}
}

// Authorized 认证是否通过（未开启认证时恒为 true）
func (c *StatsCollector) Authorized() bool { return c.authorized }

// Collect 执行一轮采集；单项失败不影响其它项
func (c *StatsCollector) Collect(ctx context.Context) error {
	start := time.Now()
	defer func() {
		c.collectDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
	}()

	if !c.authChecked {
		c.checkAuth(ctx)
	}
	if !c.authorized {
		logger.Debug("username or password not set or wrong, skip collecting")
		return nil
	}

	var errs []error
	if c.cfg.Statistics.Leader {
		errs = append(errs, c.collectLeader(ctx))
	}
	if c.cfg.Statistics.Self {
		errs = append(errs, c.collectSelf(ctx))
	}
	if c.cfg.Statistics.Store {
		errs = append(errs, c.collectStore(ctx))
	}
	return errors.Join(errs...)
}

func (c *StatsCollector) publish(key string, value any) error {
	if err := c.pub.PublishEvent(publisher.NewEvent(c.eventType, c.agent, key, value)); err != nil {
		return fmt.Errorf("publish %s stats: %w", key, err)
	}
	logger.Debug("stats event sent", zap.String("stats", key))
	return nil
}

func (c *StatsCollector) collectLeader(ctx context.Context) error {
	stats, err := c.api.Leader(ctx)
	if err != nil {
		var serr *etcd.StatusError
		if errors.As(err, &serr) && serr.Code == http.StatusForbidden {
			// follower 节点不提供 leader 统计
			logger.Debug("member is not the leader, skip leader stats")
			return nil
		}
		logger.Debug("error reading leader stats", zap.Error(err))
		c.incErr()
		return fmt.Errorf("leader stats: %w", err)
	}

	// follower 可能被移除，每轮重建
	c.metrics.FollowerLatency.Reset()
	c.metrics.FollowerRequests.Reset()
	for id, f := range stats.Followers {
		c.metrics.FollowerLatency.WithLabelValues(id, "current").Set(f.Latency.Current / 1000)
		c.metrics.FollowerLatency.WithLabelValues(id, "average").Set(f.Latency.Average / 1000)
		c.metrics.FollowerLatency.WithLabelValues(id, "minimum").Set(f.Latency.Minimum / 1000)
		c.metrics.FollowerLatency.WithLabelValues(id, "maximum").Set(f.Latency.Maximum / 1000)
		c.metrics.FollowerLatency.WithLabelValues(id, "stddev").Set(f.Latency.StandardDeviation / 1000)
		c.metrics.FollowerRequests.WithLabelValues(id, "success").Set(float64(f.Counts.Success))
		c.metrics.FollowerRequests.WithLabelValues(id, "fail").Set(float64(f.Counts.Fail))
	}
	return c.publish("leader", stats)
}

func (c *StatsCollector) collectSelf(ctx context.Context) error {
	stats, err := c.api.Self(ctx)
	if err != nil {
		logger.Debug("error reading self stats", zap.Error(err))
		c.incErr()
		return fmt.Errorf("self stats: %w", err)
	}

	c.metrics.AppendRequests.WithLabelValues("recv").Set(float64(stats.RecvAppendRequestCnt))
	c.metrics.AppendRequests.WithLabelValues("send").Set(float64(stats.SendAppendRequestCnt))
	c.metrics.PkgRate.WithLabelValues("recv").Set(stats.RecvPkgRate)
	c.metrics.PkgRate.WithLabelValues("send").Set(stats.SendPkgRate)
	c.metrics.BandwidthRate.WithLabelValues("recv").Set(stats.RecvBandwidthRate)
	c.metrics.BandwidthRate.WithLabelValues("send").Set(stats.SendBandwidthRate)
	if stats.IsLeader() {
		c.metrics.IsLeader.Set(1)
	} else {
		c.metrics.IsLeader.Set(0)
	}
	// leader 变化后旧标签组合不应继续暴露
	c.metrics.SelfInfo.Reset()
	c.metrics.SelfInfo.WithLabelValues(stats.ID, stats.Name, stats.LeaderInfo.Leader).Set(1)

	return c.publish("self", stats)
}

func (c *StatsCollector) collectStore(ctx context.Context) error {
	stats, err := c.api.Store(ctx)
	if err != nil {
		logger.Debug("error reading store stats", zap.Error(err))
		c.incErr()
		return fmt.Errorf("store stats: %w", err)
	}

	for op, counts := range stats.Operations() {
		c.metrics.StoreOperations.WithLabelValues(op, "success").Set(float64(counts[0]))
		c.metrics.StoreOperations.WithLabelValues(op, "fail").Set(float64(counts[1]))
	}
	c.metrics.StoreWatchers.Set(float64(stats.Watchers))
	c.metrics.StoreExpireCount.Set(float64(stats.ExpireCount))

	return c.publish("store", stats)
}

// Close 无需释放资源
func (c *StatsCollector) Close() error {
	return nil
}
