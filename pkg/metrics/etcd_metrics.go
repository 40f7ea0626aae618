package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func (m *MetricFactory) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      name,
		Help:      help,
	}, labels)
	m.reg.MustRegister(g)
	return g
}

func (m *MetricFactory) gauge(name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      name,
		Help:      help,
	})
	m.reg.MustRegister(g)
	return g
}

// -------------------------- /v2/stats/leader --------------------------

// NewLeaderFollowerLatency follower 延迟（秒），stat: current/average/minimum/maximum/stddev
func (m *MetricFactory) NewLeaderFollowerLatency() *prometheus.GaugeVec {
	return m.gaugeVec("leader_follower_latency_seconds", "Raft latency from the leader to each follower", "follower", "stat")
}

// NewLeaderFollowerRequests follower 请求计数（etcd 侧累计值），result: success/fail
func (m *MetricFactory) NewLeaderFollowerRequests() *prometheus.GaugeVec {
	return m.gaugeVec("leader_follower_requests", "Raft requests sent from the leader to each follower", "follower", "result")
}

// -------------------------- /v2/stats/self --------------------------

func (m *MetricFactory) NewSelfAppendRequests() *prometheus.GaugeVec {
	return m.gaugeVec("self_append_requests", "Append requests handled by this member", "direction")
}

func (m *MetricFactory) NewSelfPkgRate() *prometheus.GaugeVec {
	return m.gaugeVec("self_pkg_rate", "Packages per second sent or received by this member", "direction")
}

func (m *MetricFactory) NewSelfBandwidthRate() *prometheus.GaugeVec {
	return m.gaugeVec("self_bandwidth_rate_bytes", "Bytes per second sent or received by this member", "direction")
}

// NewSelfIsLeader 1 表示当前节点为 leader
func (m *MetricFactory) NewSelfIsLeader() prometheus.Gauge {
	return m.gauge("self_is_leader", "Whether this member is the raft leader")
}

// NewSelfInfo 值恒为1，标签携带 id/name/leader
func (m *MetricFactory) NewSelfInfo() *prometheus.GaugeVec {
	return m.gaugeVec("self_info", "Member identity (value is always 1)", "id", "name", "leader")
}

// -------------------------- /v2/stats/store --------------------------

func (m *MetricFactory) NewStoreOperations() *prometheus.GaugeVec {
	return m.gaugeVec("store_operations", "Store operations by type and result", "operation", "result")
}

func (m *MetricFactory) NewStoreWatchers() prometheus.Gauge {
	return m.gauge("store_watchers", "Number of watchers on the store")
}

func (m *MetricFactory) NewStoreExpireCount() prometheus.Gauge {
	return m.gauge("store_expire_count", "Number of expired keys")
}

// -------------------------- v3 Maintenance.Status --------------------------

func (m *MetricFactory) NewV3DBSizeBytes() *prometheus.GaugeVec {
	return m.gaugeVec("v3_db_size_bytes", "Backend database size", "endpoint")
}

func (m *MetricFactory) NewV3DBSizeInUseBytes() *prometheus.GaugeVec {
	return m.gaugeVec("v3_db_size_in_use_bytes", "Backend database size in use", "endpoint")
}

func (m *MetricFactory) NewV3RaftIndex() *prometheus.GaugeVec {
	return m.gaugeVec("v3_raft_index", "Current raft index", "endpoint")
}

func (m *MetricFactory) NewV3RaftTerm() *prometheus.GaugeVec {
	return m.gaugeVec("v3_raft_term", "Current raft term", "endpoint")
}

func (m *MetricFactory) NewV3IsLeader() *prometheus.GaugeVec {
	return m.gaugeVec("v3_is_leader", "Whether the endpoint is the raft leader", "endpoint")
}

func (m *MetricFactory) NewV3Up() *prometheus.GaugeVec {
	return m.gaugeVec("v3_up", "Whether the last status request to the endpoint succeeded", "endpoint")
}
