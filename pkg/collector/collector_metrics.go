package collector

import "github.com/prometheus/client_golang/prometheus"

// -------------------------- etcd v2 stats 采集器指标结构体 --------------------------
type StatsCollectorMetrics struct {
	FollowerLatency  *prometheus.GaugeVec // follower 延迟（秒）
	FollowerRequests *prometheus.GaugeVec // follower 请求计数
	AppendRequests   *prometheus.GaugeVec // 收/发 append 请求数
	PkgRate          *prometheus.GaugeVec
	BandwidthRate    *prometheus.GaugeVec
	IsLeader         prometheus.Gauge
	SelfInfo         *prometheus.GaugeVec
	StoreOperations  *prometheus.GaugeVec
	StoreWatchers    prometheus.Gauge
	StoreExpireCount prometheus.Gauge
}

// -------------------------- etcd v3 status 采集器指标结构体 --------------------------
type V3CollectorMetrics struct {
	Up          *prometheus.GaugeVec
	DBSize      *prometheus.GaugeVec
	DBSizeInUse *prometheus.GaugeVec
	RaftIndex   *prometheus.GaugeVec
	RaftTerm    *prometheus.GaugeVec
	IsLeader    *prometheus.GaugeVec
}

// -------------------------- agent 自身监控指标结构体 --------------------------
type SelfCollectorMetrics struct {
	CPUPercent prometheus.Gauge
	RSSBytes   prometheus.Gauge
	OpenFDs    prometheus.Gauge
	HostLoad   *prometheus.GaugeVec
}
