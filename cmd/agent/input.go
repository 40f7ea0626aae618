package agent

import (
	"github.com/spf13/cobra"
)

func initInputFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	in := defaultCfg.Input

	f.String("input.scheme", in.Scheme, "-> etcd scheme [http,https] | etcd 协议")
	f.String("input.host", in.Host, "-> etcd host | etcd 主机")
	f.String("input.port", in.Port, "-> etcd client port | etcd 端口")
	f.Duration("input.period", in.Period, "-> Collect period | 采集间隔")
	f.Duration("input.timeout", in.Timeout, "-> Per request timeout | 单次请求超时")

	f.Uint("input.retry.max_tries", in.Retry.MaxTries, "-> Max tries per request | 单次请求最大尝试次数")
	f.Duration("input.retry.initial_interval", in.Retry.InitialInterval, "-> First retry backoff | 首次重试间隔")

	f.Bool("input.authentication.enable", in.Authentication.Enable, "-> Enable basic auth | 启用认证")
	f.String("input.authentication.username", in.Authentication.Username, "-> etcd username | 用户名")
	f.String("input.authentication.password", in.Authentication.Password, "-> etcd password | 密码")

	f.Bool("input.statistics.leader", in.Statistics.Leader, "-> Collect /v2/stats/leader")
	f.Bool("input.statistics.self", in.Statistics.Self, "-> Collect /v2/stats/self")
	f.Bool("input.statistics.store", in.Statistics.Store, "-> Collect /v2/stats/store")

	f.Bool("input.v3.enable", in.V3.Enable, "-> Collect v3 maintenance status | 采集 v3 状态")
	f.StringSlice("input.v3.endpoints", in.V3.Endpoints, "-> v3 endpoints host:port | v3 地址列表")
	f.Duration("input.v3.dial_timeout", in.V3.DialTimeout, "-> v3 dial timeout | v3 连接超时")
}
