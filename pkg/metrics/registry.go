package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registers 隔离 Prometheus 的默认实现，collector 只依赖该接口，单测可替换。
type Registers interface {
	prometheus.Registerer
	prometheus.Gatherer
}

// promRegistry 内部包裹官方的 *prometheus.Registry
type promRegistry struct {
	*prometheus.Registry
}

// NewPromRegistry 包装已有注册器
func NewPromRegistry(registry *prometheus.Registry) Registers {
	return &promRegistry{Registry: registry}
}

// MustRegister 重复注册时 panic，和官方行为一致但错误信息带上指标描述
func (p *promRegistry) MustRegister(collectors ...prometheus.Collector) {
	for _, c := range collectors {
		if err := p.Registry.Register(c); err != nil {
			panic(err)
		}
	}
}

// NewRegistry 创建私有注册器（不注册 Go runtime 指标），enableProcess 时附带进程指标
func NewRegistry(enableProcess bool) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	if enableProcess {
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: Namespace}))
	}
	return reg
}
