package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Validate HTTP服务配置校验
func (h *ServerConfig) Validate() error {
	if err := valid.Struct(h); err != nil {
		return err
	}
	// 未启用时不参与校验
	if !h.Enable {
		return nil
	}
	// 用net包解析地址，验证格式合法性(必须是 ":port" 或 "ip:port")
	if _, err := net.ResolveTCPAddr("tcp", h.Addr); err != nil {
		return fmt.Errorf("server.addr format invalid (expected: :port or ip:port), got %s: %w", h.Addr, err)
	}
	return nil
}

// Validate etcd 采集配置校验
func (in *InputConfig) Validate() error {
	if err := valid.Struct(in); err != nil {
		return err
	}
	if in.Period < time.Second || in.Period > 3600*time.Second {
		return fmt.Errorf("input.period must be between 1s and 3600s, got %s", in.Period)
	}
	if strings.ContainsAny(in.Host, "/ ") {
		return fmt.Errorf("input.host must be a bare host name, got %q", in.Host)
	}
	// 至少启用一个统计项，否则没有意义
	if !in.Statistics.Leader && !in.Statistics.Self && !in.Statistics.Store && !in.V3.Enable {
		return errors.New("at least one statistic must be enabled (leader/self/store/v3)")
	}
	if err := in.V3.validate(); err != nil {
		return err
	}
	return nil
}

// v3 未启用时不校验；启用时 endpoints 不能为空也不能重复
func (v *V3Config) validate() error {
	if !v.Enable {
		return nil
	}
	if len(v.Endpoints) == 0 {
		return errors.New("input.v3.endpoints cannot be empty when v3 is enabled")
	}
	seen := map[string]bool{}
	for _, ep := range v.Endpoints {
		if strings.TrimSpace(ep) == "" {
			return errors.New("input.v3.endpoints cannot contain empty string")
		}
		if seen[ep] {
			return fmt.Errorf("input.v3.endpoints duplicated entry: %q", ep)
		}
		seen[ep] = true
	}
	return nil
}

// Validate 输出配置校验
func (o *OutputConfig) Validate() error {
	if err := valid.Struct(o); err != nil {
		return err
	}
	if !o.Console.Enable && !o.File.Enable && !o.Redis.Enable {
		return errors.New("at least one output must be enabled (console/file/redis)")
	}
	if o.Redis.Enable {
		u, err := url.Parse(o.Redis.URL)
		if err != nil {
			return fmt.Errorf("output.redis.url invalid: %w", err)
		}
		if u.Scheme != "redis" && u.Scheme != "rediss" {
			return fmt.Errorf("output.redis.url scheme must be redis or rediss, got %q", u.Scheme)
		}
	}
	return nil
}
