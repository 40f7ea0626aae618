package etcd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// StatusAPI *clientv3.Client 的子集，便于测试替换
type StatusAPI interface {
	Status(ctx context.Context, endpoint string) (*clientv3.StatusResponse, error)
	Close() error
}

// MemberStatus 单个 endpoint 的 v3 状态
type MemberStatus struct {
	Endpoint    string   `json:"endpoint"`
	MemberID    string   `json:"memberId"`
	Leader      string   `json:"leader"`
	Version     string   `json:"version"`
	DBSize      int64    `json:"dbSize"`
	DBSizeInUse int64    `json:"dbSizeInUse"`
	RaftIndex   uint64   `json:"raftIndex"`
	RaftTerm    uint64   `json:"raftTerm"`
	IsLeader    bool     `json:"isLeader"`
	IsLearner   bool     `json:"isLearner"`
	Errors      []string `json:"errors,omitempty"`
}

// V3Options v3 客户端参数
type V3Options struct {
	Endpoints   []string
	DialTimeout time.Duration
	Username    string
	Password    string
}

// StatusClient 基于 clientv3 的 Maintenance.Status 读取
type StatusClient struct {
	api       StatusAPI
	endpoints []string
	timeout   time.Duration
}

// NewStatusClient 连接 etcd v3 endpoints（不阻塞等待连接建立）
func NewStatusClient(opts V3Options) (*StatusClient, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   opts.Endpoints,
		DialTimeout: opts.DialTimeout,
		Username:    opts.Username,
		Password:    opts.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("new etcd v3 client: %w", err)
	}
	return NewStatusClientWithAPI(cli, opts.Endpoints, opts.DialTimeout), nil
}

// NewStatusClientWithAPI 使用已有的 StatusAPI
func NewStatusClientWithAPI(api StatusAPI, endpoints []string, timeout time.Duration) *StatusClient {
	return &StatusClient{api: api, endpoints: endpoints, timeout: timeout}
}

func (s *StatusClient) Endpoints() []string { return s.endpoints }

// Status 查询单个 endpoint
func (s *StatusClient) Status(ctx context.Context, endpoint string) (*MemberStatus, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	resp, err := s.api.Status(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("etcd v3 status %s: %w", endpoint, err)
	}

	ms := &MemberStatus{
		Endpoint:    endpoint,
		Leader:      strconv.FormatUint(resp.Leader, 16),
		Version:     resp.Version,
		DBSize:      resp.DbSize,
		DBSizeInUse: resp.DbSizeInUse,
		RaftIndex:   resp.RaftIndex,
		RaftTerm:    resp.RaftTerm,
		IsLearner:   resp.IsLearner,
		Errors:      resp.Errors,
	}
	if resp.Header != nil {
		ms.MemberID = strconv.FormatUint(resp.Header.MemberId, 16)
		ms.IsLeader = resp.Header.MemberId == resp.Leader
	}
	return ms, nil
}

func (s *StatusClient) Close() error {
	return s.api.Close()
}
