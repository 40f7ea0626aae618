// Package etcd 提供 etcd 统计数据的读取：v2 HTTP stats API 与 v3 Maintenance.Status。
package etcd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/etcdbeat/pkg/logger"
)

const (
	LeaderPath = "/v2/stats/leader"
	SelfPath   = "/v2/stats/self"
	StorePath  = "/v2/stats/store"
	KeysPath   = "/v2/keys"
)

// ErrUnauthorized 用户名或密码错误（HTTP 401）
var ErrUnauthorized = errors.New("etcd: unauthorized")

// StatusError 非 200 响应
type StatusError struct {
	Path   string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("etcd %s: HTTP %s", e.Path, e.Status)
}

// Options HTTP 客户端参数
type Options struct {
	Scheme          string
	Host            string
	Port            string
	Timeout         time.Duration
	Username        string
	Password        string
	MaxTries        uint
	InitialInterval time.Duration
}

// Client etcd v2 stats API 客户端
type Client struct {
	baseURL         string
	httpClient      *http.Client
	username        string
	password        string
	maxTries        uint
	initialInterval time.Duration
}

// NewClient 创建 stats 客户端
func NewClient(opts Options) *Client {
	scheme := opts.Scheme
	if scheme == "" {
		scheme = "http"
	}
	maxTries := opts.MaxTries
	if maxTries == 0 {
		maxTries = 1
	}
	return &Client{
		baseURL:         scheme + "://" + net.JoinHostPort(opts.Host, opts.Port),
		httpClient:      &http.Client{Timeout: opts.Timeout},
		username:        opts.Username,
		password:        opts.Password,
		maxTries:        maxTries,
		initialInterval: opts.InitialInterval,
	}
}

// Endpoint 返回 scheme://host:port
func (c *Client) Endpoint() string { return c.baseURL }

func (c *Client) newRequest(ctx context.Context, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	return req, nil
}

// fetch 单次请求；4xx 与解码错误不重试
func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	req, err := c.newRequest(ctx, path)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect etcd %s: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, res.Body)
		serr := &StatusError{Path: path, Code: res.StatusCode, Status: res.Status}
		if res.StatusCode == http.StatusUnauthorized {
			return nil, backoff.Permanent(fmt.Errorf("%w: %w", ErrUnauthorized, serr))
		}
		if res.StatusCode < http.StatusInternalServerError {
			return nil, backoff.Permanent(serr)
		}
		return nil, serr
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read etcd %s: %w", path, err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	b := backoff.NewExponentialBackOff()
	if c.initialInterval > 0 {
		b.InitialInterval = c.initialInterval
	}

	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		body, err := c.fetch(ctx, path)
		if err != nil {
			logger.Debug("etcd request failed", zap.String("path", path), zap.Error(err))
		}
		return body, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(c.maxTries))
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode etcd %s: %w", path, err)
	}
	return nil
}

// Leader 读取 leader 统计
func (c *Client) Leader(ctx context.Context) (*LeaderStats, error) {
	var s LeaderStats
	if err := c.get(ctx, LeaderPath, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Self 读取当前节点统计
func (c *Client) Self(ctx context.Context) (*SelfStats, error) {
	var s SelfStats
	if err := c.get(ctx, SelfPath, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Store 读取存储操作统计
func (c *Client) Store(ctx context.Context) (*StoreStats, error) {
	var s StoreStats
	if err := c.get(ctx, StorePath, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CheckAuth 用配置的用户名密码访问 /v2/keys，401 返回 ErrUnauthorized
func (c *Client) CheckAuth(ctx context.Context) error {
	_, err := c.fetch(ctx, KeysPath)
	if err == nil {
		return nil
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	if errors.Is(err, ErrUnauthorized) {
		return ErrUnauthorized
	}
	var serr *StatusError
	if errors.As(err, &serr) {
		// 其它状态码说明认证已通过（例如 /v2/keys 被禁用）
		return nil
	}
	return err
}
