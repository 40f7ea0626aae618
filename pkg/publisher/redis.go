package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/etcdbeat/pkg/config"
)

// RedisOutput 事件写入 redis：list 模式 RPUSH，channel 模式 PUBLISH
type RedisOutput struct {
	client   *redis.Client
	key      string
	dataType string
	timeout  time.Duration
}

// NewRedisOutput 解析 URL 并 Ping 一次，连接失败只影响该 output
func NewRedisOutput(ctx context.Context, cfg config.RedisOutputConfig) (*RedisOutput, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DialTimeout = cfg.Timeout
	opt.ReadTimeout = cfg.Timeout
	opt.WriteTimeout = cfg.Timeout

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opt.Addr, err)
	}

	return &RedisOutput{
		client:   client,
		key:      cfg.Key,
		dataType: cfg.DataType,
		timeout:  cfg.Timeout,
	}, nil
}

func (r *RedisOutput) Name() string { return "redis" }

func (r *RedisOutput) Publish(ctx context.Context, events []Event) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	values := make([]any, 0, len(events))
	for _, e := range events {
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		values = append(values, b)
	}

	if r.dataType == "channel" {
		pipe := r.client.Pipeline()
		for _, v := range values {
			pipe.Publish(ctx, r.key, v)
		}
		_, err := pipe.Exec(ctx)
		return err
	}
	return r.client.RPush(ctx, r.key, values...).Err()
}

func (r *RedisOutput) Close() error {
	return r.client.Close()
}
