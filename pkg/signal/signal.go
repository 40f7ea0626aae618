// Package signal 退出信号处理与有时限的优雅关闭。
package signal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/etcdbeat/pkg/logger"
)

// DefaultShutdownTimeout 优雅关闭的默认时限
const DefaultShutdownTimeout = 10 * time.Second

// ShutdownSignals 触发退出的信号
var ShutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// NotifyContext 收到 sigs（默认 SIGINT/SIGTERM）之一时取消返回的 ctx，并记录信号名。
// stop 解除信号监听，之后再收到信号按系统默认行为处理。
func NotifyContext(parent context.Context, sigs ...os.Signal) (ctx context.Context, stop context.CancelFunc) {
	if len(sigs) == 0 {
		sigs = ShutdownSignals
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, sigs...)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// Shutdown 在 timeout 内执行 shutdownFunc，超时返回 context.DeadlineExceeded
func Shutdown(timeout time.Duration, shutdownFunc func(ctx context.Context) error) error {
	if shutdownFunc == nil {
		return errors.New("shutdownFunc is nil")
	}
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- shutdownFunc(ctx) }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return err
		}
		logger.Info("graceful shutdown completed successfully")
		return nil
	case <-ctx.Done():
		logger.Warn("shutdown timeout exceeded", zap.Duration("timeout", timeout))
		return fmt.Errorf("shutdown: %w", ctx.Err())
	}
}
