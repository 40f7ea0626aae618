package agent

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/etcdbeat/cmd/server"
	"github.com/etcdbeat/internal/beater"
	"github.com/etcdbeat/pkg/config"
	"github.com/etcdbeat/pkg/logger"
	"github.com/etcdbeat/pkg/signal"
	"github.com/etcdbeat/pkg/util"
)

// errReported 错误已输出到 stderr，Execute 只需返回非零退出码
var errReported = errors.New("reported")

// NewRootCmd 构建命令树；每次调用都是独立的 flag 集合
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "etcdbeat",
		Short:         "Ships etcd leader/self/store statistics as events and Prometheus metrics",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfigWithCli(cmd)
			if err != nil {
				// 统一输出错误到 stderr
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				fmt.Fprintf(cmd.ErrOrStderr(), "请检查配置文件路径或使用 -c 参数指定\n")
				return errReported
			}
			if err := runAgent(cmd, cfg); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "服务启动失败: %v\n", err)
				return errReported
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "etcdbeat.yml", "配置文件路径 (yaml)")
	rootCmd.PersistentFlags().Bool("banner", true, "启动时打印 banner")
	// 注册分组 flag
	initServerFlags(rootCmd)
	initInputFlags(rootCmd)
	initOutputFlags(rootCmd)
	initMonitorFlags(rootCmd)
	initLogFlags(rootCmd)

	rootCmd.AddCommand(newVersionCmd(), newExportCmd())
	return rootCmd
}

// Execute 运行命令并返回进程退出码
func Execute() int {
	return ExecuteArgs(context.Background(), os.Args[1:])
}

// ExecuteArgs 以指定参数运行，便于测试
func ExecuteArgs(ctx context.Context, args []string) int {
	root := NewRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func runAgent(cmd *cobra.Command, cfg *config.Config) error {
	if err := logger.Init(&cfg.Log); err != nil {
		return fmt.Errorf("日志初始化失败: %w", err)
	}
	// 程序退出时刷盘
	defer func() { _ = logger.Sync() }()

	if banner, _ := cmd.Flags().GetBool("banner"); banner && !cfg.Output.Console.Enable {
		util.PrintBanner(cmd.OutOrStdout(), beater.Name, "ColorCyan")
	}

	logger.SetDefaultCollector(beater.Name)
	logger.Info("log initialization successful",
		zap.String("path", cfg.Log.Path),
		zap.String("dir", config.LogDir(cfg.Log.Path)),
		zap.String("level", cfg.Log.Level),
		zap.String("format", cfg.Log.Format))
	if f := cmd.Flags().Lookup("config"); f != nil {
		logger.Debug("configuration initialization successful", zap.String("config", f.Value.String()))
	}

	// 初始化阶段收到信号同样按正常退出处理
	ctx, stop := signal.NotifyContext(cmd.Context())
	defer stop()

	b, err := beater.New(cfg)
	if err != nil {
		logger.Error("failed to create etcdbeat", zap.Error(err))
		return err
	}
	if cfg.Server.Enable {
		b.Attach(server.NewHTTPServer(&cfg.Server, b.Registry(), b))
	}

	if err := b.Run(ctx); err != nil {
		logger.Error("etcdbeat exited with error", zap.Error(err))
		return err
	}
	return nil
}
