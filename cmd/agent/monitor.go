package agent

import (
	"github.com/spf13/cobra"
)

func initMonitorFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.Bool("monitor.enable", defaultCfg.Monitor.Enable, "-> Collect agent process metrics | 采集 agent 自身进程指标")
}
