package agent

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/etcdbeat/pkg/util"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information | 打印版本信息",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "etcdbeat %s\n", util.VersionString())
		},
	}
}
