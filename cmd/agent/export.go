package agent

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/etcdbeat/pkg/config"
)

const maskedPassword = "******"

func newExportCmd() *cobra.Command {
	export := &cobra.Command{
		Use:   "export",
		Short: "Export current setup | 导出当前配置",
	}
	export.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML | 以 YAML 打印生效配置",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfigWithCli(cmd)
			if err != nil {
				return err
			}
			if cfg.Input.Authentication.Password != "" {
				cfg.Input.Authentication.Password = maskedPassword
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})
	return export
}
