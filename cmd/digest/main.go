package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var cfgPath string
	var noEmail bool

	rootCmd := &cobra.Command{
		Use:           "digest",
		Short:         "Multi-instrument market analysis report",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "配置文件路径")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Generate and deliver one report now",
		RunE: func(c *cobra.Command, args []string) error {
			return runOnce(c.Context(), cfgPath, noEmail)
		},
	}
	runCmd.Flags().BoolVar(&noEmail, "no-email", false, "只生成报告文件，不发送邮件")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the report on a cron schedule and answer Telegram commands",
		RunE: func(c *cobra.Command, args []string) error {
			return serve(c.Context(), cfgPath)
		},
	}

	rootCmd.AddCommand(runCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "🛑 错误: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}
