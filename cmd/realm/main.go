// Package main realm 命令行：不启动 HTTP 服务即可查看和推进世界
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aiwuxian/realm-chronicle/internal/app"
	"github.com/aiwuxian/realm-chronicle/internal/config"
)

var version = "0.1.0-dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "realm",
		Short:         "查看并推进王国的世界状态",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !opts.verbose {
				log.SetOutput(io.Discard)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "输出引擎日志")

	rootCmd.AddCommand(
		newStateCmd(opts),
		newActCmd(opts),
		newCheckCmd(opts),
		newEventsCmd(opts),
		newSeedCmd(opts),
	)

	return rootCmd
}

// withApp 加载配置并打开世界，fn 返回后关闭
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(*app.App) error) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	realm, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer realm.Close()

	return fn(realm)
}
