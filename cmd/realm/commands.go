package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aiwuxian/realm-chronicle/internal/app"
	"github.com/aiwuxian/realm-chronicle/internal/services"
)

const defaultEventsLimit = 10

func newStateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "显示当前世界状态",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(realm *app.App) error {
				state, err := realm.World.GetWorldState(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderState(state))
				return nil
			})
		},
	}
}

func newActCmd(opts *rootOptions) *cobra.Command {
	var (
		magnitude int
		causedBy  string
	)

	cmd := &cobra.Command{
		Use:   "act <move|help|fight> <target-id>",
		Short: "执行玩家行动并推进世界",
		Long: "执行行动：move 与 help 的目标是地点ID，fight 的目标是势力ID。" +
			"未识别的行动不修改世界，但张力照常增加。",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("目标必须是整数ID: %q", args[1])
			}

			action, err := services.ParseAction(args[0], target, magnitude, causedBy)
			if err != nil {
				return err
			}

			return withApp(cmd, opts, func(realm *app.App) error {
				resp, err := realm.World.ApplyAction(cmd.Context(), action)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderEventResponse(resp))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&magnitude, "magnitude", "m", 1, "行动力度")
	cmd.Flags().StringVar(&causedBy, "by", services.DefaultCausedBy, "写入事件日志的行动者")

	return cmd
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "不执行行动，仅检查是否触发事件",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(realm *app.App) error {
				resp, err := realm.World.CheckEvents(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderEventResponse(resp))
				return nil
			})
		},
	}
}

func newEventsCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "列出事件日志（最新在前）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(realm *app.App) error {
				events, err := realm.World.ListEvents(cmd.Context(), limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderEvents(events))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", defaultEventsLimit, "最多显示条数（0 表示全部）")

	return cmd
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "创建数据库并写入初始世界（已存在则跳过）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(realm *app.App) error {
				fmt.Fprintf(cmd.OutOrStdout(), "世界已就绪: %s（初始阶段 %s，事件模板 %d 个）\n",
					realm.Config.Database.Path, realm.Phases.Initial(), realm.Catalog.Len())
				return nil
			})
		},
	}
}
