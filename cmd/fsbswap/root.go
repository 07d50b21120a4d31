package main

import (
	"github.com/spf13/cobra"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/config"
)

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:           "fsbswap",
		Short:         "FromSoftware作品のFSBサウンドバンクを解析・差し替えします",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "設定ファイルのパス（既定: ./"+config.DefaultPath+"）")
	pf.StringVarP(&flags.profile, "profile", "p", "", "ゲームプロファイル（sekiro, ds3, ds2_sotfs, ds1）")
	pf.StringVar(&flags.logLevel, "log-level", "", "ログレベル（debug, info, warn, error）")
	pf.StringVar(&flags.logFormat, "log-format", "", "ログ形式（console, json）")

	rootCmd.AddCommand(newProfilesCommand())
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newInfoCommand(ctx))
	rootCmd.AddCommand(newExtractCommand(ctx))
	rootCmd.AddCommand(newReplaceCommand(ctx))

	return rootCmd
}
