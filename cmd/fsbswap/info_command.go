package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info <bank>",
		Short: "バンクのヘッダー情報を表示します",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := ctx.newApp()
			if err != nil {
				return err
			}
			info, err := application.Info(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Path", info.Path},
				{"Profile", info.Profile.String()},
				{"Container", info.Version.String()},
				{"Codec", info.Codec.String()},
				{"Encrypted", yesNo(info.Encrypted)},
				{"Cipher", info.Cipher},
				{"DCX", yesNo(info.DCX)},
				{"Samples", fmt.Sprint(info.SampleCount)},
				{"Header", formatSize(int64(info.HeaderSize))},
				{"Data", formatSize(info.DataSize)},
				{"File", formatSize(info.FileSize)},
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}
}
