package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var outDir string
	var indices []int

	cmd := &cobra.Command{
		Use:   "extract <bank>",
		Short: "バンク内のサンプルをファイルに書き出します",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := ctx.newApp()
			if err != nil {
				return err
			}
			files, err := application.Extract(cmd.Context(), args[0], outDir, indices)
			if err != nil {
				return err
			}
			var total int64
			for _, f := range files {
				total += int64(f.Size)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d 件のサンプルを %s に書き出しました（%s）\n", len(files), outDir, formatSize(total))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "出力ディレクトリ")
	cmd.Flags().IntSliceVarP(&indices, "index", "i", nil, "書き出すサンプルのインデックス（カンマ区切り、省略時はすべて）")
	return cmd
}
