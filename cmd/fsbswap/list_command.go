package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <bank|dir>",
		Short: "バンク内のサンプル、またはディレクトリ内のバンクを一覧表示します",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := ctx.newApp()
			if err != nil {
				return err
			}
			target := args[0]
			stdout := cmd.OutOrStdout()

			if fi, err := os.Stat(target); err == nil && fi.IsDir() {
				infos, err := application.Scan(cmd.Context(), target)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(infos))
				for _, info := range infos {
					rows = append(rows, []string{
						info.Path,
						info.Version.String(),
						info.Codec.String(),
						strconv.Itoa(info.SampleCount),
						formatSize(info.FileSize),
						yesNo(info.Encrypted),
						yesNo(info.DCX),
					})
				}
				fmt.Fprint(stdout, renderTable(
					[]string{"Bank", "Container", "Codec", "Samples", "Size", "Encrypted", "DCX"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			}

			entries, err := application.List(cmd.Context(), target)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					strconv.Itoa(e.Index),
					e.Name,
					strconv.Itoa(e.Channels),
					strconv.Itoa(e.SampleRate),
					formatDuration(e.Duration),
					formatSize(int64(e.CompressedSize)),
					strconv.FormatInt(e.Offset, 10),
					formatLoop(e.HasLoop, e.LoopStart, e.LoopEnd),
				})
			}
			fmt.Fprint(stdout, renderTable(
				[]string{"#", "Name", "Ch", "Rate", "Length", "Size", "Offset", "Loop"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}
