package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/app"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/models"
)

func newReplaceCommand(ctx *commandContext) *cobra.Command {
	var manifest string
	var opts app.ReplaceOptions
	var volume, pitch, speed float64

	cmd := &cobra.Command{
		Use:   "replace <bank> [<index|name> <audio>]",
		Short: "サンプルを任意の音声ファイルで差し替えます",
		Long: "サンプルを任意の音声ファイル（WAV/AIFF/MP3/OGG/FLAC）で差し替えます。\n" +
			"--manifest を指定すると、1行に「対象<TAB>音声ファイル」を書いた指示ファイルでまとめて差し替えます。",
		Args: func(cmd *cobra.Command, args []string) error {
			if manifest != "" {
				return cobra.ExactArgs(1)(cmd, args)
			}
			if len(args) != 3 {
				return errors.New("<bank> <index|name> <audio> を指定するか、--manifest を使用してください")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("volume") {
				cfg.Convert.VolumeDB = volume
			}
			if flags.Changed("pitch") {
				cfg.Convert.PitchSemitones = pitch
			}
			if flags.Changed("speed") {
				cfg.Convert.Speed = speed
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			application, err := ctx.newApp()
			if err != nil {
				return err
			}

			var results []models.ReplaceResult
			if manifest != "" {
				results, err = application.ReplaceManifest(cmd.Context(), args[0], manifest, opts)
			} else {
				results, err = application.ReplaceFile(cmd.Context(), args[0], args[1], args[2], opts)
			}
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{
					strconv.Itoa(r.Index),
					r.Name,
					formatSize(int64(r.OldSize)),
					formatSize(int64(r.NewSize)),
				})
			}
			stdout := cmd.OutOrStdout()
			fmt.Fprint(stdout, renderTable(
				[]string{"#", "Name", "Before", "After"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight},
			))
			output := opts.Output
			if output == "" {
				output = args[0]
			}
			fmt.Fprintf(stdout, "%s に保存しました\n", output)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&manifest, "manifest", "m", "", "差し替え指示ファイル")
	f.StringVarP(&opts.Output, "output", "o", "", "保存先（省略時は上書き）")
	f.BoolVar(&opts.NoBackup, "no-backup", false, "上書き時に .bak を作成しない")
	f.Float64Var(&volume, "volume", 0, "音量の調整（dB）")
	f.Float64Var(&pitch, "pitch", 0, "音程の調整（半音）")
	f.Float64Var(&speed, "speed", 1, "再生速度（0.25〜4）")
	return cmd
}
