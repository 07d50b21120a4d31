package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shiroemons/go-fsbswap/pkg/fsb"
)

func newProfilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "profiles",
		Short:       "対応しているゲームプロファイルを表示します",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(fsb.Profiles()))
			for _, p := range fsb.Profiles() {
				spec, err := p.Spec()
				if err != nil {
					return err
				}
				encryption := spec.Cipher.String()
				if spec.Fallback.Enabled() {
					encryption += " / " + spec.Fallback.Cipher.String()
				}
				rows = append(rows, []string{
					spec.Name,
					spec.Title,
					spec.Version.String(),
					spec.Codec.String(),
					encryption,
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"Profile", "Title", "Container", "Codec", "Encryption"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
