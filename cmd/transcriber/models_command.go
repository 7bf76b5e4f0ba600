package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"audio-transcriber/internal/config"
	"audio-transcriber/internal/provision"
	"audio-transcriber/internal/toolchain"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List downloadable models and which are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.settings()
			if err != nil {
				return err
			}

			dirs := []string{settings.ModelDir, filepath.Join(config.AppDir(), "models")}
			if bundled, ok := toolchain.BundledModelDir(); ok {
				dirs = append(dirs, bundled)
			}

			models := provision.Catalog()
			provision.MarkDownloaded(models, dirs)

			rows := make([][]string, 0, len(models))
			for _, m := range models {
				installed := "-"
				if m.Downloaded {
					installed = m.LocalPath
				}
				rows = append(rows, []string{m.ID, m.SizeLabel, installed, m.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Size", "Installed", "Description"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
