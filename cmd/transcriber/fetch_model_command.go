package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"audio-transcriber/internal/config"
	"audio-transcriber/internal/provision"
)

func newFetchModelCommand(ctx *commandContext) *cobra.Command {
	var dir string
	var force bool

	cmd := &cobra.Command{
		Use:   "fetch-model [model-id]",
		Short: "Download a whisper.cpp model into the model directory",
		Long:  "Download a whisper.cpp model. Defaults to " + provision.DefaultModelID + ". Run `transcriber models` for the list.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := provision.DefaultModelID
			if len(args) == 1 {
				id = args[0]
			}
			model, ok := provision.Lookup(id)
			if !ok {
				return fmt.Errorf("unknown model id %q", id)
			}

			target := strings.TrimSpace(dir)
			if target == "" {
				settings, err := ctx.settings()
				if err != nil {
					return err
				}
				target = settings.ModelDir
			}
			if target == "" {
				target = filepath.Join(config.AppDir(), "models")
			}

			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			var onProgress provision.ProgressFunc
			if ctx.interactive() {
				onProgress = func(total int64) io.Writer {
					return progressbar.NewOptions64(total,
						progressbar.OptionSetWriter(ctx.deps.stderr),
						progressbar.OptionSetDescription(model.FileName),
						progressbar.OptionShowBytes(true),
						progressbar.OptionSetWidth(30),
						progressbar.OptionOnCompletion(func() { fmt.Fprintln(ctx.deps.stderr) }),
					)
				}
			}

			path, err := ctx.deps.fetcher(logger).Fetch(cmd.Context(), model, target, force, onProgress)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Destination directory (defaults to the configured model directory)")
	cmd.Flags().BoolVar(&force, "force", false, "Download even if the file already exists")
	return cmd
}
