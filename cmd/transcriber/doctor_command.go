package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"audio-transcriber/internal/domain"
)

var errDoctorFailed = errors.New("one or more checks failed")

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check ffmpeg, ffprobe, whisper.cpp and the model directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.settings()
			if err != nil {
				return err
			}

			report := ctx.deps.checker().Run(settings)
			rows := make([][]string, 0, len(report.Items))
			for _, item := range report.Items {
				message := item.Message
				if item.Hint != "" && item.Status != domain.DiagnosticStatusPass {
					message += "\n" + item.Hint
				}
				rows = append(rows, []string{item.Name, strings.ToUpper(string(item.Status)), message})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Status", "Detail"}, rows, nil))

			if report.HasFailures {
				return errDoctorFailed
			}
			return nil
		},
	}
}
