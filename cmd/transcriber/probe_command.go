package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/progress"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <audio-file>",
		Short: "Show the duration estimate used for progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			info, err := os.Stat(source)
			if err != nil {
				return fmt.Errorf("inspect file: %w", err)
			}

			settings, err := ctx.settings()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			tools, err := ctx.deps.resolver.Resolve(settings.FFmpegPath)
			if err != nil {
				logger.Warn("decoder unavailable, probing without it", "error", err)
			}

			seconds, estimateSource := ctx.deps.estimator(logger).EstimateOrSize(cmd.Context(), tools, source)
			rows := [][]string{
				{"File", filepath.Base(source)},
				{"Size", humanize.IBytes(uint64(info.Size()))},
				{"Duration", formatSeconds(seconds)},
				{"Source", describeSource(estimateSource)},
				{"Bar fills at", formatSeconds(seconds * progress.PadFactor)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}

func describeSource(source domain.EstimateSource) string {
	if source == domain.EstimateSourceFileSize {
		return "file size (estimated)"
	}
	return "media metadata"
}

func formatSeconds(seconds float64) string {
	return (time.Duration(seconds*float64(time.Second))).Round(time.Second).String()
}
