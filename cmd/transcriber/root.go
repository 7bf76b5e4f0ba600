package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	return newRootCommandWithDeps(defaultDependencies())
}

func newRootCommandWithDeps(deps dependencies) *cobra.Command {
	ctx := newCommandContext(deps)

	rootCmd := &cobra.Command{
		Use:           "transcriber",
		Short:         "Transcribe audio files with whisper.cpp",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.flags.configPath, "config", "c", "", "Settings file path")
	flags.StringVar(&ctx.flags.modelDir, "model-dir", "", "Directory containing the whisper.cpp model")
	flags.StringVar(&ctx.flags.whisper, "whisper", "", "whisper.cpp CLI executable")
	flags.StringVar(&ctx.flags.ffmpeg, "ffmpeg", "", "ffmpeg executable (overrides PATH and bundled lookup)")
	flags.StringVar(&ctx.flags.language, "language", "", "Spoken language code, or auto")
	flags.StringVar(&ctx.flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&ctx.flags.logFormat, "log-format", "", "Log format (console, json)")

	rootCmd.AddCommand(newTranscribeCommand(ctx))
	rootCmd.AddCommand(newProbeCommand(ctx))
	rootCmd.AddCommand(newFetchModelCommand(ctx))
	rootCmd.AddCommand(newModelsCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))

	return rootCmd
}
