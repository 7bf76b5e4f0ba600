package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/jobs"
	"audio-transcriber/internal/transcript"
)

type transcribeOptions struct {
	output     string
	outputDir  string
	noProgress bool
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var opts transcribeOptions

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe one audio file and print or save the text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, ctx, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the transcript to this file instead of stdout")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Write \"<name> - Transcript.txt\" into this directory")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable the progress bar")
	return cmd
}

func runTranscribe(cmd *cobra.Command, ctx *commandContext, input string, opts transcribeOptions) error {
	source, err := filepath.Abs(input)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file does not exist: %s", source)
		}
		return fmt.Errorf("inspect file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", source)
	}

	settings, err := ctx.settings()
	if err != nil {
		return err
	}
	logger, err := ctx.logger()
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if !opts.noProgress && ctx.interactive() {
		bar = newJobBar(ctx.deps.stderr)
	}

	runner := jobs.NewRunner(jobs.RunnerConfig{
		Transcriber: ctx.deps.transcriber,
		Estimator:   ctx.deps.estimator(logger),
		Resolver:    ctx.deps.resolver,
		Logger:      logger,
		Notify: func(ev jobs.Event) {
			if bar != nil && ev.Type == jobs.EventTypeProgress && ev.Progress != nil {
				_ = bar.Set(ev.Progress.Percent)
			}
		},
	})

	job, err := runner.Start(jobs.StartRequest{SourcePath: source, Settings: settings})
	if err != nil {
		return err
	}
	if bar != nil {
		bar.Describe(jobs.StartedMessage(job.EstimateSource))
	}

	final := waitForJob(cmd.Context(), runner)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(ctx.deps.stderr)
	}

	if final.Status != domain.JobStatusCompleted {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		ev, _ := runner.Events().Latest(job.ID, jobs.EventTypeError)
		return fmt.Errorf("transcription failed: %s", ev.Message)
	}

	ev, _ := runner.Events().Latest(job.ID, jobs.EventTypeResult)
	return writeTranscript(cmd.OutOrStdout(), source, ev.TranscriptText(), opts)
}

// waitForJob blocks until the runner is idle, cancelling the job when ctx ends.
func waitForJob(ctx context.Context, runner *jobs.Runner) domain.Job {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = runner.Cancel()
		case <-done:
		}
	}()

	final, _ := runner.Wait(context.Background())
	close(done)
	return final
}

func writeTranscript(stdout io.Writer, source, text string, opts transcribeOptions) error {
	target := strings.TrimSpace(opts.output)
	if target == "" && strings.TrimSpace(opts.outputDir) != "" {
		target = filepath.Join(opts.outputDir, transcript.DefaultFileName(source))
	}

	if target == "" || target == "-" {
		if text == "" {
			return nil
		}
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		_, err := io.WriteString(stdout, text)
		return err
	}

	if err := transcript.Save(target, text); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Saved: %s\n", target)
	return nil
}

func newJobBar(w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Starting…"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
}
