package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"audio-transcriber/internal/config"
	"audio-transcriber/internal/diagnostics"
	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/duration"
	"audio-transcriber/internal/jobs"
	"audio-transcriber/internal/logging"
	"audio-transcriber/internal/provision"
	"audio-transcriber/internal/toolchain"
	"audio-transcriber/internal/transcribe"
)

// durationProbe is the part of duration.Estimator the CLI uses.
type durationProbe interface {
	Estimate(ctx context.Context, tools toolchain.Toolchain, path string) (float64, bool)
	EstimateOrSize(ctx context.Context, tools toolchain.Toolchain, path string) (float64, domain.EstimateSource)
}

type diagnosticsRunner interface {
	Run(settings domain.Settings) domain.DiagnosticReport
}

// dependencies are the collaborators commands build on; tests replace them.
type dependencies struct {
	resolver    jobs.ToolchainResolver
	transcriber jobs.Transcriber
	estimator   func(logger *slog.Logger) durationProbe
	checker     func() diagnosticsRunner
	fetcher     func(logger *slog.Logger) *provision.Fetcher
	isTerminal  func(w io.Writer) bool
	stderr      io.Writer
}

func defaultDependencies() dependencies {
	resolver := toolchain.NewResolver()
	return dependencies{
		resolver:    resolver,
		transcriber: transcribe.NewPipeline(),
		estimator: func(logger *slog.Logger) durationProbe {
			return duration.NewEstimator(logger)
		},
		checker: func() diagnosticsRunner {
			return diagnostics.NewChecker(resolver)
		},
		fetcher:    provision.NewFetcher,
		isTerminal: logging.IsTerminal,
		stderr:     os.Stderr,
	}
}

type globalFlags struct {
	configPath string
	modelDir   string
	whisper    string
	ffmpeg     string
	language   string
	logLevel   string
	logFormat  string
}

type commandContext struct {
	deps  dependencies
	flags globalFlags

	loggerOnce sync.Once
	log        *slog.Logger
	logCloser  io.Closer
	logErr     error
}

func newCommandContext(deps dependencies) *commandContext {
	return &commandContext{deps: deps}
}

// settings loads the settings file, applies TRANSCRIBER_* variables, then
// applies any command-line overrides.
func (c *commandContext) settings() (domain.Settings, error) {
	path := strings.TrimSpace(c.flags.configPath)
	if path == "" {
		path = config.SettingsPath()
	}
	settings, err := config.EnvStore{Store: config.NewJSONStore(path)}.Load()
	if err != nil {
		return domain.Settings{}, err
	}

	if v := strings.TrimSpace(c.flags.modelDir); v != "" {
		settings.ModelDir = v
	}
	if v := strings.TrimSpace(c.flags.whisper); v != "" {
		settings.WhisperCommand = v
	}
	if v := strings.TrimSpace(c.flags.ffmpeg); v != "" {
		settings.FFmpegPath = v
	}
	if v := strings.TrimSpace(c.flags.language); v != "" {
		settings.Language = v
	}
	return config.Normalize(settings), nil
}

// logger builds the process logger once. Flags win over environment values.
func (c *commandContext) logger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		rt, err := config.LoadRuntime()
		if err != nil {
			c.logErr = err
			return
		}
		if c.flags.logLevel != "" {
			rt.LogLevel = c.flags.logLevel
		}
		if c.flags.logFormat != "" {
			rt.LogFormat = c.flags.logFormat
		}
		c.log, c.logCloser, c.logErr = logging.New(logging.Options{
			Level:  rt.LogLevel,
			Format: rt.LogFormat,
			File:   rt.LogFile,
			Output: c.deps.stderr,
		})
	})
	return c.log, c.logErr
}

func (c *commandContext) close() {
	if c.logCloser != nil {
		_ = c.logCloser.Close()
	}
}

func (c *commandContext) interactive() bool {
	return c.deps.isTerminal != nil && c.deps.isTerminal(c.deps.stderr)
}
