package diagnostics

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/toolchain"
	"audio-transcriber/internal/transcribe"
)

// toolchainResolver is satisfied by *toolchain.Resolver.
type toolchainResolver interface {
	Resolve(override string) (toolchain.Toolchain, error)
}

// Checker validates external tools and the model directory.
type Checker struct {
	resolver toolchainResolver
	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
	readDir  func(string) ([]os.DirEntry, error)
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker(resolver *toolchain.Resolver) *Checker {
	return &Checker{
		resolver: resolver,
		lookPath: exec.LookPath,
		stat:     os.Stat,
		readDir:  os.ReadDir,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	tools, toolErr := c.resolver.Resolve(settings.FFmpegPath)
	items := []domain.DiagnosticItem{
		checkDecoder(tools, toolErr),
		checkProbe(tools, toolErr),
		c.checkWhisper(settings.WhisperCommand),
		c.checkModelDir(settings.ModelDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkDecoder reports where ffmpeg was found.
func checkDecoder(tools toolchain.Toolchain, err error) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: "tool_ffmpeg", Name: "ffmpeg"}
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = err.Error()
		item.Hint = "Install ffmpeg (macOS: brew install ffmpeg) or set its path in settings."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	if tools.Bundled {
		item.Message = fmt.Sprintf("Using bundled ffmpeg at %s", tools.FFmpeg)
	} else {
		item.Message = fmt.Sprintf("Found at %s", tools.FFmpeg)
	}
	return item
}

// checkProbe reports ffprobe availability; missing ffprobe only degrades estimates.
func checkProbe(tools toolchain.Toolchain, err error) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: "tool_ffprobe", Name: "ffprobe"}
	switch {
	case err == nil && tools.HasProbe():
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("Found at %s", tools.FFprobe)
	default:
		item.Status = domain.DiagnosticStatusWarn
		item.Message = "ffprobe not found; durations are read from the ffmpeg banner or estimated from file size."
	}
	return item
}

// checkWhisper verifies the whisper.cpp CLI is executable.
func (c *Checker) checkWhisper(command string) domain.DiagnosticItem {
	name := strings.TrimSpace(command)
	item := domain.DiagnosticItem{ID: "tool_whisper", Name: "whisper.cpp"}
	if name == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Whisper command is empty."
		item.Hint = "Set the whisper.cpp CLI (for example whisper-cli) in settings."
		return item
	}

	path, err := c.lookPath(name)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Tool not found: %s", name)
		item.Hint = "Install whisper.cpp and ensure the CLI is on PATH or configure its absolute path."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Found at %s", path)
	return item
}

// checkModelDir validates the configured model directory.
func (c *Checker) checkModelDir(modelDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "model_dir",
		Name: "Model directory",
	}

	if strings.TrimSpace(modelDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Model directory is empty."
		item.Hint = "Choose a directory containing a whisper.cpp model, or run `transcriber fetch-model`."
		return item
	}

	info, err := c.stat(modelDir)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		if errors.Is(err, os.ErrNotExist) {
			item.Message = fmt.Sprintf("Model directory does not exist: %s", modelDir)
		} else {
			item.Message = fmt.Sprintf("Cannot access model directory: %s", modelDir)
		}
		item.Hint = "Download a model with `transcriber fetch-model` or pick another directory."
		return item
	}
	if !info.IsDir() {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Model path is not a directory: %s", modelDir)
		item.Hint = "Point settings at the directory that holds the model file."
		return item
	}

	entries, err := c.readDir(modelDir)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot read model directory: %s", modelDir)
		item.Hint = "Check permissions for the model directory."
		return item
	}

	for _, entry := range entries {
		if !entry.IsDir() && transcribe.IsModelFile(entry.Name()) {
			item.Status = domain.DiagnosticStatusPass
			item.Message = fmt.Sprintf("Model directory is valid: %s", modelDir)
			return item
		}
	}

	item.Status = domain.DiagnosticStatusFail
	item.Message = fmt.Sprintf("No model files found in directory: %s", modelDir)
	item.Hint = "Place a .bin or .gguf model file in this directory."
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	resolver toolchainResolver,
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	readDir func(string) ([]os.DirEntry, error),
) *Checker {
	return &Checker{
		resolver: resolver,
		lookPath: lookPath,
		stat:     stat,
		readDir:  readDir,
	}
}
