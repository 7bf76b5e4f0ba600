package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Stage names reported through Request.OnStage and PipelineError.Stage.
const (
	StagePreprocessing = "preprocessing"
	StageTranscribing  = "transcribing"
	StageReading       = "reading"
)

// Request contains input audio, resolved executables and callbacks for one run.
type Request struct {
	InputPath   string
	ModelDir    string
	Language    string
	FFmpegPath  string
	WhisperPath string
	OnStage     func(stage string)
	OnLog       func(log CommandLog)
}

// Result contains the transcript text and the command logs of one run.
type Result struct {
	Transcript string
	ModelPath  string
	Logs       []CommandLog
}

// CommandLog captures one external command invocation result.
type CommandLog struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exitCode"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

// PipelineError is a stage-aware error with optional command context.
type PipelineError struct {
	Stage      string     `json:"stage"`
	Message    string     `json:"message"`
	CommandLog CommandLog `json:"commandLog"`
	Err        error      `json:"-"`
}

// Error formats pipeline failures for logs and UI.
func (e *PipelineError) Error() string {
	if e == nil {
		return ""
	}
	if e.CommandLog.Command == "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}

	detail := lastLine(e.CommandLog.Stderr)
	if detail == "" {
		return fmt.Sprintf("%s: %s (exit %d)", e.Stage, e.Message, e.CommandLog.ExitCode)
	}
	return fmt.Sprintf("%s: %s (exit %d): %s", e.Stage, e.Message, e.CommandLog.ExitCode, detail)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		return result, err
	}

	return result, nil
}

// Pipeline runs the blocking transcription call: ffmpeg resampling followed by
// whisper.cpp. Executable paths arrive in the Request; nothing is read from PATH
// that the caller did not resolve.
type Pipeline struct {
	runner    commandRunner
	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(path string) error
	stat      func(name string) (os.FileInfo, error)
	readDir   func(name string) ([]os.DirEntry, error)
	readFile  func(name string) ([]byte, error)
}

// NewPipeline constructs the production pipeline with OS dependencies.
func NewPipeline() *Pipeline {
	return &Pipeline{
		runner:    &execRunner{},
		mkdirTemp: os.MkdirTemp,
		removeAll: os.RemoveAll,
		stat:      os.Stat,
		readDir:   os.ReadDir,
		readFile:  os.ReadFile,
	}
}

// Run converts the input to 16 kHz mono WAV, transcribes it and returns the text.
// The temporary workspace is removed before Run returns.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.InputPath) == "" {
		return Result{}, &PipelineError{
			Stage:   StagePreprocessing,
			Message: "input audio path is required",
		}
	}
	if _, err := p.stat(req.InputPath); err != nil {
		return Result{}, &PipelineError{
			Stage:   StagePreprocessing,
			Message: fmt.Sprintf("cannot access input audio: %s", req.InputPath),
			Err:     err,
		}
	}
	if strings.TrimSpace(req.FFmpegPath) == "" {
		return Result{}, &PipelineError{
			Stage:   StagePreprocessing,
			Message: "ffmpeg path is required",
		}
	}
	whisperPath := strings.TrimSpace(req.WhisperPath)
	if whisperPath == "" {
		return Result{}, &PipelineError{
			Stage:   StageTranscribing,
			Message: "whisper command is required",
		}
	}

	modelPath, err := p.resolveModelPath(req.ModelDir)
	if err != nil {
		return Result{}, &PipelineError{
			Stage:   StageTranscribing,
			Message: err.Error(),
			Err:     err,
		}
	}

	tempDir, err := p.mkdirTemp("", "audio-transcriber-*")
	if err != nil {
		return Result{}, &PipelineError{
			Stage:   StagePreprocessing,
			Message: "failed to create temporary workspace",
			Err:     err,
		}
	}
	defer func() { _ = p.removeAll(tempDir) }()

	wavPath := filepath.Join(tempDir, "input-16k-mono.wav")
	emitStage(req.OnStage, StagePreprocessing)
	args := buildFFmpegArgs(req.InputPath, wavPath)

	ffmpegLog, runErr := p.run(ctx, req.FFmpegPath, args, req.OnLog)
	if runErr != nil {
		return Result{}, &PipelineError{
			Stage:      StagePreprocessing,
			Message:    "ffmpeg audio conversion failed",
			CommandLog: ffmpegLog,
			Err:        runErr,
		}
	}
	if _, err := p.stat(wavPath); err != nil {
		return Result{}, &PipelineError{
			Stage:      StagePreprocessing,
			Message:    "ffmpeg completed but output file is missing",
			CommandLog: ffmpegLog,
			Err:        err,
		}
	}

	textBase := filepath.Join(tempDir, "transcript")
	emitStage(req.OnStage, StageTranscribing)
	whisperArgs := buildWhisperArgs(modelPath, wavPath, textBase, req.Language)

	whisperLog, runErr := p.run(ctx, whisperPath, whisperArgs, req.OnLog)
	if runErr != nil {
		return Result{}, &PipelineError{
			Stage:      StageTranscribing,
			Message:    "whisper.cpp transcription failed",
			CommandLog: whisperLog,
			Err:        runErr,
		}
	}

	emitStage(req.OnStage, StageReading)
	textPath := textBase + ".txt"
	content, err := p.readFile(textPath)
	if err != nil {
		return Result{}, &PipelineError{
			Stage:      StageReading,
			Message:    "whisper.cpp completed but transcript file is missing",
			CommandLog: whisperLog,
			Err:        err,
		}
	}

	return Result{
		Transcript: strings.TrimSpace(string(content)),
		ModelPath:  modelPath,
		Logs:       []CommandLog{ffmpegLog, whisperLog},
	}, nil
}

// run executes one command and reports its log before returning.
func (p *Pipeline) run(ctx context.Context, name string, args []string, onLog func(CommandLog)) (CommandLog, error) {
	res, err := p.runner.Run(ctx, name, args...)
	log := CommandLog{
		Command:  name,
		Args:     args,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	}
	emitLog(onLog, log)
	return log, err
}

// emitStage forwards stage updates when callback is configured.
func emitStage(cb func(stage string), stage string) {
	if cb != nil {
		cb(stage)
	}
}

// emitLog forwards command logs when callback is configured.
func emitLog(cb func(log CommandLog), log CommandLog) {
	if cb != nil {
		cb(log)
	}
}

// resolveModelPath returns a model file from a file or directory input.
func (p *Pipeline) resolveModelPath(rawPath string) (string, error) {
	modelPath := strings.TrimSpace(rawPath)
	if modelPath == "" {
		return "", fmt.Errorf("model directory is required")
	}

	info, err := p.stat(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot access model path: %s", modelPath)
	}
	if !info.IsDir() {
		return modelPath, nil
	}

	entries, err := p.readDir(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot read model directory: %s", modelPath)
	}

	modelNames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if IsModelFile(entry.Name()) {
			modelNames = append(modelNames, entry.Name())
		}
	}
	if len(modelNames) == 0 {
		return "", fmt.Errorf("no .bin or .gguf model files found in: %s", modelPath)
	}

	sort.Strings(modelNames)
	return filepath.Join(modelPath, modelNames[0]), nil
}

// IsModelFile reports whether name carries a whisper.cpp model extension.
func IsModelFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".bin" || ext == ".gguf"
}

// normalizeLanguage maps "auto" and empty language to no CLI override.
func normalizeLanguage(raw string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}

// buildFFmpegArgs builds preprocessing CLI args for mono 16k PCM WAV output.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}
}

// buildWhisperArgs builds whisper.cpp args for plain text output without timestamps.
func buildWhisperArgs(modelPath, audioPath, textBase, language string) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", textBase,
		"-otxt",
		"-nt",
	}

	if lang := normalizeLanguage(language); lang != "" {
		args = append(args, "-l", lang)
	}

	return args
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// NewPipelineForTests constructs a pipeline with injectable dependencies.
func NewPipelineForTests(
	runner commandRunner,
	mkdirTemp func(dir, pattern string) (string, error),
	removeAll func(path string) error,
	stat func(name string) (os.FileInfo, error),
) *Pipeline {
	return &Pipeline{
		runner:    runner,
		mkdirTemp: mkdirTemp,
		removeAll: removeAll,
		stat:      stat,
		readDir:   os.ReadDir,
		readFile:  os.ReadFile,
	}
}
