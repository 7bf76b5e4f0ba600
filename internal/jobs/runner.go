package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/logging"
	"audio-transcriber/internal/progress"
	"audio-transcriber/internal/toolchain"
	"audio-transcriber/internal/transcribe"
)

// ErrNoFileSelected is returned when a job is requested without a source file.
var ErrNoFileSelected = errors.New("no audio file selected")

// ErrModelNotFound marks a missing model directory.
var ErrModelNotFound = errors.New("model directory not found")

// ConfigError reports a precondition failure that prevents a job from starting.
// The job is never attempted and the runner stays idle.
type ConfigError struct {
	Reason string
	Err    error
}

// Error returns the user-facing reason.
func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}
	return e.Reason
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Transcriber performs the blocking transcription call.
type Transcriber interface {
	Run(ctx context.Context, req transcribe.Request) (transcribe.Result, error)
}

// DurationEstimator supplies the total-seconds estimate used for progress.
type DurationEstimator interface {
	EstimateOrSize(ctx context.Context, tools toolchain.Toolchain, path string) (float64, domain.EstimateSource)
}

// ToolchainResolver locates the decoder executables for a job.
type ToolchainResolver interface {
	Resolve(override string) (toolchain.Toolchain, error)
}

// StartRequest describes one user-triggered transcription.
type StartRequest struct {
	SourcePath string
	Settings   domain.Settings
}

// RunnerConfig wires a Runner's collaborators. Nil optional fields get defaults.
type RunnerConfig struct {
	Jobs        *Manager
	Events      *EventBus
	Transcriber Transcriber
	Estimator   DurationEstimator
	Resolver    ToolchainResolver
	Logger      *slog.Logger
	// Notify receives every published event. It is called from job goroutines
	// and must be safe for concurrent use.
	Notify       func(Event)
	TickInterval time.Duration
	Now          func() time.Time
	Stat         func(string) (os.FileInfo, error)
}

// Runner orchestrates one transcription at a time: it checks preconditions,
// estimates duration, runs the blocking call on a worker goroutine and drives
// progress events from a ticker owned by the job's supervising goroutine.
type Runner struct {
	jobs        *Manager
	events      *EventBus
	transcriber Transcriber
	estimator   DurationEstimator
	resolver    ToolchainResolver
	logger      *slog.Logger
	notify      func(Event)
	tick        time.Duration
	now         func() time.Time
	stat        func(string) (os.FileInfo, error)

	mu       sync.Mutex
	starting bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// outcome is the single tagged result handed from worker to supervisor.
type outcome struct {
	text string
	err  error
}

// NewRunner builds a Runner from cfg.
func NewRunner(cfg RunnerConfig) *Runner {
	r := &Runner{
		jobs:        cfg.Jobs,
		events:      cfg.Events,
		transcriber: cfg.Transcriber,
		estimator:   cfg.Estimator,
		resolver:    cfg.Resolver,
		logger:      cfg.Logger,
		notify:      cfg.Notify,
		tick:        cfg.TickInterval,
		now:         cfg.Now,
		stat:        cfg.Stat,
	}
	if r.jobs == nil {
		r.jobs = NewManager()
	}
	if r.events == nil {
		r.events = NewEventBus(1000)
	}
	if r.logger == nil {
		r.logger = logging.Discard()
	}
	if r.tick <= 0 {
		r.tick = progress.TickInterval
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.stat == nil {
		r.stat = os.Stat
	}
	return r
}

// Jobs exposes the underlying state machine.
func (r *Runner) Jobs() *Manager {
	return r.jobs
}

// Events exposes the event history.
func (r *Runner) Events() *EventBus {
	return r.events
}

// Start validates preconditions and launches a job. It returns without
// waiting for the transcription to finish. A second Start made while the
// first is still estimating duration is rejected like one made mid-run.
func (r *Runner) Start(req StartRequest) (domain.Job, error) {
	r.mu.Lock()
	if r.starting || r.jobs.IsRunning() {
		r.mu.Unlock()
		return domain.Job{}, ErrJobAlreadyRunning
	}
	r.starting = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.starting = false
		r.mu.Unlock()
	}()

	source := strings.TrimSpace(req.SourcePath)
	if source == "" {
		return domain.Job{}, ErrNoFileSelected
	}

	modelDir := strings.TrimSpace(req.Settings.ModelDir)
	if info, err := r.stat(modelDir); modelDir == "" || err != nil || !info.IsDir() {
		return domain.Job{}, &ConfigError{
			Reason: fmt.Sprintf("model directory not found: %s", modelDir),
			Err:    ErrModelNotFound,
		}
	}

	tools, err := r.resolver.Resolve(req.Settings.FFmpegPath)
	if err != nil {
		return domain.Job{}, &ConfigError{Reason: err.Error(), Err: err}
	}

	estimate, estimateSource := r.estimator.EstimateOrSize(context.Background(), tools, source)
	job := domain.Job{
		ID:               uuid.NewString(),
		SourcePath:       source,
		ModelDir:         modelDir,
		StartedAt:        r.now(),
		EstimatedSeconds: estimate,
		EstimateSource:   estimateSource,
	}
	if err := r.jobs.Start(job); err != nil {
		return domain.Job{}, err
	}
	job.Status = domain.JobStatusRunning

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.mu.Lock()
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	logger := r.logger.With("job_id", job.ID)
	logger.Info("transcription started",
		"source", filepath.Base(source),
		"estimate_s", estimate,
		"estimate_source", string(estimateSource),
		"ffmpeg", tools.FFmpeg,
	)

	r.publish(Event{
		JobID:   job.ID,
		Type:    EventTypeStatus,
		Status:  domain.JobStatusRunning,
		Message: StartedMessage(estimateSource),
	})
	initial := progress.Running(0, estimate)
	r.publish(Event{JobID: job.ID, Type: EventTypeProgress, Progress: &initial})

	request := transcribe.Request{
		InputPath:   source,
		ModelDir:    modelDir,
		Language:    req.Settings.Language,
		FFmpegPath:  tools.FFmpeg,
		WhisperPath: req.Settings.WhisperCommand,
		OnStage: func(stage string) {
			logger.Debug("pipeline stage", "stage", stage)
			r.publish(Event{JobID: job.ID, Type: EventTypeStatus, Status: domain.JobStatusRunning, Message: "Running " + stage + " stage"})
		},
		OnLog: func(log transcribe.CommandLog) {
			logger.Debug("command completed", "command", log.Command, "exit_code", log.ExitCode)
			r.publish(Event{
				JobID:    job.ID,
				Type:     EventTypeLog,
				Message:  "Command completed",
				Command:  log.Command,
				Args:     log.Args,
				ExitCode: log.ExitCode,
				Stderr:   log.Stderr,
			})
		},
	}

	go r.supervise(ctx, cancel, done, job, request, logger)
	return job, nil
}

// supervise owns the ticker for one job and waits for the worker's outcome.
// Ticker and worker are both gone when it returns.
func (r *Runner) supervise(
	ctx context.Context,
	cancel context.CancelFunc,
	done chan struct{},
	job domain.Job,
	request transcribe.Request,
	logger *slog.Logger,
) {
	defer close(done)
	defer cancel()

	outcomes := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				outcomes <- outcome{err: fmt.Errorf("transcription panicked: %v", rec)}
			}
		}()
		result, err := r.transcriber.Run(ctx, request)
		outcomes <- outcome{text: result.Transcript, err: err}
	}()

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			state := progress.Running(r.elapsed(job), job.EstimatedSeconds)
			r.publish(Event{JobID: job.ID, Type: EventTypeProgress, Progress: &state})
		case out := <-outcomes:
			ticker.Stop()
			r.finish(job, out, logger)
			return
		}
	}
}

// finish records the terminal state, then publishes the final progress and
// the result or error. The manager is updated first so subscribers observe
// an idle runner when the terminal events arrive.
func (r *Runner) finish(job domain.Job, out outcome, logger *slog.Logger) {
	elapsed := r.elapsed(job)
	final := progress.Finished(elapsed, job.EstimatedSeconds)

	if out.err != nil {
		_ = r.jobs.Finish(domain.JobStatusFailed)
		r.clearActive()

		logger.Error("transcription failed", "elapsed_s", elapsed, "error", out.err)
		var pipelineErr *transcribe.PipelineError
		if errors.As(out.err, &pipelineErr) && pipelineErr.CommandLog.Command != "" {
			logger.Debug("failed command",
				"command", pipelineErr.CommandLog.Command,
				"exit_code", pipelineErr.CommandLog.ExitCode,
				"stderr", pipelineErr.CommandLog.Stderr,
			)
		}

		r.publish(Event{JobID: job.ID, Type: EventTypeProgress, Progress: &final})
		r.publish(Event{
			JobID:   job.ID,
			Type:    EventTypeError,
			Status:  domain.JobStatusFailed,
			Message: out.err.Error(),
		})
		return
	}

	_ = r.jobs.Finish(domain.JobStatusCompleted)
	r.clearActive()

	logger.Info("transcription completed", "elapsed_s", elapsed, "chars", len(out.text))
	text := out.text
	r.publish(Event{JobID: job.ID, Type: EventTypeProgress, Progress: &final})
	r.publish(Event{
		JobID:      job.ID,
		Type:       EventTypeResult,
		Status:     domain.JobStatusCompleted,
		Message:    "Transcription complete",
		Transcript: &text,
	})
}

// Cancel aborts the running job's context. The GUI does not expose this; the
// CLI calls it on interrupt. A job cancelled this way ends as failed.
func (r *Runner) Cancel() error {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()

	if cancel == nil || !r.jobs.IsRunning() {
		return ErrNoRunningJob
	}
	cancel()
	return nil
}

// Wait blocks until the most recently started job finishes or ctx ends,
// and returns that job's final snapshot.
func (r *Runner) Wait(ctx context.Context) (domain.Job, error) {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	if done == nil {
		return r.jobs.Current(), nil
	}
	select {
	case <-done:
		return r.jobs.Current(), nil
	case <-ctx.Done():
		return r.jobs.Current(), ctx.Err()
	}
}

// StartedMessage is the status line shown when a job enters running.
func StartedMessage(source domain.EstimateSource) string {
	if source == domain.EstimateSourceFileSize {
		return "Transcribing… (estimated)"
	}
	return "Transcribing…"
}

func (r *Runner) elapsed(job domain.Job) float64 {
	return r.now().Sub(job.StartedAt).Seconds()
}

func (r *Runner) clearActive() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancel = nil
}

// publish stores an event and forwards it to the notify hook.
func (r *Runner) publish(event Event) {
	published := r.events.Publish(event)
	if r.notify != nil {
		r.notify(published)
	}
}
