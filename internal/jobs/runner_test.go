package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/progress"
	"audio-transcriber/internal/toolchain"
	"audio-transcriber/internal/transcribe"
)

// fakeTranscriber allows injecting custom run behavior per test.
type fakeTranscriber struct {
	calls atomic.Int32
	run   func(ctx context.Context, req transcribe.Request) (transcribe.Result, error)
}

// Run delegates to injected function.
func (f *fakeTranscriber) Run(ctx context.Context, req transcribe.Request) (transcribe.Result, error) {
	f.calls.Add(1)
	if f.run == nil {
		return transcribe.Result{}, nil
	}
	return f.run(ctx, req)
}

// fakeEstimator returns a fixed estimate.
type fakeEstimator struct {
	seconds float64
	source  domain.EstimateSource
}

func (f fakeEstimator) EstimateOrSize(context.Context, toolchain.Toolchain, string) (float64, domain.EstimateSource) {
	return f.seconds, f.source
}

// blockingEstimator holds EstimateOrSize until release is closed.
type blockingEstimator struct {
	entered chan struct{}
	release chan struct{}
}

func (b blockingEstimator) EstimateOrSize(context.Context, toolchain.Toolchain, string) (float64, domain.EstimateSource) {
	close(b.entered)
	<-b.release
	return 60, domain.EstimateSourceProbe
}

// fakeResolver returns a fixed toolchain or error.
type fakeResolver struct {
	tools toolchain.Toolchain
	err   error
}

func (f fakeResolver) Resolve(string) (toolchain.Toolchain, error) {
	return f.tools, f.err
}

// recorder collects notified events.
type recorder struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Event, 4096)}
}

func (r *recorder) notify(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	select {
	case r.ch <- e:
	default:
	}
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// newTestRunner wires a runner with fakes and a valid model directory.
func newTestRunner(t *testing.T, tr *fakeTranscriber, rec *recorder) (*Runner, StartRequest) {
	t.Helper()
	runner := NewRunner(RunnerConfig{
		Transcriber:  tr,
		Estimator:    fakeEstimator{seconds: 120, source: domain.EstimateSourceProbe},
		Resolver:     fakeResolver{tools: toolchain.Toolchain{FFmpeg: "/opt/bin/ffmpeg"}},
		Notify:       rec.notify,
		TickInterval: 5 * time.Millisecond,
	})
	return runner, StartRequest{
		SourcePath: "/audio/memo.wav",
		Settings: domain.Settings{
			ModelDir:       t.TempDir(),
			WhisperCommand: "whisper-cli",
			Language:       "auto",
		},
	}
}

func waitJob(t *testing.T, runner *Runner) domain.Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	job, err := runner.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	return job
}

// TestRunnerCompletesAndForcesHundred checks the Completed path.
func TestRunnerCompletesAndForcesHundred(t *testing.T) {
	rec := newRecorder()
	runner, req := newTestRunner(t, &fakeTranscriber{run: func(ctx context.Context, r transcribe.Request) (transcribe.Result, error) {
		return transcribe.Result{Transcript: "hello world"}, nil
	}}, rec)

	job, err := runner.Start(req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if job.Status != domain.JobStatusRunning || job.EstimatedSeconds != 120 {
		t.Fatalf("job = %+v", job)
	}

	final := waitJob(t, runner)
	if final.Status != domain.JobStatusCompleted {
		t.Fatalf("status = %s, want completed", final.Status)
	}

	events := rec.all()
	if events[0].Type != EventTypeStatus || events[0].Message != "Transcribing…" {
		t.Fatalf("first event = %+v", events[0])
	}
	last := events[len(events)-1]
	if last.Type != EventTypeResult || last.TranscriptText() != "hello world" {
		t.Fatalf("last event = %+v", last)
	}
	beforeLast := events[len(events)-2]
	if beforeLast.Type != EventTypeProgress || beforeLast.Progress.Percent != progress.Complete {
		t.Fatalf("expected 100%% progress before result, got %+v", beforeLast)
	}
}

// TestRunnerEmptyTranscriptStillCompletes keeps empty output as success.
func TestRunnerEmptyTranscriptStillCompletes(t *testing.T) {
	rec := newRecorder()
	runner, req := newTestRunner(t, &fakeTranscriber{}, rec)

	if _, err := runner.Start(req); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := waitJob(t, runner).Status; got != domain.JobStatusCompleted {
		t.Fatalf("status = %s, want completed", got)
	}

	result, ok := runner.Events().Latest(runner.Jobs().Current().ID, EventTypeResult)
	if !ok || result.Transcript == nil || *result.Transcript != "" {
		t.Fatalf("result event = %+v, %v", result, ok)
	}
}

// TestRunnerFailureReportsMessage checks the Failed path.
func TestRunnerFailureReportsMessage(t *testing.T) {
	rec := newRecorder()
	runner, req := newTestRunner(t, &fakeTranscriber{run: func(ctx context.Context, r transcribe.Request) (transcribe.Result, error) {
		return transcribe.Result{}, errors.New("model load failed")
	}}, rec)

	if _, err := runner.Start(req); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := waitJob(t, runner).Status; got != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed", got)
	}

	events := rec.all()
	last := events[len(events)-1]
	if last.Type != EventTypeError || last.Message != "model load failed" {
		t.Fatalf("last event = %+v", last)
	}
	if p := events[len(events)-2]; p.Type != EventTypeProgress || p.Progress.Percent != progress.Complete {
		t.Fatalf("expected 100%% progress on failure, got %+v", p)
	}
	if runner.Jobs().IsRunning() {
		t.Fatal("failed job should leave runner idle")
	}
}

// TestRunnerSingleJobGuard verifies a second start is refused while running.
func TestRunnerSingleJobGuard(t *testing.T) {
	release := make(chan struct{})
	tr := &fakeTranscriber{run: func(ctx context.Context, r transcribe.Request) (transcribe.Result, error) {
		<-release
		return transcribe.Result{Transcript: "done"}, nil
	}}
	rec := newRecorder()
	runner, req := newTestRunner(t, tr, rec)

	first, err := runner.Start(req)
	if err != nil {
		t.Fatalf("start first job: %v", err)
	}
	if _, err := runner.Start(req); !errors.Is(err, ErrJobAlreadyRunning) {
		t.Fatalf("second start error = %v, want %v", err, ErrJobAlreadyRunning)
	}
	if runner.Jobs().Current().ID != first.ID {
		t.Fatal("running job was replaced")
	}

	close(release)
	waitJob(t, runner)

	if _, err := runner.Start(req); err != nil {
		t.Fatalf("start after completion: %v", err)
	}
	waitJob(t, runner)
	if got := tr.calls.Load(); got != 2 {
		t.Fatalf("transcriber calls = %d, want 2", got)
	}
}

// TestRunnerGuardsDuringEstimate verifies a second start is refused while
// the first is still estimating duration.
func TestRunnerGuardsDuringEstimate(t *testing.T) {
	tr := &fakeTranscriber{run: func(context.Context, transcribe.Request) (transcribe.Result, error) {
		return transcribe.Result{Transcript: "done"}, nil
	}}
	rec := newRecorder()
	runner, req := newTestRunner(t, tr, rec)
	est := blockingEstimator{entered: make(chan struct{}), release: make(chan struct{})}
	runner.estimator = est

	firstErr := make(chan error, 1)
	go func() {
		_, err := runner.Start(req)
		firstErr <- err
	}()
	<-est.entered

	if _, err := runner.Start(req); !errors.Is(err, ErrJobAlreadyRunning) {
		t.Fatalf("start during estimate error = %v, want %v", err, ErrJobAlreadyRunning)
	}

	close(est.release)
	if err := <-firstErr; err != nil {
		t.Fatalf("first start: %v", err)
	}
	waitJob(t, runner)
	if got := tr.calls.Load(); got != 1 {
		t.Fatalf("transcriber calls = %d, want 1", got)
	}
}

// TestRunnerPreconditions checks configuration errors keep the runner idle.
func TestRunnerPreconditions(t *testing.T) {
	tr := &fakeTranscriber{}
	rec := newRecorder()
	runner, valid := newTestRunner(t, tr, rec)

	noFile := valid
	noFile.SourcePath = "  "
	if _, err := runner.Start(noFile); !errors.Is(err, ErrNoFileSelected) {
		t.Fatalf("no file error = %v", err)
	}

	noModel := valid
	noModel.Settings.ModelDir = valid.Settings.ModelDir + "/missing"
	_, err := runner.Start(noModel)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("missing model error = %v", err)
	}

	runner.resolver = fakeResolver{err: toolchain.ErrDecoderNotFound}
	if _, err := runner.Start(valid); !errors.As(err, &cfgErr) || !errors.Is(err, toolchain.ErrDecoderNotFound) {
		t.Fatalf("missing decoder error = %v", err)
	}

	if tr.calls.Load() != 0 {
		t.Fatal("transcriber must not run when preconditions fail")
	}
	if runner.Jobs().Current().Status != domain.JobStatusIdle {
		t.Fatalf("status = %s, want idle", runner.Jobs().Current().Status)
	}
	if len(rec.all()) != 0 {
		t.Fatal("no events expected for refused starts")
	}
}

// TestRunnerProgressTicks covers 42% at 60s of a 120s estimate.
func TestRunnerProgressTicks(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var calls atomic.Int32
	clock := func() time.Time {
		if calls.Add(1) == 1 {
			return base
		}
		return base.Add(60 * time.Second)
	}

	release := make(chan struct{})
	rec := newRecorder()
	runner, req := newTestRunner(t, &fakeTranscriber{run: func(ctx context.Context, r transcribe.Request) (transcribe.Result, error) {
		<-release
		return transcribe.Result{}, nil
	}}, rec)
	runner.now = clock

	if _, err := runner.Start(req); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.After(2 * time.Second)
	ticks := 0
	for ticks < 2 {
		select {
		case e := <-rec.ch:
			if e.Type != EventTypeProgress {
				continue
			}
			if e.Progress.Percent < progress.MinRunning || e.Progress.Percent > progress.MaxRunning {
				t.Fatalf("running percent = %d outside [1,95]", e.Progress.Percent)
			}
			if e.Progress.ElapsedSeconds == 60 {
				if e.Progress.Percent != 42 {
					t.Fatalf("percent at 60s = %d, want 42", e.Progress.Percent)
				}
				ticks++
			}
		case <-deadline:
			t.Fatal("timed out waiting for progress ticks")
		}
	}

	close(release)
	waitJob(t, runner)
}

// TestRunnerPassesResolvedToolchain verifies explicit path injection.
func TestRunnerPassesResolvedToolchain(t *testing.T) {
	var got transcribe.Request
	rec := newRecorder()
	runner, req := newTestRunner(t, &fakeTranscriber{run: func(ctx context.Context, r transcribe.Request) (transcribe.Result, error) {
		got = r
		return transcribe.Result{}, nil
	}}, rec)
	req.Settings.Language = "en"

	if _, err := runner.Start(req); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitJob(t, runner)

	if got.FFmpegPath != "/opt/bin/ffmpeg" || got.WhisperPath != "whisper-cli" || got.Language != "en" {
		t.Fatalf("request = %+v", got)
	}
	if got.InputPath != "/audio/memo.wav" || got.ModelDir != req.Settings.ModelDir {
		t.Fatalf("request paths = %+v", got)
	}
}

// TestRunnerEstimatedStatusMessage flags size-based estimates.
func TestRunnerEstimatedStatusMessage(t *testing.T) {
	rec := newRecorder()
	runner, req := newTestRunner(t, &fakeTranscriber{}, rec)
	runner.estimator = fakeEstimator{seconds: 300, source: domain.EstimateSourceFileSize}

	job, err := runner.Start(req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitJob(t, runner)

	if job.EstimateSource != domain.EstimateSourceFileSize || job.EstimatedSeconds != 300 {
		t.Fatalf("job = %+v", job)
	}
	if first := rec.all()[0]; first.Message != "Transcribing… (estimated)" {
		t.Fatalf("status message = %q", first.Message)
	}
}

// TestRunnerCancel ends a cancelled job as failed.
func TestRunnerCancel(t *testing.T) {
	started := make(chan struct{})
	rec := newRecorder()
	runner, req := newTestRunner(t, &fakeTranscriber{run: func(ctx context.Context, r transcribe.Request) (transcribe.Result, error) {
		close(started)
		<-ctx.Done()
		return transcribe.Result{}, ctx.Err()
	}}, rec)

	if err := runner.Cancel(); !errors.Is(err, ErrNoRunningJob) {
		t.Fatalf("cancel while idle = %v", err)
	}
	if _, err := runner.Start(req); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-started
	if err := runner.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if got := waitJob(t, runner).Status; got != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed", got)
	}
	last := rec.all()[len(rec.all())-1]
	if !strings.Contains(last.Message, context.Canceled.Error()) {
		t.Fatalf("error message = %q", last.Message)
	}
}

// TestRunnerRecoversWorkerPanic converts panics into failures.
func TestRunnerRecoversWorkerPanic(t *testing.T) {
	rec := newRecorder()
	runner, req := newTestRunner(t, &fakeTranscriber{run: func(ctx context.Context, r transcribe.Request) (transcribe.Result, error) {
		panic("segfault in model")
	}}, rec)

	if _, err := runner.Start(req); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := waitJob(t, runner).Status; got != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed", got)
	}
	last := rec.all()[len(rec.all())-1]
	if !strings.Contains(last.Message, "segfault in model") {
		t.Fatalf("error message = %q", last.Message)
	}
}
