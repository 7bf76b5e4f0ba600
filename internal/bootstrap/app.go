package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"audio-transcriber/internal/config"
	"audio-transcriber/internal/diagnostics"
	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/duration"
	"audio-transcriber/internal/jobs"
	"audio-transcriber/internal/logging"
	"audio-transcriber/internal/provision"
	"audio-transcriber/internal/toolchain"
	"audio-transcriber/internal/transcribe"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

const (
	windowTitle  = "Whisper Transcriber"
	windowWidth  = 900
	windowHeight = 720

	jobEventName   = "job:event"
	viewEventName  = "view:changed"
	modelEventName = "model:progress"
)

var audioDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Audio files",
		Pattern:     "*.mp3;*.wav;*.m4a;*.m4b;*.flac;*.ogg;*.aac",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

var transcriptDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Text files",
		Pattern:     "*.txt",
	},
}

// diagnosticsRunner produces a report for the given settings.
type diagnosticsRunner interface {
	Run(settings domain.Settings) domain.DiagnosticReport
}

// App wires configuration, the job runner, and UI runtime callbacks.
type App struct {
	Store  config.Store
	Runner *jobs.Runner

	assets  fs.FS
	checker diagnosticsRunner
	fetcher *provision.Fetcher
	logger  *slog.Logger

	// Runtime hooks; replaced in tests.
	clipboardSetText func(ctx context.Context, text string) error
	saveDialog       func(ctx context.Context, opts wailsruntime.SaveDialogOptions) (string, error)
	emit             func(ctx context.Context, name string, data ...interface{})

	mu          sync.Mutex
	settings    domain.Settings
	diagnostics domain.DiagnosticReport
	view        viewState
	runtimeCtx  context.Context
}

// New builds the application serving frontend assets from disk.
func New(logger *slog.Logger) (*App, error) {
	return NewWithAssets(nil, logger)
}

// NewWithAssets builds the application with persisted settings, startup
// diagnostics and optionally embedded frontend assets.
func NewWithAssets(assets fs.FS, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	store := config.EnvStore{Store: config.NewJSONStore(config.SettingsPath())}
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	resolver := toolchain.NewResolver()
	checker := diagnostics.NewChecker(resolver)

	app := newApp(store, checker, logger)
	app.assets = assets
	app.fetcher = provision.NewFetcher(logger.With("component", "provision"))
	app.Runner = jobs.NewRunner(jobs.RunnerConfig{
		Transcriber: transcribe.NewPipeline(),
		Estimator:   duration.NewEstimator(logger.With("component", "duration")),
		Resolver:    resolver,
		Logger:      logger.With("component", "jobs"),
		Notify:      app.onJobEvent,
	})
	app.settings = settings
	app.diagnostics = checker.Run(settings)
	logDiagnostics(logger, app.diagnostics)

	return app, nil
}

// newApp fills the fields shared by production and test construction.
func newApp(store config.Store, checker diagnosticsRunner, logger *slog.Logger) *App {
	return &App{
		Store:            store,
		checker:          checker,
		logger:           logger,
		clipboardSetText: wailsruntime.ClipboardSetText,
		saveDialog:       wailsruntime.SaveFileDialog,
		emit:             wailsruntime.EventsEmit,
		view:             newViewState(),
	}
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       windowTitle,
		Width:       windowWidth,
		Height:      windowHeight,
		AssetServer: assetOptions,
		DragAndDrop: &options.DragAndDrop{
			EnableFileDrop: true,
		},
		OnStartup: a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores the Wails runtime context and subscribes to file drops.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	a.runtimeCtx = ctx
	a.mu.Unlock()

	wailsruntime.OnFileDrop(ctx, func(_, _ int, paths []string) {
		if len(paths) == 0 {
			return
		}
		a.SelectFile(paths[0])
	})
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.diagnostics
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	return a.refreshDiagnosticsFromSettings(settings), nil
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := config.Normalize(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.refreshDiagnosticsFromSettings(normalized)
	return normalized, nil
}

// PickAudioFile opens a native file dialog and selects the chosen file.
func (a *App) PickAudioFile() (View, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return a.GetView(), err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select audio file",
		Filters: audioDialogFilter,
	})
	if err != nil {
		return a.GetView(), err
	}
	if strings.TrimSpace(path) == "" {
		return a.GetView(), nil
	}

	return a.SelectFile(path), nil
}

// PickModelDirectory opens a native directory picker and stores the choice.
func (a *App) PickModelDirectory() (domain.Settings, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return domain.Settings{}, err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select model directory",
	})
	if err != nil {
		return domain.Settings{}, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return a.GetSettings()
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings.ModelDir = path
	return a.SaveSettings(settings)
}

// CurrentJob returns current job metadata and status.
func (a *App) CurrentJob() domain.Job {
	return a.Runner.Jobs().Current()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.Runner.Events().Since(sinceSeq)
}

// refreshDiagnosticsFromSettings caches settings and a fresh report.
func (a *App) refreshDiagnosticsFromSettings(settings domain.Settings) domain.DiagnosticReport {
	var report domain.DiagnosticReport
	if a.checker != nil {
		report = a.checker.Run(settings)
	}

	a.mu.Lock()
	a.settings = settings
	a.diagnostics = report
	a.mu.Unlock()

	logDiagnostics(a.logger, report)
	return report
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// push emits a runtime event when the window is up.
func (a *App) push(name string, data interface{}) {
	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil && a.emit != nil {
		a.emit(ctx, name, data)
	}
}

func logDiagnostics(logger *slog.Logger, report domain.DiagnosticReport) {
	for _, item := range report.Items {
		switch item.Status {
		case domain.DiagnosticStatusFail:
			logger.Warn("diagnostic failed", "check", item.ID, "message", item.Message)
		case domain.DiagnosticStatusWarn:
			logger.Info("diagnostic warning", "check", item.ID, "message", item.Message)
		default:
			logger.Debug("diagnostic passed", "check", item.ID, "message", item.Message)
		}
	}
}
