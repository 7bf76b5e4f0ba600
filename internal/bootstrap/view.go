package bootstrap

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/jobs"
	"audio-transcriber/internal/transcript"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// Status lines shown under the drop zone.
const (
	StatusReady         = "Ready"
	StatusLoadedPrefix  = "Loaded: "
	StatusComplete      = "✓ Transcription complete"
	StatusFailed        = "Error during transcription"
	StatusCopied        = "Copied to clipboard"
	StatusSavedPrefix   = "Saved: "
	StatusModelNotFound = "Model not found. Download a model or choose a model directory."
)

// View is the window state rendered by the frontend.
type View struct {
	SelectedFile  string               `json:"selectedFile"`
	Status        string               `json:"status"`
	Transcript    string               `json:"transcript"`
	Busy          bool                 `json:"busy"`
	Progress      domain.ProgressState `json:"progress"`
	CanTranscribe bool                 `json:"canTranscribe"`
	CanExport     bool                 `json:"canExport"`
}

// viewState is the mutable window state; guarded by App.mu.
type viewState struct {
	View
	jobID string
	// exportSource is the audio file the current transcript came from.
	exportSource string
}

func newViewState() viewState {
	return viewState{View: View{Status: StatusReady}}
}

// snapshot derives the enabled flags and returns a copy.
func (s *viewState) snapshot() View {
	v := s.View
	v.CanTranscribe = !v.Busy && strings.TrimSpace(v.SelectedFile) != ""
	if v.Busy {
		v.CanExport = false
	}
	return v
}

// GetView returns the current window state.
func (a *App) GetView() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view.snapshot()
}

// SelectFile makes path the file for the next transcription. Ignored while busy.
func (a *App) SelectFile(path string) View {
	path = strings.TrimSpace(path)

	a.mu.Lock()
	if path == "" || a.view.Busy {
		v := a.view.snapshot()
		a.mu.Unlock()
		return v
	}
	a.view.SelectedFile = path
	a.view.Status = StatusLoadedPrefix + filepath.Base(path)
	v := a.view.snapshot()
	a.mu.Unlock()

	a.logger.Debug("file selected", "path", path)
	a.push(viewEventName, v)
	return v
}

// StartTranscription runs the selected file through the job runner. While a
// job is running the call changes nothing and reports ErrJobAlreadyRunning.
// The view turns busy before duration estimation so the window cannot start
// a second job while the first is still being measured.
func (a *App) StartTranscription() (View, error) {
	a.mu.Lock()
	if a.view.Busy {
		v := a.view.snapshot()
		a.mu.Unlock()
		return v, jobs.ErrJobAlreadyRunning
	}
	source := a.view.SelectedFile
	claimed := strings.TrimSpace(source) != ""
	if claimed {
		a.view.Busy = true
	}
	v := a.view.snapshot()
	a.mu.Unlock()
	if claimed {
		a.push(viewEventName, v)
	}

	settings, err := a.Store.Load()
	if err != nil {
		a.releaseStart(claimed)
		return a.GetView(), fmt.Errorf("load settings: %w", err)
	}

	// Runner.Start notifies synchronously, so a.mu must not be held here.
	_, err = a.Runner.Start(jobs.StartRequest{SourcePath: source, Settings: settings})
	if err == nil {
		return a.GetView(), nil
	}
	a.releaseStart(claimed)

	var cfgErr *jobs.ConfigError
	switch {
	case errors.Is(err, jobs.ErrJobAlreadyRunning):
		return a.GetView(), err
	case errors.Is(err, jobs.ErrModelNotFound):
		a.setStatus(StatusModelNotFound)
	case errors.As(err, &cfgErr):
		a.setStatus(cfgErr.Reason)
	}
	a.logger.Warn("transcription not started", "error", err)
	return a.GetView(), err
}

// releaseStart clears the busy flag set by a start that never reached the runner.
func (a *App) releaseStart(claimed bool) {
	if !claimed {
		return
	}
	a.mu.Lock()
	a.view.Busy = false
	v := a.view.snapshot()
	a.mu.Unlock()
	a.push(viewEventName, v)
}

// CopyTranscript places the transcript on the system clipboard.
func (a *App) CopyTranscript() (View, error) {
	a.mu.Lock()
	v := a.view.snapshot()
	ctx := a.runtimeCtx
	a.mu.Unlock()

	if !v.CanExport {
		return v, transcript.ErrNothingToExport
	}
	if ctx == nil {
		return v, fmt.Errorf("runtime context is not initialized")
	}
	if err := a.clipboardSetText(ctx, v.Transcript); err != nil {
		return v, fmt.Errorf("copy transcript: %w", err)
	}

	a.setStatus(StatusCopied)
	return a.GetView(), nil
}

// SaveTranscript asks for a destination and writes the transcript as UTF-8.
// A cancelled dialog leaves everything unchanged.
func (a *App) SaveTranscript() (View, error) {
	a.mu.Lock()
	v := a.view.snapshot()
	source := a.view.exportSource
	ctx := a.runtimeCtx
	a.mu.Unlock()

	if !v.CanExport {
		return v, transcript.ErrNothingToExport
	}
	if ctx == nil {
		return v, fmt.Errorf("runtime context is not initialized")
	}

	path, err := a.saveDialog(ctx, wailsruntime.SaveDialogOptions{
		Title:           "Save transcript",
		DefaultFilename: transcript.DefaultFileName(source),
		Filters:         transcriptDialogFilter,
	})
	if err != nil {
		return v, err
	}
	if strings.TrimSpace(path) == "" {
		return v, nil
	}
	return a.saveTranscriptTo(path)
}

// saveTranscriptTo writes the current transcript to path.
func (a *App) saveTranscriptTo(path string) (View, error) {
	a.mu.Lock()
	v := a.view.snapshot()
	a.mu.Unlock()

	if !v.CanExport {
		return v, transcript.ErrNothingToExport
	}
	if err := transcript.Save(path, v.Transcript); err != nil {
		return v, err
	}

	a.logger.Info("transcript saved", "path", path, "bytes", len(v.Transcript))
	a.setStatus(StatusSavedPrefix + path)
	return a.GetView(), nil
}

// onJobEvent folds runner events into the view and forwards them to the window.
// It runs on job goroutines.
func (a *App) onJobEvent(ev jobs.Event) {
	a.mu.Lock()
	s := &a.view
	switch ev.Type {
	case jobs.EventTypeStatus:
		if ev.JobID != s.jobID && ev.Status == domain.JobStatusRunning {
			s.jobID = ev.JobID
			s.Busy = true
			s.Status = ev.Message
			s.Transcript = ""
			s.CanExport = false
			s.Progress = domain.ProgressState{}
		}
	case jobs.EventTypeProgress:
		if ev.Progress != nil {
			s.Progress = *ev.Progress
		}
	case jobs.EventTypeResult:
		s.Busy = false
		s.Transcript = ev.TranscriptText()
		s.Status = StatusComplete
		s.CanExport = true
		s.exportSource = s.SelectedFile
		if job := a.Runner.Jobs().Current(); job.ID == ev.JobID {
			s.exportSource = job.SourcePath
		}
	case jobs.EventTypeError:
		s.Busy = false
		s.Transcript = transcript.ErrorText(ev.Message)
		s.Status = StatusFailed
		s.CanExport = false
	}
	v := s.snapshot()
	a.mu.Unlock()

	a.push(jobEventName, ev)
	if ev.Type != jobs.EventTypeLog {
		a.push(viewEventName, v)
	}
}

// setStatus replaces the status line and pushes the new view.
func (a *App) setStatus(status string) {
	a.mu.Lock()
	a.view.Status = status
	v := a.view.snapshot()
	a.mu.Unlock()
	a.push(viewEventName, v)
}
