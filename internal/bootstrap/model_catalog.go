package bootstrap

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"audio-transcriber/internal/config"
	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/provision"
	"audio-transcriber/internal/toolchain"
)

// ModelProgress is pushed while a model download is in flight.
type ModelProgress struct {
	ModelID string `json:"modelId"`
	Written int64  `json:"written"`
	Total   int64  `json:"total"`
	Percent int    `json:"percent"`
}

// GetWhisperModels returns downloadable whisper.cpp models, marking those
// already present in the configured, bundled or per-user model directory.
func (a *App) GetWhisperModels() []domain.ModelOption {
	models := provision.Catalog()

	dirs := []string{filepath.Join(config.AppDir(), "models")}
	if settings, err := a.Store.Load(); err == nil {
		dirs = append([]string{settings.ModelDir}, dirs...)
	}
	if bundled, ok := toolchain.BundledModelDir(); ok {
		dirs = append(dirs, bundled)
	}

	provision.MarkDownloaded(models, dirs)
	return models
}

// DownloadWhisperModel fetches modelID into the model directory, storing the
// directory in settings when none was configured.
func (a *App) DownloadWhisperModel(modelID string) (domain.Settings, error) {
	id := strings.TrimSpace(modelID)
	if id == "" {
		return domain.Settings{}, fmt.Errorf("model id is required")
	}
	model, found := provision.Lookup(id)
	if !found {
		return domain.Settings{}, fmt.Errorf("unknown model id: %s", id)
	}
	if a.fetcher == nil {
		return domain.Settings{}, fmt.Errorf("model downloads are not configured")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	dir := strings.TrimSpace(settings.ModelDir)
	if dir == "" {
		dir = filepath.Join(config.AppDir(), "models")
	}

	progress := func(total int64) io.Writer {
		return &downloadProgress{app: a, modelID: model.ID, total: total, last: -1}
	}
	if _, err := a.fetcher.Fetch(context.Background(), model, dir, false, progress); err != nil {
		return domain.Settings{}, err
	}

	settings.ModelDir = dir
	if err := a.Store.Save(settings); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	a.refreshDiagnosticsFromSettings(settings)
	return settings, nil
}

// downloadProgress pushes a model event for every whole percent received.
type downloadProgress struct {
	app     *App
	modelID string
	total   int64
	written int64
	last    int
}

func (p *downloadProgress) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	pct := 0
	if p.total > 0 {
		pct = int(p.written * 100 / p.total)
	}
	if pct != p.last {
		p.last = pct
		p.app.push(modelEventName, ModelProgress{
			ModelID: p.modelID,
			Written: p.written,
			Total:   p.total,
			Percent: pct,
		})
	}
	return len(b), nil
}
