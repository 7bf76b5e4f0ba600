// Package provision downloads whisper.cpp model files into a model directory.
// It runs as a separate step; transcription jobs never download anything.
package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/logging"
)

// DefaultTimeout bounds a single model download.
const DefaultTimeout = 2 * time.Hour

const userAgent = "audio-transcriber"

// ProgressFunc returns a writer that receives downloaded bytes. total is -1
// when the server does not send a length.
type ProgressFunc func(total int64) io.Writer

// Fetcher downloads catalog models.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewFetcher builds a Fetcher using the default HTTP client.
func NewFetcher(logger *slog.Logger) *Fetcher {
	return NewFetcherWithClient(http.DefaultClient, DefaultTimeout, logger)
}

// NewFetcherWithClient builds a Fetcher with a custom client and timeout.
func NewFetcherWithClient(client *http.Client, timeout time.Duration, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Fetcher{client: client, timeout: timeout, logger: logger}
}

// Fetch downloads model into dir and returns the final file path. An existing
// file is kept unless force is set.
func (f *Fetcher) Fetch(ctx context.Context, model domain.ModelOption, dir string, force bool, progress ProgressFunc) (string, error) {
	if model.URL == "" || model.FileName == "" {
		return "", fmt.Errorf("model %q has no download source", model.ID)
	}

	target := filepath.Join(dir, model.FileName)
	if !force {
		if info, err := os.Stat(target); err == nil && !info.IsDir() && info.Size() > 0 {
			f.logger.Info("model already present", "path", target)
			return target, nil
		}
	}

	f.logger.Info("downloading model", "model", model.ID, "url", model.URL, "dir", dir)
	if err := f.download(ctx, target, model.URL, progress); err != nil {
		return "", fmt.Errorf("download model %s: %w", model.Name, err)
	}
	f.logger.Info("model downloaded", "path", target)
	return target, nil
}

// download writes sourceURL to a .download sibling and renames it into place.
func (f *Fetcher) download(ctx context.Context, destinationPath, sourceURL string, progress ProgressFunc) error {
	if err := os.MkdirAll(filepath.Dir(destinationPath), 0o755); err != nil {
		return fmt.Errorf("prepare destination directory: %w", err)
	}

	tmpPath := destinationPath + ".download"
	if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale temp file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("request download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	var dst io.Writer = file
	if progress != nil {
		if w := progress(resp.ContentLength); w != nil {
			dst = io.MultiWriter(file, w)
		}
	}

	_, copyErr := io.Copy(dst, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write destination file: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close destination file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destinationPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move downloaded file into place: %w", err)
	}
	return nil
}
