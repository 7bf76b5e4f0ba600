package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"audio-transcriber/internal/config"
	"audio-transcriber/internal/logging"
)

// NewLogger builds the desktop logger from TRANSCRIBER_LOG_* variables.
// Records also go to a JSON log file under the app directory, since a bundled
// app has no visible stderr.
func NewLogger() (*slog.Logger, io.Closer, error) {
	rt, err := config.LoadRuntime()
	if err != nil {
		return nil, nil, err
	}
	file := rt.LogFile
	if file == "" {
		file = filepath.Join(config.AppDir(), "logs", "app.log")
	}

	logger, closer, err := logging.New(logging.Options{
		Level:  rt.LogLevel,
		Format: rt.LogFormat,
		File:   file,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("configure logging: %w", err)
	}
	return logger, closer, nil
}
