// Package transcript handles the plain text that leaves the application:
// default export names, UTF-8 save and load, and the failure display text.
package transcript

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// FileSuffix is appended to the source stem for the default export name.
	FileSuffix = " - Transcript.txt"
	// FallbackFileName is used when no source file is known.
	FallbackFileName = "transcript.txt"
	// ErrorPrefix marks a failure shown in place of a transcript.
	ErrorPrefix = "Error: "
)

// ErrNothingToExport is returned when copy or save is requested without a transcript.
var ErrNothingToExport = errors.New("no transcript to export")

// DefaultFileName derives "<stem> - Transcript.txt" from the source audio path.
func DefaultFileName(sourcePath string) string {
	base := filepath.Base(strings.TrimSpace(sourcePath))
	stem := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return FallbackFileName
	}
	return stem + FileSuffix
}

// ErrorText formats a failure message for the transcript area.
func ErrorText(message string) string {
	return ErrorPrefix + message
}

// Save writes text to path as UTF-8, creating parent directories.
// The bytes written are exactly the bytes of text.
func Save(path, text string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("save transcript: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}

// Load reads a saved transcript back.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("load transcript: %w", err)
	}
	return string(data), nil
}
