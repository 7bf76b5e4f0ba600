package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"audio-transcriber/internal/domain"
)

// Store defines persistence operations for app settings.
type Store interface {
	Load() (domain.Settings, error)
	Save(domain.Settings) error
}

// JSONStore persists settings in a single JSON file on disk.
type JSONStore struct {
	path string
}

// NewJSONStore creates a JSON-backed settings store.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the file backing the store.
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads settings from disk or returns defaults when missing.
// Empty fields in the file are filled from defaults.
func (s *JSONStore) Load() (domain.Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}

		return domain.Settings{}, err
	}

	var cfg domain.Settings
	if err := json.Unmarshal(data, &cfg); err != nil {
		return domain.Settings{}, err
	}

	return Normalize(cfg), nil
}

// Save writes settings as indented JSON and creates parent directories.
func (s *JSONStore) Save(cfg domain.Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(Normalize(cfg), "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o644)
}

// Normalize trims user input and fills blank fields with defaults.
func Normalize(cfg domain.Settings) domain.Settings {
	defaults := DefaultSettings()

	cfg.ModelDir = strings.TrimSpace(cfg.ModelDir)
	cfg.WhisperCommand = strings.TrimSpace(cfg.WhisperCommand)
	cfg.Language = strings.TrimSpace(cfg.Language)
	cfg.FFmpegPath = strings.TrimSpace(cfg.FFmpegPath)

	if cfg.ModelDir == "" {
		cfg.ModelDir = defaults.ModelDir
	}
	if cfg.WhisperCommand == "" {
		cfg.WhisperCommand = defaults.WhisperCommand
	}
	if cfg.Language == "" {
		cfg.Language = defaults.Language
	}
	return cfg
}
