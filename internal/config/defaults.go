package config

import (
	"os"
	"path/filepath"

	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/toolchain"
)

const (
	// AppDirName is the per-user directory holding settings, models and logs.
	AppDirName = ".audio-transcriber"

	DefaultWhisperCommand = "whisper-cli"
	DefaultLanguage       = "auto"
)

// DefaultSettings returns baseline local configuration for first launch.
// A model bundled with the application wins over the per-user model directory.
func DefaultSettings() domain.Settings {
	modelDir := filepath.Join(AppDir(), "models")
	if bundled, ok := toolchain.BundledModelDir(); ok {
		modelDir = bundled
	}

	return domain.Settings{
		ModelDir:       modelDir,
		WhisperCommand: DefaultWhisperCommand,
		Language:       DefaultLanguage,
	}
}

// AppDir returns the per-user application directory.
func AppDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, AppDirName)
}

// SettingsPath returns the default location of the settings file.
func SettingsPath() string {
	return filepath.Join(AppDir(), "settings.json")
}
