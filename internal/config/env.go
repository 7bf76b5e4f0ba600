package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"

	"audio-transcriber/internal/domain"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "TRANSCRIBER_"

// Runtime holds process-level options that are never persisted.
type Runtime struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
	LogFile   string `env:"LOG_FILE"`
}

// ApplyEnv overlays TRANSCRIBER_* variables onto loaded settings.
// Unset variables leave the corresponding field untouched.
func ApplyEnv(cfg domain.Settings) (domain.Settings, error) {
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return domain.Settings{}, fmt.Errorf("parse environment: %w", err)
	}
	return Normalize(cfg), nil
}

// LoadRuntime reads logging options from the environment.
func LoadRuntime() (Runtime, error) {
	var rt Runtime
	if err := env.ParseWithOptions(&rt, env.Options{Prefix: EnvPrefix}); err != nil {
		return Runtime{}, fmt.Errorf("parse environment: %w", err)
	}
	return rt, nil
}

// envFields maps each settings override to the field it replaces.
var envFields = []struct {
	key     string
	persist func(dst *domain.Settings, stored domain.Settings)
}{
	{"MODEL_DIR", func(dst *domain.Settings, stored domain.Settings) { dst.ModelDir = stored.ModelDir }},
	{"WHISPER", func(dst *domain.Settings, stored domain.Settings) { dst.WhisperCommand = stored.WhisperCommand }},
	{"LANGUAGE", func(dst *domain.Settings, stored domain.Settings) { dst.Language = stored.Language }},
	{"FFMPEG", func(dst *domain.Settings, stored domain.Settings) { dst.FFmpegPath = stored.FFmpegPath }},
}

// EnvStore decorates a Store so every Load honours environment overrides.
type EnvStore struct {
	Store
}

// Load reads the wrapped store, then applies TRANSCRIBER_* overrides.
func (s EnvStore) Load() (domain.Settings, error) {
	cfg, err := s.Store.Load()
	if err != nil {
		return domain.Settings{}, err
	}
	return ApplyEnv(cfg)
}

// Save writes cfg through the wrapped store. Fields currently overridden by
// the environment keep their stored value so overrides never reach disk.
func (s EnvStore) Save(cfg domain.Settings) error {
	var stored domain.Settings
	loaded := false
	for _, f := range envFields {
		if _, ok := os.LookupEnv(EnvPrefix + f.key); !ok {
			continue
		}
		if !loaded {
			var err error
			if stored, err = s.Store.Load(); err != nil {
				return err
			}
			loaded = true
		}
		f.persist(&cfg, stored)
	}
	return s.Store.Save(cfg)
}
