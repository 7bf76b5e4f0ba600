package duration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"

	"audio-transcriber/internal/toolchain"
)

// WAVHeader reads duration from RIFF/WAVE headers without decoding samples.
type WAVHeader struct{}

// Name identifies the strategy in logs.
func (WAVHeader) Name() string { return "wav-header" }

// Duration returns the header-declared length of a WAV file.
func (WAVHeader) Duration(_ context.Context, _ toolchain.Toolchain, path string) (float64, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
	default:
		return 0, errors.New("not a wav file")
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	length, err := wav.NewDecoder(f).Duration()
	if err != nil {
		return 0, fmt.Errorf("read wav header: %w", err)
	}
	return length.Seconds(), nil
}
