package duration

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tcolgate/mp3"

	"audio-transcriber/internal/toolchain"
)

// MP3Frames sums MPEG audio frame lengths. It walks frame headers only and
// never decodes audio, so VBR files measure correctly.
type MP3Frames struct{}

// Name identifies the strategy in logs.
func (MP3Frames) Name() string { return "mp3-frames" }

// Duration returns the summed length of every frame in an MP3 file.
func (MP3Frames) Duration(ctx context.Context, _ toolchain.Toolchain, path string) (float64, error) {
	if strings.ToLower(filepath.Ext(path)) != ".mp3" {
		return 0, errors.New("not an mp3 file")
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var (
		dec     = mp3.NewDecoder(bufio.NewReader(f))
		frame   mp3.Frame
		skipped int
		total   time.Duration
		frames  int
	)
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return 0, fmt.Errorf("read mp3 frame: %w", err)
		}
		total += frame.Duration()
		frames++
		if frames%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
	}
	if frames == 0 {
		return 0, errors.New("no mp3 frames found")
	}
	return total.Seconds(), nil
}
