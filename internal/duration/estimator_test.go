package duration

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/toolchain"
)

// fakeStrategy returns a fixed outcome and records calls.
type fakeStrategy struct {
	name    string
	seconds float64
	err     error
	calls   int
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Duration(context.Context, toolchain.Toolchain, string) (float64, error) {
	f.calls++
	return f.seconds, f.err
}

// writeWAV creates a mono 16-bit WAV with the requested length.
func writeWAV(t *testing.T, path string, sampleRate, seconds int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:   make([]int, sampleRate*seconds),
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
}

// TestSizeEstimate verifies the max(30, min(MB*60, 10800)) heuristic.
func TestSizeEstimate(t *testing.T) {
	const mb = 1024 * 1024
	cases := []struct {
		name string
		size int64
		want float64
	}{
		{name: "five megabytes", size: 5 * mb, want: 300},
		{name: "tiny file floors at 30s", size: mb / 10, want: 30},
		{name: "half megabyte is exactly the floor", size: mb / 2, want: 30},
		{name: "one megabyte", size: mb, want: 60},
		{name: "huge file capped at three hours", size: 500 * mb, want: 10800},
		{name: "exactly at cap", size: 180 * mb, want: 10800},
		{name: "empty file", size: 0, want: 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SizeEstimate(tc.size); got != tc.want {
				t.Fatalf("SizeEstimate(%d) = %v, want %v", tc.size, got, tc.want)
			}
		})
	}
}

// TestSizeEstimateBounds checks the bound for a sweep of sizes.
func TestSizeEstimateBounds(t *testing.T) {
	for size := int64(1); size < 1<<34; size *= 3 {
		got := SizeEstimate(size)
		want := math.Max(30, math.Min(float64(size)/(1024*1024)*60, 10800))
		if got != want || got < 30 || got > 10800 {
			t.Fatalf("SizeEstimate(%d) = %v, want %v within [30,10800]", size, got, want)
		}
	}
}

// TestEstimatorFirstSuccessWins verifies strategy priority.
func TestEstimatorFirstSuccessWins(t *testing.T) {
	first := &fakeStrategy{name: "first", err: errors.New("decode failed")}
	second := &fakeStrategy{name: "second", seconds: 42}
	third := &fakeStrategy{name: "third", seconds: 99}

	est := NewEstimatorWithStrategies(nil, first, second, third)
	got, ok := est.Estimate(context.Background(), toolchain.Toolchain{}, "clip.mp3")
	if !ok || got != 42 {
		t.Fatalf("Estimate() = %v, %v; want 42, true", got, ok)
	}
	if third.calls != 0 {
		t.Fatal("later strategies should not run after a success")
	}
}

// TestEstimatorIgnoresNonPositiveLengths verifies metadata is used only when positive.
func TestEstimatorIgnoresNonPositiveLengths(t *testing.T) {
	zero := &fakeStrategy{name: "zero", seconds: 0}
	nan := &fakeStrategy{name: "nan", seconds: math.NaN()}

	est := NewEstimatorWithStrategies(nil, zero, nan)
	if got, ok := est.Estimate(context.Background(), toolchain.Toolchain{}, "clip.mp3"); ok {
		t.Fatalf("Estimate() = %v, want unknown", got)
	}
}

// TestEstimateOrSizeFallsBackToFileSize covers the 5 MB scenario.
func TestEstimateOrSizeFallsBackToFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lecture.m4a")
	if err := os.WriteFile(path, make([]byte, 5*1024*1024), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	est := NewEstimatorWithStrategies(nil, &fakeStrategy{name: "broken", err: errors.New("boom")})
	got, source := est.EstimateOrSize(context.Background(), toolchain.Toolchain{}, path)
	if got != 300 {
		t.Fatalf("estimate = %v, want 300", got)
	}
	if source != domain.EstimateSourceFileSize {
		t.Fatalf("source = %s, want file-size", source)
	}
}

// TestEstimateOrSizeMissingFile uses the floor when the file cannot be read.
func TestEstimateOrSizeMissingFile(t *testing.T) {
	est := NewEstimatorWithStrategies(nil)
	got, source := est.EstimateOrSize(context.Background(), toolchain.Toolchain{}, filepath.Join(t.TempDir(), "gone.mp3"))
	if got != MinSizeEstimateSeconds || source != domain.EstimateSourceFileSize {
		t.Fatalf("EstimateOrSize() = %v, %s", got, source)
	}
}

// TestWAVHeaderTwoMinutes covers the two-minute WAV scenario without a decoder.
func TestWAVHeaderTwoMinutes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memo.wav")
	writeWAV(t, path, 1000, 120)

	est := NewEstimatorWithStrategies(nil, &fakeStrategy{name: "no-ffmpeg", err: errors.New("missing")}, WAVHeader{})
	got, source := est.EstimateOrSize(context.Background(), toolchain.Toolchain{}, path)
	if source != domain.EstimateSourceProbe {
		t.Fatalf("source = %s, want probe", source)
	}
	if math.Abs(got-120) > 0.1 {
		t.Fatalf("estimate = %v, want ~120", got)
	}
}

// TestWAVHeaderRejectsOtherExtensions keeps the reader to WAV containers.
func TestWAVHeaderRejectsOtherExtensions(t *testing.T) {
	if _, err := (WAVHeader{}).Duration(context.Background(), toolchain.Toolchain{}, "song.mp3"); err == nil {
		t.Fatal("expected error for non-wav file")
	}
}

// TestWAVHeaderCorruptFile verifies garbage never yields a usable length.
func TestWAVHeaderCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wav")
	if err := os.WriteFile(path, []byte("definitely not riff"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	est := NewEstimatorWithStrategies(nil, WAVHeader{})
	if got, ok := est.Estimate(context.Background(), toolchain.Toolchain{}, path); ok {
		t.Fatalf("Estimate() = %v, want unknown", got)
	}
}
