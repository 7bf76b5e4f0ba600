// Package duration estimates audio playback length to drive the progress
// indicator. Estimation never fails loudly: every strategy error is swallowed
// and the caller falls back to a file-size heuristic.
package duration

import (
	"context"
	"log/slog"
	"math"
	"os"
	"time"

	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/logging"
	"audio-transcriber/internal/toolchain"
)

const (
	// MinSizeEstimateSeconds is the floor applied to the size heuristic.
	MinSizeEstimateSeconds = 30.0
	// MaxSizeEstimateSeconds caps the size heuristic at three hours.
	MaxSizeEstimateSeconds = 3 * 3600.0
	// SecondsPerMegabyte assumes roughly one minute of speech per MB.
	SecondsPerMegabyte = 60.0

	defaultProbeTimeout = 20 * time.Second
)

// Strategy is one way of reading an audio file's duration.
type Strategy interface {
	Name() string
	Duration(ctx context.Context, tools toolchain.Toolchain, path string) (float64, error)
}

// Estimator tries each strategy in order; the first positive result wins.
type Estimator struct {
	strategies []Strategy
	timeout    time.Duration
	stat       func(string) (os.FileInfo, error)
	logger     *slog.Logger
}

// NewEstimator builds the production estimator: toolchain decode, then WAV
// header, then MP3 frame walk.
func NewEstimator(logger *slog.Logger) *Estimator {
	return NewEstimatorWithStrategies(logger, NewToolchainProbe(), WAVHeader{}, MP3Frames{})
}

// NewEstimatorWithStrategies builds an estimator with a custom strategy order.
func NewEstimatorWithStrategies(logger *slog.Logger, strategies ...Strategy) *Estimator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Estimator{
		strategies: strategies,
		timeout:    defaultProbeTimeout,
		stat:       os.Stat,
		logger:     logger,
	}
}

// Estimate returns the playback duration in seconds, or ok=false when unknown.
func (e *Estimator) Estimate(ctx context.Context, tools toolchain.Toolchain, path string) (float64, bool) {
	for _, strategy := range e.strategies {
		probeCtx, cancel := context.WithTimeout(ctx, e.timeout)
		seconds, err := strategy.Duration(probeCtx, tools, path)
		cancel()

		if err != nil {
			e.logger.Debug("duration strategy failed", "strategy", strategy.Name(), "path", path, "error", err)
			continue
		}
		if !usable(seconds) {
			e.logger.Debug("duration strategy returned no length", "strategy", strategy.Name(), "path", path)
			continue
		}

		e.logger.Debug("duration probed", "strategy", strategy.Name(), "seconds", seconds)
		return seconds, true
	}
	return 0, false
}

// EstimateOrSize returns the probed duration, or the size heuristic when
// probing fails. An unreadable file yields the heuristic's floor.
func (e *Estimator) EstimateOrSize(ctx context.Context, tools toolchain.Toolchain, path string) (float64, domain.EstimateSource) {
	if seconds, ok := e.Estimate(ctx, tools, path); ok {
		return seconds, domain.EstimateSourceProbe
	}

	info, err := e.stat(path)
	if err != nil {
		return MinSizeEstimateSeconds, domain.EstimateSourceFileSize
	}
	return SizeEstimate(info.Size()), domain.EstimateSourceFileSize
}

// SizeEstimate converts a file size into seconds: max(30, min(MB*60, 10800)).
func SizeEstimate(sizeBytes int64) float64 {
	mb := float64(sizeBytes) / (1024 * 1024)
	return math.Max(MinSizeEstimateSeconds, math.Min(mb*SecondsPerMegabyte, MaxSizeEstimateSeconds))
}

func usable(seconds float64) bool {
	return seconds > 0 && !math.IsNaN(seconds) && !math.IsInf(seconds, 0)
}
