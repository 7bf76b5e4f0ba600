// Package progress converts elapsed time and a duration estimate into the
// percentage shown while a transcription runs.
package progress

import (
	"math"
	"time"

	"audio-transcriber/internal/domain"
)

const (
	// PadFactor inflates the estimate so the bar never reaches the end before
	// the transcription call returns.
	PadFactor = 1.2

	MinRunning = 1
	MaxRunning = 95
	Complete   = 100

	// TickInterval is how often the indicator is recomputed.
	TickInterval = 200 * time.Millisecond
)

// Percent returns round(elapsed / (estimate*PadFactor) * 100) clamped to [1, 95].
// A non-positive estimate yields the minimum.
func Percent(elapsed, estimate float64) int {
	if estimate <= 0 || math.IsNaN(estimate) || math.IsNaN(elapsed) {
		return MinRunning
	}
	pct := math.Round(elapsed / (estimate * PadFactor) * 100)
	return clamp(int(math.Max(math.Min(pct, math.MaxInt32), math.MinInt32)), MinRunning, MaxRunning)
}

// Running derives the indicator state for an active job.
func Running(elapsed, estimate float64) domain.ProgressState {
	return domain.ProgressState{
		ElapsedSeconds:   elapsed,
		EstimatedSeconds: estimate,
		Percent:          Percent(elapsed, estimate),
		Determinate:      estimate > 0,
	}
}

// Finished derives the terminal indicator state. Completion and failure both
// end at 100.
func Finished(elapsed, estimate float64) domain.ProgressState {
	return domain.ProgressState{
		ElapsedSeconds:   elapsed,
		EstimatedSeconds: estimate,
		Percent:          Complete,
		Determinate:      true,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
