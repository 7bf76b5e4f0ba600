package domain

import "time"

// JobStatus tracks the lifecycle of a single transcription job.
type JobStatus string

const (
	JobStatusIdle      JobStatus = "idle"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// EstimateSource tells where a job's duration estimate came from.
type EstimateSource string

const (
	EstimateSourceProbe    EstimateSource = "probe"
	EstimateSourceFileSize EstimateSource = "file-size"
)

// Settings contains user-selectable runtime configuration.
type Settings struct {
	ModelDir       string `json:"modelDir" env:"MODEL_DIR"`
	WhisperCommand string `json:"whisperCommand" env:"WHISPER"`
	Language       string `json:"language" env:"LANGUAGE"`
	FFmpegPath     string `json:"ffmpegPath,omitempty" env:"FFMPEG"`
}

// Job is one transcription attempt for a single selected audio file.
type Job struct {
	ID               string         `json:"id"`
	Status           JobStatus      `json:"status"`
	SourcePath       string         `json:"sourcePath,omitempty"`
	ModelDir         string         `json:"modelDir,omitempty"`
	StartedAt        time.Time      `json:"startedAt,omitempty"`
	EstimatedSeconds float64        `json:"estimatedSeconds,omitempty"`
	EstimateSource   EstimateSource `json:"estimateSource,omitempty"`
}

// ProgressState is the derived indicator state recomputed on every tick.
type ProgressState struct {
	ElapsedSeconds   float64 `json:"elapsedSeconds"`
	EstimatedSeconds float64 `json:"estimatedSeconds"`
	Percent          int     `json:"percent"`
	Determinate      bool    `json:"determinate"`
}
