package duration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"audio-transcriber/internal/toolchain"
)

var errNoDuration = errors.New("no duration reported")

// bannerDuration matches the "Duration: 00:02:00.00" line ffmpeg prints for inputs.
var bannerDuration = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// ToolchainProbe reads duration with the resolved ffmpeg toolchain:
// ffprobe JSON when available, otherwise the ffmpeg input banner.
type ToolchainProbe struct {
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewToolchainProbe builds a probe that executes real binaries.
func NewToolchainProbe() ToolchainProbe {
	return ToolchainProbe{run: combinedOutput}
}

// NewToolchainProbeForTests builds a probe with an injected command runner.
func NewToolchainProbeForTests(run func(ctx context.Context, name string, args ...string) ([]byte, error)) ToolchainProbe {
	return ToolchainProbe{run: run}
}

// Name identifies the strategy in logs.
func (ToolchainProbe) Name() string { return "toolchain" }

// Duration returns the container duration in seconds.
func (p ToolchainProbe) Duration(ctx context.Context, tools toolchain.Toolchain, path string) (float64, error) {
	if strings.TrimSpace(path) == "" {
		return 0, errors.New("empty path")
	}
	if tools.HasProbe() {
		seconds, err := p.ffprobe(ctx, tools.FFprobe, path)
		if err == nil {
			return seconds, nil
		}
		if strings.TrimSpace(tools.FFmpeg) == "" {
			return 0, err
		}
	}
	if strings.TrimSpace(tools.FFmpeg) == "" {
		return 0, errors.New("no decoder resolved")
	}
	return p.ffmpegBanner(ctx, tools.FFmpeg, path)
}

type probeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (p ToolchainProbe) ffprobe(ctx context.Context, binary, path string) (float64, error) {
	output, err := p.run(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-of", "json", "--", path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var parsed probeFormat
	if err := json.Unmarshal(output, &parsed); err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}
	value := strings.TrimSpace(parsed.Format.Duration)
	if value == "" || value == "N/A" {
		return 0, errNoDuration
	}
	return strconv.ParseFloat(value, 64)
}

// ffmpegBanner runs `ffmpeg -i` without outputs; ffmpeg exits non-zero but
// still prints the input description, so the exit status is ignored.
func (p ToolchainProbe) ffmpegBanner(ctx context.Context, binary, path string) (float64, error) {
	output, err := p.run(ctx, binary, "-hide_banner", "-nostdin", "-i", path)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}

	seconds, parseErr := ParseBannerDuration(string(output))
	if parseErr != nil {
		if err != nil {
			return 0, fmt.Errorf("ffmpeg: %w", err)
		}
		return 0, parseErr
	}
	return seconds, nil
}

// ParseBannerDuration extracts seconds from ffmpeg's "Duration: HH:MM:SS.xx" line.
func ParseBannerDuration(output string) (float64, error) {
	match := bannerDuration.FindStringSubmatch(output)
	if match == nil {
		return 0, errNoDuration
	}
	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])
	seconds, err := strconv.ParseFloat(match[3], 64)
	if err != nil {
		return 0, err
	}
	return float64(hours*3600+minutes*60) + seconds, nil
}

func combinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
