package toolchain

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrDecoderNotFound is returned when no ffmpeg executable can be located.
var ErrDecoderNotFound = errors.New("ffmpeg not found")

// Toolchain holds resolved executable paths for one job.
type Toolchain struct {
	FFmpeg  string `json:"ffmpeg"`
	FFprobe string `json:"ffprobe,omitempty"`
	Bundled bool   `json:"bundled"`
}

// HasProbe reports whether an ffprobe executable was resolved.
func (t Toolchain) HasProbe() bool {
	return strings.TrimSpace(t.FFprobe) != ""
}

// Resolver finds ffmpeg and ffprobe without touching the environment.
type Resolver struct {
	lookPath    func(string) (string, error)
	stat        func(string) (os.FileInfo, error)
	resourceDir string
}

// NewResolver builds a resolver that searches PATH and the application bundle.
func NewResolver() *Resolver {
	return &Resolver{
		lookPath:    exec.LookPath,
		stat:        os.Stat,
		resourceDir: ResourceDir(),
	}
}

// NewResolverForTests creates a resolver with injectable dependencies.
func NewResolverForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	resourceDir string,
) *Resolver {
	return &Resolver{
		lookPath:    lookPath,
		stat:        stat,
		resourceDir: resourceDir,
	}
}

// Resolve locates ffmpeg (required) and ffprobe (optional).
func (r *Resolver) Resolve(override string) (Toolchain, error) {
	ffmpeg, bundled, err := r.resolveFFmpeg(strings.TrimSpace(override))
	if err != nil {
		return Toolchain{}, err
	}

	return Toolchain{
		FFmpeg:  ffmpeg,
		FFprobe: r.resolveFFprobe(ffmpeg),
		Bundled: bundled,
	}, nil
}

func (r *Resolver) resolveFFmpeg(override string) (string, bool, error) {
	if override != "" {
		if r.isExecutable(override) {
			return override, false, nil
		}
		if resolved, err := r.lookPath(override); err == nil {
			return resolved, false, nil
		}
		return "", false, fmt.Errorf("%w: configured path %s is not executable", ErrDecoderNotFound, override)
	}

	if resolved, err := r.lookPath(ExecutableName("ffmpeg")); err == nil {
		return resolved, false, nil
	}

	if candidate := r.bundled("ffmpeg"); candidate != "" {
		return candidate, true, nil
	}

	return "", false, fmt.Errorf("%w: install ffmpeg (for example `brew install ffmpeg`) or place it in %s",
		ErrDecoderNotFound, filepath.Join(r.resourceDir, "bin"))
}

func (r *Resolver) resolveFFprobe(ffmpeg string) string {
	if sibling := filepath.Join(filepath.Dir(ffmpeg), ExecutableName("ffprobe")); r.isExecutable(sibling) {
		return sibling
	}
	if resolved, err := r.lookPath(ExecutableName("ffprobe")); err == nil {
		return resolved
	}
	return r.bundled("ffprobe")
}

func (r *Resolver) bundled(name string) string {
	if r.resourceDir == "" {
		return ""
	}
	candidate := filepath.Join(r.resourceDir, "bin", ExecutableName(name))
	if r.isExecutable(candidate) {
		return candidate
	}
	return ""
}

func (r *Resolver) isExecutable(path string) bool {
	info, err := r.stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// ExecutableName appends the platform executable suffix.
func ExecutableName(name string) string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name + ".exe"
	}
	return name
}
